package serverutils

import (
	"barcode-lookup/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

type BaseResponse[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

func SuccessResponse[T any](message string, data T) BaseResponse[T] {
	return BaseResponse[T]{
		Success: true,
		Code:    fiber.StatusOK,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(code int, message string) BaseResponse[any] {
	return BaseResponse[any]{
		Success: false,
		Code:    code,
		Message: message,
	}
}

// AppErrorResponse writes err with the status its apperr kind maps to.
func AppErrorResponse(ctx *fiber.Ctx, err error) error {
	appErr := apperr.As(err, apperr.KindUnknown)
	status := appErr.Kind.HTTPStatus()
	body := ErrorResponse(status, appErr.Error())
	body.Kind = appErr.Kind.String()
	return ctx.Status(status).JSON(body)
}

// ErrorHandlerMiddleware turns panics and unhandled errors into ErrorResponse bodies.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(500, "internal server error"))
			}
		}()

		if err = ctx.Next(); err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				return ctx.Status(fe.Code).JSON(ErrorResponse(fe.Code, fe.Message))
			}
			return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(500, err.Error()))
		}
		return nil
	}
}
