package controller

import (
	"context"

	"barcode-lookup/internal/dto"
	"barcode-lookup/internal/pkg/serverutils"
	"barcode-lookup/pkg/session"

	"github.com/gofiber/fiber/v2"
)

// ScanSession is the session surface the HTTP API drives.
type ScanSession interface {
	OnCodeScanned(code string) error
	SubmitLookup(ctx context.Context) (uint64, error)
	Reset()
	SetTorch(ctx context.Context, enabled bool) error
	TorchStatus() session.TorchStatus
	Snapshot() session.Snapshot
}

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	GetSession(ctx *fiber.Ctx) error
	Scan(ctx *fiber.Ctx) error
	Submit(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
	GetTorch(ctx *fiber.Ctx) error
	SetTorch(ctx *fiber.Ctx) error
}

type sessionController struct {
	session ScanSession
}

func NewSessionController(s ScanSession) ISessionController {
	return &sessionController{session: s}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session")
	h.Get("", c.GetSession)
	h.Post("/scan", c.Scan)
	h.Post("/submit", c.Submit)
	h.Post("/reset", c.Reset)
	h.Get("/torch", c.GetTorch)
	h.Post("/torch", c.SetTorch)
}

func (c *sessionController) GetSession(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Session state", c.session.Snapshot()))
}

// Scan feeds a code as if the decoder had produced it.
func (c *sessionController) Scan(ctx *fiber.Ctx) error {
	var req dto.ScanRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	if err := c.session.OnCodeScanned(req.Code); err != nil {
		return serverutils.AppErrorResponse(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Code captured", c.session.Snapshot()))
}

// Submit starts the lookup and answers right away; the outcome arrives on the
// display feed or through GET /session.
func (c *sessionController) Submit(ctx *fiber.Ctx) error {
	id, err := c.session.SubmitLookup(ctx.UserContext())
	if err != nil {
		return serverutils.AppErrorResponse(ctx, err)
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.BaseResponse[dto.SubmitResponse]{
		Success: true,
		Code:    fiber.StatusAccepted,
		Message: "Lookup submitted",
		Data:    dto.SubmitResponse{RequestID: id},
	})
}

func (c *sessionController) Reset(ctx *fiber.Ctx) error {
	c.session.Reset()
	return ctx.JSON(serverutils.SuccessResponse("Session reset", c.session.Snapshot()))
}

func (c *sessionController) GetTorch(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Torch state", c.session.TorchStatus()))
}

func (c *sessionController) SetTorch(ctx *fiber.Ctx) error {
	var req dto.TorchRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := serverutils.ValidateRequest(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	if err := c.session.SetTorch(ctx.UserContext(), *req.Enabled); err != nil {
		return serverutils.AppErrorResponse(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Torch updated", c.session.TorchStatus()))
}
