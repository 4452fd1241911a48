package lookup

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"barcode-lookup/internal/entity"
	"barcode-lookup/internal/pkg/apperr"

	"github.com/go-playground/validator/v10"
)

// productRecordPayload mirrors the server body. Pointers let the validator
// tell a missing or null field apart from an empty string.
type productRecordPayload struct {
	ID                  *string `json:"id" validate:"required"`
	NameEs              *string `json:"name_es" validate:"required"`
	Reference           *string `json:"reference" validate:"required"`
	InternalPackBarcode *string `json:"internalPackBarcode" validate:"required"`
	Dun14               *string `json:"dun14" validate:"required"`
	BarCode             *string `json:"barCode"`
	Ean13               *string `json:"ean13"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return v
}

// DecodeProductRecord parses a lookup response body. It never returns a
// partially populated record: any missing, null or non-string required
// field, or a non-string optional field, yields a malformed response error.
func DecodeProductRecord(body []byte) (*entity.ProductRecord, error) {
	var payload productRecordPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperr.Malformed("response is not a product object", err)
	}

	if err := validate.Struct(payload); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			missing := make([]string, 0, len(validationErrors))
			for _, fe := range validationErrors {
				missing = append(missing, fe.Field())
			}
			return nil, apperr.Malformed(fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")), nil)
		}
		return nil, apperr.Malformed("response validation failed", err)
	}

	return &entity.ProductRecord{
		ID:                  *payload.ID,
		NameEs:              *payload.NameEs,
		Reference:           *payload.Reference,
		InternalPackBarcode: *payload.InternalPackBarcode,
		Dun14:               *payload.Dun14,
		BarCode:             payload.BarCode,
		Ean13:               payload.Ean13,
	}, nil
}
