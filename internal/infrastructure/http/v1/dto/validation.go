package dto

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"ledgerbook/internal/domain/ledger"
	"ledgerbook/internal/domain/shipment"
)

var registerOnce sync.Once

// RegisterValidators adds the ledger tags to gin's validator:
//
//	movement_kind  a known movement type
//	shipment_type  standard | return_billable | return_free
//
// Field names in errors use the json tag.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("movement_kind", validateMovementKind)
		_ = v.RegisterValidation("shipment_type", validateShipmentType)
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return fld.Name
			}
			return name
		})
	})
}

func validateMovementKind(fl validator.FieldLevel) bool {
	return ledger.Kind(fl.Field().String()).IsValid()
}

func validateShipmentType(fl validator.FieldLevel) bool {
	return shipment.Type(fl.Field().String()).IsValid()
}
