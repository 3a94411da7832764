package order

import (
	"github.com/go-playground/validator/v10"

	"github.com/mavuno/sokoni/core"
)

var (
	orderStatusTag  = "orderstatus"
	orderStatusText = "invalid order status"
)

func init() {
	_ = core.Validate.RegisterValidation(orderStatusTag, orderStatusValidation)
	core.RegisterCustomTranslation(orderStatusTag, orderStatusText)
}

// orderStatusValidation checks that the provided status is in AllStatuses.
func orderStatusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}
