package catalog

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/mavuno/sokoni/core"
)

var (
	alphaNumDashTag   = "alphanumdash"
	alphaNumDashText  = "only lowercase alphanumeric characters and dashes are allowed"
	alphaNumDashRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

func init() {
	_ = core.Validate.RegisterValidation(alphaNumDashTag, alphaNumDashValidation)
	core.RegisterCustomTranslation(alphaNumDashTag, alphaNumDashText)
}

// alphaNumDashValidation validates slugs: lowercase alphanumerics separated by single dashes.
func alphaNumDashValidation(fl validator.FieldLevel) bool {
	return alphaNumDashRegex.MatchString(fl.Field().String())
}
