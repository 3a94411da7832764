package school

import (
	"github.com/go-playground/validator/v10"

	"github.com/mavuno/sokoni/core"
)

var (
	attendanceStatusTag  = "attendancestatus"
	attendanceStatusText = "invalid attendance status"
)

func init() {
	_ = core.Validate.RegisterValidation(attendanceStatusTag, attendanceStatusValidation)
	core.RegisterCustomTranslation(attendanceStatusTag, attendanceStatusText)
}

// attendanceStatusValidation checks that the provided status is in AllAttendanceStatuses.
func attendanceStatusValidation(fl validator.FieldLevel) bool {
	status := fl.Field().String()
	for _, s := range AllAttendanceStatuses {
		if s == status {
			return true
		}
	}
	return false
}
