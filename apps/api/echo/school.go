package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mavuno/sokoni/core"
	"github.com/mavuno/sokoni/core/school"
	"github.com/mavuno/sokoni/core/user"
)

type schoolAPI struct {
	svc *school.Service
}

func registerSchoolAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *school.Service) {
	api := schoolAPI{svc: svc}

	sg := g.Group("/school", auth)

	// admin-only endpoints
	adm := sg.Group("", adminMiddleware())
	adm.POST("/students", api.createStudent)
	adm.GET("/students", api.queryStudents)
	adm.GET("/students/:id", api.getStudent)
	adm.POST("/teachers", api.createTeacher)
	adm.GET("/teachers", api.queryTeachers)
	adm.POST("/classes", api.createClass)
	adm.GET("/classes", api.queryClasses)
	adm.GET("/classes/:id", api.getClass)
	adm.POST("/subjects", api.createSubject)
	adm.GET("/subjects", api.querySubjects)
	adm.POST("/enrollments", api.enroll)
	adm.GET("/enrollments", api.queryEnrollments)
	adm.POST("/fees", api.createFee)
	adm.GET("/fees", api.queryFees)
	adm.POST("/fees/:id/payments", api.recordFeePayment)

	// teachers record attendance and grades for their classes; admin too
	staff := sg.Group("", roleMiddleware(user.RoleAdmin, user.RoleTeacher))
	staff.POST("/attendance", api.recordAttendance)
	staff.GET("/attendance", api.queryAttendance)
	staff.POST("/grades", api.recordGrade)
	staff.GET("/grades", api.queryGrades)
}

// Handlers

func (api *schoolAPI) createStudent(ctx echo.Context) error {
	var data school.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	st, err := api.svc.CreateStudent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *schoolAPI) queryStudents(ctx echo.Context) error {
	students, err := api.svc.QueryAllStudents(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *schoolAPI) getStudent(ctx echo.Context) error {
	st, err := api.svc.GetStudentByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == school.ErrStudentNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "getting student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *schoolAPI) createTeacher(ctx echo.Context) error {
	var data school.NewTeacher
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacher")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	tch, err := api.svc.CreateTeacher(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusCreated, tch)
}

func (api *schoolAPI) queryTeachers(ctx echo.Context) error {
	teachers, err := api.svc.QueryAllTeachers(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *schoolAPI) createClass(ctx echo.Context) error {
	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	cls, err := api.svc.CreateClass(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *schoolAPI) queryClasses(ctx echo.Context) error {
	classes, err := api.svc.QueryAllClasses(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *schoolAPI) getClass(ctx echo.Context) error {
	cls, err := api.svc.GetClassByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == school.ErrClassNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "getting class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *schoolAPI) createSubject(ctx echo.Context) error {
	var data school.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	sub, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

func (api *schoolAPI) querySubjects(ctx echo.Context) error {
	subjects, err := api.svc.QueryAllSubjects(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *schoolAPI) enroll(ctx echo.Context) error {
	var data school.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	enr, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		switch errors.Cause(err).(type) {
		case *core.ValidationError:
			return err
		}
		switch errors.Cause(err) {
		case school.ErrStudentNotFound, school.ErrClassNotFound:
			return errHTTPNotFound
		}
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *schoolAPI) queryEnrollments(ctx echo.Context) error {
	classID := ctx.QueryParam("class_id")
	if classID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "required"})
	}
	enrs, err := api.svc.QueryEnrollments(ctx.Request().Context(), classID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *schoolAPI) recordAttendance(ctx echo.Context) error {
	var data school.AttendanceSheet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttendanceSheet")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	applied, err := api.svc.RecordAttendance(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == school.ErrClassNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "recording attendance")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"applied": applied})
}

func (api *schoolAPI) queryAttendance(ctx echo.Context) error {
	classID := ctx.QueryParam("class_id")
	if classID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "class_id", Error: "required"})
	}
	date, err := time.Parse("2006-01-02", ctx.QueryParam("date"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "date", Error: "must be a valid date (YYYY-MM-DD)"})
	}
	atts, err := api.svc.QueryAttendance(ctx.Request().Context(), classID, date)
	if err != nil {
		return errors.Wrap(err, "querying attendance")
	}
	return ctx.JSON(http.StatusOK, atts)
}

func (api *schoolAPI) recordGrade(ctx echo.Context) error {
	var data school.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	grd, err := api.svc.RecordGrade(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == school.ErrStudentNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "recording grade")
	}
	return ctx.JSON(http.StatusOK, grd)
}

func (api *schoolAPI) queryGrades(ctx echo.Context) error {
	studentID := ctx.QueryParam("student_id")
	if studentID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "required"})
	}
	grades, err := api.svc.QueryGrades(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *schoolAPI) createFee(ctx echo.Context) error {
	var data school.NewFee
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFee")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	fee, err := api.svc.CreateFee(ctx.Request().Context(), data)
	if err != nil {
		if errors.Cause(err) == school.ErrStudentNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "creating fee")
	}
	return ctx.JSON(http.StatusCreated, fee)
}

func (api *schoolAPI) queryFees(ctx echo.Context) error {
	studentID := ctx.QueryParam("student_id")
	if studentID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: "required"})
	}
	fees, err := api.svc.QueryFees(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "querying fees")
	}
	return ctx.JSON(http.StatusOK, fees)
}

func (api *schoolAPI) recordFeePayment(ctx echo.Context) error {
	var data school.FeePayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to FeePayment")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	fee, err := api.svc.RecordFeePayment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		switch errors.Cause(err).(type) {
		case *core.ValidationError:
			return err
		}
		if errors.Cause(err) == school.ErrFeeNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "recording fee payment")
	}
	return ctx.JSON(http.StatusOK, fee)
}
