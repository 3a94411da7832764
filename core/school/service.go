package school

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/mavuno/sokoni/core"
	"github.com/mavuno/sokoni/core/notification"
	"github.com/mavuno/sokoni/core/user"
)

var (
	// errors
	ErrStudentNotFound     = errors.New("student not found")
	ErrTeacherNotFound     = errors.New("teacher not found")
	ErrClassNotFound       = errors.New("class not found")
	ErrSubjectNotFound     = errors.New("subject not found")
	ErrFeeNotFound         = errors.New("fee not found")
	ErrClassFull           = errors.New("class is at capacity")
	ErrAdmissionNoExists   = errors.New("a student with this admission number already exists")
	ErrAlreadyEnrolled     = errors.New("student is already enrolled in this class")
	ErrOverpayment         = errors.New("payment exceeds the outstanding balance")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CheckAdmissionNoUniqueness(ctx context.Context, admissionNo string) error
		CreateStudent(ctx context.Context, st Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		QueryAllStudents(ctx context.Context) ([]Student, error)

		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		GetTeacherByID(ctx context.Context, id string) (Teacher, error)
		QueryAllTeachers(ctx context.Context) ([]Teacher, error)

		CreateClass(ctx context.Context, cl Class) (Class, error)
		GetClassByID(ctx context.Context, id string) (Class, error)
		QueryAllClasses(ctx context.Context) ([]Class, error)

		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		QueryAllSubjects(ctx context.Context) ([]Subject, error)

		// EnrollStudent runs the capacity check, the enrollment insert, the
		// class counter increment and the student's class assignment in one
		// transaction, locking the class row. A full class returns
		// ErrClassFull; a duplicate (student, class) pair ErrAlreadyEnrolled.
		EnrollStudent(ctx context.Context, enr Enrollment) (Enrollment, error)
		QueryEnrollmentsByClassID(ctx context.Context, classID string) ([]Enrollment, error)

		CreateAttendance(ctx context.Context, att Attendance) (Attendance, error)
		QueryAttendanceByClassDate(ctx context.Context, classID string, date time.Time) ([]Attendance, error)

		// UpsertGrade inserts or overwrites the (student, subject, term) row.
		UpsertGrade(ctx context.Context, gr Grade) (Grade, error)
		QueryGradesByStudentID(ctx context.Context, studentID string) ([]Grade, error)

		CreateFee(ctx context.Context, fee Fee) (Fee, error)
		GetFeeByID(ctx context.Context, id string) (Fee, error)
		QueryFeesByStudentID(ctx context.Context, studentID string) ([]Fee, error)
		UpdateFeePayment(ctx context.Context, id string, paidAmount int64, status string, updatedAt time.Time) (Fee, error)
	}

	Service struct {
		repo     Repository
		userSvc  *user.Service
		notifSvc *notification.Service
		mailSvc  core.EmailService
	}
)

func NewService(repo Repository, userSvc *user.Service, notifSvc *notification.Service, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, userSvc: userSvc, notifSvc: notifSvc, mailSvc: mailSvc}
}

// Students

func (svc *Service) CreateStudent(ctx context.Context, ns NewStudent) (Student, error) {
	if err := svc.repo.CheckAdmissionNoUniqueness(ctx, ns.AdmissionNo); err != nil {
		if err == ErrAdmissionNoExists {
			return Student{}, core.NewValidationError(err, core.FieldError{Field: "admission_no", Error: err.Error()})
		}
		return Student{}, err
	}
	now := NowFunc().UTC()
	st := Student{
		ID:            uuid.NewString(),
		UserID:        ns.UserID,
		AdmissionNo:   ns.AdmissionNo,
		GuardianName:  ns.GuardianName,
		GuardianPhone: ns.GuardianPhone,
		ParentUserID:  null.NewString(ns.ParentUserID, ns.ParentUserID != ""),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.CreateStudent(ctx, st)
}

func (svc *Service) GetStudentByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) QueryAllStudents(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryAllStudents(ctx)
}

// Teachers

func (svc *Service) CreateTeacher(ctx context.Context, nt NewTeacher) (Teacher, error) {
	now := NowFunc().UTC()
	t := Teacher{
		ID:         uuid.NewString(),
		UserID:     nt.UserID,
		StaffNo:    nt.StaffNo,
		SubjectIDs: nt.SubjectIDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateTeacher(ctx, t)
}

func (svc *Service) QueryAllTeachers(ctx context.Context) ([]Teacher, error) {
	return svc.repo.QueryAllTeachers(ctx)
}

// Classes & subjects

func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	cl := Class{
		ID:        uuid.NewString(),
		Name:      nc.Name,
		Capacity:  nc.Capacity,
		TeacherID: null.NewString(nc.TeacherID, nc.TeacherID != ""),
	}
	return svc.repo.CreateClass(ctx, cl)
}

func (svc *Service) GetClassByID(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *Service) QueryAllClasses(ctx context.Context) ([]Class, error) {
	return svc.repo.QueryAllClasses(ctx)
}

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	sub := Subject{
		ID:   uuid.NewString(),
		Name: ns.Name,
		Code: ns.Code,
	}
	return svc.repo.CreateSubject(ctx, sub)
}

func (svc *Service) QueryAllSubjects(ctx context.Context) ([]Subject, error) {
	return svc.repo.QueryAllSubjects(ctx)
}

// Enroll places a student into a class. Capacity enforcement lives in the
// repository so the check and the insert cannot race.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	if _, err := svc.repo.GetStudentByID(ctx, ne.StudentID); err != nil {
		return Enrollment{}, err
	}
	if _, err := svc.repo.GetClassByID(ctx, ne.ClassID); err != nil {
		return Enrollment{}, err
	}
	enr := Enrollment{
		ID:        uuid.NewString(),
		StudentID: ne.StudentID,
		ClassID:   ne.ClassID,
		Year:      ne.Year,
		CreatedAt: NowFunc().UTC(),
	}
	enr, err := svc.repo.EnrollStudent(ctx, enr)
	if err != nil {
		switch err {
		case ErrClassFull:
			return Enrollment{}, core.NewValidationError(err, core.FieldError{Field: "class_id", Error: err.Error()})
		case ErrAlreadyEnrolled:
			return Enrollment{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return Enrollment{}, err
	}
	return enr, nil
}

func (svc *Service) QueryEnrollments(ctx context.Context, classID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsByClassID(ctx, classID)
}

// RecordAttendance writes a class attendance sheet entry by entry, with no
// atomicity across the sheet; on error it returns how many entries were
// applied before it.
func (svc *Service) RecordAttendance(ctx context.Context, sheet AttendanceSheet) (applied int, err error) {
	if _, err = svc.repo.GetClassByID(ctx, sheet.ClassID); err != nil {
		return 0, err
	}
	for _, entry := range sheet.Entries {
		att := Attendance{
			ID:        uuid.NewString(),
			StudentID: entry.StudentID,
			ClassID:   sheet.ClassID,
			Date:      sheet.Date,
			Status:    entry.Status,
		}
		if _, err = svc.repo.CreateAttendance(ctx, att); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func (svc *Service) QueryAttendance(ctx context.Context, classID string, date time.Time) ([]Attendance, error) {
	return svc.repo.QueryAttendanceByClassDate(ctx, classID, date)
}

// RecordGrade upserts the (student, subject, term) grade row.
func (svc *Service) RecordGrade(ctx context.Context, ng NewGrade) (Grade, error) {
	if _, err := svc.repo.GetStudentByID(ctx, ng.StudentID); err != nil {
		return Grade{}, err
	}
	gr := Grade{
		ID:        uuid.NewString(),
		StudentID: ng.StudentID,
		SubjectID: ng.SubjectID,
		Term:      ng.Term,
		Score:     ng.Score,
		Remark:    ng.Remark,
		UpdatedAt: NowFunc().UTC(),
	}
	return svc.repo.UpsertGrade(ctx, gr)
}

func (svc *Service) QueryGrades(ctx context.Context, studentID string) ([]Grade, error) {
	return svc.repo.QueryGradesByStudentID(ctx, studentID)
}

// Fees

func (svc *Service) CreateFee(ctx context.Context, nf NewFee) (Fee, error) {
	if _, err := svc.repo.GetStudentByID(ctx, nf.StudentID); err != nil {
		return Fee{}, err
	}
	now := NowFunc().UTC()
	fee := Fee{
		ID:        uuid.NewString(),
		StudentID: nf.StudentID,
		Amount:    nf.Amount,
		DueDate:   nf.DueDate,
		Status:    FeePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateFee(ctx, fee)
}

func (svc *Service) QueryFees(ctx context.Context, studentID string) ([]Fee, error) {
	return svc.repo.QueryFeesByStudentID(ctx, studentID)
}

// RecordFeePayment applies a payment towards a fee. Overpaying the
// outstanding balance is rejected; covering it moves the fee to paid,
// anything less to partial. The student's linked parent is notified,
// best effort.
func (svc *Service) RecordFeePayment(ctx context.Context, feeID string, fp FeePayment) (Fee, error) {
	fee, err := svc.repo.GetFeeByID(ctx, feeID)
	if err != nil {
		return Fee{}, err
	}

	paid := fee.PaidAmount + fp.Amount
	if paid > fee.Amount {
		return Fee{}, core.NewValidationError(ErrOverpayment, core.FieldError{Field: "amount", Error: ErrOverpayment.Error()})
	}
	status := FeePartial
	if paid == fee.Amount {
		status = FeePaid
	}
	fee, err = svc.repo.UpdateFeePayment(ctx, fee.ID, paid, status, NowFunc().UTC())
	if err != nil {
		return Fee{}, err
	}

	if st, err := svc.repo.GetStudentByID(ctx, fee.StudentID); err == nil && st.ParentUserID.Valid {
		_, _ = svc.notifSvc.Notify(ctx, st.ParentUserID.String,
			notification.TypeFeePayment, "Fee payment received",
			fmt.Sprintf("A payment of %s was recorded; the fee is now %s.", core.FormatPrice(fp.Amount), fee.Status),
			"/school/fees/"+fee.ID)
		svc.sendFeeReceiptEmail(ctx, st, fee, fp)
	}
	return fee, nil
}

// sendFeeReceiptEmail mails a receipt to the student's parent, best effort.
func (svc *Service) sendFeeReceiptEmail(ctx context.Context, st Student, fee Fee, fp FeePayment) {
	parent, err := svc.userSvc.GetByID(ctx, st.ParentUserID.String)
	if err != nil {
		return
	}
	studentName := st.AdmissionNo
	if stUsr, err := svc.userSvc.GetByID(ctx, st.UserID); err == nil {
		studentName = stUsr.Name
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: parent.Name, Address: parent.Email}},
		Subject:      "Fee Payment Receipt",
		TemplateName: "fee_receipt",
		TemplateData: struct {
			Student     Student
			StudentName string
			Fee         Fee
			Amount      string
			Balance     string
		}{st, studentName, fee, core.FormatPrice(fp.Amount), core.FormatPrice(fee.Amount - fee.PaidAmount)},
	})
}
