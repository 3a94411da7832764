package school

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/mavuno/sokoni/core"
)

// Attendance statuses
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
)

// Fee statuses
const (
	FeePending = "pending"
	FeePartial = "partial"
	FeePaid    = "paid"
)

var (
	AllAttendanceStatuses = []string{AttendancePresent, AttendanceAbsent, AttendanceLate}
	AllFeeStatuses        = []string{FeePending, FeePartial, FeePaid}
)

type Student struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	AdmissionNo   string      `json:"admission_no"`
	ClassID       null.String `json:"class_id"`
	GuardianName  string      `json:"guardian_name"`
	GuardianPhone string      `json:"guardian_phone"`
	ParentUserID  null.String `json:"parent_user_id"`
	CreatedAt     time.Time   `json:"created_at"` // UTC
	UpdatedAt     time.Time   `json:"updated_at"` // UTC
}

type Teacher struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	StaffNo    string    `json:"staff_no"`
	SubjectIDs []string  `json:"subject_ids"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// Class tracks a denormalized Enrolled counter next to Capacity; Enroll keeps
// the check and the increment in one transaction.
type Class struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Capacity  int         `json:"capacity"`
	Enrolled  int         `json:"enrolled"`
	TeacherID null.String `json:"teacher_id"`
}

type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type Enrollment struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	ClassID   string    `json:"class_id"`
	Year      int       `json:"year"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Attendance struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	ClassID   string    `json:"class_id"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
}

// Grade is one row per (student, subject, term); RecordGrade upserts it.
type Grade struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	SubjectID string    `json:"subject_id"`
	Term      string    `json:"term"`
	Score     int       `json:"score"`
	Remark    string    `json:"remark"`
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Fee struct {
	ID         string    `json:"id"`
	StudentID  string    `json:"student_id"`
	Amount     int64     `json:"amount"` // cents
	PaidAmount int64     `json:"paid_amount"` // cents
	DueDate    time.Time `json:"due_date"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

// Inputs

type NewStudent struct {
	UserID        string `json:"user_id" validate:"required"`
	AdmissionNo   string `json:"admission_no" validate:"required,alphanum_"`
	GuardianName  string `json:"guardian_name"`
	GuardianPhone string `json:"guardian_phone"`
	ParentUserID  string `json:"parent_user_id"`
}

func (ns *NewStudent) Validate() error {
	ns.AdmissionNo = core.CleanString(ns.AdmissionNo)
	ns.GuardianName = core.CleanString(ns.GuardianName)
	return core.Validate.Struct(ns)
}

type NewTeacher struct {
	UserID     string   `json:"user_id" validate:"required"`
	StaffNo    string   `json:"staff_no" validate:"required,alphanum_"`
	SubjectIDs []string `json:"subject_ids"`
}

func (nt *NewTeacher) Validate() error {
	nt.StaffNo = core.CleanString(nt.StaffNo)
	return core.Validate.Struct(nt)
}

type NewClass struct {
	Name      string `json:"name" validate:"required"`
	Capacity  int    `json:"capacity" validate:"required,gt=0"`
	TeacherID string `json:"teacher_id"`
}

func (nc *NewClass) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	return core.Validate.Struct(nc)
}

type NewSubject struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required,alphanum_"`
}

func (ns *NewSubject) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code, true /* lower */)
	return core.Validate.Struct(ns)
}

type NewEnrollment struct {
	StudentID string `json:"student_id" validate:"required"`
	ClassID   string `json:"class_id" validate:"required"`
	Year      int    `json:"year" validate:"required,gte=2000"`
}

func (ne *NewEnrollment) Validate() error { return core.Validate.Struct(ne) }

type AttendanceEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,attendancestatus"`
}

type AttendanceSheet struct {
	ClassID string            `json:"class_id" validate:"required"`
	Date    time.Time         `json:"date" validate:"required"`
	Entries []AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

func (as *AttendanceSheet) Validate() error { return core.Validate.Struct(as) }

type NewGrade struct {
	StudentID string `json:"student_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	Term      string `json:"term" validate:"required"`
	Score     int    `json:"score" validate:"min=0,max=100"`
	Remark    string `json:"remark"`
}

func (ng *NewGrade) Validate() error {
	ng.Term = core.CleanString(ng.Term, true /* lower */)
	ng.Remark = core.CleanString(ng.Remark)
	return core.Validate.Struct(ng)
}

type NewFee struct {
	StudentID string    `json:"student_id" validate:"required"`
	Amount    int64     `json:"amount" validate:"required,gt=0"`
	DueDate   time.Time `json:"due_date" validate:"required"`
}

func (nf *NewFee) Validate() error { return core.Validate.Struct(nf) }

type FeePayment struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

func (fp *FeePayment) Validate() error { return core.Validate.Struct(fp) }
