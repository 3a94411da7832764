package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mavuno/sokoni/core/school"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) school.Repository {
	return &schoolRepository{db: db}
}

// Students

type dbStudent struct {
	ID            string      `db:"id"`
	UserID        string      `db:"user_id"`
	AdmissionNo   string      `db:"admission_no"`
	ClassID       null.String `db:"class_id"`
	GuardianName  string      `db:"guardian_name"`
	GuardianPhone string      `db:"guardian_phone"`
	ParentUserID  null.String `db:"parent_user_id"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func (s dbStudent) toCore() school.Student {
	return school.Student{
		ID:            s.ID,
		UserID:        s.UserID,
		AdmissionNo:   s.AdmissionNo,
		ClassID:       s.ClassID,
		GuardianName:  s.GuardianName,
		GuardianPhone: s.GuardianPhone,
		ParentUserID:  s.ParentUserID,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

const studentColumns = `id, user_id, admission_no, class_id, guardian_name, guardian_phone, parent_user_id, created_at, updated_at`

func (repo *schoolRepository) CheckAdmissionNoUniqueness(ctx context.Context, admissionNo string) error {
	var count int
	q := `SELECT COUNT(*) FROM students WHERE admission_no = $1`
	if err := repo.db.GetContext(ctx, &count, q, admissionNo); err != nil {
		return errors.Wrap(err, "checking admission number uniqueness")
	}
	if count > 0 {
		return school.ErrAdmissionNoExists
	}
	return nil
}

func (repo *schoolRepository) CreateStudent(ctx context.Context, st school.Student) (school.Student, error) {
	q := `
INSERT INTO students (` + studentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := repo.db.ExecContext(ctx, q,
		st.ID, st.UserID, st.AdmissionNo, st.ClassID, st.GuardianName, st.GuardianPhone,
		st.ParentUserID, st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "students_admission_no_idx") {
			return school.Student{}, school.ErrAdmissionNoExists
		}
		return school.Student{}, errors.Wrap(err, "creating student")
	}
	return st, nil
}

func (repo *schoolRepository) GetStudentByID(ctx context.Context, id string) (school.Student, error) {
	var row dbStudent
	q := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return school.Student{}, school.ErrStudentNotFound
		}
		return school.Student{}, errors.Wrap(err, "getting student")
	}
	return row.toCore(), nil
}

func (repo *schoolRepository) QueryAllStudents(ctx context.Context) ([]school.Student, error) {
	var rows []dbStudent
	q := `SELECT ` + studentColumns + ` FROM students ORDER BY admission_no`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]school.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toCore())
	}
	return students, nil
}

// Teachers

type dbTeacher struct {
	ID         string         `db:"id"`
	UserID     string         `db:"user_id"`
	StaffNo    string         `db:"staff_no"`
	SubjectIDs pq.StringArray `db:"subject_ids"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (t dbTeacher) toCore() school.Teacher {
	return school.Teacher{
		ID:         t.ID,
		UserID:     t.UserID,
		StaffNo:    t.StaffNo,
		SubjectIDs: t.SubjectIDs,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}

func (repo *schoolRepository) CreateTeacher(ctx context.Context, t school.Teacher) (school.Teacher, error) {
	q := `
INSERT INTO teachers (id, user_id, staff_no, subject_ids, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, q, t.ID, t.UserID, t.StaffNo, pq.StringArray(t.SubjectIDs), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return school.Teacher{}, errors.Wrap(err, "creating teacher")
	}
	return t, nil
}

func (repo *schoolRepository) GetTeacherByID(ctx context.Context, id string) (school.Teacher, error) {
	var row dbTeacher
	q := `SELECT id, user_id, staff_no, subject_ids, created_at, updated_at FROM teachers WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return school.Teacher{}, school.ErrTeacherNotFound
		}
		return school.Teacher{}, errors.Wrap(err, "getting teacher")
	}
	return row.toCore(), nil
}

func (repo *schoolRepository) QueryAllTeachers(ctx context.Context) ([]school.Teacher, error) {
	var rows []dbTeacher
	q := `SELECT id, user_id, staff_no, subject_ids, created_at, updated_at FROM teachers ORDER BY staff_no`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying teachers")
	}
	teachers := make([]school.Teacher, 0, len(rows))
	for _, row := range rows {
		teachers = append(teachers, row.toCore())
	}
	return teachers, nil
}

// Classes

type dbClass struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	Capacity  int         `db:"capacity"`
	Enrolled  int         `db:"enrolled"`
	TeacherID null.String `db:"teacher_id"`
}

func (c dbClass) toCore() school.Class {
	return school.Class{ID: c.ID, Name: c.Name, Capacity: c.Capacity, Enrolled: c.Enrolled, TeacherID: c.TeacherID}
}

func (repo *schoolRepository) CreateClass(ctx context.Context, cl school.Class) (school.Class, error) {
	q := `INSERT INTO classes (id, name, capacity, enrolled, teacher_id) VALUES ($1, $2, $3, $4, $5)`
	if _, err := repo.db.ExecContext(ctx, q, cl.ID, cl.Name, cl.Capacity, cl.Enrolled, cl.TeacherID); err != nil {
		return school.Class{}, errors.Wrap(err, "creating class")
	}
	return cl, nil
}

func (repo *schoolRepository) GetClassByID(ctx context.Context, id string) (school.Class, error) {
	var row dbClass
	q := `SELECT id, name, capacity, enrolled, teacher_id FROM classes WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return school.Class{}, school.ErrClassNotFound
		}
		return school.Class{}, errors.Wrap(err, "getting class")
	}
	return row.toCore(), nil
}

func (repo *schoolRepository) QueryAllClasses(ctx context.Context) ([]school.Class, error) {
	var rows []dbClass
	q := `SELECT id, name, capacity, enrolled, teacher_id FROM classes ORDER BY name`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	classes := make([]school.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.toCore())
	}
	return classes, nil
}

// Subjects

type dbSubject struct {
	ID   string `db:"id"`
	Name string `db:"name"`
	Code string `db:"code"`
}

func (repo *schoolRepository) CreateSubject(ctx context.Context, sub school.Subject) (school.Subject, error) {
	q := `INSERT INTO subjects (id, name, code) VALUES ($1, $2, $3)`
	if _, err := repo.db.ExecContext(ctx, q, sub.ID, sub.Name, sub.Code); err != nil {
		return school.Subject{}, errors.Wrap(err, "creating subject")
	}
	return sub, nil
}

func (repo *schoolRepository) QueryAllSubjects(ctx context.Context) ([]school.Subject, error) {
	var rows []dbSubject
	q := `SELECT id, name, code FROM subjects ORDER BY code`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]school.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, school.Subject{ID: row.ID, Name: row.Name, Code: row.Code})
	}
	return subjects, nil
}

// Enrollments

// EnrollStudent locks the class row so the capacity check and the counter
// increment cannot race with a concurrent enrollment.
func (repo *schoolRepository) EnrollStudent(ctx context.Context, enr school.Enrollment) (school.Enrollment, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return school.Enrollment{}, errors.Wrap(err, "enrolling student")
	}
	defer func() { _ = tx.Rollback() }()

	var cl dbClass
	q := `SELECT id, name, capacity, enrolled, teacher_id FROM classes WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &cl, q, enr.ClassID); err != nil {
		if err == sql.ErrNoRows {
			return school.Enrollment{}, school.ErrClassNotFound
		}
		return school.Enrollment{}, errors.Wrap(err, "enrolling student")
	}
	if cl.Enrolled >= cl.Capacity {
		return school.Enrollment{}, school.ErrClassFull
	}

	insert := `
INSERT INTO enrollments (id, student_id, class_id, year, created_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err = tx.ExecContext(ctx, insert, enr.ID, enr.StudentID, enr.ClassID, enr.Year, enr.CreatedAt); err != nil {
		if isUniqueViolation(err, "enrollments_student_class_idx") {
			return school.Enrollment{}, school.ErrAlreadyEnrolled
		}
		return school.Enrollment{}, errors.Wrap(err, "enrolling student")
	}
	if _, err = tx.ExecContext(ctx, `UPDATE classes SET enrolled = enrolled + 1 WHERE id = $1`, enr.ClassID); err != nil {
		return school.Enrollment{}, errors.Wrap(err, "enrolling student")
	}
	if _, err = tx.ExecContext(ctx, `UPDATE students SET class_id = $2, updated_at = $3 WHERE id = $1`, enr.StudentID, enr.ClassID, enr.CreatedAt); err != nil {
		return school.Enrollment{}, errors.Wrap(err, "enrolling student")
	}
	if err = tx.Commit(); err != nil {
		return school.Enrollment{}, errors.Wrap(err, "enrolling student")
	}
	return enr, nil
}

func (repo *schoolRepository) QueryEnrollmentsByClassID(ctx context.Context, classID string) ([]school.Enrollment, error) {
	var rows []struct {
		ID        string    `db:"id"`
		StudentID string    `db:"student_id"`
		ClassID   string    `db:"class_id"`
		Year      int       `db:"year"`
		CreatedAt time.Time `db:"created_at"`
	}
	q := `SELECT id, student_id, class_id, year, created_at FROM enrollments WHERE class_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, q, classID); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]school.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, school.Enrollment{ID: row.ID, StudentID: row.StudentID, ClassID: row.ClassID, Year: row.Year, CreatedAt: row.CreatedAt})
	}
	return enrs, nil
}

// Attendance

func (repo *schoolRepository) CreateAttendance(ctx context.Context, att school.Attendance) (school.Attendance, error) {
	// re-submitting a sheet overwrites that day's entry
	q := `
INSERT INTO attendance (id, student_id, class_id, date, status)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (student_id, class_id, date) DO UPDATE SET status = EXCLUDED.status`
	if _, err := repo.db.ExecContext(ctx, q, att.ID, att.StudentID, att.ClassID, att.Date, att.Status); err != nil {
		return school.Attendance{}, errors.Wrap(err, "recording attendance")
	}
	return att, nil
}

func (repo *schoolRepository) QueryAttendanceByClassDate(ctx context.Context, classID string, date time.Time) ([]school.Attendance, error) {
	var rows []struct {
		ID        string    `db:"id"`
		StudentID string    `db:"student_id"`
		ClassID   string    `db:"class_id"`
		Date      time.Time `db:"date"`
		Status    string    `db:"status"`
	}
	q := `SELECT id, student_id, class_id, date, status FROM attendance WHERE class_id = $1 AND date = $2`
	if err := repo.db.SelectContext(ctx, &rows, q, classID, date); err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	atts := make([]school.Attendance, 0, len(rows))
	for _, row := range rows {
		atts = append(atts, school.Attendance{ID: row.ID, StudentID: row.StudentID, ClassID: row.ClassID, Date: row.Date, Status: row.Status})
	}
	return atts, nil
}

// Grades

func (repo *schoolRepository) UpsertGrade(ctx context.Context, gr school.Grade) (school.Grade, error) {
	q := `
INSERT INTO grades (id, student_id, subject_id, term, score, remark, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (student_id, subject_id, term)
DO UPDATE SET score = EXCLUDED.score, remark = EXCLUDED.remark, updated_at = EXCLUDED.updated_at`
	if _, err := repo.db.ExecContext(ctx, q, gr.ID, gr.StudentID, gr.SubjectID, gr.Term, gr.Score, gr.Remark, gr.UpdatedAt); err != nil {
		return school.Grade{}, errors.Wrap(err, "upserting grade")
	}
	return gr, nil
}

func (repo *schoolRepository) QueryGradesByStudentID(ctx context.Context, studentID string) ([]school.Grade, error) {
	var rows []struct {
		ID        string    `db:"id"`
		StudentID string    `db:"student_id"`
		SubjectID string    `db:"subject_id"`
		Term      string    `db:"term"`
		Score     int       `db:"score"`
		Remark    string    `db:"remark"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	q := `SELECT id, student_id, subject_id, term, score, remark, updated_at FROM grades WHERE student_id = $1 ORDER BY term`
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying grades")
	}
	grades := make([]school.Grade, 0, len(rows))
	for _, row := range rows {
		grades = append(grades, school.Grade{
			ID:        row.ID,
			StudentID: row.StudentID,
			SubjectID: row.SubjectID,
			Term:      row.Term,
			Score:     row.Score,
			Remark:    row.Remark,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return grades, nil
}

// Fees

type dbFee struct {
	ID         string    `db:"id"`
	StudentID  string    `db:"student_id"`
	Amount     int64     `db:"amount"`
	PaidAmount int64     `db:"paid_amount"`
	DueDate    time.Time `db:"due_date"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (f dbFee) toCore() school.Fee {
	return school.Fee{
		ID:         f.ID,
		StudentID:  f.StudentID,
		Amount:     f.Amount,
		PaidAmount: f.PaidAmount,
		DueDate:    f.DueDate,
		Status:     f.Status,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

const feeColumns = `id, student_id, amount, paid_amount, due_date, status, created_at, updated_at`

func (repo *schoolRepository) CreateFee(ctx context.Context, fee school.Fee) (school.Fee, error) {
	q := `
INSERT INTO fees (` + feeColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.db.ExecContext(ctx, q,
		fee.ID, fee.StudentID, fee.Amount, fee.PaidAmount, fee.DueDate, fee.Status, fee.CreatedAt, fee.UpdatedAt,
	)
	if err != nil {
		return school.Fee{}, errors.Wrap(err, "creating fee")
	}
	return fee, nil
}

func (repo *schoolRepository) GetFeeByID(ctx context.Context, id string) (school.Fee, error) {
	var row dbFee
	q := `SELECT ` + feeColumns + ` FROM fees WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return school.Fee{}, school.ErrFeeNotFound
		}
		return school.Fee{}, errors.Wrap(err, "getting fee")
	}
	return row.toCore(), nil
}

func (repo *schoolRepository) QueryFeesByStudentID(ctx context.Context, studentID string) ([]school.Fee, error) {
	var rows []dbFee
	q := `SELECT ` + feeColumns + ` FROM fees WHERE student_id = $1 ORDER BY due_date`
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying fees")
	}
	fees := make([]school.Fee, 0, len(rows))
	for _, row := range rows {
		fees = append(fees, row.toCore())
	}
	return fees, nil
}

func (repo *schoolRepository) UpdateFeePayment(ctx context.Context, id string, paidAmount int64, status string, updatedAt time.Time) (school.Fee, error) {
	var row dbFee
	q := `
UPDATE fees SET paid_amount = $2, status = $3, updated_at = $4
WHERE id = $1
RETURNING ` + feeColumns
	if err := repo.db.GetContext(ctx, &row, q, id, paidAmount, status, updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return school.Fee{}, school.ErrFeeNotFound
		}
		return school.Fee{}, errors.Wrap(err, "updating fee payment")
	}
	return row.toCore(), nil
}
