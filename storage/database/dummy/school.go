package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/mavuno/sokoni/core/school"
)

type schoolRepository struct {
	db *schoolTable
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db.school}
}

// Students

func (repo *schoolRepository) CheckAdmissionNoUniqueness(ctx context.Context, admissionNo string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, st := range repo.db.students {
		if st.AdmissionNo == admissionNo {
			return school.ErrAdmissionNoExists
		}
	}
	return nil
}

func (repo *schoolRepository) CreateStudent(ctx context.Context, st school.Student) (school.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.students[st.ID] = &st
	return st, nil
}

func (repo *schoolRepository) GetStudentByID(ctx context.Context, id string) (school.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if st, ok := repo.db.students[id]; ok {
		return *st, nil
	}
	return school.Student{}, school.ErrStudentNotFound
}

func (repo *schoolRepository) QueryAllStudents(ctx context.Context) ([]school.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]school.Student, 0, len(repo.db.students))
	for _, st := range repo.db.students {
		students = append(students, *st)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].AdmissionNo < students[j].AdmissionNo })
	return students, nil
}

// Teachers

func (repo *schoolRepository) CreateTeacher(ctx context.Context, t school.Teacher) (school.Teacher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.teachers[t.ID] = &t
	return t, nil
}

func (repo *schoolRepository) GetTeacherByID(ctx context.Context, id string) (school.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.teachers[id]; ok {
		return *t, nil
	}
	return school.Teacher{}, school.ErrTeacherNotFound
}

func (repo *schoolRepository) QueryAllTeachers(ctx context.Context) ([]school.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	teachers := make([]school.Teacher, 0, len(repo.db.teachers))
	for _, t := range repo.db.teachers {
		teachers = append(teachers, *t)
	}
	sort.Slice(teachers, func(i, j int) bool { return teachers[i].StaffNo < teachers[j].StaffNo })
	return teachers, nil
}

// Classes

func (repo *schoolRepository) CreateClass(ctx context.Context, cl school.Class) (school.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.classes[cl.ID] = &cl
	return cl, nil
}

func (repo *schoolRepository) GetClassByID(ctx context.Context, id string) (school.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cl, ok := repo.db.classes[id]; ok {
		return *cl, nil
	}
	return school.Class{}, school.ErrClassNotFound
}

func (repo *schoolRepository) QueryAllClasses(ctx context.Context) ([]school.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classes := make([]school.Class, 0, len(repo.db.classes))
	for _, cl := range repo.db.classes {
		classes = append(classes, *cl)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i].Name < classes[j].Name })
	return classes, nil
}

// Subjects

func (repo *schoolRepository) CreateSubject(ctx context.Context, sub school.Subject) (school.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.subjects[sub.ID] = &sub
	return sub, nil
}

func (repo *schoolRepository) QueryAllSubjects(ctx context.Context) ([]school.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subjects := make([]school.Subject, 0, len(repo.db.subjects))
	for _, sub := range repo.db.subjects {
		subjects = append(subjects, *sub)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Code < subjects[j].Code })
	return subjects, nil
}

// Enrollments

func (repo *schoolRepository) EnrollStudent(ctx context.Context, enr school.Enrollment) (school.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cl, ok := repo.db.classes[enr.ClassID]
	if !ok {
		return school.Enrollment{}, school.ErrClassNotFound
	}
	for _, e := range repo.db.enrollments {
		if e.StudentID == enr.StudentID && e.ClassID == enr.ClassID {
			return school.Enrollment{}, school.ErrAlreadyEnrolled
		}
	}
	if cl.Enrolled >= cl.Capacity {
		return school.Enrollment{}, school.ErrClassFull
	}

	repo.db.enrollments[enr.ID] = &enr
	cl.Enrolled++
	if st, ok := repo.db.students[enr.StudentID]; ok {
		st.ClassID.SetValid(enr.ClassID)
		st.UpdatedAt = enr.CreatedAt
	}
	return enr, nil
}

func (repo *schoolRepository) QueryEnrollmentsByClassID(ctx context.Context, classID string) ([]school.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrs := make([]school.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if e.ClassID == classID {
			enrs = append(enrs, *e)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].CreatedAt.Before(enrs[j].CreatedAt) })
	return enrs, nil
}

// Attendance

func (repo *schoolRepository) CreateAttendance(ctx context.Context, att school.Attendance) (school.Attendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// overwrite the existing entry for the same student, class and day
	for id, a := range repo.db.attendance {
		if a.StudentID == att.StudentID && a.ClassID == att.ClassID && a.Date.Equal(att.Date) {
			delete(repo.db.attendance, id)
			break
		}
	}
	repo.db.attendance[att.ID] = &att
	return att, nil
}

func (repo *schoolRepository) QueryAttendanceByClassDate(ctx context.Context, classID string, date time.Time) ([]school.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	atts := make([]school.Attendance, 0)
	for _, a := range repo.db.attendance {
		if a.ClassID == classID && a.Date.Equal(date) {
			atts = append(atts, *a)
		}
	}
	sort.Slice(atts, func(i, j int) bool { return atts[i].StudentID < atts[j].StudentID })
	return atts, nil
}

// Grades

func (repo *schoolRepository) UpsertGrade(ctx context.Context, gr school.Grade) (school.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, g := range repo.db.grades {
		if g.StudentID == gr.StudentID && g.SubjectID == gr.SubjectID && g.Term == gr.Term {
			gr.ID = id
			repo.db.grades[id] = &gr
			return gr, nil
		}
	}
	repo.db.grades[gr.ID] = &gr
	return gr, nil
}

func (repo *schoolRepository) QueryGradesByStudentID(ctx context.Context, studentID string) ([]school.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	grades := make([]school.Grade, 0)
	for _, g := range repo.db.grades {
		if g.StudentID == studentID {
			grades = append(grades, *g)
		}
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i].Term < grades[j].Term })
	return grades, nil
}

// Fees

func (repo *schoolRepository) CreateFee(ctx context.Context, fee school.Fee) (school.Fee, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.fees[fee.ID] = &fee
	return fee, nil
}

func (repo *schoolRepository) GetFeeByID(ctx context.Context, id string) (school.Fee, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if fee, ok := repo.db.fees[id]; ok {
		return *fee, nil
	}
	return school.Fee{}, school.ErrFeeNotFound
}

func (repo *schoolRepository) QueryFeesByStudentID(ctx context.Context, studentID string) ([]school.Fee, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	fees := make([]school.Fee, 0)
	for _, fee := range repo.db.fees {
		if fee.StudentID == studentID {
			fees = append(fees, *fee)
		}
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i].DueDate.Before(fees[j].DueDate) })
	return fees, nil
}

func (repo *schoolRepository) UpdateFeePayment(ctx context.Context, id string, paidAmount int64, status string, updatedAt time.Time) (school.Fee, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	fee, ok := repo.db.fees[id]
	if !ok {
		return school.Fee{}, school.ErrFeeNotFound
	}
	fee.PaidAmount = paidAmount
	fee.Status = status
	fee.UpdatedAt = updatedAt
	return *fee, nil
}
