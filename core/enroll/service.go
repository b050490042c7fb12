package enroll

import (
	"context"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/thisismugil/edutech/core"
	"github.com/thisismugil/edutech/core/course"
	"github.com/thisismugil/edutech/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("enrollment not found")
	ErrExists   = errors.New("already enrolled")
)

type (
	Repository interface {
		// CreateEnrollment inserts the record; a duplicate (student, course)
		// pair fails with ErrExists (backed by a unique index).
		CreateEnrollment(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		GetEnrollment(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (Enrollment, error)
		IsEnrolled(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (bool, error)
		UpdateProgress(ctx context.Context, enr Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		QueryEnrollmentsByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]Enrollment, error)

		// directory joins used by dashboards
		StudentsByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]user.User, error)
		StudentsOfEducator(ctx context.Context, educatorID string, exec ...core.DBExecutor) ([]user.User, error)
		EducatorsOfStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]user.User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Enroll records the student's access to the course. Enrolling twice is a
// no-op that returns the existing record.
func (svc *Service) Enroll(ctx context.Context, student user.User, courseID string) (Enrollment, error) {
	if enr, err := svc.repo.GetEnrollment(ctx, student.ID, courseID); err == nil {
		return enr, nil
	} else if err != ErrNotFound {
		return Enrollment{}, errors.Wrap(err, "finding enrollment")
	}

	enr := Enrollment{
		StudentID:  student.ID,
		CourseID:   courseID,
		EnrolledAt: time.Now().UTC(),
		Progress: Progress{
			CompletedModules: []string{},
			CompletedLessons: []string{},
		},
	}
	enr, err := svc.repo.CreateEnrollment(ctx, enr)
	if err == ErrExists {
		// lost a race with a concurrent enroll; the stored row wins
		return svc.repo.GetEnrollment(ctx, student.ID, courseID)
	}
	return enr, err
}

func (svc *Service) Get(ctx context.Context, studentID, courseID string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, studentID, courseID)
}

// IsEnrolled is the authorization fact consumed by the chat access predicate.
func (svc *Service) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	return svc.repo.IsEnrolled(ctx, studentID, courseID)
}

func (svc *Service) QueryByStudent(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsByStudent(ctx, studentID)
}

// CompleteLesson marks a lesson done and recomputes the completion percentage;
// a module completes when all its lessons are done. Already-completed lessons
// are a no-op.
func (svc *Service) CompleteLesson(ctx context.Context, student user.User, crs course.Course, moduleID, lessonID string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(ctx, student.ID, crs.ID)
	if err != nil {
		return Enrollment{}, err
	}
	if enr.Progress.HasLesson(lessonID) {
		return enr, nil
	}

	var mod *course.Module
	for i := range crs.Modules {
		if crs.Modules[i].ID == moduleID {
			mod = &crs.Modules[i]
			break
		}
	}
	if mod == nil {
		return Enrollment{}, course.ErrNotFound
	}

	enr.Progress.CompletedLessons = append(enr.Progress.CompletedLessons, lessonID)

	moduleDone := true
	for _, l := range mod.Lessons {
		if !enr.Progress.HasLesson(l.ID) {
			moduleDone = false
			break
		}
	}
	if moduleDone && !enr.Progress.HasModule(moduleID) {
		enr.Progress.CompletedModules = append(enr.Progress.CompletedModules, moduleID)
	}

	if total := crs.LessonCount(); total > 0 {
		pct := float64(len(enr.Progress.CompletedLessons)) / float64(total) * 100
		enr.Progress.CompletionPercentage = math.Round(pct*100) / 100
	}
	return svc.repo.UpdateProgress(ctx, enr)
}

// StudentsByCourse satisfies course.EnrollmentReader.
func (svc *Service) StudentsByCourse(ctx context.Context, courseID string) ([]user.User, error) {
	return svc.repo.StudentsByCourse(ctx, courseID)
}

// StudentsOfEducator lists the unique students enrolled in any of the educator's courses.
func (svc *Service) StudentsOfEducator(ctx context.Context, educatorID string) ([]user.User, error) {
	return svc.repo.StudentsOfEducator(ctx, educatorID)
}

// EducatorsOfStudent lists the unique educators owning the student's enrolled courses.
func (svc *Service) EducatorsOfStudent(ctx context.Context, studentID string) ([]user.User, error) {
	return svc.repo.EducatorsOfStudent(ctx, studentID)
}
