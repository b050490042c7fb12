package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/thisismugil/edutech/core"
	"github.com/thisismugil/edutech/core/enroll"
	"github.com/thisismugil/edutech/core/user"
)

type enrollmentRepository struct {
	db      *enrollmentTable
	users   *userTable
	courses *courseTable
}

var _ enroll.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db.enroll, users: db.user, courses: db.course}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enroll.Enrollment, exec ...core.DBExecutor) (enroll.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, e := range repo.db.table {
		if e.StudentID == enr.StudentID && e.CourseID == enr.CourseID {
			return enroll.Enrollment{}, enroll.ErrExists
		}
	}
	enr.ID = uuid.New().String()
	repo.db.table[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (enroll.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.table {
		if e.StudentID == studentID && e.CourseID == courseID {
			return *e, nil
		}
	}
	return enroll.Enrollment{}, enroll.ErrNotFound
}

func (repo *enrollmentRepository) IsEnrolled(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (bool, error) {
	_, err := repo.GetEnrollment(ctx, studentID, courseID)
	if err == enroll.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (repo *enrollmentRepository) UpdateProgress(ctx context.Context, enr enroll.Enrollment, exec ...core.DBExecutor) (enroll.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[enr.ID]
	if !ok {
		return enroll.Enrollment{}, enroll.ErrNotFound
	}
	orig.Progress = enr.Progress
	return *orig, nil
}

func (repo *enrollmentRepository) QueryEnrollmentsByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]enroll.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrs := make([]enroll.Enrollment, 0)
	for _, e := range repo.db.table {
		if e.StudentID == studentID {
			enrs = append(enrs, *e)
		}
	}
	// newest first
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].EnrolledAt.After(enrs[j].EnrolledAt) })
	return enrs, nil
}

func (repo *enrollmentRepository) StudentsByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	ids := make([]string, 0)
	for _, e := range repo.db.table {
		if e.CourseID == courseID {
			ids = append(ids, e.StudentID)
		}
	}
	repo.db.RUnlock()
	return repo.lookupUsers(ids), nil
}

func (repo *enrollmentRepository) StudentsOfEducator(ctx context.Context, educatorID string, exec ...core.DBExecutor) ([]user.User, error) {
	courseIDs := make(map[string]struct{})
	repo.courses.RLock()
	for _, crs := range repo.courses.table {
		if crs.EducatorID == educatorID {
			courseIDs[crs.ID] = struct{}{}
		}
	}
	repo.courses.RUnlock()

	repo.db.RLock()
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, e := range repo.db.table {
		if _, ok := courseIDs[e.CourseID]; !ok {
			continue
		}
		if _, dup := seen[e.StudentID]; dup {
			continue
		}
		seen[e.StudentID] = struct{}{}
		ids = append(ids, e.StudentID)
	}
	repo.db.RUnlock()
	return repo.lookupUsers(ids), nil
}

func (repo *enrollmentRepository) EducatorsOfStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]user.User, error) {
	courseIDs := make(map[string]struct{})
	repo.db.RLock()
	for _, e := range repo.db.table {
		if e.StudentID == studentID {
			courseIDs[e.CourseID] = struct{}{}
		}
	}
	repo.db.RUnlock()

	repo.courses.RLock()
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, crs := range repo.courses.table {
		if _, ok := courseIDs[crs.ID]; !ok {
			continue
		}
		if _, dup := seen[crs.EducatorID]; dup {
			continue
		}
		seen[crs.EducatorID] = struct{}{}
		ids = append(ids, crs.EducatorID)
	}
	repo.courses.RUnlock()
	return repo.lookupUsers(ids), nil
}

func (repo *enrollmentRepository) lookupUsers(ids []string) []user.User {
	repo.users.RLock()
	defer repo.users.RUnlock()

	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := repo.users.table[id]; ok {
			users = append(users, *usr)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users
}
