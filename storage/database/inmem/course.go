package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/thisismugil/edutech/core"
	"github.com/thisismugil/edutech/core/course"
)

type courseRepository struct {
	db    *courseTable
	users *userTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course, users: db.user}
}

func (repo *courseRepository) educatorName(educatorID string) string {
	repo.users.RLock()
	defer repo.users.RUnlock()
	if usr, ok := repo.users.table[educatorID]; ok {
		return usr.Name
	}
	return ""
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	crs.ID = uuid.New().String()
	if crs.Modules == nil {
		crs.Modules = []course.Module{}
	}
	repo.db.table[crs.ID] = &crs

	crs.EducatorName = repo.educatorName(crs.EducatorID)
	return crs, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.table[id]; ok {
		out := *crs
		out.EducatorName = repo.educatorName(out.EducatorID)
		return out, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, exec ...core.DBExecutor) ([]course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]course.Course, 0)
	for _, crs := range repo.db.table {
		if !matchCourse(*crs, filter) {
			continue
		}
		out := *crs
		out.EducatorName = repo.educatorName(out.EducatorID)
		courses = append(courses, out)
	}
	// newest first
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	return courses, nil
}

func matchCourse(crs course.Course, filter *course.QueryFilter) bool {
	if filter == nil {
		return crs.IsPublished
	}
	if !filter.IncludeUnpublished && !crs.IsPublished {
		return false
	}
	if filter.Topic != "" && !strings.EqualFold(crs.Topic, filter.Topic) {
		return false
	}
	if filter.Level != "" && crs.Level != filter.Level {
		return false
	}
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(crs.Title), s) &&
			!strings.Contains(strings.ToLower(crs.Topic), s) &&
			!strings.Contains(strings.ToLower(crs.Description), s) {
			return false
		}
	}
	if filter.EducatorID != "" && crs.EducatorID != filter.EducatorID {
		return false
	}
	return true
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[crs.ID]; !ok {
		return course.Course{}, course.ErrNotFound
	}
	repo.db.table[crs.ID] = &crs

	out := crs
	out.EducatorName = repo.educatorName(out.EducatorID)
	return out, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *courseRepository) OwnsCourse(ctx context.Context, courseID, educatorID string, exec ...core.DBExecutor) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.table[courseID]; ok {
		return crs.EducatorID == educatorID, nil
	}
	return false, nil
}
