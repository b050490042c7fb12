package enroll_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisismugil/edutech/core/course"
	"github.com/thisismugil/edutech/core/enroll"
	"github.com/thisismugil/edutech/core/user"
	inmemdb "github.com/thisismugil/edutech/storage/database/inmem"
)

func setup(t *testing.T) (*enroll.Service, user.Repository, course.Repository) {
	db, err := inmemdb.Open()
	require.NoError(t, err)
	return enroll.NewService(inmemdb.NewEnrollmentRepository(db)),
		inmemdb.NewUserRepository(db),
		inmemdb.NewCourseRepository(db)
}

func createUser(t *testing.T, repo user.Repository, name, email, role string) user.User {
	now := time.Now().UTC()
	usr := user.User{Name: name, Email: email, Role: role, CreatedAt: now, UpdatedAt: now}
	usr.SetActive(true)
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func createCourse(t *testing.T, repo course.Repository, educator user.User, modules []course.Module) course.Course {
	now := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:       "Go Basics",
		Topic:       "Go",
		Level:       "beginner",
		EducatorID:  educator.ID,
		Modules:     modules,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
	return crs
}

func TestService_enrollIdempotent(t *testing.T) {
	svc, usrRepo, crsRepo := setup(t)
	ctx := context.Background()
	educator := createUser(t, usrRepo, "Jina Kim", "jina@test.cd", user.RoleEducator)
	student := createUser(t, usrRepo, "Awa Diop", "awa@test.cd", user.RoleStudent)
	crs := createCourse(t, crsRepo, educator, nil)

	enr, err := svc.Enroll(ctx, student, crs.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, enr.ID)
	assert.Equal(t, student.ID, enr.StudentID)
	assert.Equal(t, crs.ID, enr.CourseID)
	assert.NotNil(t, enr.Progress.CompletedLessons)

	// a second enroll returns the same record, no duplicate
	again, err := svc.Enroll(ctx, student, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, enr.ID, again.ID)

	enrs, err := svc.QueryByStudent(ctx, student.ID)
	require.NoError(t, err)
	assert.Len(t, enrs, 1)

	ok, err := svc.IsEnrolled(ctx, student.ID, crs.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsEnrolled(ctx, educator.ID, crs.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestService_completeLesson(t *testing.T) {
	svc, usrRepo, crsRepo := setup(t)
	ctx := context.Background()
	educator := createUser(t, usrRepo, "Jina Kim", "jina@test.cd", user.RoleEducator)
	student := createUser(t, usrRepo, "Awa Diop", "awa@test.cd", user.RoleStudent)

	// 2 modules, 4 lessons in total
	crs := createCourse(t, crsRepo, educator, []course.Module{
		{ID: "m1", Title: "Intro", Lessons: []course.Lesson{{ID: "l1", Title: "Setup"}, {ID: "l2", Title: "Syntax"}}},
		{ID: "m2", Title: "Types", Lessons: []course.Lesson{{ID: "l3", Title: "Structs"}, {ID: "l4", Title: "Interfaces"}}},
	})
	_, err := svc.Enroll(ctx, student, crs.ID)
	require.NoError(t, err)

	enr, err := svc.CompleteLesson(ctx, student, crs, "m1", "l1")
	require.NoError(t, err)
	assert.Equal(t, []string{"l1"}, enr.Progress.CompletedLessons)
	assert.Empty(t, enr.Progress.CompletedModules)
	assert.Equal(t, 25.0, enr.Progress.CompletionPercentage)

	// finishing the module's last lesson completes the module
	enr, err = svc.CompleteLesson(ctx, student, crs, "m1", "l2")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, enr.Progress.CompletedModules)
	assert.Equal(t, 50.0, enr.Progress.CompletionPercentage)

	// re-completing a lesson is a no-op
	enr, err = svc.CompleteLesson(ctx, student, crs, "m1", "l2")
	require.NoError(t, err)
	assert.Len(t, enr.Progress.CompletedLessons, 2)
	assert.Equal(t, 50.0, enr.Progress.CompletionPercentage)

	enr, err = svc.CompleteLesson(ctx, student, crs, "m2", "l3")
	require.NoError(t, err)
	enr, err = svc.CompleteLesson(ctx, student, crs, "m2", "l4")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, enr.Progress.CompletedModules)
	assert.Equal(t, 100.0, enr.Progress.CompletionPercentage)

	// the persisted record reflects the progress
	stored, err := svc.Get(ctx, student.ID, crs.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.Progress.CompletionPercentage)
}

func TestService_completeLessonUnknownModule(t *testing.T) {
	svc, usrRepo, crsRepo := setup(t)
	ctx := context.Background()
	educator := createUser(t, usrRepo, "Jina Kim", "jina@test.cd", user.RoleEducator)
	student := createUser(t, usrRepo, "Awa Diop", "awa@test.cd", user.RoleStudent)
	crs := createCourse(t, crsRepo, educator, []course.Module{
		{ID: "m1", Title: "Intro", Lessons: []course.Lesson{{ID: "l1", Title: "Setup"}}},
	})
	_, err := svc.Enroll(ctx, student, crs.ID)
	require.NoError(t, err)

	_, err = svc.CompleteLesson(ctx, student, crs, "nope", "l1")
	assert.Equal(t, course.ErrNotFound, err)
}

func TestService_completeLessonNotEnrolled(t *testing.T) {
	svc, usrRepo, crsRepo := setup(t)
	ctx := context.Background()
	educator := createUser(t, usrRepo, "Jina Kim", "jina@test.cd", user.RoleEducator)
	student := createUser(t, usrRepo, "Awa Diop", "awa@test.cd", user.RoleStudent)
	crs := createCourse(t, crsRepo, educator, []course.Module{
		{ID: "m1", Title: "Intro", Lessons: []course.Lesson{{ID: "l1", Title: "Setup"}}},
	})

	_, err := svc.CompleteLesson(ctx, student, crs, "m1", "l1")
	assert.Equal(t, enroll.ErrNotFound, err)
}
