package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/thisismugil/edutech/core"
	"github.com/thisismugil/edutech/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("course not found")
	ErrNotOwner = errors.New("permission denied")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields, newest first.
		// QueryFilter.Search does a case-insensitive match on Title, Topic or Description.
		QueryCourses(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error
		// OwnsCourse reports whether the course exists and belongs to the educator.
		OwnsCourse(ctx context.Context, courseID, educatorID string, exec ...core.DBExecutor) (bool, error)
	}

	// EnrollmentReader is the slice of the enrollment store the dashboard needs.
	EnrollmentReader interface {
		StudentsByCourse(ctx context.Context, courseID string) ([]user.User, error)
	}

	// SyllabusGenerator produces AI-drafted course structure and lesson content.
	// Prompt wording and formatting live behind this boundary.
	SyllabusGenerator interface {
		GenerateSyllabus(ctx context.Context, req SyllabusRequest) ([]Module, error)
		GenerateLessonContent(ctx context.Context, req LessonContentRequest) (string, error)
	}

	SyllabusRequest struct {
		Topic    string `json:"topic" validate:"required"`
		Level    string `json:"level" validate:"required,oneof=beginner intermediate advanced"`
		Duration string `json:"duration" validate:"required"`
		Tone     string `json:"tone"`
		Goals    string `json:"goals"`
	}

	LessonContentRequest struct {
		CourseTitle string `json:"course_title" validate:"required"`
		ModuleTitle string `json:"module_title" validate:"required"`
		LessonTitle string `json:"lesson_title" validate:"required"`
		Level       string `json:"level"`
		Tone        string `json:"tone"`
	}

	// CourseStats is one row of the educator dashboard.
	CourseStats struct {
		Course       Course        `json:"course"`
		StudentCount int           `json:"student_count"`
		Students     []StudentInfo `json:"students"`
	}

	StudentInfo struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	Dashboard struct {
		Courses       []CourseStats `json:"courses"`
		TotalCourses  int           `json:"total_courses"`
		TotalStudents int           `json:"total_students"`
	}

	Service struct {
		repo        Repository
		enrollments EnrollmentReader
		generator   SyllabusGenerator
	}
)

func NewService(repo Repository, enrollments EnrollmentReader, generator SyllabusGenerator) *Service {
	return &Service{
		repo:        repo,
		enrollments: enrollments,
		generator:   generator,
	}
}

func (svc *Service) Create(ctx context.Context, educator user.User, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:         nc.Title,
		Topic:         nc.Topic,
		Description:   nc.Description,
		Level:         nc.Level,
		Tone:          nc.Tone,
		TotalDuration: nc.TotalDuration,
		EducatorID:    educator.ID,
		Modules:       nc.Modules,
		IsPublished:   nc.IsPublished,
		Tags:          nc.Tags,
		ThumbnailURL:  nc.ThumbnailURL,
		AIGenerated:   nc.AIGenerated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) Get(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

// Query lists the catalog. Unpublished courses only surface when the caller
// filters by their own educator id.
func (svc *Service) Query(ctx context.Context, viewer user.User, filter *QueryFilter) ([]Course, error) {
	filter.Clean()
	filter.IncludeUnpublished = filter.EducatorID != "" && filter.EducatorID == viewer.ID
	return svc.repo.QueryCourses(ctx, filter)
}

func (svc *Service) Update(ctx context.Context, caller user.User, id string, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if crs.EducatorID != caller.ID && !caller.IsAdmin() {
		return Course{}, ErrNotOwner
	}
	return svc.repo.UpdateCourse(ctx, uc.Apply(crs))
}

func (svc *Service) Delete(ctx context.Context, caller user.User, id string) error {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return err
	}
	if crs.EducatorID != caller.ID && !caller.IsAdmin() {
		return ErrNotOwner
	}
	return svc.repo.DeleteCourse(ctx, id)
}

// IsOwner is the course-ownership fact consumed by the chat access predicate.
func (svc *Service) IsOwner(ctx context.Context, courseID, educatorID string) (bool, error) {
	return svc.repo.OwnsCourse(ctx, courseID, educatorID)
}

// EducatorDashboard aggregates the educator's courses with enrolled students.
func (svc *Service) EducatorDashboard(ctx context.Context, educator user.User) (Dashboard, error) {
	courses, err := svc.repo.QueryCourses(ctx, &QueryFilter{EducatorID: educator.ID, IncludeUnpublished: true})
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "querying educator courses")
	}

	dash := Dashboard{
		Courses:      make([]CourseStats, 0, len(courses)),
		TotalCourses: len(courses),
	}
	uniqueStudents := make(map[string]struct{})

	for _, crs := range courses {
		students, err := svc.enrollments.StudentsByCourse(ctx, crs.ID)
		if err != nil {
			return Dashboard{}, errors.Wrap(err, "querying course students")
		}
		stats := CourseStats{
			Course:       crs,
			StudentCount: len(students),
			Students:     make([]StudentInfo, 0, len(students)),
		}
		for _, s := range students {
			stats.Students = append(stats.Students, StudentInfo{ID: s.ID, Name: s.Name, Email: s.Email})
			uniqueStudents[s.ID] = struct{}{}
		}
		dash.Courses = append(dash.Courses, stats)
	}
	dash.TotalStudents = len(uniqueStudents)
	return dash, nil
}

// GenerateSyllabus drafts a module/lesson outline via the configured generator.
func (svc *Service) GenerateSyllabus(ctx context.Context, req SyllabusRequest) ([]Module, error) {
	if svc.generator == nil {
		return nil, errors.New("no syllabus generator configured")
	}
	return svc.generator.GenerateSyllabus(ctx, req)
}

// GenerateLessonContent drafts a single lesson's markdown body.
func (svc *Service) GenerateLessonContent(ctx context.Context, req LessonContentRequest) (string, error) {
	if svc.generator == nil {
		return "", errors.New("no syllabus generator configured")
	}
	return svc.generator.GenerateLessonContent(ctx, req)
}
