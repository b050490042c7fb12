package sqlxrepos

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/thisismugil/edutech/core"
	"github.com/thisismugil/edutech/core/course"
)

type courseRow struct {
	ID            string         `db:"id"`
	Title         string         `db:"title"`
	Topic         string         `db:"topic"`
	Description   string         `db:"description"`
	Level         string         `db:"level"`
	Tone          string         `db:"tone"`
	TotalDuration string         `db:"total_duration"`
	EducatorID    string         `db:"educator_id"`
	EducatorName  null.String    `db:"educator_name"`
	Modules       []byte         `db:"modules"`
	IsPublished   bool           `db:"is_published"`
	Tags          pq.StringArray `db:"tags"`
	ThumbnailURL  null.String    `db:"thumbnail_url"`
	AIGenerated   bool           `db:"ai_generated"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r courseRow) toCourse() (course.Course, error) {
	crs := course.Course{
		ID:            r.ID,
		Title:         r.Title,
		Topic:         r.Topic,
		Description:   r.Description,
		Level:         r.Level,
		Tone:          r.Tone,
		TotalDuration: r.TotalDuration,
		EducatorID:    r.EducatorID,
		EducatorName:  r.EducatorName.String,
		Modules:       []course.Module{},
		IsPublished:   r.IsPublished,
		Tags:          r.Tags,
		ThumbnailURL:  r.ThumbnailURL.String,
		AIGenerated:   r.AIGenerated,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if len(r.Modules) > 0 {
		if err := json.Unmarshal(r.Modules, &crs.Modules); err != nil {
			return course.Course{}, errors.Wrap(err, "decoding course modules")
		}
	}
	return crs, nil
}

// selectCourse joins the educator's name for the read-side projection.
const selectCourse = `
SELECT c.*, u.name AS educator_name
FROM course c
         INNER JOIN "user" u ON u.id = c.educator_id`

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	crs.ID = uuid.New().String()
	if crs.Modules == nil {
		crs.Modules = []course.Module{}
	}
	modules, err := json.Marshal(crs.Modules)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "encoding course modules")
	}

	_, err = repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO course (id, title, topic, description, level, tone, total_duration, educator_id,
		                     modules, is_published, tags, thumbnail_url, ai_generated, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		crs.ID, crs.Title, crs.Topic, crs.Description, crs.Level, crs.Tone, crs.TotalDuration, crs.EducatorID,
		modules, crs.IsPublished, pq.StringArray(crs.Tags),
		null.NewString(crs.ThumbnailURL, crs.ThumbnailURL != ""), crs.AIGenerated, crs.CreatedAt.UTC(), crs.UpdatedAt.UTC(),
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return repo.GetCourse(ctx, crs.ID)
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, selectCourse+` WHERE c.id = $1`, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "finding course by ID")
	}
	return row.toCourse()
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, exec ...core.DBExecutor) ([]course.Course, error) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if !filter.IncludeUnpublished {
			conds = append(conds, "c.is_published")
		}
		if filter.Topic != "" {
			conds = append(conds, "c.topic ILIKE "+arg(filter.Topic))
		}
		if filter.Level != "" {
			conds = append(conds, "c.level = "+arg(filter.Level))
		}
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			conds = append(conds, fmt.Sprintf(
				"(c.title ILIKE %s OR c.topic ILIKE %s OR c.description ILIKE %s)", arg(val), arg(val), arg(val)))
		}
		if filter.EducatorID != "" {
			if _, err := uuid.Parse(filter.EducatorID); err != nil {
				return []course.Course{}, nil
			}
			conds = append(conds, "c.educator_id = "+arg(filter.EducatorID))
		}
	} else {
		conds = append(conds, "c.is_published")
	}

	q := selectCourse
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY c.created_at DESC"

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		crs, err := r.toCourse()
		if err != nil {
			return nil, err
		}
		courses = append(courses, crs)
	}
	return courses, nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	modules, err := json.Marshal(crs.Modules)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "encoding course modules")
	}

	res, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE course
		 SET title = $1, topic = $2, description = $3, level = $4, tone = $5, total_duration = $6,
		     modules = $7, is_published = $8, tags = $9, thumbnail_url = $10, updated_at = $11
		 WHERE id = $12`,
		crs.Title, crs.Topic, crs.Description, crs.Level, crs.Tone, crs.TotalDuration,
		modules, crs.IsPublished, pq.StringArray(crs.Tags),
		null.NewString(crs.ThumbnailURL, crs.ThumbnailURL != ""), crs.UpdatedAt.UTC(), crs.ID,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourse(ctx, crs.ID)
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo courseRepository) OwnsCourse(ctx context.Context, courseID, educatorID string, exec ...core.DBExecutor) (bool, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return false, nil
	}
	if _, err := uuid.Parse(educatorID); err != nil {
		return false, nil
	}
	var owns bool
	err := repo.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM course WHERE id = $1 AND educator_id = $2)`,
		courseID, educatorID,
	).Scan(&owns)
	if err != nil {
		return false, errors.Wrap(err, "checking course ownership")
	}
	return owns, nil
}
