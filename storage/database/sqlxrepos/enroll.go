package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/thisismugil/edutech/core"
	"github.com/thisismugil/edutech/core/enroll"
	"github.com/thisismugil/edutech/core/user"
)

type enrollmentRow struct {
	ID         string    `db:"id"`
	StudentID  string    `db:"student_id"`
	CourseID   string    `db:"course_id"`
	EnrolledAt time.Time `db:"enrolled_at"`
	Progress   []byte    `db:"progress"`
}

func (r enrollmentRow) toEnrollment() (enroll.Enrollment, error) {
	enr := enroll.Enrollment{
		ID:         r.ID,
		StudentID:  r.StudentID,
		CourseID:   r.CourseID,
		EnrolledAt: r.EnrolledAt,
	}
	if err := json.Unmarshal(r.Progress, &enr.Progress); err != nil {
		return enroll.Enrollment{}, errors.Wrap(err, "decoding enrollment progress")
	}
	if enr.Progress.CompletedModules == nil {
		enr.Progress.CompletedModules = []string{}
	}
	if enr.Progress.CompletedLessons == nil {
		enr.Progress.CompletedLessons = []string{}
	}
	return enr, nil
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enroll.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo enrollmentRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr enroll.Enrollment, exec ...core.DBExecutor) (enroll.Enrollment, error) {
	enr.ID = uuid.New().String()
	progress, err := json.Marshal(enr.Progress)
	if err != nil {
		return enroll.Enrollment{}, errors.Wrap(err, "encoding enrollment progress")
	}

	_, err = repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO enrollment (id, student_id, course_id, enrolled_at, progress)
		 VALUES ($1, $2, $3, $4, $5)`,
		enr.ID, enr.StudentID, enr.CourseID, enr.EnrolledAt.UTC(), progress,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return enroll.Enrollment{}, enroll.ErrExists
		}
		return enroll.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (enroll.Enrollment, error) {
	if _, err := uuid.Parse(studentID); err != nil {
		return enroll.Enrollment{}, enroll.ErrNotFound
	}
	if _, err := uuid.Parse(courseID); err != nil {
		return enroll.Enrollment{}, enroll.ErrNotFound
	}
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM enrollment WHERE student_id = $1 AND course_id = $2`, studentID, courseID)
	if err != nil {
		return enroll.Enrollment{}, trapNoRowsErr(err, enroll.ErrNotFound, "finding enrollment")
	}
	return row.toEnrollment()
}

func (repo enrollmentRepository) IsEnrolled(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) (bool, error) {
	if _, err := uuid.Parse(studentID); err != nil {
		return false, nil
	}
	if _, err := uuid.Parse(courseID); err != nil {
		return false, nil
	}
	var enrolled bool
	err := repo.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM enrollment WHERE student_id = $1 AND course_id = $2)`,
		studentID, courseID,
	).Scan(&enrolled)
	if err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	return enrolled, nil
}

func (repo enrollmentRepository) UpdateProgress(ctx context.Context, enr enroll.Enrollment, exec ...core.DBExecutor) (enroll.Enrollment, error) {
	progress, err := json.Marshal(enr.Progress)
	if err != nil {
		return enroll.Enrollment{}, errors.Wrap(err, "encoding enrollment progress")
	}

	res, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE enrollment SET progress = $1 WHERE id = $2`, progress, enr.ID)
	if err != nil {
		return enroll.Enrollment{}, errors.Wrap(err, "updating enrollment progress")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return enroll.Enrollment{}, enroll.ErrNotFound
	}
	return enr, nil
}

func (repo enrollmentRepository) QueryEnrollmentsByStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]enroll.Enrollment, error) {
	if _, err := uuid.Parse(studentID); err != nil {
		return []enroll.Enrollment{}, nil
	}
	var rows []enrollmentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM enrollment WHERE student_id = $1 ORDER BY enrolled_at DESC`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments by student")
	}
	enrs := make([]enroll.Enrollment, 0, len(rows))
	for _, r := range rows {
		enr, err := r.toEnrollment()
		if err != nil {
			return nil, err
		}
		enrs = append(enrs, enr)
	}
	return enrs, nil
}

func (repo enrollmentRepository) StudentsByCourse(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]user.User, error) {
	if _, err := uuid.Parse(courseID); err != nil {
		return []user.User{}, nil
	}
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT u.*
		 FROM "user" u
		          INNER JOIN enrollment e ON e.student_id = u.id
		 WHERE e.course_id = $1
		 ORDER BY u.name`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course students")
	}
	return toUsers(rows), nil
}

func (repo enrollmentRepository) StudentsOfEducator(ctx context.Context, educatorID string, exec ...core.DBExecutor) ([]user.User, error) {
	if _, err := uuid.Parse(educatorID); err != nil {
		return []user.User{}, nil
	}
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT DISTINCT u.*
		 FROM "user" u
		          INNER JOIN enrollment e ON e.student_id = u.id
		          INNER JOIN course c ON c.id = e.course_id
		 WHERE c.educator_id = $1
		 ORDER BY u.name`, educatorID)
	if err != nil {
		return nil, errors.Wrap(err, "querying educator students")
	}
	return toUsers(rows), nil
}

func (repo enrollmentRepository) EducatorsOfStudent(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]user.User, error) {
	if _, err := uuid.Parse(studentID); err != nil {
		return []user.User{}, nil
	}
	var rows []userRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT DISTINCT u.*
		 FROM "user" u
		          INNER JOIN course c ON c.educator_id = u.id
		          INNER JOIN enrollment e ON e.course_id = c.id
		 WHERE e.student_id = $1
		 ORDER BY u.name`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying student educators")
	}
	return toUsers(rows), nil
}

func toUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users
}
