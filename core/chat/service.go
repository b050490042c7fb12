package chat

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/thisismugil/edutech/core"
	"github.com/thisismugil/edutech/core/user"
)

var (
	// errors
	ErrForbidden = errors.New("permission denied")

	errEmptyBody = errors.New("message required")
)

type (
	Repository interface {
		// CreateMessage inserts the message and returns it with its identity
		// parties populated. Exactly one row is ever written per call.
		CreateMessage(ctx context.Context, msg Message, exec ...core.DBExecutor) (Message, error)
		// DirectMessages returns all messages between the unordered pair
		// {userID, otherID}, ordered by created_at then insertion sequence.
		DirectMessages(ctx context.Context, userID, otherID string, exec ...core.DBExecutor) ([]Message, error)
		// CourseMessages returns the course's shared thread in the same order.
		CourseMessages(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Message, error)
		// MarkRead flips read on exactly the given IDs; re-touching rows that
		// are already read is a no-op.
		MarkRead(ctx context.Context, ids []string, exec ...core.DBExecutor) error
		// CountUnread counts messages sent by senderID to viewerID and not yet read.
		CountUnread(ctx context.Context, viewerID, senderID string, exec ...core.DBExecutor) (int, error)
		// LastMessageAt returns the latest created_at over both directions of
		// the pair; ok is false when the pair has never exchanged a message.
		LastMessageAt(ctx context.Context, userID, otherID string, exec ...core.DBExecutor) (time.Time, bool, error)
	}

	// EnrollmentChecker is the enrollment fact needed by the course-thread gate.
	EnrollmentChecker interface {
		IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
	}

	// OwnershipChecker is the course-ownership fact needed by the course-thread gate.
	OwnershipChecker interface {
		IsOwner(ctx context.Context, courseID, educatorID string) (bool, error)
	}

	// Directory lists a viewer's potential counterparties for contact rankings.
	Directory interface {
		StudentsOfEducator(ctx context.Context, educatorID string) ([]user.User, error)
		EducatorsOfStudent(ctx context.Context, studentID string) ([]user.User, error)
	}

	Service struct {
		repo        Repository
		enrollments EnrollmentChecker
		courses     OwnershipChecker
		directory   Directory
		logger      core.Logger
	}
)

func NewService(repo Repository, enrollments EnrollmentChecker, courses OwnershipChecker, directory Directory, logger core.Logger) *Service {
	return &Service{
		repo:        repo,
		enrollments: enrollments,
		courses:     courses,
		directory:   directory,
		logger:      logger,
	}
}

// canAccessCourseThread gates both reads and writes of a course thread:
// admins always pass, then enrollment, then course ownership. An unknown
// course simply fails every check.
func (svc *Service) canAccessCourseThread(ctx context.Context, principal user.User, courseID string) (bool, error) {
	if principal.IsAdmin() {
		return true, nil
	}
	enrolled, err := svc.enrollments.IsEnrolled(ctx, principal.ID, courseID)
	if err != nil {
		return false, errors.Wrap(err, "checking enrollment")
	}
	if enrolled {
		return true, nil
	}
	owns, err := svc.courses.IsOwner(ctx, courseID, principal.ID)
	if err != nil {
		return false, errors.Wrap(err, "checking course ownership")
	}
	return owns, nil
}

// Post persists one message to the targeted thread.
// Any two authenticated principals may exchange direct messages; course
// threads require the course gate. An empty body is rejected before any write.
func (svc *Service) Post(ctx context.Context, sender user.User, target Target, body string) (Message, error) {
	body = core.CleanString(body)
	if body == "" {
		return Message{}, core.NewValidationError(errEmptyBody, core.FieldError{Field: "message", Error: errEmptyBody.Error()})
	}

	msg := Message{
		SenderID:  sender.ID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	switch {
	case target.IsDirect():
		msg.ReceiverID = target.UserID()
	case target.IsCourse():
		ok, err := svc.canAccessCourseThread(ctx, sender, target.CourseID())
		if err != nil {
			return Message{}, err
		}
		if !ok {
			return Message{}, ErrForbidden
		}
		msg.CourseID = target.CourseID()
	default:
		return Message{}, errBadTarget
	}

	msg, err := svc.repo.CreateMessage(ctx, msg)
	if err != nil {
		return Message{}, errors.Wrap(err, "inserting message")
	}
	return msg, nil
}

// Thread returns the targeted conversation, oldest first. Reads share the
// write gate. Retrieving a direct thread marks the fetched messages addressed
// to the viewer as read; that bookkeeping never blocks or fails the retrieval
// and only ever touches the rows this call actually fetched, so a message
// inserted after the snapshot stays unread until the next retrieval.
func (svc *Service) Thread(ctx context.Context, viewer user.User, target Target) ([]Message, error) {
	switch {
	case target.IsDirect():
		msgs, err := svc.repo.DirectMessages(ctx, viewer.ID, target.UserID())
		if err != nil {
			return nil, errors.Wrap(err, "querying direct messages")
		}
		svc.markRead(ctx, viewer.ID, msgs)
		return msgs, nil

	case target.IsCourse():
		ok, err := svc.canAccessCourseThread(ctx, viewer, target.CourseID())
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrForbidden
		}
		msgs, err := svc.repo.CourseMessages(ctx, target.CourseID())
		if err != nil {
			return nil, errors.Wrap(err, "querying course messages")
		}
		return msgs, nil
	}
	return nil, errBadTarget
}

func (svc *Service) markRead(ctx context.Context, viewerID string, msgs []Message) {
	var ids []string
	for _, m := range msgs {
		if m.ReceiverID == viewerID && !m.Read {
			ids = append(ids, m.ID)
		}
	}
	if ids == nil {
		return
	}
	// best effort; unread state is re-derivable and the next retrieval retries
	if err := svc.repo.MarkRead(ctx, ids); err != nil && svc.logger != nil {
		svc.logger.Error("marking messages read", errors.Wrap(err, "marking messages read"))
	}
}

// UnreadCount counts messages from otherID to viewerID still unread.
func (svc *Service) UnreadCount(ctx context.Context, viewerID, otherID string) (int, error) {
	return svc.repo.CountUnread(ctx, viewerID, otherID)
}

// LastMessageAt returns the most recent direct-message timestamp between the
// pair, either direction; ok is false when there is none.
func (svc *Service) LastMessageAt(ctx context.Context, viewerID, otherID string) (time.Time, bool, error) {
	return svc.repo.LastMessageAt(ctx, viewerID, otherID)
}
