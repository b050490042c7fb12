package chat

import (
	"time"

	"github.com/pkg/errors"
)

// Target addresses a conversation. A thread is either direct (a 1:1 exchange
// between two principals) or course-scoped (one shared thread per course).
// Construction goes through Direct/Course so a message can never carry both
// addressing modes, or neither.
type Target struct {
	kind     targetKind
	userID   string
	courseID string
}

type targetKind int

const (
	targetDirect targetKind = iota + 1
	targetCourse
)

var errBadTarget = errors.New("empty conversation target")

// Direct addresses the 1:1 thread with the given counterparty.
func Direct(otherUserID string) (Target, error) {
	if otherUserID == "" {
		return Target{}, errBadTarget
	}
	return Target{kind: targetDirect, userID: otherUserID}, nil
}

// Course addresses the shared thread of the given course.
func Course(courseID string) (Target, error) {
	if courseID == "" {
		return Target{}, errBadTarget
	}
	return Target{kind: targetCourse, courseID: courseID}, nil
}

func (t Target) IsDirect() bool  { return t.kind == targetDirect }
func (t Target) IsCourse() bool  { return t.kind == targetCourse }
func (t Target) UserID() string  { return t.userID }
func (t Target) CourseID() string { return t.courseID }

// Party is the read-side identity projection attached to messages for display.
type Party struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Message is a single chat entry. Immutable once stored, except for the
// one-way unread -> read transition driven by direct-thread retrieval.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id,omitempty"` // empty when course-scoped
	CourseID   string    `json:"course_id,omitempty"`   // empty when direct
	Body       string    `json:"message"`
	Read       bool      `json:"is_read"`
	Seq        int64     `json:"-"` // insertion sequence; stable ordering tiebreaker
	CreatedAt  time.Time `json:"created_at"` // UTC

	// populated identities (repository join, not stored)
	Sender   *Party `json:"sender,omitempty"`
	Receiver *Party `json:"receiver,omitempty"`
}

// Contact is one ranked row of a conversation-list view: a counterparty with
// the viewer's unread count and the latest direct-message timestamp between them.
type Contact struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	UnreadCount   int        `json:"unread_count"`
	LastMessageAt *time.Time `json:"last_message,omitempty"`
}
