package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/thisismugil/edutech/core"
	"github.com/thisismugil/edutech/core/chat"
)

type messageRow struct {
	ID         string      `db:"id"`
	SenderID   string      `db:"sender_id"`
	ReceiverID null.String `db:"receiver_id"`
	CourseID   null.String `db:"course_id"`
	Body       string      `db:"body"`
	IsRead     bool        `db:"is_read"`
	Seq        int64       `db:"seq"`
	CreatedAt  time.Time   `db:"created_at"`

	SenderName   string      `db:"sender_name"`
	SenderRole   string      `db:"sender_role"`
	ReceiverName null.String `db:"receiver_name"`
	ReceiverRole null.String `db:"receiver_role"`
}

func (r messageRow) toMessage() chat.Message {
	msg := chat.Message{
		ID:         r.ID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID.String,
		CourseID:   r.CourseID.String,
		Body:       r.Body,
		Read:       r.IsRead,
		Seq:        r.Seq,
		CreatedAt:  r.CreatedAt,
		Sender:     &chat.Party{ID: r.SenderID, Name: r.SenderName, Role: r.SenderRole},
	}
	if r.ReceiverID.Valid {
		msg.Receiver = &chat.Party{ID: r.ReceiverID.String, Name: r.ReceiverName.String, Role: r.ReceiverRole.String}
	}
	return msg
}

// selectMessage joins both parties' identities for display.
const selectMessage = `
SELECT m.*,
       s.name AS sender_name,
       s.role AS sender_role,
       r.name AS receiver_name,
       r.role AS receiver_role
FROM chat_message m
         INNER JOIN "user" s ON s.id = m.sender_id
         LEFT JOIN "user" r ON r.id = m.receiver_id`

type messageRepository struct {
	db *sqlx.DB
}

var _ chat.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *sqlx.DB) *messageRepository {
	return &messageRepository{db: db}
}

func (repo messageRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.db
}

func (repo messageRepository) CreateMessage(ctx context.Context, msg chat.Message, exec ...core.DBExecutor) (chat.Message, error) {
	msg.ID = uuid.New().String()
	_, err := repo.getExec(exec).ExecContext(ctx,
		`INSERT INTO chat_message (id, sender_id, receiver_id, course_id, body, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.SenderID,
		null.NewString(msg.ReceiverID, msg.ReceiverID != ""), null.NewString(msg.CourseID, msg.CourseID != ""),
		msg.Body, msg.Read, msg.CreatedAt.UTC(),
	)
	if err != nil {
		return chat.Message{}, errors.Wrap(err, "inserting message")
	}

	var row messageRow
	if err = repo.db.GetContext(ctx, &row, selectMessage+` WHERE m.id = $1`, msg.ID); err != nil {
		return chat.Message{}, errors.Wrap(err, "finding inserted message")
	}
	return row.toMessage(), nil
}

func (repo messageRepository) DirectMessages(ctx context.Context, userID, otherID string, exec ...core.DBExecutor) ([]chat.Message, error) {
	if !validUUIDs(userID, otherID) {
		return []chat.Message{}, nil
	}
	var rows []messageRow
	err := repo.db.SelectContext(ctx, &rows, selectMessage+`
WHERE (m.sender_id = $1 AND m.receiver_id = $2)
   OR (m.sender_id = $2 AND m.receiver_id = $1)
ORDER BY m.created_at, m.seq`, userID, otherID)
	if err != nil {
		return nil, errors.Wrap(err, "querying direct messages")
	}
	return toMessages(rows)
}

func (repo messageRepository) CourseMessages(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]chat.Message, error) {
	if !validUUIDs(courseID) {
		return []chat.Message{}, nil
	}
	var rows []messageRow
	err := repo.db.SelectContext(ctx, &rows, selectMessage+`
WHERE m.course_id = $1
ORDER BY m.created_at, m.seq`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course messages")
	}
	return toMessages(rows)
}

func (repo messageRepository) MarkRead(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.getExec(exec).ExecContext(ctx,
		`UPDATE chat_message SET is_read = TRUE WHERE id = ANY($1)`, pq.StringArray(ids))
	if err != nil {
		return errors.Wrap(err, "marking messages read")
	}
	return nil
}

func (repo messageRepository) CountUnread(ctx context.Context, viewerID, senderID string, exec ...core.DBExecutor) (int, error) {
	if !validUUIDs(viewerID, senderID) {
		return 0, nil
	}
	var cnt int
	err := repo.db.QueryRowContext(ctx,
		`SELECT count(*) FROM chat_message WHERE receiver_id = $1 AND sender_id = $2 AND NOT is_read`,
		viewerID, senderID,
	).Scan(&cnt)
	if err != nil {
		return 0, errors.Wrap(err, "counting unread messages")
	}
	return cnt, nil
}

func (repo messageRepository) LastMessageAt(ctx context.Context, userID, otherID string, exec ...core.DBExecutor) (time.Time, bool, error) {
	if !validUUIDs(userID, otherID) {
		return time.Time{}, false, nil
	}
	var last null.Time
	err := repo.db.QueryRowContext(ctx,
		`SELECT max(created_at)
		 FROM chat_message
		 WHERE (sender_id = $1 AND receiver_id = $2)
		    OR (sender_id = $2 AND receiver_id = $1)`,
		userID, otherID,
	).Scan(&last)
	if err != nil {
		return time.Time{}, false, errors.Wrap(err, "finding last message time")
	}
	return last.Time, last.Valid, nil
}

// toMessages converts fetched rows. The DB CHECK enforces that a message
// targets a user or a course, never both nor neither; a row violating it
// means the data can no longer be trusted.
func toMessages(rows []messageRow) ([]chat.Message, error) {
	msgs := make([]chat.Message, 0, len(rows))
	for _, r := range rows {
		if r.ReceiverID.Valid == r.CourseID.Valid {
			return nil, core.NewShutdownError("chat_message " + r.ID + " has an invalid target")
		}
		msgs = append(msgs, r.toMessage())
	}
	return msgs, nil
}

func validUUIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}
