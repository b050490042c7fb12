package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/thisismugil/edutech/core"
	"github.com/thisismugil/edutech/core/chat"
)

type messageRepository struct {
	db    *messageTable
	users *userTable
}

var _ chat.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) *messageRepository {
	return &messageRepository{db: db.chat, users: db.user}
}

func (repo *messageRepository) party(userID string) *chat.Party {
	repo.users.RLock()
	defer repo.users.RUnlock()
	if usr, ok := repo.users.table[userID]; ok {
		return &chat.Party{ID: usr.ID, Name: usr.Name, Role: usr.Role}
	}
	return nil
}

func (repo *messageRepository) populate(msg chat.Message) chat.Message {
	msg.Sender = repo.party(msg.SenderID)
	if msg.ReceiverID != "" {
		msg.Receiver = repo.party(msg.ReceiverID)
	}
	return msg
}

func (repo *messageRepository) CreateMessage(ctx context.Context, msg chat.Message, exec ...core.DBExecutor) (chat.Message, error) {
	repo.db.Lock()
	msg.ID = uuid.New().String()
	repo.db.seqCount++
	msg.Seq = repo.db.seqCount
	stored := msg
	repo.db.table[msg.ID] = &stored
	repo.db.Unlock()

	return repo.populate(msg), nil
}

func (repo *messageRepository) DirectMessages(ctx context.Context, userID, otherID string, exec ...core.DBExecutor) ([]chat.Message, error) {
	repo.db.RLock()
	msgs := make([]chat.Message, 0)
	for _, m := range repo.db.table {
		if (m.SenderID == userID && m.ReceiverID == otherID) ||
			(m.SenderID == otherID && m.ReceiverID == userID) {
			msgs = append(msgs, *m)
		}
	}
	repo.db.RUnlock()
	return repo.sorted(msgs)
}

func (repo *messageRepository) CourseMessages(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]chat.Message, error) {
	repo.db.RLock()
	msgs := make([]chat.Message, 0)
	for _, m := range repo.db.table {
		if m.CourseID == courseID {
			msgs = append(msgs, *m)
		}
	}
	repo.db.RUnlock()
	return repo.sorted(msgs)
}

// sorted orders by created_at with the insertion sequence as tiebreak.
// A message targets a user or a course, never both nor neither; a stored
// message violating that means the data can no longer be trusted.
func (repo *messageRepository) sorted(msgs []chat.Message) ([]chat.Message, error) {
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].Seq < msgs[j].Seq
		}
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	for i := range msgs {
		if (msgs[i].ReceiverID == "") == (msgs[i].CourseID == "") {
			return nil, core.NewShutdownError("chat message " + msgs[i].ID + " has an invalid target")
		}
		msgs[i] = repo.populate(msgs[i])
	}
	return msgs, nil
}

func (repo *messageRepository) MarkRead(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		if m, ok := repo.db.table[id]; ok {
			m.Read = true
		}
	}
	return nil
}

func (repo *messageRepository) CountUnread(ctx context.Context, viewerID, senderID string, exec ...core.DBExecutor) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var cnt int
	for _, m := range repo.db.table {
		if m.ReceiverID == viewerID && m.SenderID == senderID && !m.Read {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *messageRepository) LastMessageAt(ctx context.Context, userID, otherID string, exec ...core.DBExecutor) (time.Time, bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var last time.Time
	var found bool
	for _, m := range repo.db.table {
		if (m.SenderID == userID && m.ReceiverID == otherID) ||
			(m.SenderID == otherID && m.ReceiverID == userID) {
			if m.CreatedAt.After(last) {
				last = m.CreatedAt
			}
			found = true
		}
	}
	return last, found, nil
}
