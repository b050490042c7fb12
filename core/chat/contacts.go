package chat

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/thisismugil/edutech/core/user"
)

// StudentContacts ranks the educator's chat counterparties: the unique
// students enrolled in any of their courses, each with the educator's unread
// count and the latest direct-message timestamp between the pair.
func (svc *Service) StudentContacts(ctx context.Context, educator user.User) ([]Contact, error) {
	students, err := svc.directory.StudentsOfEducator(ctx, educator.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing educator students")
	}
	return svc.rankContacts(ctx, educator.ID, students)
}

// EducatorContacts ranks the student's chat counterparties: the unique
// educators owning their enrolled courses.
func (svc *Service) EducatorContacts(ctx context.Context, student user.User) ([]Contact, error) {
	educators, err := svc.directory.EducatorsOfStudent(ctx, student.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing student educators")
	}
	return svc.rankContacts(ctx, student.ID, educators)
}

// rankContacts decorates counterparties with unread/last-message stats and
// sorts them: contacts with a last message first, most recent first, then by
// name for the rest.
func (svc *Service) rankContacts(ctx context.Context, viewerID string, parties []user.User) ([]Contact, error) {
	contacts := make([]Contact, 0, len(parties))
	for _, p := range parties {
		unread, err := svc.repo.CountUnread(ctx, viewerID, p.ID)
		if err != nil {
			return nil, errors.Wrap(err, "counting unread messages")
		}
		c := Contact{
			ID:          p.ID,
			Name:        p.Name,
			Email:       p.Email,
			UnreadCount: unread,
		}
		if last, ok, err := svc.repo.LastMessageAt(ctx, viewerID, p.ID); err != nil {
			return nil, errors.Wrap(err, "finding last message")
		} else if ok {
			c.LastMessageAt = &last
		}
		contacts = append(contacts, c)
	}

	sort.SliceStable(contacts, func(i, j int) bool {
		a, b := contacts[i], contacts[j]
		switch {
		case a.LastMessageAt == nil && b.LastMessageAt == nil:
			return a.Name < b.Name
		case a.LastMessageAt == nil:
			return false
		case b.LastMessageAt == nil:
			return true
		}
		return a.LastMessageAt.After(*b.LastMessageAt)
	})
	return contacts, nil
}
