package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisismugil/edutech/core"
	"github.com/thisismugil/edutech/core/chat"
	"github.com/thisismugil/edutech/core/course"
	"github.com/thisismugil/edutech/core/enroll"
	"github.com/thisismugil/edutech/core/user"
	inmemdb "github.com/thisismugil/edutech/storage/database/inmem"
)

type testEnv struct {
	svc       *chat.Service
	msgRepo   chat.Repository
	usrRepo   user.Repository
	crsRepo   course.Repository
	enrollSvc *enroll.Service
	courseSvc *course.Service
}

func setup(t *testing.T) *testEnv {
	db, err := inmemdb.Open()
	require.NoError(t, err)

	msgRepo := inmemdb.NewMessageRepository(db)
	usrRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)
	enrollSvc := enroll.NewService(inmemdb.NewEnrollmentRepository(db))
	courseSvc := course.NewService(crsRepo, enrollSvc, nil)
	return &testEnv{
		svc:       chat.NewService(msgRepo, enrollSvc, courseSvc, enrollSvc, nil),
		msgRepo:   msgRepo,
		usrRepo:   usrRepo,
		crsRepo:   crsRepo,
		enrollSvc: enrollSvc,
		courseSvc: courseSvc,
	}
}

func createUser(t *testing.T, repo user.Repository, name, email, role string) user.User {
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	usr, err := repo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func createCourse(t *testing.T, repo course.Repository, educator user.User, title string) course.Course {
	now := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:       title,
		Topic:       "Go",
		Level:       "beginner",
		EducatorID:  educator.ID,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	require.NoError(t, err)
	return crs
}

func directTarget(t *testing.T, otherID string) chat.Target {
	target, err := chat.Direct(otherID)
	require.NoError(t, err)
	return target
}

func courseTarget(t *testing.T, courseID string) chat.Target {
	target, err := chat.Course(courseID)
	require.NoError(t, err)
	return target
}

func TestService_directThread(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	student := createUser(t, env.usrRepo, "Awa Diop", "awa@test.cd", user.RoleStudent)
	educator := createUser(t, env.usrRepo, "Jina Kim", "jina@test.cd", user.RoleEducator)

	msg, err := env.svc.Post(ctx, student, directTarget(t, educator.ID), "hello, a question about module 2")
	require.NoError(t, err)
	assert.Equal(t, student.ID, msg.SenderID)
	assert.Equal(t, educator.ID, msg.ReceiverID)
	assert.False(t, msg.Read)
	require.NotNil(t, msg.Sender)
	assert.Equal(t, student.Name, msg.Sender.Name)

	// unread until the receiver opens the thread
	cnt, err := env.svc.UnreadCount(ctx, educator.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)

	// first retrieval returns the pre-update snapshot
	msgs, err := env.svc.Thread(ctx, educator, directTarget(t, student.ID))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].Read)

	cnt, err = env.svc.UnreadCount(ctx, educator.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cnt)

	// the read flag is one-way; a second retrieval sees it set
	msgs, err = env.svc.Thread(ctx, educator, directTarget(t, student.ID))
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Read)

	// the sender reading their own thread never touches the flag
	cnt, err = env.svc.UnreadCount(ctx, student.ID, educator.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cnt)
}

func TestService_emptyBodyRejected(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	student := createUser(t, env.usrRepo, "Awa Diop", "awa@test.cd", user.RoleStudent)
	educator := createUser(t, env.usrRepo, "Jina Kim", "jina@test.cd", user.RoleEducator)

	for _, body := range []string{"", "   ", "\t\n "} {
		_, err := env.svc.Post(ctx, student, directTarget(t, educator.ID), body)
		assert.EqualError(t, err, "message required")
	}

	// nothing was stored
	msgs, err := env.svc.Thread(ctx, student, directTarget(t, educator.ID))
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestService_courseThreadGate(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	educator := createUser(t, env.usrRepo, "Jina Kim", "jina@test.cd", user.RoleEducator)
	student := createUser(t, env.usrRepo, "Awa Diop", "awa@test.cd", user.RoleStudent)
	admin := createUser(t, env.usrRepo, "Root", "root@test.cd", user.RoleAdmin)
	crs := createCourse(t, env.crsRepo, educator, "Go Basics")
	target := courseTarget(t, crs.ID)

	// not enrolled: both reads and writes are refused
	_, err := env.svc.Post(ctx, student, target, "can I join?")
	assert.Equal(t, chat.ErrForbidden, err)
	_, err = env.svc.Thread(ctx, student, target)
	assert.Equal(t, chat.ErrForbidden, err)

	// the owning educator passes the gate
	_, err = env.svc.Post(ctx, educator, target, "welcome everyone")
	require.NoError(t, err)

	// enrolling flips the answer
	_, err = env.enrollSvc.Enroll(ctx, student, crs.ID)
	require.NoError(t, err)
	_, err = env.svc.Post(ctx, student, target, "glad to be here")
	require.NoError(t, err)

	msgs, err := env.svc.Thread(ctx, student, target)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, educator.ID, msgs[0].SenderID)
	assert.Equal(t, student.ID, msgs[1].SenderID)
	for _, m := range msgs {
		assert.Empty(t, m.ReceiverID)
		assert.Equal(t, crs.ID, m.CourseID)
	}

	// admins always pass
	msgs, err = env.svc.Thread(ctx, admin, target)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	// a different educator owns nothing here
	other := createUser(t, env.usrRepo, "Ben Osei", "ben@test.cd", user.RoleEducator)
	_, err = env.svc.Thread(ctx, other, target)
	assert.Equal(t, chat.ErrForbidden, err)
}

func TestService_unknownCourseForbidden(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	student := createUser(t, env.usrRepo, "Awa Diop", "awa@test.cd", user.RoleStudent)

	_, err := env.svc.Thread(ctx, student, courseTarget(t, "b1a2c3d4-0000-0000-0000-000000000000"))
	assert.Equal(t, chat.ErrForbidden, err)
}

func TestService_orderingStable(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	a := createUser(t, env.usrRepo, "Awa Diop", "awa@test.cd", user.RoleStudent)
	b := createUser(t, env.usrRepo, "Jina Kim", "jina@test.cd", user.RoleEducator)

	// two messages sharing a timestamp keep insertion order; a later
	// timestamp always sorts after them
	tstamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m1, err := env.msgRepo.CreateMessage(ctx, chat.Message{SenderID: a.ID, ReceiverID: b.ID, Body: "first", CreatedAt: tstamp})
	require.NoError(t, err)
	m2, err := env.msgRepo.CreateMessage(ctx, chat.Message{SenderID: b.ID, ReceiverID: a.ID, Body: "second", CreatedAt: tstamp})
	require.NoError(t, err)
	m3, err := env.msgRepo.CreateMessage(ctx, chat.Message{SenderID: a.ID, ReceiverID: b.ID, Body: "third", CreatedAt: tstamp.Add(time.Second)})
	require.NoError(t, err)

	msgs, err := env.svc.Thread(ctx, a, directTarget(t, b.ID))
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{m1.ID, m2.ID, m3.ID}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

func TestService_markReadOnlyTouchesFetched(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	student := createUser(t, env.usrRepo, "Awa Diop", "awa@test.cd", user.RoleStudent)
	educator := createUser(t, env.usrRepo, "Jina Kim", "jina@test.cd", user.RoleEducator)

	_, err := env.svc.Post(ctx, student, directTarget(t, educator.ID), "one")
	require.NoError(t, err)

	_, err = env.svc.Thread(ctx, educator, directTarget(t, student.ID))
	require.NoError(t, err)

	// a message landing after the snapshot stays unread
	_, err = env.svc.Post(ctx, student, directTarget(t, educator.ID), "two")
	require.NoError(t, err)

	cnt, err := env.svc.UnreadCount(ctx, educator.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)
}

func TestService_contacts(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	educator := createUser(t, env.usrRepo, "Jina Kim", "jina@test.cd", user.RoleEducator)
	s1 := createUser(t, env.usrRepo, "Awa Diop", "awa@test.cd", user.RoleStudent)
	s2 := createUser(t, env.usrRepo, "Ben Osei", "ben@test.cd", user.RoleStudent)
	s3 := createUser(t, env.usrRepo, "Carla Mbuyi", "carla@test.cd", user.RoleStudent)
	crs := createCourse(t, env.crsRepo, educator, "Go Basics")
	for _, s := range []user.User{s1, s2, s3} {
		_, err := env.enrollSvc.Enroll(ctx, s, crs.ID)
		require.NoError(t, err)
	}

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// s2 wrote twice early, s1 wrote once later, s3 never wrote
	for i, body := range []string{"question one", "question two"} {
		_, err := env.msgRepo.CreateMessage(ctx, chat.Message{
			SenderID: s2.ID, ReceiverID: educator.ID, Body: body, CreatedAt: t0.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := env.msgRepo.CreateMessage(ctx, chat.Message{
		SenderID: s1.ID, ReceiverID: educator.ID, Body: "hello", CreatedAt: t0.Add(time.Hour),
	})
	require.NoError(t, err)

	contacts, err := env.svc.StudentContacts(ctx, educator)
	require.NoError(t, err)
	require.Len(t, contacts, 3)

	// most recent conversation first, silent contacts last by name
	assert.Equal(t, s1.ID, contacts[0].ID)
	assert.Equal(t, 1, contacts[0].UnreadCount)
	assert.Equal(t, s2.ID, contacts[1].ID)
	assert.Equal(t, 2, contacts[1].UnreadCount)
	assert.Equal(t, s3.ID, contacts[2].ID)
	assert.Equal(t, 0, contacts[2].UnreadCount)
	assert.Nil(t, contacts[2].LastMessageAt)

	// the student side mirrors the directory
	contacts, err = env.svc.EducatorContacts(ctx, s1)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, educator.ID, contacts[0].ID)
	assert.Equal(t, 0, contacts[0].UnreadCount) // s1 has nothing unread from the educator
	require.NotNil(t, contacts[0].LastMessageAt)
}

func TestService_lastMessageAt(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	a := createUser(t, env.usrRepo, "Awa Diop", "awa@test.cd", user.RoleStudent)
	b := createUser(t, env.usrRepo, "Jina Kim", "jina@test.cd", user.RoleEducator)

	_, ok, err := env.svc.LastMessageAt(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	_, err = env.msgRepo.CreateMessage(ctx, chat.Message{SenderID: a.ID, ReceiverID: b.ID, Body: "hi", CreatedAt: t1})
	require.NoError(t, err)
	_, err = env.msgRepo.CreateMessage(ctx, chat.Message{SenderID: b.ID, ReceiverID: a.ID, Body: "hi back", CreatedAt: t2})
	require.NoError(t, err)

	// both directions count
	last, ok, err := env.svc.LastMessageAt(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, last.Equal(t2))
}

func TestService_invalidStoredTargetSignalsShutdown(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	student := createUser(t, env.usrRepo, "Awa Diop", "awa@test.cd", user.RoleStudent)
	educator := createUser(t, env.usrRepo, "Jina Kim", "jina@test.cd", user.RoleEducator)
	crs := createCourse(t, env.crsRepo, educator, "Go Basics")

	// bypass the service and store a message addressing both a user and a course
	_, err := env.msgRepo.CreateMessage(ctx, chat.Message{
		SenderID:   student.ID,
		ReceiverID: educator.ID,
		CourseID:   crs.ID,
		Body:       "hello",
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)

	_, err = env.svc.Thread(ctx, educator, directTarget(t, student.ID))
	require.Error(t, err)
	assert.True(t, core.IsShutdown(err))
}
