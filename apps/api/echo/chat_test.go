package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisismugil/edutech/core/chat"
	"github.com/thisismugil/edutech/core/user"
)

func Test_chatApi_direct(t *testing.T) {
	srv := setupServer(t)
	student := srv.createUser(t, "Awa Diop", "awa@test.cd", "LongSecret#153", user.RoleStudent)
	educator := srv.createUser(t, "Jina Kim", "jina@test.cd", "LongSecret#153", user.RoleEducator)
	studentToken := srv.getToken(t, student)
	educatorToken := srv.getToken(t, educator)

	tests := []httpTest{
		{
			name: "unauthenticated", method: http.MethodPost, path: "/v1/chat/" + educator.ID,
			body:     []byte(`{"message":"hello"}`),
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "unknown counterparty", method: http.MethodPost, path: "/v1/chat/b1a2c3d4-0000-0000-0000-000000000000",
			body: []byte(`{"message":"hello"}`), token: studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
		{
			name: "blank message", method: http.MethodPost, path: "/v1/chat/" + educator.ID,
			body: []byte(`{"message":"   "}`), token: studentToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "post ok", method: http.MethodPost, path: "/v1/chat/" + educator.ID,
			body: []byte(`{"message":"hello, a question about module 2"}`), token: studentToken,
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the educator sees the message, unread in this first snapshot
	req, rec := newAuthRequest(http.MethodGet, "/v1/chat/"+student.ID, educatorToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs []chat.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, student.ID, msgs[0].SenderID)
	assert.Equal(t, "hello, a question about module 2", msgs[0].Body)
	assert.False(t, msgs[0].Read)
	require.NotNil(t, msgs[0].Sender)
	assert.Equal(t, student.Name, msgs[0].Sender.Name)

	// the retrieval marked it read
	req, rec = newAuthRequest(http.MethodGet, "/v1/chat/"+student.ID, educatorToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Read)
}

func Test_chatApi_courseThread(t *testing.T) {
	srv := setupServer(t)
	educator := srv.createUser(t, "Jina Kim", "jina@test.cd", "LongSecret#153", user.RoleEducator)
	student := srv.createUser(t, "Awa Diop", "awa@test.cd", "LongSecret#153", user.RoleStudent)
	admin := srv.createUser(t, "Root", "root@test.cd", "LongSecret#153", user.RoleAdmin)
	crs := srv.createCourse(t, educator, "Go Basics", true)
	path := "/v1/courses/" + crs.ID + "/chat"

	forbidden := marchallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{
			name: "unauthenticated", method: http.MethodGet, path: path,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "not enrolled read", method: http.MethodGet, path: path,
			token: srv.getToken(t, student), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "not enrolled post", method: http.MethodPost, path: path,
			body: []byte(`{"message":"can I join?"}`), token: srv.getToken(t, student),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "unknown course", method: http.MethodGet, path: "/v1/courses/b1a2c3d4-0000-0000-0000-000000000000/chat",
			token: srv.getToken(t, student), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "owner posts", method: http.MethodPost, path: path,
			body: []byte(`{"message":"welcome everyone"}`), token: srv.getToken(t, educator),
			wantCode: http.StatusCreated,
		},
		{
			name: "admin reads", method: http.MethodGet, path: path,
			token: srv.getToken(t, admin), wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// enrolling opens the thread
	_, err := srv.enrollSvc.Enroll(context.Background(), student, crs.ID)
	require.NoError(t, err)

	req, rec := newAuthRequest(http.MethodPost, path, srv.getToken(t, student), []byte(`{"message":"glad to be here"}`))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, path, srv.getToken(t, student))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs []chat.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, educator.ID, msgs[0].SenderID)
	assert.Equal(t, student.ID, msgs[1].SenderID)
	for _, m := range msgs {
		assert.Equal(t, crs.ID, m.CourseID)
		assert.Empty(t, m.ReceiverID)
	}
}
