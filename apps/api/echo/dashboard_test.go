package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisismugil/edutech/core/chat"
	"github.com/thisismugil/edutech/core/course"
	"github.com/thisismugil/edutech/core/enroll"
	"github.com/thisismugil/edutech/core/user"
)

func Test_educatorApi_dashboard(t *testing.T) {
	srv := setupServer(t)
	ctx := context.Background()
	educator := srv.createUser(t, "Jina Kim", "jina@test.cd", "LongSecret#153", user.RoleEducator)
	s1 := srv.createUser(t, "Awa Diop", "awa@test.cd", "LongSecret#153", user.RoleStudent)
	s2 := srv.createUser(t, "Ben Osei", "ben@test.cd", "LongSecret#153", user.RoleStudent)

	c1 := srv.createCourse(t, educator, "Go Basics", true)
	c2 := srv.createCourse(t, educator, "Go Advanced", true)
	for _, s := range []user.User{s1, s2} {
		_, err := srv.enrollSvc.Enroll(ctx, s, c1.ID)
		require.NoError(t, err)
	}
	_, err := srv.enrollSvc.Enroll(ctx, s1, c2.ID)
	require.NoError(t, err)

	// the student role is locked out of the educator surface
	req, rec := newAuthRequest(http.MethodGet, "/v1/educator/dashboard", srv.getToken(t, s1))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/educator/dashboard", srv.getToken(t, educator))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var dash course.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, 2, dash.TotalCourses)
	assert.Equal(t, 2, dash.TotalStudents) // unique students, not enrollments
	require.Len(t, dash.Courses, 2)

	counts := make(map[string]int, len(dash.Courses))
	for _, cs := range dash.Courses {
		counts[cs.Course.ID] = cs.StudentCount
	}
	assert.Equal(t, 2, counts[c1.ID])
	assert.Equal(t, 1, counts[c2.ID])
}

func Test_educatorApi_students(t *testing.T) {
	srv := setupServer(t)
	ctx := context.Background()
	educator := srv.createUser(t, "Jina Kim", "jina@test.cd", "LongSecret#153", user.RoleEducator)
	student := srv.createUser(t, "Awa Diop", "awa@test.cd", "LongSecret#153", user.RoleStudent)
	crs := srv.createCourse(t, educator, "Go Basics", true)

	educatorToken := srv.getToken(t, educator)

	// no enrollments yet
	req, rec := newAuthRequest(http.MethodGet, "/v1/educator/students", educatorToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	_, err := srv.enrollSvc.Enroll(ctx, student, crs.ID)
	require.NoError(t, err)

	// an unread direct message shows up in the contact row
	req, rec = newAuthRequest(http.MethodPost, "/v1/chat/"+educator.ID, srv.getToken(t, student),
		[]byte(`{"message":"a question"}`))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/educator/students", educatorToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var contacts []chat.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contacts))
	require.Len(t, contacts, 1)
	assert.Equal(t, student.ID, contacts[0].ID)
	assert.Equal(t, 1, contacts[0].UnreadCount)
	require.NotNil(t, contacts[0].LastMessageAt)
}

func Test_studentApi_educatorsAndEnrollments(t *testing.T) {
	srv := setupServer(t)
	ctx := context.Background()
	educator := srv.createUser(t, "Jina Kim", "jina@test.cd", "LongSecret#153", user.RoleEducator)
	student := srv.createUser(t, "Awa Diop", "awa@test.cd", "LongSecret#153", user.RoleStudent)
	crs := srv.createCourse(t, educator, "Go Basics", true)

	studentToken := srv.getToken(t, student)

	// educators are locked out of the student surface
	req, rec := newAuthRequest(http.MethodGet, "/v1/student/educators", srv.getToken(t, educator))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/student/enrollments", studentToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	_, err := srv.enrollSvc.Enroll(ctx, student, crs.ID)
	require.NoError(t, err)

	req, rec = newAuthRequest(http.MethodGet, "/v1/student/educators", studentToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var contacts []chat.Contact
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contacts))
	require.Len(t, contacts, 1)
	assert.Equal(t, educator.ID, contacts[0].ID)

	req, rec = newAuthRequest(http.MethodGet, "/v1/student/enrollments", studentToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var enrs []enroll.Enrollment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enrs))
	require.Len(t, enrs, 1)
	assert.Equal(t, crs.ID, enrs[0].CourseID)
}
