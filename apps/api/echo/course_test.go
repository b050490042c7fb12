package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisismugil/edutech/core/course"
	"github.com/thisismugil/edutech/core/enroll"
	"github.com/thisismugil/edutech/core/user"
)

func Test_courseApi_create(t *testing.T) {
	srv := setupServer(t)
	student := srv.createUser(t, "Awa Diop", "awa@test.cd", "LongSecret#153", user.RoleStudent)
	educator := srv.createUser(t, "Jina Kim", "jina@test.cd", "LongSecret#153", user.RoleEducator)

	valid := []byte(`{"title":"Go Basics","topic":"Go","description":"An introduction.",` +
		`"level":"beginner","total_duration":"10 hours","is_published":true,"tags":["go","backend"]}`)

	tests := []httpTest{
		{
			name: "unauthenticated", method: http.MethodPost, path: "/v1/courses",
			body: valid, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "students may not author", method: http.MethodPost, path: "/v1/courses",
			body: valid, token: srv.getToken(t, student), wantCode: http.StatusForbidden,
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/courses",
			body: []byte(`{"title":"Go Basics"}`), token: srv.getToken(t, educator),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "bad level", method: http.MethodPost, path: "/v1/courses",
			body: []byte(`{"title":"Go Basics","topic":"Go","description":"An introduction.",` +
				`"level":"wizard","total_duration":"10 hours"}`),
			token: srv.getToken(t, educator), wantCode: http.StatusBadRequest,
		},
		{
			name: "ok", method: http.MethodPost, path: "/v1/courses",
			body: valid, token: srv.getToken(t, educator), wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code == http.StatusCreated {
				var crs course.Course
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &crs))
				assert.NotEmpty(t, crs.ID)
				assert.Equal(t, educator.ID, crs.EducatorID)
				assert.Equal(t, "professional", crs.Tone) // defaulted
			}
		})
	}
}

func Test_courseApi_queryAndRetrieve(t *testing.T) {
	srv := setupServer(t)
	educator := srv.createUser(t, "Jina Kim", "jina@test.cd", "LongSecret#153", user.RoleEducator)
	other := srv.createUser(t, "Ben Osei", "ben@test.cd", "LongSecret#153", user.RoleEducator)
	student := srv.createUser(t, "Awa Diop", "awa@test.cd", "LongSecret#153", user.RoleStudent)
	admin := srv.createUser(t, "Root", "root@test.cd", "LongSecret#153", user.RoleAdmin)

	published := srv.createCourse(t, educator, "Go Basics", true)
	draft := srv.createCourse(t, educator, "Go Advanced", false)

	studentToken := srv.getToken(t, student)

	// students only see published courses
	req, rec := newAuthRequest(http.MethodGet, "/v1/courses", studentToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var courses []course.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &courses))
	require.Len(t, courses, 1)
	assert.Equal(t, published.ID, courses[0].ID)

	tests := []httpTest{
		{
			name: "unknown id", method: http.MethodGet, path: "/v1/courses/b1a2c3d4-0000-0000-0000-000000000000",
			token: studentToken, wantCode: http.StatusNotFound,
		},
		{
			name: "published visible to students", method: http.MethodGet, path: "/v1/courses/" + published.ID,
			token: studentToken, wantCode: http.StatusOK,
		},
		{
			name: "draft hidden from students", method: http.MethodGet, path: "/v1/courses/" + draft.ID,
			token: studentToken, wantCode: http.StatusNotFound,
		},
		{
			name: "draft hidden from other educators", method: http.MethodGet, path: "/v1/courses/" + draft.ID,
			token: srv.getToken(t, other), wantCode: http.StatusNotFound,
		},
		{
			name: "draft visible to its educator", method: http.MethodGet, path: "/v1/courses/" + draft.ID,
			token: srv.getToken(t, educator), wantCode: http.StatusOK,
		},
		{
			name: "draft visible to admins", method: http.MethodGet, path: "/v1/courses/" + draft.ID,
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
}

func Test_courseApi_updateOwnership(t *testing.T) {
	srv := setupServer(t)
	educator := srv.createUser(t, "Jina Kim", "jina@test.cd", "LongSecret#153", user.RoleEducator)
	other := srv.createUser(t, "Ben Osei", "ben@test.cd", "LongSecret#153", user.RoleEducator)
	crs := srv.createCourse(t, educator, "Go Basics", true)

	body := []byte(`{"title":"Go Basics, 2nd edition"}`)

	// only the owner may modify
	req, rec := newAuthRequest(http.MethodPut, "/v1/courses/"+crs.ID, srv.getToken(t, other), body)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodPut, "/v1/courses/"+crs.ID, srv.getToken(t, educator), body)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated course.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Go Basics, 2nd edition", updated.Title)
	assert.Equal(t, crs.Topic, updated.Topic) // untouched fields survive

	// same rule for deletion
	req, rec = newAuthRequest(http.MethodDelete, "/v1/courses/"+crs.ID, srv.getToken(t, other))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/v1/courses/"+crs.ID, srv.getToken(t, educator))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func Test_courseApi_enroll(t *testing.T) {
	srv := setupServer(t)
	educator := srv.createUser(t, "Jina Kim", "jina@test.cd", "LongSecret#153", user.RoleEducator)
	student := srv.createUser(t, "Awa Diop", "awa@test.cd", "LongSecret#153", user.RoleStudent)
	crs := srv.createCourse(t, educator, "Go Basics", true)
	studentToken := srv.getToken(t, student)
	path := "/v1/courses/" + crs.ID + "/enroll"

	// not enrolled yet
	req, rec := newAuthRequest(http.MethodGet, path, studentToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var status EnrollmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Enrolled)

	// educators may not enroll
	req, rec = newAuthRequest(http.MethodPost, path, srv.getToken(t, educator))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// unknown course
	req, rec = newAuthRequest(http.MethodPost, "/v1/courses/b1a2c3d4-0000-0000-0000-000000000000/enroll", studentToken)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, path, studentToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var enr enroll.Enrollment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enr))
	assert.Equal(t, student.ID, enr.StudentID)

	// enrolling twice keeps the original record
	req, rec = newAuthRequest(http.MethodPost, path, studentToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var again enroll.Enrollment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.Equal(t, enr.ID, again.ID)

	req, rec = newAuthRequest(http.MethodGet, path, studentToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Enrolled)
	require.NotNil(t, status.Enrollment)
	assert.Equal(t, enr.ID, status.Enrollment.ID)
}

func Test_courseApi_completeLesson(t *testing.T) {
	srv := setupServer(t)
	educator := srv.createUser(t, "Jina Kim", "jina@test.cd", "LongSecret#153", user.RoleEducator)
	student := srv.createUser(t, "Awa Diop", "awa@test.cd", "LongSecret#153", user.RoleStudent)
	crs := srv.createCourse(t, educator, "Go Basics", true,
		course.Module{ID: "m1", Title: "Intro", Lessons: []course.Lesson{
			{ID: "l1", Title: "Setup"}, {ID: "l2", Title: "Syntax"},
		}},
	)
	studentToken := srv.getToken(t, student)
	path := "/v1/courses/" + crs.ID + "/complete-lesson"

	req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/enroll", studentToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []httpTest{
		{
			name: "missing ids", method: http.MethodPost, path: path,
			body: []byte(`{}`), token: studentToken, wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown module", method: http.MethodPost, path: path,
			body: []byte(`{"module_id":"nope","lesson_id":"l1"}`), token: studentToken,
			wantCode: http.StatusNotFound,
		},
		{
			name: "ok", method: http.MethodPost, path: path,
			body: []byte(`{"module_id":"m1","lesson_id":"l1"}`), token: studentToken,
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code == http.StatusOK {
				var enr enroll.Enrollment
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enr))
				assert.Equal(t, 50.0, enr.Progress.CompletionPercentage)
			}
		})
	}
}
