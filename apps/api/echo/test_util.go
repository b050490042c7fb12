package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thisismugil/edutech/core"
	"github.com/thisismugil/edutech/core/chat"
	"github.com/thisismugil/edutech/core/course"
	"github.com/thisismugil/edutech/core/enroll"
	"github.com/thisismugil/edutech/core/user"
	emailsvc "github.com/thisismugil/edutech/services/email"
	inmemdb "github.com/thisismugil/edutech/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

// testServer bundles the server under test with the backing stores so tests
// can seed data directly.
type testServer struct {
	*Server
	conf      *core.Config
	usrRepo   user.Repository
	crsRepo   course.Repository
	msgRepo   chat.Repository
	enrollSvc *enroll.Service
	userSvc   user.ServiceInterface
}

func setupServer(t *testing.T) *testServer {
	db, err := inmemdb.Open()
	require.NoError(t, err)

	conf := core.NewTestConfig()
	usrRepo := inmemdb.NewUserRepository(db)
	crsRepo := inmemdb.NewCourseRepository(db)
	msgRepo := inmemdb.NewMessageRepository(db)
	enrollSvc := enroll.NewService(inmemdb.NewEnrollmentRepository(db))
	courseSvc := course.NewService(crsRepo, enrollSvc, nil)
	chatSvc := chat.NewService(msgRepo, enrollSvc, courseSvc, enrollSvc, nil)
	usrSvc := user.NewService(nil, usrRepo, inmemdb.NewOTPStore(), emailsvc.NewConsoleServiceMock(conf), conf)

	validate := validator.New()
	translator := newTestTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	srv := NewServer(ServerDeps{
		Conf:           conf,
		UserSvc:        usrSvc,
		CourseSvc:      courseSvc,
		EnrollSvc:      enrollSvc,
		ChatSvc:        chatSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	return &testServer{
		Server:    srv,
		conf:      conf,
		usrRepo:   usrRepo,
		crsRepo:   crsRepo,
		msgRepo:   msgRepo,
		enrollSvc: enrollSvc,
		userSvc:   usrSvc,
	}
}

func newTestTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func (ts *testServer) createUser(t *testing.T, name, email, pwd, role string) user.User {
	now := time.Now().UTC()
	usr := user.User{Name: name, Email: email, Role: role, CreatedAt: now, UpdatedAt: now}
	usr.SetActive(true)
	if pwd != "" {
		require.NoError(t, usr.SetPassword(pwd))
	}
	usr, err := ts.usrRepo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func (ts *testServer) createCourse(t *testing.T, educator user.User, title string, published bool, modules ...course.Module) course.Course {
	now := time.Now().UTC()
	crs, err := ts.crsRepo.CreateCourse(context.Background(), course.Course{
		Title:         title,
		Topic:         "Go",
		Description:   "An introduction.",
		Level:         "beginner",
		Tone:          "professional",
		TotalDuration: "10 hours",
		EducatorID:    educator.ID,
		Modules:       modules,
		IsPublished:   published,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	require.NoError(t, err)
	return crs
}

func (ts *testServer) getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(ts.conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
