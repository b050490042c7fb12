package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/thisismugil/edutech/core/chat"
	"github.com/thisismugil/edutech/core/course"
	"github.com/thisismugil/edutech/core/enroll"
	"github.com/thisismugil/edutech/core/user"
)

type educatorApi struct {
	courseSvc *course.Service
	chatSvc   *chat.Service
	userSvc   user.ServiceInterface
	validate  *validator.Validate
}

func registerEducatorAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := educatorApi{
		courseSvc: deps.CourseSvc,
		chatSvc:   deps.ChatSvc,
		userSvc:   deps.UserSvc,
		validate:  deps.Validate,
	}

	eg := g.Group("/educator", jwt, educatorMiddleware())
	eg.GET("/dashboard", api.dashboard)
	eg.GET("/students", api.students)
	eg.POST("/generate-syllabus", api.generateSyllabus)
	eg.POST("/generate-content", api.generateContent)
}

// Handlers

func (api *educatorApi) dashboard(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	dash, err := api.courseSvc.EducatorDashboard(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "building educator dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}

// students lists the educator's chat contacts: unique enrolled students ranked
// by last direct message, decorated with the educator's unread counts.
func (api *educatorApi) students(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	contacts, err := api.chatSvc.StudentContacts(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "listing student contacts")
	}
	if contacts == nil {
		contacts = []chat.Contact{}
	}
	return ctx.JSON(http.StatusOK, contacts)
}

func (api *educatorApi) generateSyllabus(ctx echo.Context) error {
	var data course.SyllabusRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SyllabusRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	modules, err := api.courseSvc.GenerateSyllabus(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "generating syllabus")
	}
	return ctx.JSON(http.StatusOK, SyllabusResponse{Modules: modules})
}

func (api *educatorApi) generateContent(ctx echo.Context) error {
	var data course.LessonContentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LessonContentRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	content, err := api.courseSvc.GenerateLessonContent(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "generating lesson content")
	}
	return ctx.JSON(http.StatusOK, LessonContentResponse{Content: content})
}

type studentApi struct {
	enrollSvc *enroll.Service
	chatSvc   *chat.Service
	userSvc   user.ServiceInterface
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := studentApi{
		enrollSvc: deps.EnrollSvc,
		chatSvc:   deps.ChatSvc,
		userSvc:   deps.UserSvc,
	}

	sg := g.Group("/student", jwt, studentMiddleware())
	sg.GET("/educators", api.educators)
	sg.GET("/enrollments", api.enrollments)
}

// educators lists the student's chat contacts: the educators owning their
// enrolled courses, ranked like the educator view.
func (api *studentApi) educators(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	contacts, err := api.chatSvc.EducatorContacts(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "listing educator contacts")
	}
	if contacts == nil {
		contacts = []chat.Contact{}
	}
	return ctx.JSON(http.StatusOK, contacts)
}

func (api *studentApi) enrollments(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	enrs, err := api.enrollSvc.QueryByStudent(ctx.Request().Context(), ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrs == nil {
		enrs = []enroll.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

type (
	SyllabusResponse struct {
		Modules []course.Module `json:"modules"`
	}

	LessonContentResponse struct {
		Content string `json:"content"`
	}
)
