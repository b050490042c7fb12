package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/thisismugil/edutech/core/course"
	"github.com/thisismugil/edutech/core/enroll"
	"github.com/thisismugil/edutech/core/user"
)

type courseApi struct {
	svc       *course.Service
	enrollSvc *enroll.Service
	userSvc   user.ServiceInterface
	validate  *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{
		svc:       deps.CourseSvc,
		enrollSvc: deps.EnrollSvc,
		userSvc:   deps.UserSvc,
		validate:  deps.Validate,
	}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, educatorMiddleware())

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, educatorMiddleware())
	dg.DELETE("", api.destroy, educatorMiddleware())
	dg.POST("/enroll", api.enroll, studentMiddleware())
	dg.GET("/enroll", api.enrollment, studentMiddleware())
	dg.POST("/complete-lesson", api.completeLesson, studentMiddleware())
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	courses, err := api.svc.Query(ctx.Request().Context(), ctxUsr, filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	// drafts are only visible to their educator and admins
	if !crs.IsPublished {
		ctxUsr, err := getContextUser(ctx, api.userSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if crs.EducatorID != ctxUsr.ID && !ctxUsr.IsAdmin() {
			return errHttpNotFound
		}
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(course.Course{}, api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.Update(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	// the course must exist; enrolling twice is a no-op
	crs, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	enr, err := api.enrollSvc.Enroll(ctx.Request().Context(), ctxUsr, crs.ID)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) enrollment(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	enr, err := api.enrollSvc.Get(ctx.Request().Context(), ctxUsr.ID, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == enroll.ErrNotFound {
			return ctx.JSON(http.StatusOK, EnrollmentResponse{Enrolled: false})
		}
		return errors.Wrap(err, "finding enrollment")
	}
	return ctx.JSON(http.StatusOK, EnrollmentResponse{Enrolled: true, Enrollment: &enr})
}

func (api *courseApi) completeLesson(ctx echo.Context) error {
	var data CompleteLessonRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CompleteLessonRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return err
	}

	enr, err := api.enrollSvc.CompleteLesson(ctx.Request().Context(), ctxUsr, crs, data.ModuleID, data.LessonID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enr)
}

type (
	EnrollmentResponse struct {
		Enrolled   bool               `json:"enrolled"`
		Enrollment *enroll.Enrollment `json:"enrollment,omitempty"`
	}

	CompleteLessonRequest struct {
		ModuleID string `json:"module_id" validate:"required"`
		LessonID string `json:"lesson_id" validate:"required"`
	}
)
