package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/thisismugil/edutech/core"
	"github.com/thisismugil/edutech/core/chat"
	"github.com/thisismugil/edutech/core/user"
)

type chatApi struct {
	svc      *chat.Service
	userSvc  user.ServiceInterface
	validate *validator.Validate
}

func registerChatAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := chatApi{
		svc:      deps.ChatSvc,
		userSvc:  deps.UserSvc,
		validate: deps.Validate,
	}

	dg := g.Group("/chat/:userId", jwt)
	dg.GET("", api.directThread)
	dg.POST("", api.postDirect)

	cg := g.Group("/courses/:id/chat", jwt)
	cg.GET("", api.courseThread)
	cg.POST("", api.postCourse)
}

// Handlers

// directThread returns the 1:1 conversation with the counterparty, oldest
// first; retrieving it marks the messages addressed to the viewer as read.
func (api *chatApi) directThread(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	other, err := api.userSvc.GetByID(ctx.Request().Context(), ctx.Param("userId"))
	if err != nil {
		return err
	}

	target, err := chat.Direct(other.ID)
	if err != nil {
		return core.NewValidationError(err)
	}

	msgs, err := api.svc.Thread(ctx.Request().Context(), ctxUsr, target)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *chatApi) postDirect(ctx echo.Context) error {
	var data PostMessageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PostMessageRequest")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	other, err := api.userSvc.GetByID(ctx.Request().Context(), ctx.Param("userId"))
	if err != nil {
		return err
	}

	target, err := chat.Direct(other.ID)
	if err != nil {
		return core.NewValidationError(err)
	}

	msg, err := api.svc.Post(ctx.Request().Context(), ctxUsr, target, data.Message)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}

// courseThread returns the course's shared conversation; access requires
// enrollment, course ownership or admin rights.
func (api *chatApi) courseThread(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	target, err := chat.Course(ctx.Param("id"))
	if err != nil {
		return core.NewValidationError(err)
	}

	msgs, err := api.svc.Thread(ctx.Request().Context(), ctxUsr, target)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *chatApi) postCourse(ctx echo.Context) error {
	var data PostMessageRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PostMessageRequest")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	target, err := chat.Course(ctx.Param("id"))
	if err != nil {
		return core.NewValidationError(err)
	}

	msg, err := api.svc.Post(ctx.Request().Context(), ctxUsr, target, data.Message)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, msg)
}

type PostMessageRequest struct {
	Message string `json:"message"`
}
