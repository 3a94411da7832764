package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mavuno/sokoni/core/notification"
)

type notificationAPI struct {
	svc *notification.Service
}

func registerNotificationAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *notification.Service) {
	api := notificationAPI{svc: svc}

	ng := g.Group("/notifications", auth)
	ng.GET("", api.query)
	ng.GET("/unread-count", api.countUnread)
	ng.PUT("/read-all", api.markAllRead)
	ng.PUT("/:id/read", api.markRead)
}

// Handlers

func (api *notificationAPI) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	notifs, err := api.svc.QueryByUser(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationAPI) countUnread(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	count, err := api.svc.CountUnread(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"unread": count})
}

func (api *notificationAPI) markRead(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	id := ctx.Param("id")
	notif, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == notification.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "getting notification")
	}
	if notif.UserID != usr.ID {
		// hide other users' notifications
		return errHTTPNotFound
	}

	if err = api.svc.MarkRead(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *notificationAPI) markAllRead(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.MarkAllRead(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return ctx.NoContent(http.StatusNoContent)
}
