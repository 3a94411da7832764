package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mavuno/sokoni/core"
	"github.com/mavuno/sokoni/core/order"
)

type orderAPI struct {
	svc *order.Service
}

func registerOrderAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *order.Service) {
	api := orderAPI{svc: svc}

	og := g.Group("/orders", auth)
	og.POST("/checkout", api.checkout)
	og.GET("", api.queryMine)
	og.GET("/:id", api.get)
	og.POST("/:id/cancel", api.cancel)

	adm := g.Group("/admin/orders", auth, adminMiddleware())
	adm.GET("", api.query)
	adm.PUT("/:id/status", api.setStatus)
}

// Handlers

func (api *orderAPI) checkout(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data order.Checkout
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Checkout")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	ord, err := api.svc.Checkout(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		if _, ok := err.(*core.ValidationError); ok {
			return err
		}
		return errors.Wrap(err, "checking out")
	}
	return ctx.JSON(http.StatusCreated, ord)
}

func (api *orderAPI) queryMine(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	orders, err := api.svc.QueryByUser(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying orders")
	}
	return ctx.JSON(http.StatusOK, orders)
}

func (api *orderAPI) get(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	ord, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == order.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "getting order")
	}
	if !usr.IsAdmin() && ord.UserID != usr.ID {
		// hide other users' orders
		return errHTTPNotFound
	}
	return ctx.JSON(http.StatusOK, ord)
}

func (api *orderAPI) cancel(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	ord, err := api.svc.Cancel(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == order.ErrNotFound {
			return errHTTPNotFound
		}
		if _, ok := err.(*core.ValidationError); ok {
			return err
		}
		return errors.Wrap(err, "cancelling order")
	}
	return ctx.JSON(http.StatusOK, ord)
}

func (api *orderAPI) query(ctx echo.Context) error {
	var filter order.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	orders, err := api.svc.Filter(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "filtering orders")
	}
	return ctx.JSON(http.StatusOK, orders)
}

func (api *orderAPI) setStatus(ctx echo.Context) error {
	var data order.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	ord, err := api.svc.SetStatus(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == order.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "setting order status")
	}
	return ctx.JSON(http.StatusOK, ord)
}
