package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mavuno/sokoni/core/cart"
	"github.com/mavuno/sokoni/core/catalog"
)

type cartAPI struct {
	svc *cart.Service
}

func registerCartAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *cart.Service) {
	api := cartAPI{svc: svc}

	cg := g.Group("/cart", auth)
	cg.GET("", api.get)
	cg.DELETE("", api.clear)
	cg.POST("/items", api.addItem)
	cg.PUT("/items/:productID", api.updateItem)
	cg.DELETE("/items/:productID", api.removeItem)
}

// Handlers

func (api *cartAPI) get(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.Get(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting cart")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *cartAPI) addItem(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data cart.AddItem
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AddItem")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	c, err := api.svc.Add(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		if errors.Cause(err) == catalog.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "adding cart item")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *cartAPI) updateItem(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data cart.UpdateItem
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateItem")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	c, err := api.svc.UpdateQuantity(ctx.Request().Context(), usr.ID, ctx.Param("productID"), data.Quantity)
	if err != nil {
		if errors.Cause(err) == cart.ErrItemNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "updating cart item")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *cartAPI) removeItem(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.Remove(ctx.Request().Context(), usr.ID, ctx.Param("productID"))
	if err != nil {
		if errors.Cause(err) == cart.ErrItemNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "removing cart item")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *cartAPI) clear(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	c, err := api.svc.Clear(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "clearing cart")
	}
	return ctx.JSON(http.StatusOK, c)
}
