package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mavuno/sokoni/core"
	"github.com/mavuno/sokoni/core/catalog"
)

type catalogAPI struct {
	svc *catalog.Service
}

func registerCatalogAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *catalog.Service) {
	api := catalogAPI{svc: svc}

	cg := g.Group("/catalog")

	// public endpoints
	cg.GET("/categories", api.queryCategories)
	cg.GET("/products", api.queryProducts)
	cg.GET("/products/:id", api.getProduct)
	cg.GET("/products/:id/reviews", api.queryReviews)

	// admin endpoints
	adm := cg.Group("", auth, adminMiddleware())
	adm.POST("/categories", api.createCategory)
	adm.POST("/products", api.createProduct)
	adm.PUT("/products/stock", api.bulkSetStock)
	adm.PUT("/products/:id", api.updateProduct)
	adm.PUT("/products/:id/stock", api.setStock)
	adm.DELETE("/products", api.destroyProducts)

	// authed endpoints
	ag := cg.Group("", auth)
	ag.POST("/products/:id/reviews", api.addReview)

	wg := g.Group("/wishlist", auth)
	wg.GET("", api.queryWishlist)
	wg.POST("/:productID", api.addToWishlist)
	wg.DELETE("/:productID", api.removeFromWishlist)
}

// Handlers

func (api *catalogAPI) queryCategories(ctx echo.Context) error {
	cats, err := api.svc.QueryAllCategories(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying categories")
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *catalogAPI) createCategory(ctx echo.Context) error {
	var data catalog.NewCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCategory")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	cat, err := api.svc.CreateCategory(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating category")
	}
	return ctx.JSON(http.StatusCreated, cat)
}

func (api *catalogAPI) queryProducts(ctx echo.Context) error {
	var filter catalog.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to QueryFilter")
	}
	filter.Clean()

	prods, err := api.svc.Filter(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "filtering products")
	}
	return ctx.JSON(http.StatusOK, prods)
}

func (api *catalogAPI) getProduct(ctx echo.Context) error {
	prod, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == catalog.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "getting product")
	}
	return ctx.JSON(http.StatusOK, prod)
}

func (api *catalogAPI) createProduct(ctx echo.Context) error {
	var data catalog.NewProduct
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProduct")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	prod, err := api.svc.CreateProduct(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating product")
	}
	return ctx.JSON(http.StatusCreated, prod)
}

func (api *catalogAPI) updateProduct(ctx echo.Context) error {
	id := ctx.Param("id")

	var data catalog.UpdateProduct
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProduct")
	}
	orig, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == catalog.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "getting product")
	}
	if err = data.Validate(orig); err != nil {
		return err
	}

	prod, err := api.svc.Update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "updating product")
	}
	return ctx.JSON(http.StatusOK, prod)
}

func (api *catalogAPI) setStock(ctx echo.Context) error {
	var data struct {
		Stock int `json:"stock" validate:"gte=0"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding stock")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}
	prod, err := api.svc.SetStock(ctx.Request().Context(), ctx.Param("id"), data.Stock)
	if err != nil {
		if errors.Cause(err) == catalog.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "setting stock")
	}
	return ctx.JSON(http.StatusOK, prod)
}

func (api *catalogAPI) bulkSetStock(ctx echo.Context) error {
	var data catalog.BulkStockUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkStockUpdate")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	applied, err := api.svc.BulkSetStock(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "bulk setting stock")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"applied": applied})
}

func (api *catalogAPI) destroyProducts(ctx echo.Context) error {
	var data deleteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to deleteRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), data.IDs...); err != nil {
		return errors.Wrap(err, "deleting products")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *catalogAPI) queryReviews(ctx echo.Context) error {
	reviews, err := api.svc.QueryReviews(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying reviews")
	}
	return ctx.JSON(http.StatusOK, reviews)
}

func (api *catalogAPI) addReview(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data catalog.NewReview
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	rev, err := api.svc.AddReview(ctx.Request().Context(), usr.ID, ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == catalog.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "adding review")
	}
	return ctx.JSON(http.StatusCreated, rev)
}

func (api *catalogAPI) queryWishlist(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	prods, err := api.svc.QueryWishlist(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying wishlist")
	}
	return ctx.JSON(http.StatusOK, prods)
}

func (api *catalogAPI) addToWishlist(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	err = api.svc.AddToWishlist(ctx.Request().Context(), usr.ID, ctx.Param("productID"))
	if err != nil {
		if errors.Cause(err) == catalog.ErrNotFound {
			return errHTTPNotFound
		}
		return errors.Wrap(err, "adding to wishlist")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *catalogAPI) removeFromWishlist(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	err = api.svc.RemoveFromWishlist(ctx.Request().Context(), usr.ID, ctx.Param("productID"))
	if err != nil {
		switch errors.Cause(err) {
		case catalog.ErrNotFound, catalog.ErrNotWishlisted:
			return errHTTPNotFound
		}
		return errors.Wrap(err, "removing from wishlist")
	}
	return ctx.NoContent(http.StatusNoContent)
}
