package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/cart"
	"github.com/trezcool/tutoring/core/user"
)

type cartApi struct {
	conf     core.CartConfig
	svc      *cart.Service
	validate *validator.Validate
}

func registerCartAPI(
	g *echo.Group,
	jwt, optionalJWT, identity echo.MiddlewareFunc,
	conf *core.Config,
	svc *cart.Service,
	validate *validator.Validate,
) {
	api := cartApi{
		conf:     conf.Cart,
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/cart", optionalJWT, identity)
	cg.GET("", api.retrieve)
	cg.GET("/count", api.count)
	cg.POST("/items", api.addItem)
	cg.POST("/flexible", api.addFlexible)
	cg.PATCH("/items/:item", api.updateItem)
	cg.DELETE("/items/:item", api.removeItem)

	g.GET("/cart-strategies", api.queryStrategies, jwt, adminMiddleware(user.AdminRoles...))
}

// current resolves the cart of the request and hands a freshly issued token over to the client.
func (api *cartApi) current(ctx echo.Context) (cart.Cart, error) {
	res, err := api.svc.Current(ctx.Request().Context(), contextCartIdentity(ctx))
	if err != nil {
		return cart.Cart{}, errors.Wrap(err, "resolving current cart")
	}
	if res.IssuedToken != "" {
		ctx.Response().Header().Set(api.conf.TokenHeader, res.IssuedToken)
	}
	return res.Cart, nil
}

func (api *cartApi) summary(ctx echo.Context, code int, c cart.Cart) error {
	sum, err := api.svc.Summary(ctx.Request().Context(), c)
	if err != nil {
		return errors.Wrap(err, "summarizing cart")
	}
	return ctx.JSON(code, sum)
}

// Handlers

func (api *cartApi) retrieve(ctx echo.Context) error {
	c, err := api.current(ctx)
	if err != nil {
		return err
	}
	return api.summary(ctx, http.StatusOK, c)
}

func (api *cartApi) count(ctx echo.Context) error {
	c, err := api.current(ctx)
	if err != nil {
		return err
	}
	n, err := api.svc.ItemCount(ctx.Request().Context(), c)
	if err != nil {
		return errors.Wrap(err, "counting cart items")
	}
	return ctx.JSON(http.StatusOK, CountResponse{Count: n})
}

func (api *cartApi) addItem(ctx echo.Context) error {
	var data cart.NewItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewItem")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.current(ctx)
	if err != nil {
		return err
	}
	if _, err = api.svc.AddItem(ctx.Request().Context(), c, data); err != nil {
		return errors.Wrap(err, "adding item")
	}
	return api.summary(ctx, http.StatusCreated, c)
}

func (api *cartApi) addFlexible(ctx echo.Context) error {
	var data cart.NewFlexibleItem
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFlexibleItem")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.current(ctx)
	if err != nil {
		return err
	}
	if _, err = api.svc.AddFlexible(ctx.Request().Context(), c, data); err != nil {
		return errors.Wrap(err, "adding flexible service")
	}
	return api.summary(ctx, http.StatusCreated, c)
}

func (api *cartApi) updateItem(ctx echo.Context) error {
	itemID, err := strconv.ParseInt(ctx.Param("item"), 10, 64)
	if err != nil {
		return errHttpNotFound
	}

	var data cart.UpdateItem
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateItem")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.current(ctx)
	if err != nil {
		return err
	}
	if _, err = api.svc.UpdateItemQuantity(ctx.Request().Context(), c, itemID, data.Quantity); err != nil {
		return errors.Wrap(err, "updating item")
	}
	return api.summary(ctx, http.StatusOK, c)
}

func (api *cartApi) removeItem(ctx echo.Context) error {
	itemID, err := strconv.ParseInt(ctx.Param("item"), 10, 64)
	if err != nil {
		return errHttpNotFound
	}

	c, err := api.current(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.RemoveItem(ctx.Request().Context(), c, itemID); err != nil {
		return errors.Wrap(err, "removing item")
	}
	return api.summary(ctx, http.StatusOK, c)
}

func (api *cartApi) queryStrategies(ctx echo.Context) error {
	strategies := api.svc.Strategies()
	kinds := make([]cart.StrategyKind, 0, len(strategies))
	for _, st := range strategies {
		kinds = append(kinds, st.Kind())
	}
	return ctx.JSON(http.StatusOK, kinds)
}

type CountResponse struct {
	Count int `json:"count"`
}
