package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/user"
)

type checkoutApi struct {
	conf     *core.Config
	svc      user.Service
	validate *validator.Validate
}

func registerCheckoutAPI(g *echo.Group, conf *core.Config, svc user.Service, validate *validator.Validate) {
	api := checkoutApi{
		conf:     conf,
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/checkout")
	cg.POST("/guest", api.guest)
	cg.POST("/guest/code", api.sendGuestCode)
	cg.POST("/guest/verify", api.verifyGuestCode)
}

var (
	errAccountExists = echo.NewHTTPError(http.StatusConflict, user.ErrAccountExists.Error())
	errCodeThrottled = echo.NewHTTPError(http.StatusTooManyRequests, user.ErrCodeThrottled.Error())
	errInvalidCode   = echo.NewHTTPError(http.StatusUnprocessableEntity, user.ErrInvalidCode.Error())
)

// guest finds or creates the account of a guest checking out.
// A token is only handed out for a newly created account: existing guests must verify their email first
// and existing parents must log in.
func (api *checkoutApi) guest(ctx echo.Context) error {
	var data GuestCheckoutRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GuestCheckoutRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.FindOrCreateGuest(ctx.Request().Context(), data.Email, data.Name)
	if err != nil {
		return errors.Wrap(err, "finding or creating guest")
	}

	if !res.IsNew() {
		// knowing an email is not enough to learn about its account
		return ctx.JSON(http.StatusOK, GuestCheckoutResponse{GuestResult: user.GuestResult{Status: res.Status}})
	}
	return api.respondWithToken(ctx, res)
}

func (api *checkoutApi) sendGuestCode(ctx echo.Context) error {
	var data GuestCodeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GuestCodeRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.SendGuestCode(ctx.Request().Context(), data.Email); err != nil {
		switch errors.Cause(err) {
		case user.ErrAccountExists:
			return errAccountExists
		case user.ErrCodeThrottled:
			return errCodeThrottled
		}
		return errors.Wrap(err, "sending guest code")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Verification code sent."})
}

func (api *checkoutApi) verifyGuestCode(ctx echo.Context) error {
	var data GuestVerifyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GuestVerifyRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.VerifyGuestCode(ctx.Request().Context(), data.Email, data.Code, data.Name)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrInvalidCode:
			return errInvalidCode
		case user.ErrAccountExists:
			return errAccountExists
		}
		return errors.Wrap(err, "verifying guest code")
	}
	return api.respondWithToken(ctx, res)
}

func (api *checkoutApi) respondWithToken(ctx echo.Context, res user.GuestResult) error {
	resp := GuestCheckoutResponse{GuestResult: res}
	var err error
	if resp.Token, err = GenerateToken(api.conf, GetUserClaims(api.conf, *res.User)); err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, resp)
}

type (
	GuestCheckoutRequest struct {
		Email string `json:"email" validate:"required,email"`
		Name  string `json:"name"`
	}

	GuestCodeRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	GuestVerifyRequest struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required"`
		Name  string `json:"name"`
	}

	GuestCheckoutResponse struct {
		user.GuestResult
		Token string `json:"token,omitempty"`
	}
)

func (gr *GuestCheckoutRequest) Validate(validate *validator.Validate) error {
	gr.Email = core.CleanString(gr.Email, true /* lower */)
	gr.Name = core.CleanString(gr.Name)
	return validate.Struct(gr)
}

func (gr *GuestCodeRequest) Validate(validate *validator.Validate) error {
	gr.Email = core.CleanString(gr.Email, true /* lower */)
	return validate.Struct(gr)
}

func (gr *GuestVerifyRequest) Validate(validate *validator.Validate) error {
	gr.Email = core.CleanString(gr.Email, true /* lower */)
	gr.Code = core.CleanString(gr.Code)
	gr.Name = core.CleanString(gr.Name)
	return validate.Struct(gr)
}
