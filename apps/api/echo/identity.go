package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
)

type authApi struct {
	identitySvc *identity.Service
	accountSvc  *account.Service
	engine      *account.Engine
	admins      *account.AdminDirectory
	google      *GoogleAuthenticator
}

func registerAuthAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	limiter echo.MiddlewareFunc,
	identitySvc *identity.Service,
	accountSvc *account.Service,
	engine *account.Engine,
	admins *account.AdminDirectory,
	google *GoogleAuthenticator,
) {
	api := authApi{
		identitySvc: identitySvc,
		accountSvc:  accountSvc,
		engine:      engine,
		admins:      admins,
		google:      google,
	}

	ag := g.Group("/auth", limiter)

	ag.POST("/signup", api.signup)
	ag.POST("/login", api.login)
	ag.POST("/admin", api.adminLogin)
	ag.POST("/verify-email", api.verifyEmail)
	ag.POST("/resend-verification", api.resendVerification)
	if api.google != nil {
		ag.GET("/google", api.googleRedirect)
		ag.POST("/google", api.googleCallback)
	}

	ag.POST("/token-refresh", api.refreshToken, jwt)
}

// Handlers

func (api *authApi) signup(ctx echo.Context) error {
	var data SignupRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SignupRequest")
	}
	if err := data.NewIdentity.Validate(api.identitySvc); err != nil {
		return err
	}

	requested := account.Role(core.CleanString(data.RequestedRole, true /* lower */))
	if !requested.In(account.RequestableRoles) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "requested_role",
			Error: "must be one of: student, lecturer",
		})
	}

	ident, err := api.identitySvc.Signup(ctx.Request().Context(), data.NewIdentity)
	if err != nil {
		if errors.Cause(err) == identity.ErrEmailExists {
			return core.NewValidationError(nil, core.FieldError{Field: "email", Error: "already in use"})
		}
		return errors.Wrap(err, "signing up")
	}
	if _, err = api.accountSvc.Register(ctx.Request().Context(), ident, requested); err != nil {
		return errors.Wrap(err, "registering account")
	}

	st := api.engine.Resolve(ctx.Request().Context(), ident)
	if !st.Authenticated() {
		return errStoreUnavailable
	}
	token, err := GenerateToken(GetSessionClaims(st.Session))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusCreated, LoginResponse{Token: token, Session: st.Session})
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	// configured admin accounts never hit the identity store
	if _, ok := api.admins.Lookup(data.Email); ok {
		return api.authenticateAdmin(ctx, data)
	}

	ident, err := api.identitySvc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		if errors.Cause(err) == identity.ErrAuthenticationFailed {
			return errAuthenticationFailed
		}
		return errors.Wrap(err, "authenticating")
	}
	return api.respondWithSession(ctx, ident)
}

func (api *authApi) adminLogin(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	return api.authenticateAdmin(ctx, data)
}

func (api *authApi) authenticateAdmin(ctx echo.Context, data LoginRequest) error {
	acct, err := api.admins.Authenticate(data.Email, data.Password)
	if err != nil {
		return errAuthenticationFailed
	}
	return api.respondWithSession(ctx, privilegedIdentity(acct))
}

func (api *authApi) googleRedirect(ctx echo.Context) error {
	url, state, err := api.google.AuthCodeURL()
	if err != nil {
		return errors.Wrap(err, "building consent URL")
	}
	return ctx.JSON(http.StatusOK, GoogleRedirectResponse{URL: url, State: state})
}

func (api *authApi) googleCallback(ctx echo.Context) error {
	var data GoogleCallbackRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GoogleCallbackRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	fid, err := api.google.Exchange(ctx.Request().Context(), data.Code)
	if err != nil {
		return core.NewValidationError(errors.New("invalid authorization code"))
	}

	// configured admin accounts keep their fixed role even via Google
	if acct, ok := api.admins.Lookup(fid.Email); ok {
		return api.respondWithSession(ctx, privilegedIdentity(acct))
	}

	ident, err := api.identitySvc.GetOrCreateFederated(ctx.Request().Context(), fid)
	if err != nil {
		return errors.Wrap(err, "resolving federated identity")
	}
	if _, err = api.accountSvc.Register(ctx.Request().Context(), ident, account.RoleStudent); err != nil {
		if errors.Cause(err) != account.ErrAlreadyExists {
			return errors.Wrap(err, "registering account")
		}
	}
	return api.respondWithSession(ctx, ident)
}

func (api *authApi) verifyEmail(ctx echo.Context) error {
	var data VerifyEmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to VerifyEmailRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ident, err := api.identitySvc.ConfirmVerification(ctx.Request().Context(), data.UID, data.Token)
	if err != nil {
		return core.NewValidationError(errors.New("invalid or expired verification link"))
	}
	return api.respondWithSession(ctx, ident)
}

func (api *authApi) resendVerification(ctx echo.Context) error {
	var data ResendVerificationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResendVerificationRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	err := api.identitySvc.RequestVerification(ctx.Request().Context(), data.Email)
	if !(err == nil || errors.Cause(err) == identity.ErrNotFound || errors.Cause(err) == identity.ErrAlreadyVerified) {
		// do not return errors to attackers
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "requesting verification"))
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{
		Success: "If the email address supplied is associated with an account on this system, " +
			"a verification email will arrive in your inbox shortly.",
	})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.identitySvc, api.engine)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

// respondWithSession derives the caller's authorization state and answers
// with a signed token plus the session snapshot.
func (api *authApi) respondWithSession(ctx echo.Context, ident identity.Identity) error {
	st := api.engine.Resolve(ctx.Request().Context(), ident)
	if st.Err != nil {
		return errStoreUnavailable
	}
	token, err := GenerateToken(GetSessionClaims(st.Session))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Session: st.Session})
}

// privilegedIdentity synthesizes a stable identity for a configured admin
// account; these accounts have no identity store row.
func privilegedIdentity(acct account.AdminAccount) identity.Identity {
	return identity.Identity{
		ID:          acct.IdentityID(),
		Email:       acct.Email,
		DisplayName: acct.DisplayName,
		Verified:    true,
	}
}

type (
	SignupRequest struct {
		identity.NewIdentity
		RequestedRole string `json:"requested_role"`
	}

	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token   string           `json:"token"`
		Session *account.Session `json:"session"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	GoogleRedirectResponse struct {
		URL   string `json:"url"`
		State string `json:"state"`
	}

	GoogleCallbackRequest struct {
		Code  string `json:"code" validate:"required"`
		State string `json:"state" validate:"required"`
	}

	VerifyEmailRequest struct {
		UID   string `json:"uid" validate:"required"`
		Token string `json:"token" validate:"required"`
	}

	ResendVerificationRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (lr *LoginRequest) Validate() error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return core.Validate.Struct(lr)
}

func (gr *GoogleCallbackRequest) Validate() error {
	return core.Validate.Struct(gr)
}

func (vr *VerifyEmailRequest) Validate() error {
	return core.Validate.Struct(vr)
}

func (rr *ResendVerificationRequest) Validate() error {
	rr.Email = core.CleanString(rr.Email, true /* lower */)
	return core.Validate.Struct(rr)
}
