package echoapi

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
)

type accountApi struct {
	identitySvc *identity.Service
	accountSvc  *account.Service
	engine      *account.Engine
}

func registerAccountAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	identitySvc *identity.Service,
	accountSvc *account.Service,
	engine *account.Engine,
) {
	api := accountApi{
		identitySvc: identitySvc,
		accountSvc:  accountSvc,
		engine:      engine,
	}

	ag := g.Group("/account", jwt)
	ag.GET("/session", api.session)
	ag.GET("/session/stream", api.streamSession)

	adminGuard := guardMiddleware(identitySvc, engine, account.Verified(account.RoleAdmin))
	mg := g.Group("/admin", jwt, adminGuard)
	mg.GET("/users", api.queryUsers)
	mg.PUT("/users/:id/role", api.setRole)
	mg.GET("/roles", api.queryRoles)
}

// Handlers

func (api *accountApi) session(ctx echo.Context) error {
	st, err := getContextState(ctx, api.identitySvc, api.engine)
	if err != nil {
		return errors.Wrap(err, "getting context state")
	}
	return ctx.JSON(http.StatusOK, newStateResponse(st))
}

// streamSession pushes the caller's authorization state over SSE; a new
// event is sent whenever their role record changes.
func (api *accountApi) streamSession(ctx echo.Context) error {
	ident, err := contextIdentity(ctx, api.identitySvc)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	events := make(chan identity.Event, 1)
	events <- identity.SignedIn(ident)
	states := api.engine.Observe(ctx.Request().Context(), events)

	for st := range states {
		data, err := json.Marshal(newStateResponse(st))
		if err != nil {
			return errors.Wrap(err, "marshaling state")
		}
		if _, err = res.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
			return nil // client gone
		}
		res.Flush()
	}
	return nil
}

func (api *accountApi) queryUsers(ctx echo.Context) error {
	st, err := getContextState(ctx, api.identitySvc, api.engine)
	if err != nil {
		return errors.Wrap(err, "getting context state")
	}

	recs, err := api.accountSvc.QueryAll(ctx.Request().Context(), st.Session)
	if err != nil {
		if errors.Cause(err) == account.ErrForbidden {
			return errHttpForbidden
		}
		return errors.Wrap(err, "querying records")
	}
	if recs == nil {
		recs = []account.Record{}
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *accountApi) setRole(ctx echo.Context) error {
	var data SetRoleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetRoleRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	st, err := getContextState(ctx, api.identitySvc, api.engine)
	if err != nil {
		return errors.Wrap(err, "getting context state")
	}

	rec, err := api.accountSvc.SetRole(ctx.Request().Context(), st.Session, ctx.Param("id"), account.Role(data.Role))
	if err != nil {
		switch errors.Cause(err) {
		case account.ErrForbidden:
			return errHttpForbidden
		case account.ErrNotFound:
			return errHttpNotFound
		case account.ErrInvalidTarget, account.ErrInvalidRole:
			return core.NewValidationError(nil, core.FieldError{Field: "role", Error: err.Error()})
		}
		return errors.Wrap(err, "setting role")
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *accountApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, account.AssignableRoles)
}

type (
	// StateResponse is the wire shape of an authorization State.
	StateResponse struct {
		Session *account.Session `json:"session"`
		Error   string           `json:"error,omitempty"`
	}

	SetRoleRequest struct {
		Role string `json:"role" validate:"required"`
	}
)

func newStateResponse(st account.State) StateResponse {
	resp := StateResponse{Session: st.Session}
	if st.Err != nil {
		resp.Error = "account state unavailable"
	}
	return resp
}

func (sr *SetRoleRequest) Validate() error {
	sr.Role = core.CleanString(sr.Role, true /* lower */)
	return core.Validate.Struct(sr)
}
