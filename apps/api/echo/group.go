package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/group"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
)

type groupApi struct {
	svc         *group.Service
	identitySvc *identity.Service
	engine      *account.Engine
}

func registerGroupAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *group.Service,
	identitySvc *identity.Service,
	engine *account.Engine,
) {
	api := groupApi{svc: svc, identitySvc: identitySvc, engine: engine}

	readGuard := guardMiddleware(identitySvc, engine, account.Authenticated())
	writeGuard := guardMiddleware(identitySvc, engine,
		account.Verified(account.RoleStudent, account.RoleLecturer, account.RoleAdmin))

	gg := g.Group("/groups", jwt)
	gg.GET("", api.query, readGuard)
	gg.GET("/:id", api.retrieve, readGuard)
	gg.POST("", api.create, writeGuard)
	gg.POST("/:id/join", api.join, writeGuard)
	gg.POST("/:id/leave", api.leave, writeGuard)
}

// Handlers

func (api *groupApi) query(ctx echo.Context) error {
	groups, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	if groups == nil {
		groups = []group.Group{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *groupApi) retrieve(ctx echo.Context) error {
	grp, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == group.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding group by ID")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) create(ctx echo.Context) error {
	var data group.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	st, err := getContextState(ctx, api.identitySvc, api.engine)
	if err != nil {
		return errors.Wrap(err, "getting context state")
	}

	grp, err := api.svc.Create(ctx.Request().Context(), st.Session, data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, grp)
}

func (api *groupApi) join(ctx echo.Context) error {
	st, err := getContextState(ctx, api.identitySvc, api.engine)
	if err != nil {
		return errors.Wrap(err, "getting context state")
	}

	grp, err := api.svc.Join(ctx.Request().Context(), st.Session, ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case group.ErrNotFound:
			return errHttpNotFound
		case group.ErrAlreadyMember:
			return core.NewValidationError(errors.New("already a member"))
		}
		return errors.Wrap(err, "joining group")
	}
	return ctx.JSON(http.StatusOK, grp)
}

func (api *groupApi) leave(ctx echo.Context) error {
	st, err := getContextState(ctx, api.identitySvc, api.engine)
	if err != nil {
		return errors.Wrap(err, "getting context state")
	}

	grp, err := api.svc.Leave(ctx.Request().Context(), st.Session, ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case group.ErrNotFound:
			return errHttpNotFound
		case group.ErrNotMember:
			return core.NewValidationError(errors.New("not a member"))
		case group.ErrOwnerMustStay:
			return core.NewValidationError(errors.New("the owner cannot leave their group"))
		}
		return errors.Wrap(err, "leaving group")
	}
	return ctx.JSON(http.StatusOK, grp)
}
