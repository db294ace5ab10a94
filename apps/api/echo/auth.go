package echoapi

import (
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/DeathRaider12/HUB-TUTORIUM/core"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	// SigningKey is bound in Server.setup once the configuration is loaded.
	appJWTConfig = middleware.JWTConfig{
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	}
	contextStateKey = "authState"
)

// Claims represents the authorization claims transmitted via a JWT.
// Role data is advisory only; every request re-derives its State from
// the role store before any access decision.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Verified     bool   `json:"verified,omitempty"`
	Role         string `json:"role,omitempty"`
	Privileged   bool   `json:"privileged,omitempty"` // -> ADMIN PORTAL
}

func GetSessionClaims(sess *account.Session, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   sess.ID,
			Audience:  "Tutorium",
			ExpiresAt: now.Add(core.Conf.TokenExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         sess.DisplayName,
		Email:        sess.Email,
		Verified:     sess.Verified,
		Role:         string(sess.Role),
		Privileged:   sess.Privileged,
	}
	return claims
}

// GenerateToken generates a signed JWT token string representing the session Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextIdentity rebuilds the caller's identity from their claims.
// Privileged accounts have no row in the identity store; their identity is
// synthesized from the claims alone. Everyone else is re-read so a stale
// token never hides a freshly verified email.
func contextIdentity(ctx echo.Context, identitySvc *identity.Service) (identity.Identity, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return identity.Identity{}, err
	}

	if claims.Privileged {
		return identity.Identity{
			ID:          claims.Subject,
			Email:       claims.Email,
			DisplayName: claims.Name,
			Verified:    true,
		}, nil
	}

	ident, err := identitySvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == identity.ErrNotFound {
			return identity.Identity{}, errUnauthorized
		}
		return identity.Identity{}, errors.Wrap(err, "finding identity by ID")
	}
	return ident, nil
}

// getContextState derives the caller's authorization State, caching it on
// the request context so guards and handlers share one derivation.
func getContextState(ctx echo.Context, identitySvc *identity.Service, engine *account.Engine) (account.State, error) {
	if st, ok := ctx.Get(contextStateKey).(account.State); ok {
		return st, nil
	}

	ident, err := contextIdentity(ctx, identitySvc)
	if err != nil {
		return account.State{}, err
	}

	st := engine.Resolve(ctx.Request().Context(), ident)
	ctx.Set(contextStateKey, st)
	return st, nil
}

func refreshToken(ctx echo.Context, identitySvc *identity.Service, engine *account.Engine) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(core.Conf.RefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	st, err := getContextState(ctx, identitySvc, engine)
	if err != nil {
		return "", errors.Wrap(err, "getting context state")
	}
	if !st.Authenticated() {
		return "", errUnauthorized
	}

	newClaims := GetSessionClaims(st.Session, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
