package echoapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
)

// guardMiddleware derives the caller's authorization State and checks it
// against req. The State is cached on the request context for handlers.
func guardMiddleware(identitySvc *identity.Service, engine *account.Engine, req account.Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			st, err := getContextState(ctx, identitySvc, engine)
			if err != nil {
				return errors.Wrap(err, "getting context state")
			}
			if d := account.Check(st, req); !d.Allow {
				return decisionErr(d)
			}
			return next(ctx)
		}
	}
}

// rateLimitMiddleware enforces a fixed-window per-IP request limit backed
// by Redis. A nil client disables limiting (DEV and tests).
func rateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if rdb == nil {
				return next(ctx)
			}
			rctx := ctx.Request().Context()
			key := fmt.Sprintf("ratelimit:%s:%s", ctx.Path(), ctx.RealIP())

			count, err := rdb.Incr(rctx, key).Result()
			if err != nil {
				// fail open; the limiter must never take the API down
				ctx.Logger().Errorf("%+v", errors.Wrap(err, "incrementing rate limit counter"))
				return next(ctx)
			}
			if count == 1 {
				if err = rdb.Expire(rctx, key, window).Err(); err != nil {
					ctx.Logger().Errorf("%+v", errors.Wrap(err, "setting rate limit expiry"))
				}
			}
			if count > int64(limit) {
				ttl, _ := rdb.TTL(rctx, key).Result()
				if ttl < 0 {
					ttl = window
				}
				ctx.Response().Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(ctx)
		}
	}
}
