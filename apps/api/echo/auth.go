package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mavuno/sokoni/core/user"
)

const (
	contextUserKey  = "user"
	contextTokenKey = "sessionToken"
)

// sessionAuthMiddleware resolves the "Authorization: Bearer <token>" header
// to its active User and stores it on the echo.Context. Expired sessions are
// rejected (and revoked by the service on sight).
func sessionAuthMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			token, err := extractToken(ctx)
			if err != nil {
				return err
			}

			usr, err := svc.Authenticate(ctx.Request().Context(), token)
			if err != nil {
				switch errors.Cause(err) {
				case user.ErrSessionNotFound, user.ErrNotFound:
					return errUnauthorized
				case user.ErrSessionExpired:
					return errSessionExpired
				}
				return errors.Wrap(err, "authenticating session")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}

			ctx.Set(contextUserKey, usr)
			ctx.Set(contextTokenKey, token)
			return next(ctx)
		}
	}
}


func extractToken(ctx echo.Context) (string, error) {
	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errMissingToken
	}
	return header[len(prefix):], nil
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

func getContextToken(ctx echo.Context) (string, error) {
	if token, ok := ctx.Get(contextTokenKey).(string); ok {
		return token, nil
	}
	return "", errUnauthorized
}

// roleMiddleware allows only users holding one of the given roles.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return errHTTPForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleAdmin)
}
