package auth

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/dealdesk/dealdesk/internal/logging"
)

// Keys under which the middleware stores request identity in fiber locals.
const (
	identityKey      = "auth.identity"
	authenticatedKey = "auth.authenticated"
)

// MiddlewareConfig wires the session gate.
type MiddlewareConfig struct {
	Denylist      TokenDenylist
	Codec         *Codec
	RefreshSecret string
	// CookieName defaults to DefaultCookieName.
	CookieName string
	Logger     logging.Logger
}

// RequireSession is the per-request authentication gate. Single pass:
// extract the refresh cookie, reject denylisted tokens, verify the
// signature and expiry, then attach the identity to the request. Once a
// token was present, every failure clears the cookie before the error
// surfaces so clients do not retry with a token known to be bad.
func RequireSession(cfg MiddlewareConfig) fiber.Handler {
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return func(c *fiber.Ctx) error {
		token := c.Cookies(cookieName)
		if token == "" {
			return ErrMissingToken
		}

		denied, err := cfg.Denylist.Contains(c.UserContext(), token)
		if err != nil {
			ClearRefreshCookie(c, cookieName)
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check token denylist").
				WithCode(goerrors.CodeInternal)
		}
		if denied {
			logger.Debug("rejected denylisted refresh token")
			ClearRefreshCookie(c, cookieName)
			return ErrTokenDenied
		}

		if cfg.RefreshSecret == "" {
			ClearRefreshCookie(c, cookieName)
			return ErrRefreshSecretMissing
		}

		claims, err := cfg.Codec.Verify(token, cfg.RefreshSecret)
		if err != nil {
			ClearRefreshCookie(c, cookieName)
			return err
		}

		c.Locals(identityKey, claims)
		c.Locals(authenticatedKey, true)

		return c.Next()
	}
}

// RequireAdmin gates a route to identities whose role is exactly "admin".
// It must run after RequireSession and performs no data access.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := IdentityFromCtx(c)
		if !ok || !claims.IsAdmin() {
			return ErrAdminRequired
		}
		return c.Next()
	}
}

// IdentityFromCtx returns the claims attached by RequireSession.
func IdentityFromCtx(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(identityKey).(*Claims)
	return claims, ok
}

// IsAuthenticated reports whether RequireSession marked this request.
func IsAuthenticated(c *fiber.Ctx) bool {
	ok, _ := c.Locals(authenticatedKey).(bool)
	return ok
}
