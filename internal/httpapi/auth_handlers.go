package httpapi

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/dealdesk/dealdesk/internal/auth"
	"github.com/dealdesk/dealdesk/internal/config"
	"github.com/dealdesk/dealdesk/internal/logging"
)

type authHandlers struct {
	svc    *auth.Service
	cfg    config.Auth
	logger logging.Logger
}

func newAuthHandlers(svc *auth.Service, cfg config.Auth, logger logging.Logger) *authHandlers {
	return &authHandlers{svc: svc, cfg: cfg, logger: logger}
}

func (h *authHandlers) cookieName() string {
	if h.cfg.CookieName != "" {
		return h.cfg.CookieName
	}
	return auth.DefaultCookieName
}

// Register creates an account and starts a session: access token in the
// body, refresh token in the cookie.
func (h *authHandlers) Register(c *fiber.Ctx) error {
	payload := new(RegisterRequest)
	if err := c.BodyParser(payload); err != nil {
		return badPayload(err)
	}
	if err := payload.Validate(); err != nil {
		return err
	}

	pair, err := h.svc.Register(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	auth.SetRefreshCookie(c, h.cookieName(), pair.RefreshToken, h.cfg.RefreshTTL)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"accessToken": pair.AccessToken,
	})
}

// Login verifies credentials and starts a session.
func (h *authHandlers) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := c.BodyParser(payload); err != nil {
		return badPayload(err)
	}
	if err := payload.Validate(); err != nil {
		return err
	}

	pair, err := h.svc.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	auth.SetRefreshCookie(c, h.cookieName(), pair.RefreshToken, h.cfg.RefreshTTL)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"accessToken": pair.AccessToken,
	})
}

// Logout denylists the refresh token from the cookie and clears it. The
// token is not verified first; any string can be retired.
func (h *authHandlers) Logout(c *fiber.Ctx) error {
	token := c.Cookies(h.cookieName())
	if token == "" {
		return auth.ErrMissingToken
	}

	if err := h.svc.Logout(c.UserContext(), token); err != nil {
		return err
	}

	auth.ClearRefreshCookie(c, h.cookieName())
	return c.JSON(fiber.Map{"message": "Logged out successfully!"})
}

// Profile returns the authenticated user's record, password excluded.
func (h *authHandlers) Profile(c *fiber.Ctx) error {
	claims, ok := auth.IdentityFromCtx(c)
	if !ok {
		return auth.ErrMissingToken
	}

	user, err := h.svc.GetUserByID(c.UserContext(), claims.UserID)
	if err != nil {
		return err
	}

	return c.JSON(user)
}

// Refresh mints a new access token for the verified refresh-token
// identity. Claims are reused as issued; the store is not consulted.
func (h *authHandlers) Refresh(c *fiber.Ctx) error {
	claims, ok := auth.IdentityFromCtx(c)
	if !ok {
		return auth.ErrMissingToken
	}

	access, err := h.svc.RefreshAccessToken(auth.Claims{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"accessToken": access})
}

func badPayload(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request body").
		WithCode(goerrors.CodeBadRequest)
}
