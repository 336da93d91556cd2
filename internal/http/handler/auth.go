package handler

import (
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"cmsapi/internal/auth"
	"cmsapi/internal/config"
)

// SessionCookieName is the HTTP-only cookie carrying the session token.
const SessionCookieName = "session"

// PrincipalLocalKey is where RequireAuth stores the verified principal.
const PrincipalLocalKey = "principal"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies the configured admin identity and issues a session token.
// The response never reveals which of the two fields was wrong.
func Login(cfg config.AuthConfig, tokens *auth.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		if !credentialsMatch(cfg, req.Username, req.Password) {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
		}

		token, err := tokens.Issue(req.Username)
		if err != nil {
			return writeServiceError(c, err)
		}

		c.Cookie(&fiber.Cookie{
			Name:     SessionCookieName,
			Value:    token,
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteStrictMode,
			Secure:   c.Secure(),
			Expires:  time.Now().Add(24 * time.Hour),
		})

		return c.JSON(fiber.Map{"token": token})
	}
}

// Logout clears the session cookie. Tokens are stateless, so this is the
// only invalidation the server can offer.
func Logout() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Cookie(&fiber.Cookie{
			Name:     SessionCookieName,
			Value:    "",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteStrictMode,
			Expires:  time.Now().Add(-time.Hour),
		})
		return c.JSON(fiber.Map{"success": true})
	}
}

// RequireAuth guards protected routes. The session cookie is preferred;
// an Authorization bearer header is accepted as fallback. Every token
// failure collapses to the same generic 401.
func RequireAuth(tokens *auth.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(SessionCookieName)
		if token == "" {
			var err error
			token, err = auth.TokenFromHeader(c.Get(fiber.HeaderAuthorization))
			if err != nil {
				return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			}
		}

		principal, err := tokens.Verify(token)
		if err != nil {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}

		c.Locals(PrincipalLocalKey, principal)
		return c.Next()
	}
}

// credentialsMatch checks the submitted pair against the configured admin
// identity. A bcrypt hash is used when configured; the plaintext fallback
// is compared in constant time.
func credentialsMatch(cfg config.AuthConfig, username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(cfg.AdminUsername)) == 1

	var passOK bool
	if cfg.AdminPasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(cfg.AdminPasswordHash), []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(cfg.AdminPassword)) == 1
	}

	return userOK && passOK
}
