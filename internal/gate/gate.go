package gate

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mbelozerov/storefront/internal/models"
	"github.com/mbelozerov/storefront/internal/tokens"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"

	HeaderUserID = "x-user-id"
	HeaderRole   = "x-user-role"

	CookieName = "token"
)

type Kind int

const (
	// KindAuthOnly marks pages an authenticated user should never see
	// (login form, signup form).
	KindAuthOnly Kind = iota
	KindPublic
	KindAdmin
)

type Rule struct {
	Prefix string
	Kind   Kind
}

// Gate classifies every inbound path against an ordered rule list,
// first match wins. Paths matching no rule require authentication.
type Gate struct {
	Secret []byte
	Rules  []Rule

	HomePath      string
	LoginPath     string
	ForbiddenPath string
}

func Default(secret []byte) *Gate {
	return &Gate{
		Secret: secret,
		Rules: []Rule{
			{Prefix: "/login", Kind: KindAuthOnly},
			{Prefix: "/register", Kind: KindAuthOnly},
			{Prefix: "/verify", Kind: KindAuthOnly},
			{Prefix: "/api/auth/signup", Kind: KindPublic},
			{Prefix: "/api/auth/login", Kind: KindPublic},
			{Prefix: "/api/auth/verify", Kind: KindPublic},
			{Prefix: "/health", Kind: KindPublic},
			{Prefix: "/api/admin", Kind: KindAdmin},
			{Prefix: "/dashboard/admin", Kind: KindAdmin},
			{Prefix: "/", Kind: KindPublic},
		},
		HomePath:      "/",
		LoginPath:     "/login",
		ForbiddenPath: "/403",
	}
}

func (g *Gate) classify(path string) (Kind, bool) {
	for _, r := range g.Rules {
		if r.Prefix == "/" {
			if path == "/" {
				return r.Kind, true
			}
			continue
		}
		if strings.HasPrefix(path, r.Prefix) {
			return r.Kind, true
		}
	}
	return 0, false
}

func (g *Gate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			kind, matched := g.classify(path)

			raw := tokenFromRequest(c)

			if matched && kind == KindAuthOnly {
				if raw != "" {
					if _, err := tokens.Parse(raw, g.Secret); err == nil {
						return c.Redirect(http.StatusTemporaryRedirect, g.HomePath)
					}
				}
				return next(c)
			}

			if matched && kind == KindPublic {
				return next(c)
			}

			if raw == "" {
				return g.reject(c, http.StatusUnauthorized, g.LoginPath, "missing token")
			}

			// Fails closed: any parse failure means the request does
			// not get through, expired or not.
			claims, err := tokens.Parse(raw, g.Secret)
			if err != nil {
				return g.reject(c, http.StatusUnauthorized, g.LoginPath, "invalid or expired token")
			}
			userID, err := claims.UserID()
			if err != nil {
				return g.reject(c, http.StatusUnauthorized, g.LoginPath, "invalid or expired token")
			}

			// Admin restriction is layered after authentication: an
			// unauthenticated request never learns it also lacks rights.
			if matched && kind == KindAdmin && claims.Role != string(models.RoleAdmin) {
				return g.reject(c, http.StatusForbidden, g.ForbiddenPath, "not enough rights")
			}

			c.Set(CtxUserID, userID)
			c.Set(CtxRole, claims.Role)
			c.Request().Header.Set(HeaderUserID, claims.Subject)
			c.Request().Header.Set(HeaderRole, claims.Role)

			return next(c)
		}
	}
}

// reject answers API calls with a JSON error and everything else with a
// redirect.
func (g *Gate) reject(c echo.Context, status int, redirectTo, msg string) error {
	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		return echo.NewHTTPError(status, msg)
	}
	return c.Redirect(http.StatusTemporaryRedirect, redirectTo)
}

func tokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
