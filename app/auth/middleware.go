package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
	"github.com/vibast-solutions/ms-go-course-payments/app/factory"
	"github.com/vibast-solutions/ms-go-course-payments/app/types"
)

const accountContextKey = "auth.account"

type EchoAccountMiddleware struct {
	chain  *Chain
	logger logrus.FieldLogger
}

func NewEchoAccountMiddleware(chain *Chain) *EchoAccountMiddleware {
	return &EchoAccountMiddleware{chain: chain, logger: factory.NewModuleLogger("auth_middleware")}
}

// RequireAccount rejects requests that carry no resolvable credential.
func (m *EchoAccountMiddleware) RequireAccount() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			account, err := m.resolve(c)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, &types.ErrorResponse{Error: "internal server error", Kind: "internal_error"})
			}
			if account == nil {
				return c.JSON(http.StatusUnauthorized, &types.ErrorResponse{Error: "authentication required", Kind: "authentication_required"})
			}
			c.Set(accountContextKey, account)
			return next(c)
		}
	}
}

// OptionalAccount attaches the account when one resolves and lets
// anonymous requests through.
func (m *EchoAccountMiddleware) OptionalAccount() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			account, err := m.resolve(c)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, &types.ErrorResponse{Error: "internal server error", Kind: "internal_error"})
			}
			if account != nil {
				c.Set(accountContextKey, account)
			}
			return next(c)
		}
	}
}

func (m *EchoAccountMiddleware) resolve(c echo.Context) (*entity.Account, error) {
	account, err := m.chain.Resolve(c.Request().Context(), c.Request())
	if err != nil {
		factory.LoggerWithContext(m.logger, c).WithError(err).Error("credential resolution failed")
	}
	return account, err
}

// AccountFromContext returns the account attached by the middleware, or nil.
func AccountFromContext(c echo.Context) *entity.Account {
	account, _ := c.Get(accountContextKey).(*entity.Account)
	return account
}

// WithAccount attaches an account the way the middleware does.
func WithAccount(c echo.Context, account *entity.Account) {
	c.Set(accountContextKey, account)
}
