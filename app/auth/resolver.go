package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
	"github.com/vibast-solutions/ms-go-course-payments/app/factory"
)

// CredentialResolver turns one kind of request credential into an account.
// nil, nil means the credential is absent or does not resolve; an error is
// reserved for infrastructure failures.
type CredentialResolver interface {
	Name() string
	TryResolve(ctx context.Context, req *http.Request) (*entity.Account, error)
}

type accountFinder interface {
	FindByID(ctx context.Context, id uint64) (*entity.Account, error)
}

type sessionFinder interface {
	FindBySessionToken(ctx context.Context, token string, now time.Time) (*entity.Account, error)
}

type tokenParser interface {
	ParseAccessToken(raw string) (uint64, error)
}

// Chain tries its resolvers in order and stops at the first account.
type Chain struct {
	resolvers []CredentialResolver
	logger    logrus.FieldLogger
}

func NewChain(resolvers ...CredentialResolver) *Chain {
	items := make([]CredentialResolver, 0, len(resolvers))
	for _, r := range resolvers {
		if r != nil {
			items = append(items, r)
		}
	}
	return &Chain{resolvers: items, logger: factory.NewModuleLogger("auth")}
}

func (c *Chain) Resolve(ctx context.Context, req *http.Request) (*entity.Account, error) {
	for _, resolver := range c.resolvers {
		account, err := resolver.TryResolve(ctx, req)
		if err != nil {
			return nil, err
		}
		if account != nil {
			c.logger.WithField("resolver", resolver.Name()).
				WithField("account_id", account.ID).
				Debug("credential resolved")
			return account, nil
		}
	}
	return nil, nil
}

// BearerTokenResolver reads "Authorization: Bearer <jwt>".
type BearerTokenResolver struct {
	tokens   tokenParser
	accounts accountFinder
}

func NewBearerTokenResolver(tokens tokenParser, accounts accountFinder) *BearerTokenResolver {
	return &BearerTokenResolver{tokens: tokens, accounts: accounts}
}

func (r *BearerTokenResolver) Name() string { return "bearer" }

func (r *BearerTokenResolver) TryResolve(ctx context.Context, req *http.Request) (*entity.Account, error) {
	header := strings.TrimSpace(req.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return nil, nil
	}
	return resolveToken(ctx, r.tokens, r.accounts, header[7:])
}

// SessionCookieResolver looks the session cookie up in the sessions table.
type SessionCookieResolver struct {
	cookieName string
	sessions   sessionFinder
	now        func() time.Time
}

func NewSessionCookieResolver(cookieName string, sessions sessionFinder) *SessionCookieResolver {
	return &SessionCookieResolver{
		cookieName: cookieName,
		sessions:   sessions,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *SessionCookieResolver) Name() string { return "session_cookie" }

func (r *SessionCookieResolver) TryResolve(ctx context.Context, req *http.Request) (*entity.Account, error) {
	if r.cookieName == "" {
		return nil, nil
	}
	cookie, err := req.Cookie(r.cookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return nil, nil
	}
	return r.sessions.FindBySessionToken(ctx, strings.TrimSpace(cookie.Value), r.now())
}

// QueryTokenResolver reads a JWT from the query string, for links opened
// outside the app (email, gateway return URL).
type QueryTokenResolver struct {
	param    string
	tokens   tokenParser
	accounts accountFinder
}

func NewQueryTokenResolver(param string, tokens tokenParser, accounts accountFinder) *QueryTokenResolver {
	return &QueryTokenResolver{param: param, tokens: tokens, accounts: accounts}
}

func (r *QueryTokenResolver) Name() string { return "query_token" }

func (r *QueryTokenResolver) TryResolve(ctx context.Context, req *http.Request) (*entity.Account, error) {
	if r.param == "" {
		return nil, nil
	}
	raw := req.URL.Query().Get(r.param)
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return resolveToken(ctx, r.tokens, r.accounts, raw)
}

func resolveToken(ctx context.Context, tokens tokenParser, accounts accountFinder, raw string) (*entity.Account, error) {
	accountID, err := tokens.ParseAccessToken(raw)
	if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrSecretNotConfigured) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return accounts.FindByID(ctx, accountID)
}
