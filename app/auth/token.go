package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vibast-solutions/ms-go-course-payments/app/entity"
	"github.com/vibast-solutions/ms-go-course-payments/config"
)

const tokenIssuer = "course-payments"

var (
	ErrInvalidToken        = errors.New("invalid access token")
	ErrSecretNotConfigured = errors.New("access token secret is not configured")
)

type AccessClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager mints and verifies HS256 access tokens. The subject is the
// account id.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{
		secret: []byte(cfg.JWTSecret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *TokenManager) IssueAccessToken(account *entity.Account) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, ErrSecretNotConfigured
	}
	if account == nil || account.ID == 0 {
		return "", time.Time{}, errors.New("account is required")
	}

	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)
	claims := AccessClaims{
		Email: account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(account.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAccessToken returns the account id carried by a valid token.
func (m *TokenManager) ParseAccessToken(raw string) (uint64, error) {
	if len(m.secret) == 0 {
		return 0, ErrSecretNotConfigured
	}

	claims := &AccessClaims{}
	keyFunc := func(*jwt.Token) (any, error) { return m.secret, nil }
	token, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	accountID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || accountID == 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return accountID, nil
}
