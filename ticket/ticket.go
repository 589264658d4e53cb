package ticket

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTicketInvalid is returned for malformed, tampered, or misissued tickets.
	ErrTicketInvalid = errors.New("invalid session ticket")
	// ErrTicketExpired is returned when the ticket's lifetime has passed.
	ErrTicketExpired = errors.New("session ticket expired")
)

const maxTicketTTL = 24 * time.Hour

// Config configures a ticket [Manager].
type Config struct {
	// Secret is the HS256 signing key; at least 32 bytes.
	Secret []byte
	// TTL bounds the ticket lifetime, capped at 24h. Tickets outlive the
	// session they reference at most until the session's own expiry.
	TTL time.Duration
	// Issuer is stamped into and required from every ticket.
	Issuer string
}

// Claims is the ticket claim set: the app namespace and the session token.
type Claims struct {
	App   string `json:"app"`
	Token string `json:"tok"`
	jwt.RegisteredClaims
}

// Manager issues and parses signed session tickets. A ticket is a compact
// reference to a session (app + token) that edge services can hand to
// clients without exposing the raw token to intermediaries that only need
// to route it.
type Manager struct {
	config Config
}

// NewManager validates the configuration eagerly so that misconfiguration
// fails at startup, not on the first ticket.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("ticket secret must be at least 32 bytes")
	}
	if cfg.TTL <= 0 || cfg.TTL > maxTicketTTL {
		return nil, errors.New("invalid ticket TTL configuration")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("ticket issuer required")
	}
	return &Manager{config: cfg}, nil
}

// Issue signs a ticket for the given app and session token.
func (m *Manager) Issue(app, token string) (string, error) {
	now := time.Now()
	claims := Claims{
		App:   app,
		Token: token,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
}

// Parse verifies a ticket and returns the app and session token it names.
func (m *Manager) Parse(raw string) (app, token string, err error) {
	claims := &Claims{}
	_, err = jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return m.config.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", fmt.Errorf("%w: %v", ErrTicketExpired, err)
		}
		return "", "", fmt.Errorf("%w: %v", ErrTicketInvalid, err)
	}
	if claims.App == "" || claims.Token == "" {
		return "", "", fmt.Errorf("%w: missing app or token claim", ErrTicketInvalid)
	}
	return claims.App, claims.Token, nil
}
