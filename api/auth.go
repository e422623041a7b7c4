package api

import (
	"errors"
	"sync"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

const defaultKeyCacheTTL = 15 * time.Minute

// sessionTTL bounds locally issued tokens. Sign-out is client-side token
// disposal, so expiry is the only server-side session end.
const sessionTTL = 7 * 24 * time.Hour

// Subject is the identity carried by a validated token.
type Subject struct {
	ID    string
	Name  string
	Email string
}

// Auth validates incoming JWT tokens. Hosted deployments validate RS256
// tokens against the identity provider's JWKS; the local variant signs and
// validates HS256 tokens with a shared secret.
type Auth struct {
	jwks     *keyfunc.JWKS
	audience string
	issuer   string

	localSecret []byte

	parser      *jwt.Parser
	keyCache    sync.Map
	keyCacheTTL time.Duration
}

type cachedKey struct {
	key       any
	expiresAt time.Time
}

// NewAuth creates a validator for externally issued RS256 tokens.
func NewAuth(jwks *keyfunc.JWKS, audience, issuer string) *Auth {
	return &Auth{
		jwks:        jwks,
		audience:    audience,
		issuer:      issuer,
		parser:      jwt.NewParser(jwt.WithValidMethods([]string{"RS256"})),
		keyCacheTTL: defaultKeyCacheTTL,
	}
}

// NewLocalAuth creates an issuer/validator for HS256 tokens signed with the
// given shared secret.
func NewLocalAuth(secret []byte) *Auth {
	if len(secret) == 0 {
		panic("api.NewLocalAuth: empty secret")
	}
	return &Auth{
		localSecret: secret,
		parser:      jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// Local reports whether this validator runs in the local identity variant.
func (a *Auth) Local() bool { return len(a.localSecret) > 0 }

// IssueToken mints a session token for the member. Local variant only.
func (a *Auth) IssueToken(memberID string) (string, error) {
	if !a.Local() {
		return "", errors.New("token issuing requires local auth")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": memberID,
		"iat": now.Unix(),
		"exp": now.Add(sessionTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.localSecret)
}

// SubjectFromAuthHeader extracts and validates the identity behind the
// Authorization header.
func (a *Auth) SubjectFromAuthHeader(h string) (*Subject, error) {
	token, err := bearerTokenFromHeader(h)
	if err != nil {
		return nil, err
	}

	var parsed *jwt.Token
	if a.Local() {
		parsed, err = a.parser.Parse(token, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return a.localSecret, nil
		})
	} else {
		parsed, err = a.parser.Parse(token, func(t *jwt.Token) (any, error) {
			return a.keyForToken(t)
		})
	}
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	now := time.Now().Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return nil, errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return nil, errors.New("token not valid yet")
	}
	if a.audience != "" && !claims.VerifyAudience(a.audience, false) {
		return nil, errors.New("invalid audience")
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, false) {
		return nil, errors.New("invalid issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, errors.New("missing sub")
	}

	s := &Subject{ID: sub}
	if name, ok := claims["name"].(string); ok {
		s.Name = name
	}
	if email, ok := claims["email"].(string); ok {
		s.Email = email
	}
	return s, nil
}

func (a *Auth) keyForToken(token *jwt.Token) (any, error) {
	if a.jwks == nil {
		return nil, errors.New("jwks not configured")
	}

	kid, _ := token.Header["kid"].(string)
	if kid != "" && a.keyCacheTTL > 0 {
		if cached, ok := a.keyCache.Load(kid); ok {
			entry := cached.(cachedKey)
			if time.Now().Before(entry.expiresAt) {
				return entry.key, nil
			}
			a.keyCache.Delete(kid)
		}
	}

	key, err := a.jwks.Keyfunc(token)
	if err != nil {
		return nil, err
	}

	if kid != "" && a.keyCacheTTL > 0 {
		a.keyCache.Store(kid, cachedKey{key: key, expiresAt: time.Now().Add(a.keyCacheTTL)})
	}
	return key, nil
}
