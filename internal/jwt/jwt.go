// Package jwt issues and verifies the signed bearer tokens used for sessions
// and password resets. Tokens are stateless: validity depends only on the
// signature and the embedded expiry.
package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

const (
	PurposeSession = "session"
	PurposeReset   = "reset"
)

var (
	// ErrTokenExpired is returned when the token's expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed covers bad signatures, unparsable claims and
	// tokens issued for another purpose.
	ErrTokenMalformed = errors.New("token malformed")
)

// Claims is the payload shared by session and reset tokens.
type Claims struct {
	gojwt.RegisteredClaims
	Email       string `json:"email"`
	Purpose     string `json:"purpose"`
	Fingerprint string `json:"fpr,omitempty"`
}

// ResetClaims is the verified content of a reset token.
type ResetClaims struct {
	Email       string
	Fingerprint string
	IssuedAt    time.Time
}

// JWTService signs tokens with a process-wide HMAC secret.
type JWTService struct {
	secretKey  []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
}

func NewJWTService(secretKey string, sessionTTL, resetTTL time.Duration) *JWTService {
	return &JWTService{
		secretKey:  []byte(secretKey),
		sessionTTL: sessionTTL,
		resetTTL:   resetTTL,
	}
}

func (s *JWTService) SessionTTL() time.Duration { return s.sessionTTL }

// IssueSession returns a bearer token for email valid until now+SessionTTL.
func (s *JWTService) IssueSession(email string, now time.Time) (string, error) {
	return s.sign(Claims{
		RegisteredClaims: registered(now, s.sessionTTL),
		Email:            email,
		Purpose:          PurposeSession,
	})
}

// VerifySession returns the email carried by a valid session token.
func (s *JWTService) VerifySession(token string, now time.Time) (string, error) {
	claims, err := s.parse(token, now, PurposeSession)
	if err != nil {
		return "", err
	}
	return claims.Email, nil
}

// IssueReset returns a single-purpose password reset token. fingerprint binds
// the token to the password hash current at issuance.
func (s *JWTService) IssueReset(email, fingerprint string, now time.Time) (string, error) {
	return s.sign(Claims{
		RegisteredClaims: registered(now, s.resetTTL),
		Email:            email,
		Purpose:          PurposeReset,
		Fingerprint:      fingerprint,
	})
}

// VerifyReset validates a reset token. Session tokens are rejected.
func (s *JWTService) VerifyReset(token string, now time.Time) (*ResetClaims, error) {
	claims, err := s.parse(token, now, PurposeReset)
	if err != nil {
		return nil, err
	}

	rc := &ResetClaims{Email: claims.Email, Fingerprint: claims.Fingerprint}
	if claims.IssuedAt != nil {
		rc.IssuedAt = claims.IssuedAt.Time
	}
	return rc, nil
}

// registered builds the time claims. NumericDate has whole-second
// precision, so the expiry is rounded up: a token never expires before
// now+ttl and lives at most one second longer.
func registered(now time.Time, ttl time.Duration) gojwt.RegisteredClaims {
	exp := now.Add(ttl)
	if rounded := exp.Truncate(time.Second); !rounded.Equal(exp) {
		exp = rounded.Add(time.Second)
	}
	return gojwt.RegisteredClaims{
		IssuedAt:  gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(exp),
	}
}

func (s *JWTService) sign(claims Claims) (string, error) {
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func (s *JWTService) parse(tokenString string, now time.Time, purpose string) (*Claims, error) {
	claims := &Claims{}

	token, err := gojwt.ParseWithClaims(tokenString, claims, func(t *gojwt.Token) (interface{}, error) {
		return s.secretKey, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		// Signature is checked before expiry, so an expired error implies
		// the token was genuinely issued by us.
		if errors.Is(err, gojwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if !token.Valid || claims.Purpose != purpose || claims.Email == "" {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
