package token

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token purposes carried in the purpose claim, mirroring the access/refresh
// split of the token pair returned by login.
const (
	PurposeAccess  = "access"
	PurposeRefresh = "refresh"
)

// Parse outcomes. Expiry is reported separately from every other failure so
// the email-verification endpoint can route the two cases to different
// front-end URLs.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the JWT payload for access and refresh tokens.
type Claims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject of the claims.
func (c *Claims) UserID() (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(c.Subject))
	if err != nil || id < 1 {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

// Issuer mints and verifies HS256 tokens with a shared secret.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Access issues a short-lived access token for the given user.
func (i *Issuer) Access(userID int) (string, error) {
	return i.sign(userID, PurposeAccess, i.accessTTL, "")
}

// Verification issues the token embedded in the email-verification link. It
// is an ordinary access token consumed by the verify endpoint.
func (i *Issuer) Verification(userID int) (string, error) {
	return i.Access(userID)
}

// Refresh issues a refresh token carrying a unique JTI so it can be revoked
// by blacklisting.
func (i *Issuer) Refresh(userID int) (string, error) {
	return i.sign(userID, PurposeRefresh, i.refreshTTL, uuid.NewString())
}

func (i *Issuer) sign(userID int, purpose string, ttl time.Duration, jti string) (string, error) {
	now := time.Now()
	claims := Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse verifies signature and expiry. It returns the claims on success,
// ErrTokenExpired when the token is well signed but past its expiry, and
// ErrTokenInvalid for everything else.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParsePurpose is Parse plus a purpose check, for endpoints that only accept
// one kind of token.
func (i *Issuer) ParsePurpose(tokenString, purpose string) (*Claims, error) {
	claims, err := i.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != purpose {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
