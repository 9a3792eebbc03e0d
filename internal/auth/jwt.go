package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSignature reports a token that failed HMAC verification.
var ErrInvalidSignature = errors.New("invalid token signature")

// JWTExtractor verifies the token signature with an HMAC secret before
// extracting claims. Drop-in replacement for UnverifiedExtractor where the
// gateway cannot rely on upstream verification.
type JWTExtractor struct {
	Secret []byte
}

type farmClaims struct {
	FarmID int64 `json:"farmId"`
	jwt.RegisteredClaims
}

// Extract parses and verifies the token, then reads subject and farm claims.
func (e JWTExtractor) Extract(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrMissingToken
	}

	parsed, err := jwt.ParseWithClaims(token, &farmClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return e.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	fc, ok := parsed.Claims.(*farmClaims)
	if !ok || fc.Subject == "" {
		return Claims{}, ErrMissingSubject
	}

	userID, err := parseSubject([]byte(`"` + fc.Subject + `"`))
	if err != nil {
		return Claims{}, err
	}

	farmID := fc.FarmID
	if farmID == 0 {
		farmID = DefaultFarmID
	}

	return Claims{UserID: userID, FarmID: farmID}, nil
}
