// Package auth derives a connection identity from the handshake credential.
//
// The credential is a three-segment dot-separated token (header.claims.signature,
// base64url). The default extractor decodes the claims segment without
// verifying the signature; signature verification is assumed to happen at the
// upstream gateway. Deployments that need in-process verification can plug in
// JWTExtractor instead.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors
var (
	ErrMissingToken   = errors.New("missing credential token")
	ErrMalformedToken = errors.New("malformed credential token")
	ErrMissingSubject = errors.New("credential has no subject")
)

// DefaultFarmID is assumed when the token carries no farm claim.
const DefaultFarmID = 1

// Claims is the identity derived from a handshake credential.
type Claims struct {
	UserID int64
	FarmID int64
}

// Extractor derives claims from a raw credential token. Implementations
// decide whether the signature segment is verified.
type Extractor interface {
	Extract(token string) (Claims, error)
}

// UnverifiedExtractor decodes the claims segment without checking the
// signature.
type UnverifiedExtractor struct{}

// Extract splits the token, base64url-decodes the middle segment, and reads
// the subject and farm claims.
func (UnverifiedExtractor) Extract(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrMissingToken
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("%w: %d segments", ErrMalformedToken, len(parts))
	}

	raw, err := decodeSegment(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var body struct {
		Sub    json.RawMessage `json:"sub"`
		FarmID int64           `json:"farmId"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	userID, err := parseSubject(body.Sub)
	if err != nil {
		return Claims{}, err
	}

	farmID := body.FarmID
	if farmID == 0 {
		farmID = DefaultFarmID
	}

	return Claims{UserID: userID, FarmID: farmID}, nil
}

// decodeSegment handles both padded and unpadded base64url.
func decodeSegment(seg string) ([]byte, error) {
	if raw, err := base64.RawURLEncoding.DecodeString(seg); err == nil {
		return raw, nil
	}
	return base64.URLEncoding.DecodeString(seg)
}

// parseSubject accepts a numeric or string subject claim.
func parseSubject(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 {
		return 0, ErrMissingSubject
	}

	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("%w: unreadable subject", ErrMalformedToken)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q is not numeric", ErrMalformedToken, s)
	}
	return n, nil
}
