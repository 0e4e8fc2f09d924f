package models

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Token wraps a JWT token with convenience accessors for authentication flows.
//
// It embeds [jwt.Token] for low-level token operations (signing, parsing)
// and [jwt.RegisteredClaims] for standard claim access (subject, expiry, etc.).
//
// The "sub" claim carries the opaque owner identifier every synchronized
// record is scoped by.
type Token struct {
	// Token is the underlying JWT token used for signing and claim inspection.
	*jwt.Token `json:"-"`

	// RegisteredClaims provides access to the standard JWT claim set
	// (sub, exp, iat, nbf, iss, aud, jti) as defined by RFC 7519.
	jwt.RegisteredClaims

	// SignedString is the compact JWS representation of the token.
	SignedString string `json:"-"`

	// OwnerID is a cached copy of the "sub" claim.
	OwnerID string `json:"-"`
}

// GetOwnerID extracts the owner identifier from the "sub" claim.
//
// Returns an error if the subject claim is missing or empty.
func (t *Token) GetOwnerID() (string, error) {
	ownerID, err := t.GetSubject()
	if err != nil {
		return "", fmt.Errorf("error extracting owner id from token: %w", err)
	}
	if ownerID == "" {
		return "", errors.New("empty subject in token")
	}

	return ownerID, nil
}

// String returns the compact JWS serialization of the token.
// It implements the [fmt.Stringer] interface.
func (t *Token) String() string {
	return t.SignedString
}
