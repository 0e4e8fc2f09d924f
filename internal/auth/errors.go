// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package auth

import "errors"

var (
	// ErrInvalidToken is returned by SignIn when the token cannot be parsed or
	// carries no subject.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrTokenExpired is returned by SignIn for a token past its "exp" claim.
	ErrTokenExpired = errors.New("session token is expired")

	ErrProviderClosed = errors.New("auth provider is closed")
)
