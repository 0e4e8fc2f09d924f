// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lzhahn/CountMe-sub003/internal/adapter"
	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/internal/utils"
	"github.com/lzhahn/CountMe-sub003/models"
)

// statesBuffer is how many undelivered transitions are kept. When it fills
// up the oldest one is dropped, so a slow consumer still sees the latest
// state.
const statesBuffer = 16

// TokenProvider is an AuthProvider backed by a bearer token.
type TokenProvider struct {
	holder adapter.TokenHolder

	mu      sync.Mutex
	states  chan models.AuthState
	current models.AuthState
	closed  bool

	// sessionEnd runs before the token of an authenticated session is
	// replaced or cleared.
	sessionEnd []func()

	now    func() time.Time
	logger *logger.Logger
}

// NewTokenProvider returns a provider in the Loading state. The state stays
// Loading until Restore, SignIn or SignOut is called.
func NewTokenProvider(holder adapter.TokenHolder, logger *logger.Logger) *TokenProvider {
	p := &TokenProvider{
		holder: holder,
		states: make(chan models.AuthState, statesBuffer),
		now:    time.Now,
		logger: logger,
	}
	p.publish(models.AuthState{Status: models.AuthLoading})
	return p
}

// States implements service.AuthProvider. The channel is closed by Close.
func (p *TokenProvider) States() <-chan models.AuthState {
	return p.states
}

// OnSessionEnd registers fn to run before the current owner's token is taken
// off the adapter, so work of that session can stop while its token is still
// valid. fn runs on the goroutine calling SignIn or SignOut.
func (p *TokenProvider) OnSessionEnd(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionEnd = append(p.sessionEnd, fn)
}

// endSession runs the session end hooks when the session of the current
// owner is about to end. nextOwner is "" when signing out.
func (p *TokenProvider) endSession(nextOwner string) {
	p.mu.Lock()
	current := p.current
	hooks := append([]func(){}, p.sessionEnd...)
	p.mu.Unlock()

	if current.Status != models.AuthAuthenticated || current.OwnerID == nextOwner {
		return
	}
	for _, fn := range hooks {
		fn()
	}
}

// Current returns the last published state.
func (p *TokenProvider) Current() models.AuthState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Restore resolves the initial session from a stored token. An empty token
// means signed out. An unusable token signs out and returns the reason.
func (p *TokenProvider) Restore(token string) error {
	if token == "" {
		p.SignOut()
		return nil
	}

	if _, err := p.SignIn(token); err != nil {
		p.SignOut()
		return err
	}
	return nil
}

// SignIn attaches token to the remote adapter and publishes Authenticated for
// the owner named by its subject. The signature is not verified here; the
// backend does that on every request.
func (p *TokenProvider) SignIn(token string) (string, error) {
	ownerID, err := utils.ParseOwnerIDFromJWT(token)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if err = p.checkExpiry(token); err != nil {
		return "", err
	}

	p.endSession(ownerID)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", ErrProviderClosed
	}

	p.holder.SetToken(token)
	p.publishLocked(models.AuthState{Status: models.AuthAuthenticated, OwnerID: ownerID})
	p.logger.Info().Str("owner_id", ownerID).Msg("signed in")
	return ownerID, nil
}

// SignOut clears the token and publishes Unauthenticated. Local data is not
// touched.
func (p *TokenProvider) SignOut() {
	p.endSession("")

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	p.holder.SetToken("")
	p.publishLocked(models.AuthState{Status: models.AuthUnauthenticated})
}

// Close ends the state stream. Further sign-ins fail with ErrProviderClosed.
func (p *TokenProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.states)
}

func (p *TokenProvider) checkExpiry(token string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if exp != nil && !p.now().Before(exp.Time) {
		return fmt.Errorf("%w: expired at %s", ErrTokenExpired, exp.Time.Format(time.RFC3339))
	}
	return nil
}

func (p *TokenProvider) publish(state models.AuthState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.publishLocked(state)
}

// publishLocked skips repeats of the current state.
func (p *TokenProvider) publishLocked(state models.AuthState) {
	if state == p.current {
		return
	}
	p.current = state

	for {
		select {
		case p.states <- state:
			return
		default:
		}

		// буфер полон: выкидываем самое старое состояние
		select {
		case dropped := <-p.states:
			p.logger.Warn().Str("status", string(dropped.Status)).Msg("auth state dropped, consumer is lagging")
		default:
		}
	}
}
