package auth

import (
	"testing"
	"time"

	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/internal/mock"
	"github.com/lzhahn/CountMe-sub003/internal/utils"
	"github.com/lzhahn/CountMe-sub003/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func signedToken(t *testing.T, ownerID string, ttl time.Duration) string {
	t.Helper()
	token, err := utils.GenerateJWTToken("countme-test", ownerID, ttl, "client-test-key")
	require.NoError(t, err)
	return token.SignedString
}

// drain собирает все уже опубликованные состояния
func drain(p *TokenProvider) []models.AuthState {
	var out []models.AuthState
	for {
		select {
		case s, ok := <-p.States():
			if !ok {
				return out
			}
			out = append(out, s)
		default:
			return out
		}
	}
}

func newTestProvider(t *testing.T) (*TokenProvider, *mock.MockTokenHolder) {
	t.Helper()
	holder := mock.NewMockTokenHolder(gomock.NewController(t))
	return NewTokenProvider(holder, logger.Nop()), holder
}

// ── Initial state ───────────────────────────────────────────────────────────

func TestNewTokenProvider_StartsLoading(t *testing.T) {
	p, _ := newTestProvider(t)

	assert.Equal(t, models.AuthState{Status: models.AuthLoading}, p.Current())
	assert.Equal(t, []models.AuthState{{Status: models.AuthLoading}}, drain(p))
}

// ── SignIn / SignOut ────────────────────────────────────────────────────────

func TestSignIn_PublishesOwnerFromSubject(t *testing.T) {
	p, holder := newTestProvider(t)
	token := signedToken(t, "u1", time.Hour)
	holder.EXPECT().SetToken(token)

	ownerID, err := p.SignIn(token)

	require.NoError(t, err)
	assert.Equal(t, "u1", ownerID)
	assert.Equal(t, []models.AuthState{
		{Status: models.AuthLoading},
		{Status: models.AuthAuthenticated, OwnerID: "u1"},
	}, drain(p))
}

func TestSignIn_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"empty", "", ErrInvalidToken},
		{"expired", "", ErrTokenExpired},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, _ := newTestProvider(t) // SetToken не ожидается
			token := tc.token
			if tc.wantErr == ErrTokenExpired {
				token = signedToken(t, "u1", -time.Minute)
			}

			_, err := p.SignIn(token)

			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, models.AuthLoading, p.Current().Status)
		})
	}
}

func TestSignOut_ClearsToken(t *testing.T) {
	p, holder := newTestProvider(t)
	token := signedToken(t, "u1", time.Hour)
	gomock.InOrder(
		holder.EXPECT().SetToken(token),
		holder.EXPECT().SetToken(""),
	)

	_, err := p.SignIn(token)
	require.NoError(t, err)
	p.SignOut()

	states := drain(p)
	require.Len(t, states, 3)
	assert.Equal(t, models.AuthState{Status: models.AuthUnauthenticated}, states[2])
}

func TestSignIn_SameOwnerTwicePublishesOnce(t *testing.T) {
	p, holder := newTestProvider(t)
	token := signedToken(t, "u1", time.Hour)
	holder.EXPECT().SetToken(token).Times(2)

	_, err := p.SignIn(token)
	require.NoError(t, err)
	_, err = p.SignIn(token)
	require.NoError(t, err)

	assert.Len(t, drain(p), 2)
}

// ── Restore ─────────────────────────────────────────────────────────────────

func TestSessionEnd_RunsBeforeTokenSwap(t *testing.T) {
	p, holder := newTestProvider(t)
	first := signedToken(t, "u1", time.Hour)
	refreshed := signedToken(t, "u1", 2*time.Hour)
	second := signedToken(t, "u2", time.Hour)

	var events []string
	p.OnSessionEnd(func() { events = append(events, "end") })
	holder.EXPECT().SetToken(gomock.Any()).
		Do(func(token string) {
			switch token {
			case first, refreshed:
				events = append(events, "set:u1")
			case second:
				events = append(events, "set:u2")
			case "":
				events = append(events, "clear")
			}
		}).
		Times(4)

	_, err := p.SignIn(first)
	require.NoError(t, err)
	_, err = p.SignIn(refreshed)
	require.NoError(t, err)
	_, err = p.SignIn(second)
	require.NoError(t, err)
	p.SignOut()

	// хук вызывается только при смене владельца и до замены токена
	assert.Equal(t, []string{"set:u1", "set:u1", "end", "set:u2", "end", "clear"}, events)
}

func TestSessionEnd_NotRunWithoutSession(t *testing.T) {
	p, holder := newTestProvider(t)
	holder.EXPECT().SetToken("")

	called := false
	p.OnSessionEnd(func() { called = true })
	p.SignOut()

	assert.False(t, called)
}

func TestRestore(t *testing.T) {
	t.Run("empty token signs out", func(t *testing.T) {
		p, holder := newTestProvider(t)
		holder.EXPECT().SetToken("")

		require.NoError(t, p.Restore(""))
		assert.Equal(t, models.AuthUnauthenticated, p.Current().Status)
	})

	t.Run("valid token signs in", func(t *testing.T) {
		p, holder := newTestProvider(t)
		token := signedToken(t, "u7", time.Hour)
		holder.EXPECT().SetToken(token)

		require.NoError(t, p.Restore(token))
		assert.Equal(t, models.AuthState{Status: models.AuthAuthenticated, OwnerID: "u7"}, p.Current())
	})

	t.Run("expired token signs out with error", func(t *testing.T) {
		p, holder := newTestProvider(t)
		holder.EXPECT().SetToken("")

		err := p.Restore(signedToken(t, "u7", -time.Minute))

		assert.ErrorIs(t, err, ErrTokenExpired)
		assert.Equal(t, models.AuthUnauthenticated, p.Current().Status)
	})
}

// ── Buffering / Close ───────────────────────────────────────────────────────

func TestPublish_DropsOldestWhenFull(t *testing.T) {
	p, holder := newTestProvider(t)
	holder.EXPECT().SetToken(gomock.Any()).AnyTimes()

	owners := statesBuffer + 4
	for i := 0; i < owners; i++ {
		_, err := p.SignIn(signedToken(t, "u"+string(rune('a'+i)), time.Hour))
		require.NoError(t, err)
	}

	states := drain(p)
	require.Len(t, states, statesBuffer)
	assert.Equal(t, p.Current(), states[len(states)-1])
}

func TestClose(t *testing.T) {
	p, _ := newTestProvider(t)

	p.Close()
	p.Close() // повторный вызов безопасен
	p.SignOut()

	_, err := p.SignIn(signedToken(t, "u1", time.Hour))
	assert.ErrorIs(t, err, ErrProviderClosed)

	states := drain(p)
	assert.Equal(t, []models.AuthState{{Status: models.AuthLoading}}, states)
	_, ok := <-p.States()
	assert.False(t, ok)
}
