package service

import (
	"context"
	"testing"
	"time"

	"github.com/lzhahn/CountMe-sub003/internal/config"
	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(duration time.Duration) AuthService {
	return NewAuthService(config.ServerApp{
		TokenSignKey:  "test-sign-key",
		TokenIssuer:   "countme-test",
		TokenDuration: duration,
	}, logger.Nop())
}

func TestAuthService_CreateAndParseToken(t *testing.T) {
	svc := newTestAuthService(time.Hour)
	ctx := context.Background()

	token, err := svc.CreateToken(ctx, "owner-42")
	require.NoError(t, err)
	require.NotEmpty(t, token.SignedString)

	parsed, err := svc.ParseToken(ctx, token.SignedString)
	require.NoError(t, err)

	assert.Equal(t, "owner-42", parsed.OwnerID)
}

func TestAuthService_ParseToken_Rejects(t *testing.T) {
	ctx := context.Background()

	expired, err := newTestAuthService(-time.Minute).CreateToken(ctx, "owner-42")
	require.NoError(t, err)

	foreign, err := NewAuthService(config.ServerApp{
		TokenSignKey: "other-key", TokenIssuer: "countme-test", TokenDuration: time.Hour,
	}, logger.Nop()).CreateToken(ctx, "owner-42")
	require.NoError(t, err)

	otherIssuer, err := NewAuthService(config.ServerApp{
		TokenSignKey: "test-sign-key", TokenIssuer: "someone-else", TokenDuration: time.Hour,
	}, logger.Nop()).CreateToken(ctx, "owner-42")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: expired.SignedString},
		{name: "wrong signature", token: foreign.SignedString},
		{name: "wrong issuer", token: otherIssuer.SignedString},
		{name: "garbage", token: "not-a-jwt"},
		{name: "empty", token: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestAuthService(time.Hour).ParseToken(ctx, tt.token)
			assert.ErrorIs(t, err, ErrTokenIsExpiredOrInvalid)
		})
	}
}
