package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lzhahn/CountMe-sub003/internal/logger"
	"github.com/lzhahn/CountMe-sub003/internal/mock"
	"github.com/lzhahn/CountMe-sub003/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func statesOf(states ...models.AuthState) <-chan models.AuthState {
	ch := make(chan models.AuthState, len(states))
	for _, s := range states {
		ch <- s
	}
	close(ch)
	return ch
}

func TestSessionWatcher_SignInAndOut(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mock.NewMockSyncEngine(ctrl)
	auth := mock.NewMockAuthProvider(ctrl)

	auth.EXPECT().States().Return(statesOf(
		models.AuthState{Status: models.AuthLoading},
		models.AuthState{Status: models.AuthAuthenticated, OwnerID: "u1"},
		models.AuthState{Status: models.AuthUnauthenticated},
	))
	gomock.InOrder(
		engine.EXPECT().MigrateLocalData(gomock.Any(), "u1").Return(models.MigrationReport{OwnerID: "u1", Uploaded: 2}, nil),
		engine.EXPECT().StartSync(gomock.Any(), "u1").Return(nil),
		engine.EXPECT().StopSync(),
		engine.EXPECT().StopSync(),
	)

	w := NewSessionWatcher(engine, auth, logger.Nop())
	require.NoError(t, w.Run(context.Background()))
}

func TestSessionWatcher_MigrationFailureStillStartsSync(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mock.NewMockSyncEngine(ctrl)
	auth := mock.NewMockAuthProvider(ctrl)

	auth.EXPECT().States().Return(statesOf(models.AuthState{Status: models.AuthAuthenticated, OwnerID: "u1"}))
	gomock.InOrder(
		engine.EXPECT().MigrateLocalData(gomock.Any(), "u1").
			Return(models.MigrationReport{OwnerID: "u1", Failed: 1}, ErrMigrationIncomplete),
		engine.EXPECT().StartSync(gomock.Any(), "u1").Return(nil),
		engine.EXPECT().StopSync(),
	)

	w := NewSessionWatcher(engine, auth, logger.Nop())
	require.NoError(t, w.Run(context.Background()))
}

func TestSessionWatcher_AuthenticatedWithoutOwnerIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mock.NewMockSyncEngine(ctrl)
	auth := mock.NewMockAuthProvider(ctrl)

	auth.EXPECT().States().Return(statesOf(models.AuthState{Status: models.AuthAuthenticated}))
	engine.EXPECT().StopSync()

	w := NewSessionWatcher(engine, auth, logger.Nop())
	require.NoError(t, w.Run(context.Background()))
}

func TestSessionWatcher_StopsOnContextCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := mock.NewMockSyncEngine(ctrl)
	auth := mock.NewMockAuthProvider(ctrl)

	auth.EXPECT().States().Return(make(chan models.AuthState))
	engine.EXPECT().StopSync()

	ctx, cancel := context.WithCancel(context.Background())
	w := NewSessionWatcher(engine, auth, logger.Nop())

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
