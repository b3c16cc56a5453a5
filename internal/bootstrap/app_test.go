package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/infra/config"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep() int {
	s.calls.Add(1)
	return 1
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunJanitorSweepsUntilCanceled(t *testing.T) {
	sweeper := &countingSweeper{}
	app := NewApp(&config.Config{}, newTestLogger(), &http.Server{}, sweeper)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.runJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestRunJanitorDisabled(t *testing.T) {
	sweeper := &countingSweeper{}
	app := NewApp(&config.Config{}, newTestLogger(), &http.Server{}, sweeper)

	app.runJanitor(context.Background(), 0)
	require.Zero(t, sweeper.calls.Load())
}

func TestRunShutsDownOnCancel(t *testing.T) {
	cfg := &config.Config{HTTP: config.HTTPConfig{Address: "127.0.0.1:0"}}
	cfg.Cache.SweepInterval = time.Millisecond
	server := &http.Server{Addr: cfg.HTTP.Address, Handler: http.NotFoundHandler()}
	app := NewApp(cfg, newTestLogger(), server, &countingSweeper{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- app.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
