package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jvaisto/clerkbot/internal/config"
)

func TestServeCommandShutsDownOnCancel(t *testing.T) {
	app := &fakeApp{
		cfg: config.Config{
			Server:  config.ServerConfig{Port: 0},
			Logging: config.LoggingConfig{Development: true},
		},
		logger: zap.NewNop(),
		runs:   &recordingStore{},
		clock:  fixedClock{now: time.Now().UTC()},
	}

	origFactory := newApp
	newApp = func(context.Context) (App, error) { return app, nil }
	defer func() { newApp = origFactory }()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		root := newRootCmd()
		root.SetArgs([]string{"serve"})
		done <- root.ExecuteContext(ctx)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve command did not shut down")
	}
}
