package integration

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/service/common"
	"github.com/oshokin/catpoint/internal/service/server"
)

// reservePort returns a free local address.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

// testSettings returns settings for a server on a fresh port.
func testSettings(t *testing.T) *config.Config {
	t.Helper()

	settings := config.Default()
	settings.ServerAddress = reservePort(t)
	settings.Timeout = 3 * time.Second
	settings.LogLevel = "error"
	settings.Storage = config.StorageConfig{
		Driver: config.DriverFile,
		Path:   filepath.Join(t.TempDir(), "state.json"),
	}

	return settings
}

// startServer runs catpoint-server with settings until the returned stop is called.
// It waits until the server answers GetStatus.
func startServer(t *testing.T, settings *config.Config) (stop func()) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(cfgPath, settings))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{ConfigPath: cfgPath})
	}()

	c := dial(t, settings.ServerAddress)

	require.Eventually(t, func() bool {
		_, err := c.GetStatus(context.Background())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	var stopped bool

	stop = func() {
		if stopped {
			return
		}

		stopped = true

		cancel()
		require.NoError(t, <-done)
	}

	t.Cleanup(stop)

	return stop
}

// dial connects a client identified as a test actor.
func dial(t *testing.T, addr string) *common.Client {
	t.Helper()

	c, err := common.Dial(context.Background(), addr,
		common.WithCallTimeout(time.Second),
		common.WithActor(&common.Actor{Hostname: "test-hostname", Username: "test-user"}),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = c.Close() })

	return c
}
