package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/a3tai/mcp-pdf-labeler/internal/config"
)

func runTestConfig(t *testing.T, mode string) *config.Config {
	t.Helper()
	return &config.Config{
		Mode:           mode,
		Host:           "127.0.0.1",
		Port:           0, // ephemeral port so parallel test runs never collide
		InputDirectory: t.TempDir(),
		LogLevel:       "info",
		MaxFileSize:    100 * 1024 * 1024,
		ServerName:     "test-server",
		Version:        "1.0.0",
	}
}

func TestServer_Run_StdioMode(t *testing.T) {
	cfg := runTestConfig(t, "stdio")
	server, err := NewServer(cfg, newTestService(t, cfg.InputDirectory))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Under the test binary stdin is the null device, so stdio mode
	// sees EOF and returns promptly.
	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx)
	}()

	select {
	case err := <-done:
		if err != nil && !strings.Contains(err.Error(), "context") {
			t.Errorf("Run() error = %v, expected nil or context-related error", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Run() did not return in stdio mode")
	}
}

func TestServer_Run_ServerMode_ImmediateCancel(t *testing.T) {
	cfg := runTestConfig(t, "server")
	server, err := NewServer(cfg, newTestService(t, cfg.InputDirectory))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := server.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestServer_Run_ServerMode_GracefulShutdown(t *testing.T) {
	cfg := runTestConfig(t, "server")
	server, err := NewServer(cfg, newTestService(t, cfg.InputDirectory))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx)
	}()

	// Give the HTTP listener time to start, then trigger shutdown.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Run() did not return after context cancellation")
	}
}

func TestServer_Run_ServerMode_MultipleShutdowns(t *testing.T) {
	cfg := runTestConfig(t, "server")
	server, err := NewServer(cfg, newTestService(t, cfg.InputDirectory))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	// Repeated runs against the same server value must stay independent.
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := server.Run(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Run() iteration %d error = %v, want context.Canceled", i, err)
		}
	}
}

func TestServer_Run_NonServerModeFallsBackToStdio(t *testing.T) {
	// Anything that is not server mode serves stdio; the batch command
	// path never reaches Run, but Run must still handle the mode.
	cfg := runTestConfig(t, "batch")
	server, err := NewServer(cfg, newTestService(t, cfg.InputDirectory))
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- server.Run(context.Background())
	}()

	select {
	case err := <-done:
		if err != nil && !strings.Contains(err.Error(), "context") {
			t.Errorf("Run() error = %v, expected nil or context-related error", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Run() did not return in fallback stdio mode")
	}
}
