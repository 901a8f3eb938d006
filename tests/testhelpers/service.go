// Package testhelpers provides test utilities for launching fully wired
// compute services against configuration file fixtures.
package testhelpers

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ewd00010/bezout/internal/server"
	"github.com/ewd00010/bezout/pkg/config"
)

// Service is a running compute server wired to a watched configuration
// file, the same assembly the daemon performs at startup.
type Service struct {
	BaseURL    string
	ConfigPath string

	server   *server.Server
	provider *config.FileProvider
}

// WriteConfigFile writes YAML content to dir/config.yaml and returns the path.
func WriteConfigFile(t testing.TB, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// StartService builds the provider/server/reload-subscription assembly
// from a config file and starts listening on a loopback port. Shutdown
// is registered with the test cleanup.
func StartService(t testing.TB, configPath string) *Service {
	t.Helper()

	provider, err := config.NewFileProvider(configPath)
	if err != nil {
		t.Fatalf("failed to create config provider: %v", err)
	}

	srv := server.New(server.Options{
		Config: provider.Current(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := srv.Start("127.0.0.1:0"); err != nil {
		_ = provider.Close()
		t.Fatalf("failed to start server: %v", err)
	}

	go func() {
		for cfg := range provider.Subscribe() {
			srv.ApplyConfig(cfg)
		}
	}()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("failed to shut down server: %v", err)
		}
		if err := provider.Close(); err != nil {
			t.Errorf("failed to close config provider: %v", err)
		}
	})

	return &Service{
		BaseURL:    "http://" + srv.Addr(),
		ConfigPath: configPath,
		server:     srv,
		provider:   provider,
	}
}

// RewriteConfig replaces the service's config file contents. The watcher
// picks up the change asynchronously; callers poll for the effect.
func (s *Service) RewriteConfig(t testing.TB, content string) {
	t.Helper()

	if err := os.WriteFile(s.ConfigPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to rewrite config file: %v", err)
	}
}

// Current returns the provider's current configuration snapshot.
func (s *Service) Current() *config.Config {
	return s.provider.Current()
}
