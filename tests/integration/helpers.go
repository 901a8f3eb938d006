package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/ewd00010/bezout/internal/server"
	"github.com/ewd00010/bezout/pkg/config"
)

func closeBody(t *testing.T, c io.Closer) {
	t.Helper()

	if c == nil {
		return
	}

	if err := c.Close(); err != nil {
		t.Fatalf("failed to close body: %v", err)
	}
}

// testService wraps a compute server bound to a loopback port.
type testService struct {
	Server  *server.Server
	BaseURL string
}

// defaultConfig returns a validated configuration with no rate limit.
func defaultConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("failed to validate config: %v", err)
	}
	return cfg
}

// startService starts a server on an ephemeral port and registers its
// shutdown with the test cleanup.
func startService(t *testing.T, cfg *config.Config) *testService {
	t.Helper()

	srv := server.New(server.Options{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := srv.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("failed to shut down server: %v", err)
		}
	})

	return &testService{
		Server:  srv,
		BaseURL: "http://" + srv.Addr(),
	}
}

// computeResult mirrors the wire format of one variant's triple.
type computeResult struct {
	Gcd string `json:"gcd"`
	X   int64  `json:"x"`
	Y   int64  `json:"y"`
}

// computeEnvelope mirrors the full compute response body.
type computeEnvelope struct {
	A          string         `json:"a"`
	B          string         `json:"b"`
	Strategy   string         `json:"strategy"`
	Result     *computeResult `json:"result"`
	Iterative  *computeResult `json:"iterative"`
	Recursive  *computeResult `json:"recursive"`
	Equivalent *bool          `json:"equivalent"`
	RequestID  string         `json:"request_id"`
}

// getJSON performs a GET and decodes the JSON body into out.
func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url) //nolint:gosec // Test URL points at a local listener
	if err != nil {
		t.Fatalf("request %s: %v", url, err)
	}
	defer closeBody(t, resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("decode body %q: %v", body, err)
		}
	}
	return resp.StatusCode
}
