package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/ewd00010/bezout/tests/testhelpers"
)

// scenarioConfig defines the parameters for a lifecycle scenario test
type scenarioConfig struct {
	Name        string
	Description string
	InitialYAML string
	Steps       func(t *testing.T, svc *testhelpers.Service)
}

func TestScenarios(t *testing.T) {
	tests := []scenarioConfig{
		{
			Name:        "Scenario 1: Basic compute",
			Description: "A fresh service answers with both variants agreeing",
			InitialYAML: "logging:\n  level: error\n",
			Steps: func(t *testing.T, svc *testhelpers.Service) {
				status, body := fetch(t, svc.BaseURL+"/v1/extgcd?a=240&b=46")
				if status != http.StatusOK {
					t.Fatalf("Expected status 200, got %d: %s", status, body)
				}

				var resp struct {
					Iterative  *struct{ Gcd string } `json:"iterative"`
					Equivalent *bool                 `json:"equivalent"`
				}
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if resp.Iterative == nil || resp.Iterative.Gcd != "2" {
					t.Errorf("Expected gcd 2, got %+v", resp.Iterative)
				}
				if resp.Equivalent == nil || !*resp.Equivalent {
					t.Error("Expected equivalent=true")
				}
			},
		},
		{
			Name:        "Scenario 2: Tighten and relax limits at runtime",
			Description: "Rate limits follow the config file in both directions without a restart",
			InitialYAML: "logging:\n  level: error\n",
			Steps: func(t *testing.T, svc *testhelpers.Service) {
				for i := 0; i < 5; i++ {
					if status, _ := fetch(t, svc.BaseURL+"/v1/extgcd?a=6&b=9"); status != http.StatusOK {
						t.Fatalf("Expected unlimited service before reload, got %d", status)
					}
				}

				svc.RewriteConfig(t, "logging:\n  level: error\nlimits:\n  requests_per_second: 0.001\n  burst: 1\n")
				waitForStatus(t, svc.BaseURL+"/v1/extgcd?a=6&b=9", http.StatusTooManyRequests)

				svc.RewriteConfig(t, "logging:\n  level: error\nlimits:\n  requests_per_second: 0\n")
				waitForStatus(t, svc.BaseURL+"/v1/extgcd?a=6&b=9", http.StatusOK)
			},
		},
		{
			Name:        "Scenario 3: Invalid reload keeps serving",
			Description: "A broken config rewrite must not take down the service or clobber its settings",
			InitialYAML: "logging:\n  level: warn\n",
			Steps: func(t *testing.T, svc *testhelpers.Service) {
				svc.RewriteConfig(t, "logging:\n  level: chatty\n")

				// Give the debounced reload time to run, then confirm the
				// previous snapshot is still in force.
				time.Sleep(500 * time.Millisecond)
				if level := svc.Current().Logging.Level; level != "warn" {
					t.Errorf("Invalid config was applied, level is now %q", level)
				}
				if status, _ := fetch(t, svc.BaseURL+"/v1/extgcd?a=35&b=15"); status != http.StatusOK {
					t.Errorf("Service stopped serving after invalid reload, got %d", status)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			path := testhelpers.WriteConfigFile(t, t.TempDir(), tt.InitialYAML)
			svc := testhelpers.StartService(t, path)
			tt.Steps(t, svc)
		})
	}
}

func fetch(t *testing.T, url string) (int, []byte) {
	t.Helper()

	resp, err := http.Get(url) //nolint:gosec // Test URL points at a local listener
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return resp.StatusCode, body
}

func waitForStatus(t *testing.T, url string, want int) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	var last int
	for time.Now().Before(deadline) {
		last, _ = fetch(t, url)
		if last == want {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for status %d, last saw %d", want, last)
}
