package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileProvider serves the current configuration from a local file and
// notifies subscribers when the file changes on disk.
type FileProvider struct {
	path        string
	mu          sync.RWMutex
	current     *Config
	subscribers []chan *Config
	closed      bool
	watcher     *fsnotify.Watcher
	cancel      context.CancelFunc
}

// NewFileProvider creates a new provider watching the specified file.
func NewFileProvider(path string) (*FileProvider, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &FileProvider{
		path:    absPath,
		watcher: watcher,
		cancel:  cancel,
	}

	// Initial load
	if err := p.load(); err != nil {
		// If file doesn't exist yet, we start with defaults but still watch
		log.Printf("Warning: initial config load failed: %v", err)
		defaults, derr := Load("")
		if derr != nil {
			cancel()
			_ = watcher.Close()
			return nil, derr
		}
		p.current = defaults
	}

	// Watch the directory, not the file: editors and config tooling
	// replace the file by rename, which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		cancel()
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	go p.watchLoop(ctx)

	return p, nil
}

// Current returns the most recently loaded valid configuration.
func (p *FileProvider) Current() *Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Subscribe returns a channel that receives configuration updates.
// The current state is delivered immediately. The channel is closed
// when the provider closes, so reload loops ranging over it terminate.
func (p *FileProvider) Subscribe() <-chan *Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan *Config, 1)
	if p.closed {
		close(ch)
		return ch
	}
	p.subscribers = append(p.subscribers, ch)
	ch <- p.current
	return ch
}

// Close stops the watcher and closes all subscriber channels.
func (p *FileProvider) Close() error {
	p.cancel()
	err := p.watcher.Close()

	p.mu.Lock()
	p.closed = true
	subscribers := p.subscribers
	p.subscribers = nil
	p.mu.Unlock()

	for _, ch := range subscribers {
		close(ch)
	}
	return err
}

func (p *FileProvider) watchLoop(ctx context.Context) {
	var debounceTimer *time.Timer
	debounceDuration := 100 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}

			// We only care about our specific file
			// Note: fsnotify events might use different path separators or relative paths
			cleanEventName := filepath.Clean(event.Name)
			if cleanEventName != p.path {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Chmod) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					if err := p.load(); err != nil {
						// Keep serving the previous configuration
						log.Printf("Error reloading config: %v", err)
					} else {
						log.Printf("Configuration reloaded from %s", p.path)
					}
				})
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

func (p *FileProvider) load() error {
	// #nosec G304 -- File path is configured at startup
	data, err := os.ReadFile(p.path)
	if err != nil {
		return err
	}

	cfg, err := parse(data)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.current = cfg

	// Notify subscribers. Sends stay under the lock so a concurrent
	// Close cannot close a channel mid-send.
	for _, ch := range p.subscribers {
		select {
		case ch <- cfg:
		default:
			// Skip if channel is full (slow consumer)
		}
	}

	return nil
}

// parse accepts YAML and, as a fallback, JSON: deployment tooling in
// some environments emits config as JSON.
func parse(data []byte) (*Config, error) {
	cfg, err := Load("")
	if err != nil {
		return nil, err
	}

	if yamlErr := yaml.Unmarshal(data, cfg); yamlErr != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("failed to parse config file: %v", yamlErr)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
