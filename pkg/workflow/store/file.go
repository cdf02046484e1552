package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"tasksync-hq/tasksync/pkg/workflow"
)

// FileSource serves rules from YAML bundle files on disk. The path can
// be a single file or a directory; in a directory, all .yaml and .yml
// files are loaded in filename order. Rules are assigned sequential ids
// in load order, which is the repeatable dispatch order.
//
// FileSource is read-only from the engine's perspective; editing the
// files and reloading (or enabling Watch) is the administrative path.
type FileSource struct {
	path    string
	logger  *slog.Logger
	backing *MemoryStore

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// ruleBundle is the YAML document shape of a rule file.
type ruleBundle struct {
	Rules []ruleSpec `yaml:"rules"`
}

// ruleSpec is one rule in a bundle. Conditions and actions are written
// as YAML mappings and serialized to the JSON text the engine parses at
// dispatch time.
type ruleSpec struct {
	EventType  string         `yaml:"event_type"`
	Conditions map[string]any `yaml:"conditions"`
	Actions    map[string]any `yaml:"actions"`
	Enabled    *bool          `yaml:"enabled"`
}

// recognized action descriptor keys
var actionKeys = map[string]bool{
	"notify":      true,
	"setPriority": true,
	"resetSla":    true,
	"escalate":    true,
}

// NewFileSource creates a file-based rule source and performs the
// initial load.
func NewFileSource(path string, logger *slog.Logger) (*FileSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileSource{
		path:    path,
		logger:  logger.With("component", "workflow.store.file"),
		backing: NewMemoryStore(),
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// FindEnabled returns enabled rules for the event type in load order.
func (s *FileSource) FindEnabled(ctx context.Context, eventType workflow.EventType) ([]*workflow.Rule, error) {
	return s.backing.FindEnabled(ctx, eventType)
}

// List returns all loaded rules in load order.
func (s *FileSource) List(ctx context.Context) ([]*workflow.Rule, error) {
	return s.backing.List(ctx)
}

// Reload re-reads the rule files and atomically replaces the served
// rule set. A file that fails to parse is skipped with a warning; the
// remaining files still load.
func (s *FileSource) Reload() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("failed to stat rules path %q: %w", s.path, err)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(s.path)
		if err != nil {
			return fmt.Errorf("failed to read rules directory %q: %w", s.path, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := filepath.Ext(e.Name())
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			files = append(files, filepath.Join(s.path, e.Name()))
		}
		sort.Strings(files)
	} else {
		files = []string{s.path}
	}

	var rules []*workflow.Rule
	nextID := int64(1)
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			s.logger.Warn("failed to read rule file, skipping", "path", file, "error", err)
			continue
		}
		parsed, err := ParseBundle(data)
		if err != nil {
			s.logger.Warn("failed to parse rule file, skipping", "path", file, "error", err)
			continue
		}
		for _, r := range parsed {
			r.ID = nextID
			nextID++
			rules = append(rules, r)
		}
	}

	s.backing.replaceAll(rules)
	s.logger.Info("loaded rules from files",
		"path", s.path,
		"file_count", len(files),
		"rule_count", len(rules),
	)
	return nil
}

// ParseBundle parses a YAML rule bundle into rules with JSON-encoded
// condition and action payloads. It validates event types and action
// descriptor keys; it does not validate priority tokens, which are a
// runtime configuration concern.
func ParseBundle(data []byte) ([]*workflow.Rule, error) {
	var bundle ruleBundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("malformed rule bundle: %w", err)
	}

	var rules []*workflow.Rule
	for i, spec := range bundle.Rules {
		eventType, err := workflow.ParseEventType(spec.EventType)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		if len(spec.Actions) == 0 {
			return nil, fmt.Errorf("rule %d: actions cannot be empty", i+1)
		}
		for key := range spec.Actions {
			if !actionKeys[key] {
				return nil, fmt.Errorf("rule %d: unknown action %q", i+1, key)
			}
		}

		conditions := ""
		if len(spec.Conditions) > 0 {
			b, err := json.Marshal(spec.Conditions)
			if err != nil {
				return nil, fmt.Errorf("rule %d: failed to encode conditions: %w", i+1, err)
			}
			conditions = string(b)
		}

		actions, err := json.Marshal(spec.Actions)
		if err != nil {
			return nil, fmt.Errorf("rule %d: failed to encode actions: %w", i+1, err)
		}

		enabled := true
		if spec.Enabled != nil {
			enabled = *spec.Enabled
		}

		rules = append(rules, &workflow.Rule{
			EventType:  eventType,
			Conditions: conditions,
			Actions:    string(actions),
			Enabled:    enabled,
		})
	}
	return rules, nil
}

// Watch starts watching the rule files for changes and reloading on
// change, debounced to avoid reload storms. It blocks until the context
// is cancelled.
func (s *FileSource) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	// Watch the containing directory so edits via rename (the common
	// editor save pattern) are still observed.
	watchPath := s.path
	if info, err := os.Stat(s.path); err == nil && !info.IsDir() {
		watchPath = filepath.Dir(s.path)
	}
	if err := watcher.Add(watchPath); err != nil {
		return fmt.Errorf("failed to watch %q: %w", watchPath, err)
	}

	s.logger.Info("rule file watcher started",
		"path", s.path,
		"debounce_ms", debounce.Milliseconds(),
	)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("rule file watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !relevantRuleFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				if err := s.Reload(); err != nil {
					s.logger.Error("rule reload failed", "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			s.logger.Error("rule file watcher error", "error", err)
		}
	}
}

func relevantRuleFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
