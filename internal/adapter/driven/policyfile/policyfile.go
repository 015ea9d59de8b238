// Package policyfile loads the error classification and institute policy
// from a TOML file and hot-reloads it on change.
package policyfile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"

	"github.com/ericfisherdev/bankster/internal/application"
)

// reloadDelay coalesces the burst of events an editor save produces.
const reloadDelay = 250 * time.Millisecond

// Load reads the policy at path. Keys absent from the file keep their
// built-in defaults.
func Load(path string) (application.Policy, error) {
	policy := application.DefaultPolicy()

	md, err := toml.DecodeFile(path, &policy)
	if err != nil {
		return application.Policy{}, fmt.Errorf("decode policy file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return application.Policy{}, fmt.Errorf("policy file %s: unknown key %q", path, undecoded[0].String())
	}
	if err := validate(policy); err != nil {
		return application.Policy{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	return policy, nil
}

func validate(p application.Policy) error {
	for i, rule := range p.ClassifierRules {
		if rule.Code == "" {
			return fmt.Errorf("classifier rule %d: code is required", i+1)
		}
		switch rule.Category {
		case application.CategoryAuthInvalidated, application.CategoryOther:
		default:
			return fmt.Errorf("classifier rule %d: unknown category %q", i+1, rule.Category)
		}
	}
	return nil
}

// Watch reloads the policy into provider whenever the file changes, until
// the context is canceled. The directory is watched rather than the file so
// that atomic replace-by-rename saves are seen. An invalid file is logged
// and the previous policy stays in effect.
func Watch(ctx context.Context, path string, provider *application.PolicyProvider, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create policy watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve policy path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch policy directory: %w", err)
	}

	reload := func() {
		policy, err := Load(abs)
		if err != nil {
			logger.Error("policy reload failed, keeping previous policy", "path", abs, "error", err)
			return
		}
		provider.Replace(policy)
		logger.Info("policy reloaded", "path", abs, "classifier_rules", len(policy.ClassifierRules))
	}

	timer := time.NewTimer(reloadDelay)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(reloadDelay)
			}
		case <-timer.C:
			reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				timer.Reset(reloadDelay)
				continue
			}
			logger.Warn("policy watcher error", "error", err)
		}
	}
}
