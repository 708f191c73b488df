package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/chatflow/pkg/adapters/file"
	"github.com/aretw0/chatflow/pkg/adapters/loam"
	"github.com/aretw0/chatflow/pkg/ports"
)

// ErrNotWatchable is returned by Watch for sources that cannot report changes.
var ErrNotWatchable = errors.New("flow source does not support watching")

// reloadSettle lets an editor finish writing before the flow is reloaded.
const reloadSettle = 100 * time.Millisecond

// OpenSource returns a Loam source for directories and a document source for files.
func OpenSource(path string) (ports.FlowSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("flow source: %w", err)
	}
	if info.IsDir() {
		return loam.Open(path)
	}
	return file.NewSource(path), nil
}

// Installer accepts flows loaded from a source.
type Installer interface {
	InstallFrom(ctx context.Context, src ports.FlowSource) error
}

// LoadFlow opens path and installs its flow.
func LoadFlow(ctx context.Context, inst Installer, path string) (ports.FlowSource, error) {
	src, err := OpenSource(path)
	if err != nil {
		return nil, err
	}
	if err := inst.InstallFrom(ctx, src); err != nil {
		return nil, err
	}
	return src, nil
}

// Watch reinstalls the flow every time src reports a change, until ctx is done. A rejected
// reload is logged and the running flow stays active.
func Watch(ctx context.Context, inst Installer, src ports.FlowSource, logger *slog.Logger) error {
	w, ok := src.(ports.Watchable)
	if !ok {
		return ErrNotWatchable
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Info("Change detected, reloading flow", "event", event)
			select {
			case <-time.After(reloadSettle):
			case <-ctx.Done():
				return nil
			}
			drain(changes)
			if err := inst.InstallFrom(ctx, src); err != nil {
				logger.Error("Flow reload rejected", "err", err)
				continue
			}
			logger.Info("Flow reloaded")
		}
	}
}

// drain discards the events that piled up while settling.
func drain(ch <-chan string) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
