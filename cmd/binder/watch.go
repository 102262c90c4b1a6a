package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/recera/binder/pkg/scheduler"
)

func newWatchCommand(a *app) *cobra.Command {
	var statePath string

	cmd := &cobra.Command{
		Use:   "watch TEMPLATE",
		Short: "Re-render whenever the template or the state fixture changes",
		Long: `Renders TEMPLATE, then watches it and the state fixture. A fixture change
reloads its values into the bound state and updates in place; a template
change binds again from scratch. Every render is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, args[0], statePath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&statePath, "state", "s", "", "state fixture (YAML)")
	return cmd
}

func (a *app) watch(ctx context.Context, templatePath, statePath string, out io.Writer) error {
	loop := scheduler.NewLoop(a.logger)
	loop.Start()
	defer loop.Stop()

	var s *session
	var err error
	if derr := loop.Do(func() { s, err = a.openSession(templatePath, statePath, loop) }); derr != nil {
		return derr
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, s.markup())

	paths := []string{templatePath}
	if statePath != "" {
		paths = append(paths, statePath)
	}
	return watchFiles(ctx, paths, a.cfg.Watch.Debounce, a.logger, func(changed map[string]bool) {
		_ = loop.Do(func() {
			var err error
			if changed[filepath.Clean(templatePath)] {
				a.logger.Info("template changed, binding again", "template", templatePath)
				var next *session
				if next, err = a.openSession(templatePath, statePath, loop); err == nil {
					s.close()
					s = next
				}
			} else {
				a.logger.Info("state changed, updating", "state", statePath)
				err = s.reloadState()
			}
			if err != nil {
				a.logger.Error("reload failed", "err", err)
				return
			}
			fmt.Fprintln(out, s.markup())
		})
	})
}

// watchFiles calls onChange with the cleaned paths that changed, at most
// once per debounce window, until ctx is done. Directories are watched so
// editors that replace files on save are seen.
func watchFiles(ctx context.Context, paths []string, debounce time.Duration, logger *slog.Logger, onChange func(map[string]bool)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	wanted := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		p = filepath.Clean(p)
		wanted[p] = true
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	timer := time.NewTimer(0)
	<-timer.C // drain initial timer
	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Clean(event.Name)
			if !wanted[name] || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			pending[name] = true
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "err", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := pending
			pending = make(map[string]bool)
			onChange(changed)
		}
	}
}
