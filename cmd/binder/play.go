package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/recera/binder/internal/live"
	"github.com/recera/binder/internal/ui"
	"github.com/recera/binder/pkg/scheduler"
)

func newPlayCommand(a *app) *cobra.Command {
	var statePath string

	cmd := &cobra.Command{
		Use:   "play TEMPLATE",
		Short: "Fire bound events from a terminal playground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loop := scheduler.NewLoop(a.logger)
			s, err := a.openSession(args[0], statePath, loop)
			if err != nil {
				return err
			}
			host := live.NewHost(loop, s.binder)
			loop.Start()
			defer loop.Stop()
			return ui.Run(host, filepath.Base(args[0]))
		},
	}
	cmd.Flags().StringVarP(&statePath, "state", "s", "", "state fixture (YAML)")
	return cmd
}
