package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/recera/binder/pkg/dom"
	"github.com/recera/binder/pkg/scheduler"
)

func newRenderCommand(a *app) *cobra.Command {
	var statePath, out string
	var fire []string
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Bind a template and print the rendered target",
		Long: `Binds TEMPLATE to the state fixture and prints the markup of the target.
Each --fire EVENT:SELECTOR dispatches an event before printing; delayed
actions and transitions are settled on a virtual clock.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sched := scheduler.NewManual()
			s, err := a.openSession(args[0], statePath, sched)
			if err != nil {
				return err
			}
			for _, f := range fire {
				if err := fireSpec(s, f); err != nil {
					return err
				}
				sched.Advance(settle)
			}

			markup := s.markup() + "\n"
			if out == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), markup)
				return err
			}
			if err := os.WriteFile(out, []byte(markup), 0o644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			a.logger.Info("rendered", "template", args[0], "out", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&statePath, "state", "s", "", "state fixture (YAML)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the markup to a file instead of stdout")
	cmd.Flags().StringArrayVar(&fire, "fire", nil, "dispatch EVENT:SELECTOR before printing (repeatable)")
	cmd.Flags().DurationVar(&settle, "settle", 10*time.Second, "virtual time allowed for delayed work after each event")
	return cmd
}

// fireSpec dispatches an EVENT:SELECTOR pair
func fireSpec(s *session, spec string) error {
	typ, sel, ok := strings.Cut(spec, ":")
	if !ok || typ == "" || sel == "" {
		return fmt.Errorf("invalid --fire %q, want EVENT:SELECTOR", spec)
	}
	node, err := s.doc.QuerySelector(sel)
	if err != nil {
		return err
	}
	if node == nil {
		return fmt.Errorf("--fire %q: no element matches %s", spec, sel)
	}
	return s.binder.Dispatch(node, dom.NewEvent(typ))
}
