package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ebogdum/dualfs/core"
	"github.com/ebogdum/dualfs/script"
	"github.com/ebogdum/dualfs/server"
)

func newRunCmd() *cobra.Command {
	var (
		withMetrics bool
		keepGoing   bool
	)

	cmd := &cobra.Command{
		Use:   "run SCRIPT",
		Short: "Run a YAML operation script against the configured backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := script.Load(args[0])
			if err != nil {
				return err
			}

			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := signalContext()
			defer cancel()

			if withMetrics {
				serveCtx, stopServer := context.WithCancel(ctx)
				serverDone := make(chan struct{})
				router := server.NewRouter(rt.dispatcher, rt.cfg.Metrics, rt.logger)
				go func() {
					defer close(serverDone)
					if err := server.Serve(serveCtx, rt.cfg.Metrics.ListenAddr, router, rt.logger); err != nil {
						rt.logger.Error("Metrics server stopped", zap.Error(err))
					}
				}()
				defer func() {
					stopServer()
					<-serverDone
				}()
			}

			runner := script.NewRunner(rt.dispatcher, rt.logger)
			runner.KeepGoing = keepGoing
			report, err := runner.Run(ctx, s)

			out := cmd.OutOrStdout()
			for _, step := range report.Steps {
				status := "ok"
				detail := script.Render(step.Result)
				if !step.Passed {
					status = "FAIL"
					detail = step.Reason
				}
				fmt.Fprintf(out, "%3d %-4s %-10s %-8s %s\n", step.Index, status, step.Op, step.Mode, detail)
			}
			if err != nil {
				return fmt.Errorf("script interrupted: %w", err)
			}
			if !report.OK() {
				return fmt.Errorf("%d of %d steps failed", report.Failed, len(report.Steps))
			}
			fmt.Fprintf(out, "%d steps passed\n", len(report.Steps))
			return nil
		},
	}
	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "Serve health and metrics while the script runs")
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Continue after a failed step")
	return cmd
}

// invoke performs inv in the chosen convention; in callback mode it waits
// for the continuation or for ctx to end
func invoke(ctx context.Context, d *core.Dispatcher, inv core.Invocation, callback bool) (any, error) {
	if !callback {
		return d.Call(ctx, inv)
	}

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)
	inv.Callback = func(result any, err error) {
		done <- outcome{result, err}
	}
	if _, err := d.Call(ctx, inv); err != nil {
		return nil, err
	}

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		return nil, errors.New("interrupted before the operation completed")
	}
}
