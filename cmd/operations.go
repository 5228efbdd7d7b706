package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ebogdum/dualfs/backends"
	"github.com/ebogdum/dualfs/core"
	"github.com/ebogdum/dualfs/fserr"
	"github.com/ebogdum/dualfs/script"
)

// operationCommands returns one subcommand per operation, taking the
// operation's inputs as positional arguments in declared order
func operationCommands() []*cobra.Command {
	var cmds []*cobra.Command
	for _, op := range backends.Operations() {
		cmds = append(cmds, newOperationCmd(op))
	}
	return cmds
}

func newOperationCmd(op backends.Operation) *cobra.Command {
	var callback bool

	usage := make([]string, len(op.Inputs))
	for i, name := range op.Inputs {
		usage[i] = strings.ToUpper(name)
	}

	cmd := &cobra.Command{
		Use:   op.Name + " " + strings.Join(usage, " "),
		Short: fmt.Sprintf("Run %s against the configured backend", op.Name),
		Args:  cobra.ExactArgs(len(op.Inputs)),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup()
			if err != nil {
				return err
			}
			defer rt.close()

			ctx, cancel := signalContext()
			defer cancel()

			inv := core.Invocation{Op: op.Name, Args: core.Args{}}
			for i, name := range op.Inputs {
				inv.Args[name] = args[i]
			}

			result, err := invoke(ctx, rt.dispatcher, inv, callback)
			if err != nil {
				return fmt.Errorf("%s: %w", fserr.KindOf(err), err)
			}
			if out := script.Render(result); out != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&callback, "callback", false, "Invoke the callback form and wait for its completion")
	return cmd
}
