package cli

import (
	"github.com/spf13/cobra"
)

// RemoveOptions holds flags for the remove command.
type RemoveOptions struct {
	*RootOptions
	Policy string
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RemoveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "remove <namespace> <set> <key>",
		Short: "Delete a record",
		Long: `Delete a record. The policy may demand a generation match, e.g.
--policy '{"gen":"eq","generation":3}'.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Policy, "policy", "", "remove policy as a JSON object")

	return cmd
}

func runRemove(opts *RemoveOptions, args []string, cmd *cobra.Command) error {
	policy, err := parseJSONMap("policy", opts.Policy)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse policy", err)
	}

	client, err := openClient(opts.RootOptions)
	if err != nil {
		return err
	}
	defer client.Close()

	f := formatter(opts.RootOptions, cmd)
	w := newWaiter()
	client.Remove(keyArg(args), policy, func(errObj, key map[string]any) {
		w.done(errObj, map[string]any{"key": key})
	})
	return w.wait(f)
}
