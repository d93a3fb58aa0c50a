package cli

import (
	"github.com/spf13/cobra"
)

// NewExistsCommand creates the exists command.
func NewExistsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exists <namespace> <set> <key>",
		Short: "Check whether a record exists",
		Long: `Check whether a live record exists and print its metadata.
Exits with status 1 when the record is missing or expired.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExists(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runExists(opts *RootOptions, args []string, cmd *cobra.Command) error {
	client, err := openClient(opts)
	if err != nil {
		return err
	}
	defer client.Close()

	f := formatter(opts, cmd)
	w := newWaiter()
	client.Exists(keyArg(args), nil, func(errObj, meta, key map[string]any) {
		w.done(errObj, map[string]any{"key": key, "meta": meta})
	})
	return w.wait(f)
}
