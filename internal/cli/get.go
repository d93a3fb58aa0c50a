package cli

import (
	"github.com/spf13/cobra"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	Bins []string
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <namespace> <set> <key>",
		Short: "Read a record",
		Long: `Read a record and print its bins and metadata.

Example:
  hive get test users alice
  hive get test users alice --bins name,email`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, args, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Bins, "bins", nil, "read only the named bins")

	return cmd
}

func runGet(opts *GetOptions, args []string, cmd *cobra.Command) error {
	client, err := openClient(opts.RootOptions)
	if err != nil {
		return err
	}
	defer client.Close()

	f := formatter(opts.RootOptions, cmd)
	w := newWaiter()
	cb := func(errObj, bins, meta, key map[string]any) {
		w.done(errObj, map[string]any{"key": key, "bins": bins, "meta": meta})
	}

	if len(opts.Bins) > 0 {
		client.Select(keyArg(args), opts.Bins, nil, cb)
	} else {
		client.Get(keyArg(args), nil, cb)
	}
	return w.wait(f)
}
