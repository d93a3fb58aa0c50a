package cli

import (
	"github.com/spf13/cobra"

	"github.com/hivekv/hive"
)

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <namespace> <set> <key>...",
		Short: "Read several records from one set",
		Long: `Read several records in one call. Results are printed per key in
the order given; missing records show their error instead of bins.

Example:
  hive batch test users alice bob carol`,
		Args:          cobra.MinimumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runBatch(opts *RootOptions, args []string, cmd *cobra.Command) error {
	client, err := openClient(opts)
	if err != nil {
		return err
	}
	defer client.Close()

	ns, set := args[0], args[1]
	keys := make([]any, 0, len(args)-2)
	for _, id := range args[2:] {
		keys = append(keys, map[string]any{"ns": ns, "set": set, "key": id})
	}

	f := formatter(opts, cmd)
	w := newWaiter()
	client.BatchGet(keys, nil, func(errObj map[string]any, results []hive.BatchRecord) {
		out := make([]map[string]any, len(results))
		for i, res := range results {
			out[i] = map[string]any{
				"key":   res.Key,
				"error": res.Err,
				"bins":  res.Bins,
				"meta":  res.Meta,
			}
		}
		w.done(errObj, out)
	})
	return w.wait(f)
}
