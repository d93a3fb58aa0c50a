package cli

import (
	"github.com/spf13/cobra"
)

// PutOptions holds flags for the put command.
type PutOptions struct {
	*RootOptions
	Bins   string
	TTL    int64
	Policy string
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put <namespace> <set> <key>",
		Short: "Write a record's bins",
		Long: `Write bins to a record. Bins not named keep their stored values;
a null bin value deletes that bin.

Example:
  hive put test users alice --bins '{"name":"Alice","visits":1}' --ttl 3600
  hive put test users alice --bins '{"email":null}'`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Bins, "bins", "", "bins to write as a JSON object")
	cmd.Flags().Int64Var(&opts.TTL, "ttl", -1, "record TTL in seconds (-1 keeps the stored expiry)")
	cmd.Flags().StringVar(&opts.Policy, "policy", "", "write policy as a JSON object")
	_ = cmd.MarkFlagRequired("bins")

	return cmd
}

func runPut(opts *PutOptions, args []string, cmd *cobra.Command) error {
	bins, err := parseJSONMap("bins", opts.Bins)
	if err != nil {
		return WrapExitError(ExitCommandError, "parse bins", err)
	}
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
	meta := map[string]any{"ttl": opts.TTL}
	client.Put(keyArg(args), bins, meta, policy, func(errObj, key map[string]any) {
		w.done(errObj, map[string]any{"key": key})
	})
	return w.wait(f)
}
