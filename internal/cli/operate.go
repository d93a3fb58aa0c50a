package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// OperateOptions holds flags for the operate command.
type OperateOptions struct {
	*RootOptions
	Ops    string
	TTL    int64
	Policy string
}

// NewOperateCommand creates the operate command.
func NewOperateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OperateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "operate <namespace> <set> <key>",
		Short: "Apply sub-operations to one record atomically",
		Long: `Apply an ordered list of sub-operations to one record. Supported
kinds: read, write, incr, append, prepend, touch. Read results are
printed; any write bumps the generation once.

Example:
  hive operate test users alice --ops '[{"op":"incr","bin":"visits","value":1},{"op":"read","bin":"visits"}]'`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ops, "ops", "", "sub-operations as a JSON array")
	cmd.Flags().Int64Var(&opts.TTL, "ttl", -1, "record TTL in seconds (-1 keeps the stored expiry)")
	cmd.Flags().StringVar(&opts.Policy, "policy", "", "operate policy as a JSON object")
	_ = cmd.MarkFlagRequired("ops")

	return cmd
}

func runOperate(opts *OperateOptions, args []string, cmd *cobra.Command) error {
	var ops []any
	if err := json.Unmarshal([]byte(opts.Ops), &ops); err != nil {
		return WrapExitError(ExitCommandError, "parse ops", fmt.Errorf("invalid --ops JSON: %w", err))
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
	client.Operate(keyArg(args), ops, meta, policy, func(errObj, bins, meta, key map[string]any) {
		w.done(errObj, map[string]any{"key": key, "bins": bins, "meta": meta})
	})
	return w.wait(f)
}
