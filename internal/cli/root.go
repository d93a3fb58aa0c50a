// Package cli implements the hive command line tool on top of the
// client library. Commands issue one async operation, wait for its
// callback, and render the dynamic result in text or JSON.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hivekv/hive"
	"github.com/hivekv/hive/internal/config"
)

// RootOptions holds global flags shared by every subcommand.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // config file path, optional
	DB      string // backend path override
	Backend string // backend kind override
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the hive CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "hive",
		Short: "hive - embedded record store client",
		Long:  "Client for the hive record store: namespaced records with typed bins, TTLs, and generation checks.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "backend path (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "backend kind: sqlite, bolt, leveldb (overrides config)")

	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewExistsCommand(opts))
	cmd.AddCommand(NewOperateCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openClient builds a client from the config file plus flag overrides.
func openClient(opts *RootOptions) (*hive.Client, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		if cfg, err = config.Load(opts.Config); err != nil {
			return nil, WrapExitError(ExitCommandError, "load config", err)
		}
	}
	if opts.DB != "" {
		cfg.Backend.Path = opts.DB
	}
	if opts.Backend != "" {
		cfg.Backend.Kind = opts.Backend
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}

	client, err := hive.Connect(cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "connect", err)
	}
	return client, nil
}

// formatter builds the output formatter for one command invocation.
func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// keyArg builds the dynamic key from the first three positional args.
func keyArg(args []string) map[string]any {
	return map[string]any{"ns": args[0], "set": args[1], "key": args[2]}
}

// parseJSONMap parses a JSON object flag value. Empty input yields nil.
func parseJSONMap(flag, raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("invalid --%s JSON: %w", flag, err)
	}
	return m, nil
}
