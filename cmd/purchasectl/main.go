package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/purchasedesk/cmd/purchasectl/cli"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "purchasectl",
		Short:         "Operator tooling for the purchase desk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newJobsCmd(), newKeymapCmd(), newQuoteCmd())
	return root
}

func newJobsCmd() *cobra.Command {
	redisAddr := envOr("REDIS_ADDR", "127.0.0.1:6379")
	cmd := &cobra.Command{Use: "jobs", Short: "Inspect and trigger background jobs"}
	cmd.PersistentFlags().StringVar(&redisAddr, "redis", redisAddr, "Redis address")

	cmd.AddCommand(&cobra.Command{
		Use:   "trigger <job>",
		Short: "Enqueue a job (catalog:warmup)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobsCLI := cli.NewJobsCLI(redisAddr)
			defer func() { _ = jobsCLI.Close() }()
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			info, err := jobsCLI.Trigger(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s on %s\n", info.Type, info.ID, info.Queue)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print default queue statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobsCLI := cli.NewJobsCLI(redisAddr)
			defer func() { _ = jobsCLI.Close() }()
			stats, err := jobsCLI.InspectQueue()
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(stats)
		},
	})
	return cmd
}

func newKeymapCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "keymap", Short: "Work with keyboard shortcut files"}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [file]",
		Short: "Validate a keymap file and print the effective bindings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := cli.KeymapOptions{Stdout: cmd.OutOrStdout(), Stderr: cmd.ErrOrStderr()}
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				opts.Input = f
			}
			return exitCode(cli.KeymapCheckCommand(opts))
		},
	})
	return cmd
}

func newQuoteCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "quote <lines.yaml|->",
		Short: "Price a YAML line file with GST and rounding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				input = f
			}
			return exitCode(cli.QuoteCommand(cli.QuoteOptions{
				Input:      input,
				JSONOutput: jsonOutput,
				Stdout:     cmd.OutOrStdout(),
				Stderr:     cmd.ErrOrStderr(),
			}))
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table")
	return cmd
}

func exitCode(code int) error {
	if code != 0 {
		return fmt.Errorf("exit status %d", code)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
