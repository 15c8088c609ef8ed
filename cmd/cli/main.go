package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hamed0406/heartbeat/internal/client"
	"github.com/hamed0406/heartbeat/internal/domain"
	"github.com/hamed0406/heartbeat/internal/notify"
)

var (
	apiBase string
	apiKey  string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "heartbeat",
	Short:        "Manage heartbeat monitors through the HTTP API",
	SilenceUsage: true,
}

func init() {
	defBase := os.Getenv("API_BASE")
	if defBase == "" {
		defBase = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&apiBase, "api", defBase, "API base URL (env API_BASE)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "key", os.Getenv("HEARTBEAT_API_KEY"), "API key (env HEARTBEAT_API_KEY)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "request timeout")

	var interval string
	pingCmd := &cobra.Command{
		Use:   "ping <slug>",
		Short: "Send a heartbeat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval != "" {
				if _, err := domain.ParseInterval(interval); err != nil {
					return err
				}
			}
			slug, err := domain.ParseSlug(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := requestCtx()
			defer cancel()
			res, err := newClient().Ping(ctx, slug.String(), interval)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, next due %s\n", slug, res.Status, res.NextDue.Format(time.RFC3339))
			return nil
		},
	}
	pingCmd.Flags().StringVarP(&interval, "interval", "i", "", "expected interval, e.g. 5m, 1h30m, 2d")

	failCmd := slugCommand("fail", "Mark a monitor as failed right now", func(ctx context.Context, c *client.Client, slug string) (string, error) {
		res, err := c.Fail(ctx, slug)
		if err != nil {
			return "", err
		}
		return string(res.Status), nil
	})
	pauseCmd := slugCommand("pause", "Stop alerting for a monitor", func(ctx context.Context, c *client.Client, slug string) (string, error) {
		return "paused", c.Pause(ctx, slug)
	})
	resumeCmd := slugCommand("resume", "Resume alerting for a monitor", func(ctx context.Context, c *client.Client, slug string) (string, error) {
		return "resumed", c.Resume(ctx, slug)
	})
	deleteCmd := slugCommand("delete", "Delete a monitor", func(ctx context.Context, c *client.Client, slug string) (string, error) {
		return "deleted", c.Delete(ctx, slug)
	})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all monitors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestCtx()
			defer cancel()
			monitors, err := newClient().List(ctx)
			if err != nil {
				return err
			}
			printMonitors(cmd, monitors)
			return nil
		},
	}

	rootCmd.AddCommand(pingCmd, failCmd, pauseCmd, resumeCmd, deleteCmd, listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newClient() *client.Client {
	c := client.New(apiBase, apiKey)
	c.HTTP.Timeout = timeout
	return c
}

func requestCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// slugCommand builds a subcommand that takes one slug argument and prints the
// resulting state.
func slugCommand(use, short string, fn func(context.Context, *client.Client, string) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <slug>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slug, err := domain.ParseSlug(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := requestCtx()
			defer cancel()
			state, err := fn(ctx, newClient(), slug.String())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", slug, state)
			return nil
		},
	}
}

func printMonitors(cmd *cobra.Command, monitors []client.MonitorInfo) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tSTATUS\tINTERVAL\tLAST PING\tNEXT DUE\tALERTS")
	for _, m := range monitors {
		next := "now"
		if m.NextDue > 0 {
			next = m.NextDueTime().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
			m.Slug, m.Status, notify.FormatDuration(m.IntervalSecs),
			time.Unix(m.LastPing, 0).UTC().Format(time.RFC3339), next, m.AlertCountOrZero())
	}
	_ = w.Flush()
}
