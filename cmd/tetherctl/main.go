// tetherctl talks to a tether server from the command line: it shows the
// pass allowance and history, uses passes, changes the monthly quota and
// checks whether the paired phone is near.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/tether-home/tether/pkg/client"
)

// usageError is a command line mistake; it exits with status 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }
func (e usageError) ExitCode() int { return 2 }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

type globalFlags struct {
	url     string
	apiKey  string
	timeout time.Duration
	json    bool
	verbose bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var g globalFlags
	flagSet := pflag.NewFlagSet("tetherctl", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&g.url, "url", envOr("TETHER_URL", "http://localhost:8080"), "tether server address ($TETHER_URL)")
	flagSet.StringVar(&g.apiKey, "api-key", os.Getenv("TETHER_API_KEY"), "API key ($TETHER_API_KEY)")
	flagSet.DurationVar(&g.timeout, "timeout", 15*time.Second, "request timeout")
	flagSet.BoolVar(&g.json, "json", false, "print raw JSON results")
	flagSet.BoolVarP(&g.verbose, "verbose", "v", false, "log requests to stderr")
	flagSet.Usage = func() { printHelp(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return usageError{msg: err.Error()}
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(stderr, flagSet)
		return usagef("missing command")
	}

	opts := []client.Option{
		client.WithBaseURL(g.url),
		client.WithAPIKey(g.apiKey),
		client.WithTimeout(g.timeout),
	}
	if g.verbose {
		opts = append(opts, client.WithLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	}
	c, err := client.New(opts...)
	if err != nil {
		return err
	}

	out := printer{w: stdout, json: g.json}
	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "status":
		return runStatus(ctx, c, out, cmdArgs)
	case "history":
		return runHistory(ctx, c, out, cmdArgs)
	case "use":
		return runUse(ctx, c, out, cmdArgs)
	case "quota":
		return runQuota(ctx, c, out, cmdArgs)
	case "proximity":
		return runProximity(ctx, c, out, cmdArgs)
	case "health":
		return runHealth(ctx, c, out, cmdArgs)
	default:
		return usagef("unknown command %q", cmd)
	}
}

func runStatus(ctx context.Context, c *client.Client, out printer, args []string) error {
	if len(args) > 0 {
		return usagef("status takes no arguments")
	}
	p, err := c.Passes(ctx)
	if err != nil {
		return err
	}
	return out.print(p, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %d of %d passes left\n", p.Month, p.Remaining, p.TotalPerMonth)
		if p.PendingPerMonth != nil {
			fmt.Fprintf(w, "next month: %d passes\n", *p.PendingPerMonth)
		}
		fmt.Fprintf(w, "resets %s (%s)\n", p.ResetsAt.Format(time.RFC3339), p.Timezone)
	})
}

func runHistory(ctx context.Context, c *client.Client, out printer, args []string) error {
	flagSet := pflag.NewFlagSet("history", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	month := flagSet.String("month", "", "month as YYYY-MM (default: current month)")
	if err := flagSet.Parse(args); err != nil {
		return usagef("history: %v", err)
	}

	h, err := c.History(ctx, *month)
	if err != nil {
		return err
	}
	return out.print(h, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %d of %d passes used\n", h.Month, h.TotalUsed, h.TotalPerMonth)
		for _, e := range h.Entries {
			fmt.Fprintf(w, "  %s  %s\n", e.UsedAt.Format(time.RFC3339), e.Reason)
		}
	})
}

func runUse(ctx context.Context, c *client.Client, out printer, args []string) error {
	reason := strings.TrimSpace(strings.Join(args, " "))
	if reason == "" {
		return usagef("use: a reason is required, e.g. tetherctl use \"early flight\"")
	}

	u, err := c.UsePass(ctx, reason)
	if errors.Is(err, client.ErrNoPassesRemaining) {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			if resets, ok := apiErr.ResetsAt(); ok {
				return fmt.Errorf("no passes left this month; they reset %s", resets.Format(time.RFC3339))
			}
		}
		return errors.New("no passes left this month")
	}
	if err != nil {
		return err
	}
	return out.print(u, func(w io.Writer) {
		fmt.Fprintf(w, "pass used (%d left): %s\n", u.Remaining, u.Reason)
	})
}

func runQuota(ctx context.Context, c *client.Client, out printer, args []string) error {
	if len(args) != 1 {
		return usagef("quota: expected exactly one number, e.g. tetherctl quota 4")
	}
	n, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return usagef("quota: %q is not a number", args[0])
	}

	q, err := c.SetQuota(ctx, uint32(n))
	if err != nil {
		return err
	}
	return out.print(q, func(w io.Writer) {
		fmt.Fprintf(w, "%d passes per month: %s\n", q.PerMonth, q.Message)
	})
}

func runProximity(ctx context.Context, c *client.Client, out printer, args []string) error {
	if len(args) > 0 {
		return usagef("proximity takes no arguments")
	}
	p, err := c.Proximity(ctx)
	if err != nil {
		return err
	}
	return out.print(p, func(w io.Writer) {
		where := "away"
		if p.IsNearby {
			where = "nearby"
		}
		reading := "not seen"
		if p.RSSI != nil {
			reading = fmt.Sprintf("%d dBm", *p.RSSI)
		}
		fmt.Fprintf(w, "%s (%s) is %s: %s, threshold %d dBm\n",
			p.DeviceName, p.DeviceAddress, where, reading, p.Threshold)
	})
}

func runHealth(ctx context.Context, c *client.Client, out printer, args []string) error {
	if len(args) > 0 {
		return usagef("health takes no arguments")
	}
	h, err := c.Health(ctx)
	if err != nil {
		return err
	}
	return out.print(h, func(w io.Writer) {
		fmt.Fprintf(w, "%s (version %s)\n", h.Status, h.Version)
		for _, name := range []string{"storage", "ledger", "bluetooth"} {
			if v, ok := h.Checks[name]; ok {
				fmt.Fprintf(w, "  %-10s %s\n", name, v)
			}
		}
	})
}

// printer writes either raw JSON or a human summary.
type printer struct {
	w    io.Writer
	json bool
}

func (p printer) print(v any, human func(io.Writer)) error {
	if !p.json {
		human(p.w)
		return nil
	}
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `tetherctl controls a tether server.

Usage:
  tetherctl [flags] <command> [args]

Commands:
  status              show this month's passes
  history [--month]   list used passes (default: current month)
  use <reason>        use one pass
  quota <n>           set passes per month (0-31)
  proximity           check whether the phone is near
  health              show server health

Flags:
%s`, flagSet.FlagUsages())
}
