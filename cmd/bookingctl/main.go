// Command bookingctl inspects and maintains the booking ledger selected
// by the usual environment configuration.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/ariefcatur/go-metro-booking/internal/app"
	"github.com/ariefcatur/go-metro-booking/internal/booking"
	"github.com/ariefcatur/go-metro-booking/internal/config"
)

const usage = `bookingctl manages the booking ledger.

Usage:
  bookingctl get <ref> [--json]
  bookingctl purge [--older-than 168h]
`

// errReported means the user has already been told what went wrong.
var errReported = errors.New("reported")

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "bookingctl:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errReported
	}

	var (
		asJSON    bool
		olderThan time.Duration
	)
	flagSet := pflag.NewFlagSet("bookingctl "+args[0], pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	switch args[0] {
	case "get":
		flagSet.BoolVar(&asJSON, "json", false, "print the booking as JSON")
	case "purge":
		flagSet.DurationVar(&olderThan, "older-than", booking.DefaultRetention, "delete bookings created before now minus this age")
	default:
		fmt.Fprint(os.Stderr, usage)
		return errReported
	}
	if err := flagSet.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprint(out, usage)
			return nil
		}
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.LogLevel = "error"
	f := app.NewFactory(cfg, app.NewLogger(cfg, os.Stderr))
	defer f.Close()

	ledger, err := f.Ledger(ctx)
	if err != nil {
		return err
	}

	switch args[0] {
	case "get":
		if flagSet.NArg() != 1 {
			return fmt.Errorf("get takes exactly one ref")
		}
		svc := &booking.Service{Ledger: ledger}
		res, err := svc.Lookup(ctx, flagSet.Arg(0))
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		fmt.Fprintln(out, res.Message)
		if !res.Found {
			return errReported
		}
		return nil
	default:
		if olderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}
		n, err := (&booking.Janitor{Ledger: ledger, Retention: olderThan}).Sweep(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "purged %d booking(s) older than %s\n", n, olderThan)
		return nil
	}
}
