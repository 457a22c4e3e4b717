// receipt prints the receipt of one order and, with -watch, keeps reprinting it as the
// poller resolves.
//
// Usage:
//
//	receipt -order ORD-123 -flow event
//	receipt -order ORD-123 -flow event -watch -interval 3s
//	receipt -order ORD-123 -flow tournament -until-terminal
//
// -watch only affects flows that poll; circle and tournament read once. -until-terminal
// polls any flow until its status is final.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"ReceiptPoll/internal/apperr"
	"ReceiptPoll/internal/catalog"
	"ReceiptPoll/internal/config"
	"ReceiptPoll/internal/flow"
	"ReceiptPoll/internal/logger"
	"ReceiptPoll/internal/poller"
	"ReceiptPoll/internal/receipt"
	"ReceiptPoll/internal/upstream"
)

func main() {
	var (
		orderID    = flag.String("order", "", "order id to resolve")
		flowName   = flag.String("flow", flow.Event, fmt.Sprintf("flow profile %v", flow.Names()))
		watch      = flag.Bool("watch", false, "keep polling and reprint on every result")
		untilFinal = flag.Bool("until-terminal", false, "poll until the status is final, then exit")
		interval   = flag.Duration("interval", 0, "poll interval override for -watch")
		configPath = flag.String("config", "", "config file (defaults to CONFIG_PATH or configs/config.yaml)")
		noColor    = flag.Bool("no-color", false, "disable colored output")
	)
	flag.Parse()

	if *orderID == "" {
		fmt.Fprintln(os.Stderr, "error: -order is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*configPath, *orderID, *flowName, *watch, *untilFinal, *interval, !*noColor); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
		os.Exit(1)
	}
}

func run(configPath, orderID, flowName string, watch, untilTerminal bool, interval time.Duration, colored bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	lg, err := logger.New(cfg.Log.Env)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = lg.Sync() }()

	profile, err := flow.Lookup(flowName)
	if err != nil {
		return err
	}
	if interval <= 0 {
		interval = cfg.PollInterval()
	}
	profile, polling := pollMode(profile.WithInterval(interval), watch, untilTerminal)

	api, err := upstream.NewMultiClient(cfg.Upstream.Endpoints, cfg.Upstream.FailoverThreshold, cfg.UpstreamTimeout())
	if err != nil {
		return err
	}
	svc := receipt.NewService(api, catalog.New(api, nil, 0, lg), apperr.NewLogSink(lg), lg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !polling {
		rec, err := svc.Resolve(ctx, orderID, profile)
		if err != nil {
			return err
		}
		fmt.Print(receipt.Text(rec, colored))
		return nil
	}

	sess, err := svc.Open(ctx, orderID, profile, receipt.Options{})
	if err != nil {
		return err
	}
	defer sess.Close()

	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	lg.Debug("watching receipt", zap.String("session_id", sess.ID), zap.String("mode", profile.Mode.String()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sess.Done():
			return nil
		case rec, ok := <-updates:
			if !ok {
				return nil
			}
			fmt.Print(receipt.Text(rec, colored))
			if snap := sess.Snapshot(); snap.Err != nil && !errors.Is(snap.Err, context.Canceled) {
				fmt.Fprintf(os.Stderr, "%s last fetch failed: %v\n", color.YellowString("warning:"), snap.Err)
			}
			if finished(profile.Mode, rec) {
				return nil
			}
		}
	}
}

// pollMode reports whether the CLI keeps a session open. Single-shot profiles are read
// once even with -watch.
func pollMode(p flow.Profile, watch, untilTerminal bool) (flow.Profile, bool) {
	if untilTerminal {
		p.Mode = poller.UntilTerminal
		return p, true
	}
	if !watch || p.Mode == poller.SingleShot {
		return p, false
	}
	return p, true
}

func finished(mode poller.Mode, rec *receipt.Receipt) bool {
	return mode == poller.UntilTerminal && rec.Terminal
}
