package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"ogctester/internal/interrupt"
	"ogctester/internal/observability"
	"ogctester/internal/pattern"
	"ogctester/internal/registry"
	"ogctester/internal/report"
	"ogctester/internal/runner"
	"ogctester/pkg/webhook"
)

type runOptions struct {
	all             bool
	timeout         time.Duration
	continueOnError bool
	parallel        int
	reportFile      string
	noCleanup       bool
	webhookURL      string
	webhookSecret   string
}

func newRunCmd(g *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [pattern-ids...]",
		Short: "Deploy, execute and monitor patterns, cleaning up afterwards",
		Long: `Run executes the full lifecycle of each pattern: deploy the workflow,
start an asynchronous execution with the pattern's default parameters, poll
the job until it finishes or the timeout expires, then dismiss the job and
undeploy the process. Cleanup runs on every exit path, including timeout
and Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatterns(cmd, g, opts, args)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.all, "all", false, "run every pattern in the patterns directory")
	f.DurationVar(&opts.timeout, "timeout", 30*time.Minute, "per-pattern monitoring timeout (0 disables)")
	f.BoolVar(&opts.continueOnError, "continue-on-error", false, "keep running remaining patterns after a failure")
	f.IntVar(&opts.parallel, "parallel", 1, "number of patterns to run concurrently")
	f.StringVar(&opts.reportFile, "report", "", "write a JSON or YAML report to this file")
	f.BoolVar(&opts.noCleanup, "no-cleanup", false, "leave processes and jobs on the server for debugging")
	f.StringVar(&opts.webhookURL, "webhook-url", "", "POST a completion event to this URL after the batch")
	f.StringVar(&opts.webhookSecret, "webhook-secret", "", "HMAC key for signing the completion event")
	return cmd
}

func runPatterns(cmd *cobra.Command, g *globalOptions, opts *runOptions, args []string) error {
	store, err := g.newStore()
	if err != nil {
		return err
	}
	ids, err := resolvePatternIDs(store, args, opts.all)
	if err != nil {
		return err
	}
	client, err := g.newClient()
	if err != nil {
		return err
	}

	ctx, stop := interrupt.NewContext(cmd.Context())
	defer stop()

	var metrics *observability.Metrics
	if g.metricsPort > 0 {
		m, shutdown, err := startMetricsServer(ctx, g.metricsPort)
		if err != nil {
			return err
		}
		metrics = m
		defer shutdown()
	}

	fetcher := pattern.NewFetcher(store, "", g.forceDownload)
	r := runner.New(store, fetcher, client, registry.New(), metrics, runner.Options{
		SkipCleanup: opts.noCleanup,
	})

	var summary runner.Summary
	if opts.parallel > 1 {
		summary = r.RunParallel(ctx, ids, opts.timeout, opts.parallel)
	} else {
		summary = r.RunMultiple(ctx, ids, opts.timeout, opts.continueOnError)
	}

	report.RenderSummary(cmd.OutOrStdout(), summary)
	if opts.reportFile != "" {
		if err := report.Write(opts.reportFile, summary); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		slog.Info("Report written", "path", opts.reportFile)
	}
	notifyWebhook(ctx, opts, summary)

	if outstanding := r.Registry().Outstanding(); len(outstanding) > 0 && !opts.noCleanup {
		slog.Warn("Resources still registered after batch, run 'ogc-tester cleanup'", "count", len(outstanding))
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d patterns failed", summary.Failed, summary.Total)
	}
	return nil
}

// startMetricsServer exposes /metrics and returns a shutdown function.
func startMetricsServer(ctx context.Context, port int) (*observability.Metrics, func(), error) {
	m, handler, err := observability.NewMetrics(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("init metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Serving metrics", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	return m, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}, nil
}

func notifyWebhook(ctx context.Context, opts *runOptions, summary runner.Summary) {
	if opts.webhookURL == "" {
		return
	}
	event := webhook.NewEvent(summary.RunID, summary.Total, summary.Successful, summary.Failed, summary.Elapsed)
	sender := webhook.NewSender(10 * time.Second)
	err := sender.Send(context.WithoutCancel(ctx), opts.webhookURL, event, webhook.SendOptions{
		SigningKey: opts.webhookSecret,
	})
	if err != nil {
		slog.Error("Webhook notification failed", "url", opts.webhookURL, "error", err)
		return
	}
	slog.Info("Webhook notification sent", "url", opts.webhookURL)
}
