package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/imtihanhq/imtihanctl/internal/notify"
	"github.com/imtihanhq/imtihanctl/internal/observability"
	"github.com/imtihanhq/imtihanctl/internal/watch"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
)

func resultsCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "results",
		Usage: "view exam results",
		Commands: []*cli.Command{
			resultsListCommand(version),
			resultsWatchCommand(version),
		},
	}
}

func resultsListCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list your results",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20},
			&cli.StringFlag{Name: "cursor", Usage: "page cursor from a previous call"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := newRuntime(cmd, version)

			if err != nil {
				return renderError(err)
			}

			reqCtx, cancel := rt.requestContext(ctx)
			defer cancel()

			results, next, err := rt.services.Users.Results(reqCtx, int(cmd.Int("limit")), cmd.String("cursor"))

			if err != nil {
				return renderError(err)
			}

			if rt.jsonOut {
				return rt.printJSON(map[string]any{"results": results, "nextCursor": next})
			}

			rows := make([][]string, 0, len(results))

			for _, r := range results {
				verdict := "failed"
				if r.Passed {
					verdict = "passed"
				}

				rows = append(rows, []string{
					r.ExamTitle,
					strconv.Itoa(r.Score) + "/" + strconv.Itoa(r.TotalPoints),
					fmt.Sprintf("%.1f%%", r.Percent),
					verdict,
					r.SubmittedAt.Local().Format(time.DateTime),
				})
			}

			rt.table([]string{"EXAM", "SCORE", "PERCENT", "VERDICT", "SUBMITTED"}, rows)

			if next != "" {
				fmt.Println("\nnext page: --cursor " + next)
			}

			return nil
		},
	}
}

func resultsWatchCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "poll for new results and announce each one once",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "interval", Value: 30 * time.Second},
			&cli.IntFlag{Name: "limit", Value: 50},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := newRuntime(cmd, version)

			if err != nil {
				return renderError(err)
			}

			log := observability.NewLogger(rt.cfg.Env)

			runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if rt.cfg.OTLPEndpoint != "" {
				shutdown, traceErr := observability.InitTracer(runCtx, "imtihanctl", rt.cfg.OTLPEndpoint)

				if traceErr != nil {
					log.Warn("tracer init failed, continuing without traces", "err", traceErr)
				} else {
					defer func() {
						shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
						defer cancel()

						if err := shutdown(shutdownCtx); err != nil {
							log.Warn("tracer shutdown failed", "err", err)
						}
					}()
				}
			}

			var metricsSrv *http.Server

			if rt.cfg.MetricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))

				metricsSrv = &http.Server{
					Addr:              rt.cfg.MetricsAddr,
					Handler:           mux,
					ReadHeaderTimeout: 5 * time.Second,
				}

				go func() {
					log.Info("metrics server starting", "addr", rt.cfg.MetricsAddr)
					err := metricsSrv.ListenAndServe()

					if err != nil && err != http.ErrServerClosed {
						log.Error("metrics server failed", "err", err)
					}
				}()
			}

			metrics := observability.NewWatchMetrics()

			notifier := notify.NewProtectedNotifier(
				notify.NewLogNotifier(log),
				notify.ProtectedNotifierConfig{},
			)

			w := watch.New(watch.Config{
				Interval: cmd.Duration("interval"),
				Limit:    int(cmd.Int("limit")),
			}, rt.services.Users, notifier, rt.store, metrics, log)

			log.Info("results watch starting", "interval", cmd.Duration("interval").String())

			runErr := w.Run(runCtx)

			if metricsSrv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
					log.Error("metrics server shutdown failed", "err", err)
				}
			}

			snap := metrics.Snapshot()
			log.Info("watch stopped",
				"polls", snap.Polls,
				"new_results", snap.NewResults,
				"notified", snap.Notified,
				"failures", snap.Failures,
				"avg_poll", snap.AverageDuration.String(),
			)

			if runErr != nil {
				return renderError(runErr)
			}

			return nil
		},
	}
}
