package cli

import (
	"context"
	"time"

	"github.com/imtihanhq/imtihanctl/internal/api"
	"github.com/imtihanhq/imtihanctl/internal/attempt"
	"github.com/imtihanhq/imtihanctl/internal/cache"
	"github.com/imtihanhq/imtihanctl/internal/client"
	"github.com/imtihanhq/imtihanctl/internal/config"
	"github.com/imtihanhq/imtihanctl/internal/observability"
	"github.com/imtihanhq/imtihanctl/internal/session"
	"github.com/imtihanhq/imtihanctl/internal/state"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

// New builds the root command. Version and build time are stamped in
// via ldflags from cmd/imtihanctl.
func New(version, buildTime string) *cli.Command {
	return &cli.Command{
		Name:    "imtihanctl",
		Usage:   "terminal client for the Imtihan exam platform",
		Version: version + " (built " + buildTime + ")",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print raw JSON instead of tables",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "backend base URL (overrides API_BASE_URL)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "per-request HTTP timeout",
			},
		},
		Commands: []*cli.Command{
			loginCommand(version),
			registerCommand(version),
			logoutCommand(version),
			whoamiCommand(version),
			refreshCommand(version),
			pingCommand(version),
			sectionsCommand(version),
			examsCommand(version),
			resultsCommand(version),
			adminCommand(version),
		},
	}
}

// runtime wires the whole client stack once per invocation.
type runtime struct {
	cfg      config.Config
	registry *prometheus.Registry
	services *api.Services
	sess     *session.Session
	store    state.Store
	attempts *attempt.FileStore
	jsonOut  bool
}

func newRuntime(cmd *cli.Command, version string) (*runtime, error) {
	cfg := config.Load()

	if v := cmd.String("base-url"); v != "" {
		cfg.BaseURL = v
	}
	if v := cmd.Duration("timeout"); v > 0 {
		cfg.HTTPTimeout = v
	}

	log := observability.NewLogger(cfg.Env)
	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	store, err := state.NewFileStore(cfg.StateDir)

	if err != nil {
		return nil, err
	}

	sess := session.New(store, log)

	c := client.New(sess, store, prom, log, client.Options{
		BaseURL:      cfg.BaseURL,
		Timeout:      cfg.HTTPTimeout,
		RateLimitRPS: cfg.RateLimitRPS,
		Version:      version,
	})

	qc := cache.New(cfg.CacheSize, cfg.CacheTTL, prom, log)

	attempts, err := attempt.NewFileStore(cfg.StateDir)

	if err != nil {
		return nil, err
	}

	return &runtime{
		cfg:      cfg,
		registry: registry,
		services: api.NewServices(c, qc),
		sess:     sess,
		store:    store,
		attempts: attempts,
		jsonOut:  cmd.Bool("json"),
	}, nil
}

// requestContext bounds a single command at a comfortable multiple of
// the per-request timeout, so a CSRF replay still fits.
func (r *runtime) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 3*r.cfg.HTTPTimeout+5*time.Second)
}

func pingCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "check backend reachability",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := newRuntime(cmd, version)

			if err != nil {
				return renderError(err)
			}

			reqCtx, cancel := rt.requestContext(ctx)
			defer cancel()

			if err := rt.services.Health.Ping(reqCtx); err != nil {
				return renderError(err)
			}

			return rt.printMessage("backend is reachable")
		},
	}
}
