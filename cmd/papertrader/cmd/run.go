package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rustyeddy/papertrader/ai"
	"github.com/rustyeddy/papertrader/autotrade"
	"github.com/rustyeddy/papertrader/coinex"
	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/feed"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/metrics"
	"github.com/rustyeddy/papertrader/paper"
	"github.com/rustyeddy/papertrader/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the paper engine against the live feed",
	Long: `Start the paper engine, the CoinEx ticker feed and, when enabled,
the auto trading loop. Metrics and the telemetry websocket are served on the
configured addresses.

Examples:
  papertrader run
  papertrader run -c papertrader.yaml --autotrade`,
	RunE: runRun,
}

var runAutoTrade bool

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runAutoTrade, "autotrade", false, "enable auto trading regardless of config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runAutoTrade {
		cfg.AutoTrade.Enabled = true
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, log)
}

// serve wires every component and blocks until ctx is canceled or one of
// them fails.
func serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	j, err := cfg.Journal.Open()
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	every, err := cfg.AutoTrade.Every()
	if err != nil {
		return fmt.Errorf("autotrade interval: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	exchange := coinex.NewClient(cfg.Exchange.BaseURL, cfg.Exchange.TimeoutDuration(), log)
	tickSizes := market.NewTickSizeCache(exchange, log)

	engine := paper.New(cfg.Engine(),
		paper.WithLogger(log),
		paper.WithJournal(j),
		paper.WithMetrics(m),
		paper.WithTickSizes(tickSizes),
	)

	log.Info("papertrader starting",
		"market", cfg.Account.Market,
		"balance", cfg.Account.InitialBalance,
		"autotrade", cfg.AutoTrade.Enabled,
		"journal", cfg.Journal.Type)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return engine.Run(gctx) })

	g.Go(func() error {
		if cfg.Feed.ReplayFile != "" {
			return replayFile(gctx, cfg.Feed.ReplayFile, cfg.Account.Market, engine, log)
		}
		return feed.NewWS(cfg.Feed.URL, cfg.Account.Market, log).Run(gctx, engine)
	})

	if cfg.AutoTrade.Enabled {
		runner := &autotrade.Runner{
			Pipeline: &autotrade.Pipeline{
				Market:    cfg.Account.Market,
				Interval:  cfg.AutoTrade.CandleInterval,
				Limit:     cfg.AutoTrade.CandleLimit,
				Candles:   exchange,
				TickSizes: tickSizes,
				AI:        ai.NewClient(cfg.AutoTrade.AIURL, cfg.AutoTrade.AIKey, cfg.AutoTrade.AIModel, cfg.AutoTrade.Timeout(), log),
				Engine:    engine,
				Log:       log,
			},
			Every: every,
			Log:   log,
			OnDecision: func(rec paper.DecisionRecord, err error) {
				if err != nil {
					log.Warn("decision cycle failed", "err", err)
					return
				}
				log.Info("decision",
					"signal", rec.Response.Decision,
					"confidence", rec.Response.Confidence,
					"executed", rec.Executed,
					"order_id", rec.OrderID,
					"reason", rec.Reason)
			},
		}
		g.Go(func() error { return runner.Run(gctx) })
	}

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		g.Go(func() error { return listen(gctx, cfg.Metrics.Addr, mux, log) })
	}

	if cfg.Telemetry.Addr != "" {
		hub := telemetry.NewHub(log, cfg.Telemetry.AllowedOrigins...)
		snaps, unsubscribe := engine.Subscribe()
		g.Go(func() error {
			defer unsubscribe()
			defer hub.Close()
			return hub.Pump(gctx, snaps)
		})
		g.Go(func() error {
			return listen(gctx, cfg.Telemetry.Addr, telemetry.Handler(hub, engine.Snapshot), log)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	b := engine.GetAccountBalance()
	log.Info("papertrader stopped", "cash", b.Cash, "total", b.Total, "open", len(engine.GetOpenOrders("")))
	return err
}

// listen serves h on addr until ctx is done.
func listen(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("http listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", addr, err)
	}
	return nil
}

// replayFile feeds a recorded tick file through the engine and then waits
// for ctx so the servers stay up for inspection.
func replayFile(ctx context.Context, path, mkt string, engine *paper.Engine, log *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open replay file: %w", err)
	}
	defer f.Close()

	n, err := feed.ReplayCSV(ctx, f, mkt, skipInvalidTicks(engine.UpdatePrice, log))
	if err != nil {
		return fmt.Errorf("replay %s: %w", path, err)
	}
	log.Info("replay complete", "ticks", n, "file", path)
	<-ctx.Done()
	return nil
}
