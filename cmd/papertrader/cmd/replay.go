package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/feed"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/paper"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <ticks.csv>",
	Short: "Replay recorded ticks through the paper engine",
	Long: `Run a CSV of time,market,price rows through a fresh paper engine and
print the resulting orders and balance. An order can be placed at the first
tick with --side and --amount.

Examples:
  papertrader replay ticks.csv
  papertrader replay ticks.csv --side buy --amount 0.1 --tp 70000 --sl 65000`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

type replayOptions struct {
	Market  string
	Balance float64
	Order   *paper.OrderParams
}

var (
	replayMarket  string
	replayBalance float64
	replaySide    string
	replayAmount  float64
	replayTP      float64
	replaySL      float64
)

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayMarket, "market", "", "default market for rows without one (config market when empty)")
	replayCmd.Flags().Float64Var(&replayBalance, "balance", 0, "initial balance (config balance when zero)")
	replayCmd.Flags().StringVar(&replaySide, "side", "", "place an order at the first tick: buy or sell")
	replayCmd.Flags().Float64Var(&replayAmount, "amount", 0, "order amount in base units")
	replayCmd.Flags().Float64Var(&replayTP, "tp", 0, "take profit price")
	replayCmd.Flags().Float64Var(&replaySL, "sl", 0, "stop loss price")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := replayOptions{Market: replayMarket, Balance: replayBalance}
	if replaySide != "" {
		side, err := market.ParseSide(replaySide)
		if err != nil {
			return err
		}
		opts.Order = &paper.OrderParams{
			Side:       side,
			Amount:     replayAmount,
			TakeProfit: replayTP,
			StopLoss:   replaySL,
		}
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open ticks: %w", err)
	}
	defer f.Close()

	return replay(cmd.Context(), cfg, f, opts, cmd.OutOrStdout(), newLogger(cfg))
}

// replay runs r through a private engine and writes a report to out.
func replay(ctx context.Context, cfg *config.Config, r io.Reader, opts replayOptions, out io.Writer, log *slog.Logger) error {
	ecfg := cfg.Engine()
	ecfg.AutoTrading = false
	if opts.Market != "" {
		ecfg.Market = opts.Market
	}
	if opts.Balance > 0 {
		ecfg.InitialBalance = opts.Balance
	}

	j, err := cfg.Journal.Open()
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	engine := paper.New(ecfg, paper.WithLogger(log), paper.WithJournal(j))

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		<-engine.Done()
	}()
	go func() { _ = engine.Run(ctx) }()

	update := skipInvalidTicks(engine.UpdatePrice, log)
	pending := opts.Order
	apply := func(ctx context.Context, t market.Tick) error {
		if err := update(ctx, t); err != nil {
			return err
		}
		if pending == nil {
			return nil
		}
		if _, err := engine.LatestPrice(t.Market); err != nil {
			// no valid price yet, keep the order for the next tick
			return nil
		}
		p := *pending
		pending = nil
		if p.Market == "" {
			p.Market = t.Market
		}
		o, err := engine.PlaceMarketOrder(ctx, p)
		if err != nil {
			return fmt.Errorf("place order: %w", err)
		}
		log.Info("order placed", "id", o.ID, "side", o.Side, "entry", o.EntryPrice)
		return nil
	}

	n, err := feed.ReplayCSV(ctx, r, ecfg.Market, apply)
	if err != nil {
		return err
	}

	writeReport(out, n, engine.Snapshot())
	return nil
}

// skipInvalidTicks logs and drops ticks the engine refuses as invalid so one
// bad row does not end a replay.
func skipInvalidTicks(apply feed.Apply, log *slog.Logger) feed.Apply {
	return func(ctx context.Context, t market.Tick) error {
		err := apply(ctx, t)
		if errors.Is(err, paper.ErrInvalidTick) {
			log.Warn("tick skipped", "market", t.Market, "price", t.Price, "time", t.Time, "err", err)
			return nil
		}
		return err
	}
}

func writeReport(out io.Writer, ticks int, s paper.Snapshot) {
	fmt.Fprintf(out, "Replayed %d ticks\n\n", ticks)

	if len(s.History) > 0 {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSIDE\tAMOUNT\tENTRY\tCLOSE\tSTATUS\tREASON\tPNL")
		for _, o := range s.History {
			fmt.Fprintf(tw, "%s\t%s\t%.6f\t%.4f\t%.4f\t%s\t%s\t%.4f\n",
				o.ID, o.Side, o.Amount, o.EntryPrice, o.ClosePrice, o.Status, o.CloseReason, o.PnL)
		}
		tw.Flush()
		fmt.Fprintln(out)
	}

	b := s.Balance
	fmt.Fprintf(out, "Cash:       %.4f\n", b.Cash)
	fmt.Fprintf(out, "Available:  %.4f\n", b.Available)
	fmt.Fprintf(out, "Unrealized: %.4f\n", b.Unrealized)
	fmt.Fprintf(out, "Total:      %.4f\n", b.Total)
}
