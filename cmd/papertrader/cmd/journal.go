package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/papertrader/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query trade journal data",
	Long: `Query and display closed trades from the SQLite journal.

Subcommands:
  trade    - Get details of a specific trade by order ID
  today    - List trades closed today
  day      - List trades closed on a specific day
  summary  - Win/loss summary for a range of days

Examples:
  papertrader journal trade <order-id>
  papertrader journal today
  papertrader journal day 2026-01-15
  papertrader journal summary --from 2026-01-01 --to 2026-01-31`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <order-id>",
	Short: "Get details of a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize trades closed in a range of days",
	Args:  cobra.NoArgs,
	RunE:  runJournalSummary,
}

var (
	journalDBPath string
	summaryFrom   string
	summaryTo     string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalSummaryCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./papertrader.sqlite", "path to SQLite journal DB")
	journalSummaryCmd.Flags().StringVar(&summaryFrom, "from", "", "first day, YYYY-MM-DD (default today)")
	journalSummaryCmd.Flags().StringVar(&summaryTo, "to", "", "last day inclusive, YYYY-MM-DD (default --from)")
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}

	writeTrade(cmd.OutOrStdout(), rec)
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return listDay(cmd.OutOrStdout(), time.Now().In(time.Local).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listDay(cmd.OutOrStdout(), args[0])
}

func listDay(out io.Writer, day string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListTradesClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	writeTrades(out, recs)
	return nil
}

func runJournalSummary(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	from := summaryFrom
	if from == "" {
		from = time.Now().In(time.Local).Format("2006-01-02")
	}
	to := summaryTo
	if to == "" {
		to = from
	}
	start, _, err := dayBounds(time.Local, from)
	if err != nil {
		return fmt.Errorf("from: %w", err)
	}
	_, end, err := dayBounds(time.Local, to)
	if err != nil {
		return fmt.Errorf("to: %w", err)
	}

	recs, err := j.ListTradesClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	writeSummary(cmd.OutOrStdout(), journal.Summarize(recs))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}

func writeTrade(out io.Writer, t journal.TradeRecord) {
	fmt.Fprintf(out, "Order:    %s\n", t.OrderID)
	fmt.Fprintf(out, "Market:   %s %s\n", t.Market, t.Side)
	fmt.Fprintf(out, "Amount:   %.6f (margin %.4f)\n", t.Amount, t.Margin)
	fmt.Fprintf(out, "Entry:    %.4f at %s\n", t.EntryPrice, t.OpenTime.Format(time.RFC3339))
	fmt.Fprintf(out, "Exit:     %.4f at %s (%s)\n", t.ExitPrice, t.CloseTime.Format(time.RFC3339), t.Reason)
	fmt.Fprintf(out, "PnL:      %.4f\n", t.RealizedPnL)
}

func writeTrades(out io.Writer, recs []journal.TradeRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(out, "No trades.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CLOSED\tORDER\tMARKET\tSIDE\tAMOUNT\tENTRY\tEXIT\tREASON\tPNL")
	for _, t := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.6f\t%.4f\t%.4f\t%s\t%.4f\n",
			t.CloseTime.Format("15:04:05"), t.OrderID, t.Market, t.Side,
			t.Amount, t.EntryPrice, t.ExitPrice, t.Reason, t.RealizedPnL)
	}
	tw.Flush()
}

func writeSummary(out io.Writer, s journal.Summary) {
	fmt.Fprintf(out, "Trades:        %d (%d wins, %d losses)\n", s.Trades, s.Wins, s.Losses)
	fmt.Fprintf(out, "Gross profit:  %.4f\n", s.GrossProfit)
	fmt.Fprintf(out, "Gross loss:    %.4f\n", s.GrossLoss)
	fmt.Fprintf(out, "Net PnL:       %.4f\n", s.NetPnL)
	fmt.Fprintf(out, "Profit factor: %.2f\n", s.ProfitFactor)
}
