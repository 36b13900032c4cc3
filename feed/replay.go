package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rustyeddy/papertrader/market"
)

// Apply handles one tick synchronously. paper.Engine.UpdatePrice satisfies it.
type Apply func(context.Context, market.Tick) error

// ReplayCSV reads time,market,price rows and applies them in file order. A
// header row is skipped; an empty market column means defaultMarket. Time is
// unix milliseconds or RFC 3339. It returns the number of ticks applied and
// stops at the first malformed row or failed apply.
func ReplayCSV(ctx context.Context, r io.Reader, defaultMarket string, apply Apply) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	n := 0
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("replay line %d: %w", line, err)
		}
		if line == 1 && isHeader(rec) {
			continue
		}
		if len(rec) < 3 {
			return n, fmt.Errorf("replay line %d: want time,market,price, got %d fields", line, len(rec))
		}

		ts, err := parseTime(strings.TrimSpace(rec[0]))
		if err != nil {
			return n, fmt.Errorf("replay line %d: time: %w", line, err)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return n, fmt.Errorf("replay line %d: price: %w", line, err)
		}
		mkt := strings.TrimSpace(rec[1])
		if mkt == "" {
			mkt = defaultMarket
		}

		if err := apply(ctx, market.Tick{Market: mkt, Price: price, Time: ts}); err != nil {
			return n, fmt.Errorf("replay line %d: %w", line, err)
		}
		n++
	}
}

func isHeader(rec []string) bool {
	return len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "time")
}
