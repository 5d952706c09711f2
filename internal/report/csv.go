package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"smacross/internal/domain"
	"smacross/internal/strategy"
)

// WriteCSV writes one row per retained period with every derived series. The
// benchmark column is omitted when bench is nil.
func WriteCSV(w io.Writer, r *strategy.Result, bench *strategy.Curve) error {
	if bench != nil && len(bench.Values) != r.Len() {
		return fmt.Errorf("%w: benchmark has %d rows, result has %d", domain.ErrAlignment, len(bench.Values), r.Len())
	}

	cw := csv.NewWriter(w)
	header := []string{
		"date", "close", "sma", "signal", "position",
		"daily_return", "strategy_return",
		"cumulative_strategy", "cumulative_buy_hold",
	}
	if bench != nil {
		header = append(header, "cumulative_benchmark")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for i := range r.Dates {
		rec := []string{
			domain.DateKey(r.Dates[i]),
			f(r.Close[i]),
			f(r.SMA[i]),
			strconv.Itoa(r.Signal[i]),
			strconv.Itoa(r.Position[i]),
			f(r.DailyReturn[i]),
			f(r.StrategyReturn[i]),
			f(r.CumulativeStrategy[i]),
			f(r.CumulativeBuyHold[i]),
		}
		if bench != nil {
			rec = append(rec, f(bench.Values[i]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
