// Package report renders an aggregate record as human-readable tables.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethpandaops/opmetrics/internal/cycles"
	"github.com/ethpandaops/opmetrics/internal/metrics"
)

// DefaultTopOpcodes is the number of opcode rows shown when unset.
const DefaultTopOpcodes = 20

// Options controls rendering.
type Options struct {
	// TopOpcodes limits the opcode table. Negative shows every executed
	// opcode.
	TopOpcodes int
}

// Percentiles reported for the cache-miss penalty histogram.
var penaltyQuantiles = []float64{50, 90, 99}

// Render writes every section for rec to w.
func Render(w io.Writer, rec *metrics.Record, opts Options) error {
	if opts.TopOpcodes == 0 {
		opts.TopOpcodes = DefaultTopOpcodes
	}

	unit := rec.Unit()

	sections := []table.Writer{
		summaryTable(rec, unit),
		opcodeTable(rec, unit, opts.TopOpcodes),
		sloadTable(rec),
		cacheTable(rec, unit),
		penaltyTable(rec),
		hostTable(rec, unit),
	}

	for _, tw := range sections {
		if tw == nil {
			continue
		}

		if _, err := fmt.Fprintln(w, tw.Render()); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}

		if _, err := fmt.Fprintln(w); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}

	return nil
}

func newTable(title string) table.Writer {
	tw := table.NewWriter()
	tw.SetTitle(title)
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	tw.Style().Format.Footer = text.FormatDefault

	return tw
}

func rightAligned(cols ...int) []table.ColumnConfig {
	configs := make([]table.ColumnConfig, 0, len(cols))
	for _, c := range cols {
		configs = append(configs, table.ColumnConfig{Number: c, Align: text.AlignRight})
	}

	return configs
}

func summaryTable(rec *metrics.Record, unit cycles.Unit) table.Writer {
	tw := newTable("Summary")
	tw.SetColumnConfigs(rightAligned(2))

	tw.AppendRow(table.Row{"time unit", string(unit)})
	tw.AppendRow(table.Row{"updated", strconv.FormatBool(rec.HasData())})

	if h := rec.Opcodes; h != nil {
		tw.AppendRow(table.Row{"instructions", formatCount(h.TotalCount())})
		tw.AppendRow(table.Row{"opcode time", formatCount(h.TotalCycles())})
		tw.AppendRow(table.Row{"loop time", formatCount(h.LoopCycles)})
		tw.AppendRow(table.Row{"gas", humanize.Comma(h.TotalGas())})
	} else {
		tw.AppendRow(table.Row{"instructions", "not instrumented"})
	}

	tw.AppendRow(table.Row{"cache hit rate", formatRate(rec.Cache.OverallHitRate())})
	tw.AppendRow(table.Row{"miss penalty", formatCount(rec.Cache.TotalPenalty())})
	tw.AppendRow(table.Row{"host time", formatCount(rec.Host.Total())})

	return tw
}

func opcodeTable(rec *metrics.Record, unit cycles.Unit, top int) table.Writer {
	if rec.Opcodes == nil {
		return nil
	}

	entries := rec.Opcodes.Top(top)
	if len(entries) == 0 {
		return nil
	}

	tw := newTable("Opcodes")
	tw.AppendHeader(table.Row{"opcode", "count", string(unit), "avg", "gas"})
	tw.SetColumnConfigs(rightAligned(2, 3, 4, 5))

	for _, e := range entries {
		tw.AppendRow(table.Row{
			e.Op.String(),
			formatCount(e.Count),
			formatCount(e.Cycles),
			formatCount(e.Cycles / e.Count),
			humanize.Comma(e.Gas),
		})
	}

	return tw
}

func sloadTable(rec *metrics.Record) table.Writer {
	if rec.Opcodes == nil || rec.Opcodes.SloadCount() == 0 {
		return nil
	}

	tw := newTable("SLOAD latency")
	tw.AppendHeader(table.Row{"bucket", "count"})
	tw.SetColumnConfigs(rightAligned(2))

	for i, threshold := range metrics.SloadThresholds() {
		tw.AppendRow(table.Row{
			bucketLabel(threshold, "us"),
			formatCount(rec.Opcodes.Sload[i]),
		})
	}

	return tw
}

func cacheTable(rec *metrics.Record, unit cycles.Unit) table.Writer {
	tw := newTable("Cache")
	tw.AppendHeader(table.Row{"category", "hits", "misses", "accesses", "hit rate", "penalty (" + string(unit) + ")"})
	tw.SetColumnConfigs(rightAligned(2, 3, 4, 5, 6))

	c := &rec.Cache
	for _, cat := range metrics.CacheCategories() {
		tw.AppendRow(table.Row{
			cat.String(),
			formatCount(c.Hits.Get(cat)),
			formatCount(c.Misses.Get(cat)),
			formatCount(c.TotalAccesses(cat)),
			formatRate(c.HitRate(cat)),
			formatCount(c.Penalty.Totals.Get(cat)),
		})
	}

	tw.AppendFooter(table.Row{
		"total",
		formatCount(c.TotalHits()),
		formatCount(c.TotalMisses()),
		formatCount(c.TotalHits() + c.TotalMisses()),
		formatRate(c.OverallHitRate()),
		formatCount(c.TotalPenalty()),
	})

	return tw
}

func penaltyTable(rec *metrics.Record) table.Writer {
	p := &rec.Cache.Penalty
	if p.Count() == 0 {
		return nil
	}

	tw := newTable("Miss penalty")
	tw.AppendHeader(table.Row{"quantile", "latency"})
	tw.SetColumnConfigs(rightAligned(2))

	tw.AppendRow(table.Row{"events", formatCount(p.Count())})

	for _, q := range penaltyQuantiles {
		ms, ok := p.Percentile(q)
		if !ok {
			continue
		}

		tw.AppendRow(table.Row{fmt.Sprintf("p%g", q), bucketLabel(ms, "ms")})
	}

	return tw
}

func hostTable(rec *metrics.Record, unit cycles.Unit) table.Writer {
	if rec.Host.Total() == 0 {
		return nil
	}

	tw := newTable("Host calls")
	tw.AppendHeader(table.Row{"operation", string(unit)})
	tw.SetColumnConfigs(rightAligned(2))

	for _, op := range metrics.HostOps() {
		if v := rec.Host.Get(op); v > 0 {
			tw.AppendRow(table.Row{op.String(), formatCount(v)})
		}
	}

	return tw
}

func bucketLabel(threshold uint64, suffix string) string {
	if threshold == math.MaxUint64 {
		return "> max"
	}

	return "<= " + strconv.FormatUint(threshold, 10) + suffix
}

func formatCount(v uint64) string {
	if v > math.MaxInt64 {
		return strconv.FormatUint(v, 10)
	}

	return humanize.Comma(int64(v))
}

func formatRate(rate float64, ok bool) string {
	if !ok {
		return "-"
	}

	return fmt.Sprintf("%.2f%%", rate*100)
}
