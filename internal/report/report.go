package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/rigdev/pulse/internal/compare"
	"github.com/rigdev/pulse/internal/dashboard"
	"github.com/rigdev/pulse/internal/daterange"
	"github.com/rigdev/pulse/internal/metrics"
	"github.com/rigdev/pulse/internal/score"
)

// Format is a report output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// ParseFormat validates a format name. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatCSV:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or csv)", s)
	}
}

// Options controls report rendering.
type Options struct {
	Format    Format
	UseColors bool
}

// Write renders the dashboard in the requested format.
func Write(w io.Writer, d *dashboard.Dashboard, opts Options) error {
	switch opts.Format {
	case FormatJSON:
		if err := writeJSON(w, d); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case FormatCSV:
		csvWriter := csv.NewWriter(w)
		if err := writeCSV(csvWriter, d); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
		csvWriter.Flush()
		return csvWriter.Error()
	default:
		return writeTable(w, d, opts.UseColors)
	}
	return nil
}

func writeTable(w io.Writer, d *dashboard.Dashboard, useColors bool) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Metric", "Value", "Previous", "Tier", "Change"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	paint := newPainter(useColors)
	var data [][]string
	for _, fr := range d.Families {
		data = append(data, []string{
			fr.Label,
			FormatValue(fr.Family, fr.Value),
			FormatValue(fr.Family, fr.Previous),
			paint.tier(fr.Tier),
			paint.change(fr),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	capped := ""
	if d.Capped {
		capped = " (capped)"
	}
	if _, err := fmt.Fprintf(w, "Team %s, %s to %s%s\n", d.Team,
		d.Window.Start.Format(daterange.DateKeyLayout), d.Window.End.Format(daterange.DateKeyLayout), capped); err != nil {
		return err
	}
	if !d.Score.Available() {
		_, err := fmt.Fprintln(w, "Score: unavailable")
		return err
	}
	_, err := fmt.Fprintf(w, "Score: %s (%s), standard %s\n",
		trimFloat(d.Score.Average), paint.band(d.ScoreBand), trimFloat(d.Score.Standard))
	return err
}

// painter colors tiers and changes when enabled.
type painter struct {
	red, green, yellow, cyan func(...any) string
}

func newPainter(useColors bool) painter {
	if !useColors {
		return painter{red: fmt.Sprint, green: fmt.Sprint, yellow: fmt.Sprint, cyan: fmt.Sprint}
	}
	return painter{
		red:    color.New(color.FgRed).SprintFunc(),
		green:  color.New(color.FgGreen, color.Bold).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
		cyan:   color.New(color.FgCyan).SprintFunc(),
	}
}

func (p painter) tier(t metrics.Tier) string {
	switch t {
	case metrics.Elite:
		return p.green(string(t))
	case metrics.High:
		return p.cyan(string(t))
	case metrics.Medium:
		return p.yellow(string(t))
	case metrics.Low:
		return p.red(string(t))
	default:
		return string(t)
	}
}

func (p painter) band(b score.Band) string {
	return p.tier(metrics.Tier(b))
}

// change colors by whether the move is an improvement for the family.
func (p painter) change(fr dashboard.FamilyResult) string {
	text := FormatComparison(fr.Comparison, fr.Family == metrics.ChangeFailureRate)
	if fr.Comparison == nil {
		return text
	}
	switch fr.Comparison.Direction {
	case compare.Positive:
		text += " ▲"
		if fr.LowerIsBetter {
			return p.red(text)
		}
		return p.green(text)
	case compare.Negative:
		text += " ▼"
		if fr.LowerIsBetter {
			return p.green(text)
		}
		return p.red(text)
	default:
		return p.yellow(text)
	}
}

func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeCSV(w *csv.Writer, d *dashboard.Dashboard) error {
	header := []string{"family", "value", "previous", "tier", "delta", "mode", "direction"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, fr := range d.Families {
		row := []string{string(fr.Family), csvFloat(fr.Value), csvFloat(fr.Previous), string(fr.Tier), "", "", ""}
		if c := fr.Comparison; c != nil {
			row[4] = strconv.FormatFloat(c.Delta, 'f', -1, 64)
			row[5] = string(c.Mode)
			row[6] = string(c.Direction)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	avg := ""
	if d.Score.Available() {
		avg = strconv.FormatFloat(d.Score.Average, 'f', -1, 64)
	}
	return w.Write([]string{"score", avg, "", string(d.ScoreBand), "", "", ""})
}

func csvFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
