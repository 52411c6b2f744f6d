// losstime pairs badge OUT/IN events from a CSV or xlsx export, classifies
// every absence against the shift/break schedule and writes the result as CSV,
// or as a workbook when --out names an .xlsx file.
//
// Anomaly counts and a loss summary are printed to stderr. An invalid
// schedule or option set exits with status 2 before any event is read.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/analysis/losstime"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/ingest"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/logging"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/schedule"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/sink"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/stats"
)

// exitError carries a process exit status
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

type options struct {
	events         string
	sensitive      string
	schedulePath   string
	maxDuration    int
	sameDay        bool
	selection      string
	categoryMode   string
	strictCoverage bool
	sensitiveTags  []string
	exclude        []string
	tz             string
	workers        int
	out            string
	kafkaBrokers   []string
	kafkaTopic     string
	logLevel       string
}

func run(args []string, stdout, stderr io.Writer) error {
	var o options
	fs := pflag.NewFlagSet("losstime", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.events, "events", "", "badge events CSV or xlsx (required)")
	fs.StringVar(&o.sensitive, "sensitive", "", "separate export of sensitive-location taps (default: the events file)")
	fs.StringVar(&o.schedulePath, "schedule", "", "schedule YAML (default: built-in three-shift table)")
	fs.IntVar(&o.maxDuration, "max-duration", int(losstime.DefaultMaxDuration/time.Minute), "longest absence kept, in minutes")
	fs.BoolVar(&o.sameDay, "same-day", true, "only pair an OUT with an IN on the same calendar day")
	fs.StringVar(&o.selection, "selection", string(losstime.SelectNearest), "IN selection: nearest|earliest")
	fs.StringVar(&o.categoryMode, "category-mode", string(losstime.CategoryLast), "category of multi-break intervals: last|largest")
	fs.BoolVar(&o.strictCoverage, "strict-coverage", false, "report Undetected when no slot overlaps an interval")
	fs.StringSliceVar(&o.sensitiveTags, "sensitive-tags", nil, "location tags that mark a disruption")
	fs.StringSliceVar(&o.exclude, "exclude", nil, "person IDs or names to leave out")
	fs.StringVar(&o.tz, "tz", "Local", "time zone of naive timestamps and calendar days")
	fs.IntVar(&o.workers, "workers", 1, "persons processed in parallel")
	fs.StringVarP(&o.out, "out", "o", "", "result file, .xlsx for a workbook (default: CSV on stdout)")
	fs.StringSliceVar(&o.kafkaBrokers, "kafka-brokers", nil, "also publish records to these Kafka brokers")
	fs.StringVar(&o.kafkaTopic, "kafka-topic", "losstime.intervals", "Kafka topic for --kafka-brokers")
	fs.StringVar(&o.logLevel, "log-level", "warn", "debug|info|warn|error")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &exitError{code: 2, err: err}
	}
	if fs.NArg() > 0 {
		return &exitError{code: 2, err: fmt.Errorf("unexpected argument: %s", fs.Arg(0))}
	}
	if o.events == "" {
		return &exitError{code: 2, err: errors.New("--events is required")}
	}

	logger := logging.New(o.logLevel, "text", stderr)

	loc, err := loadLocation(o.tz)
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	sched := schedule.Default()
	if o.schedulePath != "" {
		sched, err = schedule.Load(o.schedulePath)
		if err != nil {
			return configError(err)
		}
	}

	opts := losstime.DefaultOptions()
	opts.Pair.MaxDuration = time.Duration(o.maxDuration) * time.Minute
	opts.Pair.SameDay = o.sameDay
	opts.Pair.Selection = losstime.Selection(o.selection)
	opts.Classifier.CategoryMode = losstime.CategoryMode(o.categoryMode)
	opts.Classifier.StrictCoverage = o.strictCoverage
	opts.SensitiveTags = o.sensitiveTags
	opts.Workers = o.workers

	engine, err := losstime.NewEngine(sched, opts)
	if err != nil {
		return configError(err)
	}

	reader := ingest.NewReader(loc, ingest.NewExclusions(o.exclude))
	events, err := readEvents(reader, o.events, stderr)
	if err != nil {
		return err
	}
	sensitive := events
	if o.sensitive != "" {
		if sensitive, err = readEvents(reader, o.sensitive, stderr); err != nil {
			return err
		}
	}

	res := engine.Run(events, sensitive)
	logger.Info("analysis finished", "events", res.Events, "persons", res.Persons, "records", len(res.Records))

	// hide Close so the sink never closes the process's stdout
	var w io.Writer = struct{ io.Writer }{stdout}
	if o.out != "" {
		f, err := os.Create(o.out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		w = f
	}
	var out sink.Sink = sink.NewCSVSink(w)
	if strings.EqualFold(filepath.Ext(o.out), ".xlsx") {
		if out, err = sink.NewXLSXSink(w); err != nil {
			return err
		}
	}
	outputs := sink.Multi{out}
	if len(o.kafkaBrokers) > 0 {
		outputs = append(outputs, sink.NewKafkaSink(o.kafkaBrokers, o.kafkaTopic, logger))
	}

	writeErr := outputs.Write(context.Background(), res.Records)
	closeErr := outputs.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	printSummary(stderr, res)
	return nil
}

func configError(err error) error {
	var cerr *schedule.ConfigError
	if errors.As(err, &cerr) {
		return &exitError{code: 2, err: err}
	}
	return err
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "Local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown time zone %q: %w", name, err)
	}
	return loc, nil
}

func readEvents(reader *ingest.Reader, path string, stderr io.Writer) ([]models.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	events, report, err := reader.ReadAs(path, f, 1, "cli")
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if report.Skipped > 0 || report.Excluded > 0 {
		fmt.Fprintf(stderr, "%s: %d rows, %d imported, %d excluded, %d skipped %v\n",
			path, report.Rows, report.Imported, report.Excluded, report.Skipped, report.SkipReason)
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

func printSummary(w io.Writer, res losstime.Result) {
	a := res.Anomalies
	fmt.Fprintf(w, "events=%d persons=%d records=%d\n", res.Events, res.Persons, len(res.Records))
	fmt.Fprintf(w, "anomalies: unmatched_out=%d unmatched_in=%d non_positive=%d over_max_duration=%d\n",
		a.UnmatchedOut, a.UnmatchedIn, a.NonPositive, a.OverMaxDuration)
	if len(res.Records) == 0 {
		return
	}

	losses := make([]float64, 0, len(res.Records))
	byCategory := map[string]float64{}
	var categories []string
	disrupted := 0
	for _, rec := range res.Records {
		losses = append(losses, rec.LossMinutes)
		if _, seen := byCategory[rec.Category]; !seen {
			categories = append(categories, rec.Category)
		}
		byCategory[rec.Category] += rec.LossMinutes
		if rec.Disrupted {
			disrupted++
		}
	}
	fmt.Fprintf(w, "loss minutes: total=%.2f mean=%.2f median=%.2f p90=%.2f outliers=%d disrupted=%d\n",
		stats.Sum(losses), stats.Mean(losses), stats.Median(losses), stats.Percentile(losses, 90),
		stats.CountAbove(losses), disrupted)
	for _, c := range categories {
		fmt.Fprintf(w, "  %-24s %.2f\n", c, byCategory[c])
	}
}
