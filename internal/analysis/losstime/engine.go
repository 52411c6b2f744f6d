package losstime

import (
	"errors"
	"sort"
	"sync"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/schedule"
)

// Options configures the analysis engine
type Options struct {
	Pair          PairPolicy
	Classifier    ClassifierOptions
	SensitiveTags []string
	// Workers > 1 shards persons across goroutines. Output is identical to a
	// sequential run.
	Workers int
}

// DefaultOptions returns the engine defaults
func DefaultOptions() Options {
	return Options{
		Pair:       DefaultPairPolicy(),
		Classifier: ClassifierOptions{CategoryMode: CategoryLast},
		Workers:    1,
	}
}

// Result is the outcome of one engine run
type Result struct {
	Records   []models.ClassifiedInterval `json:"records"`
	Anomalies AnomalyCounts               `json:"anomalies"`
	Persons   int                         `json:"persons"`
	Events    int                         `json:"events"`
}

// Engine pairs, classifies and checks the events of every person.
type Engine struct {
	pairer     *Pairer
	classifier *Classifier
	detector   *DisruptionDetector
	workers    int
}

// NewEngine validates the schedule and options before building the engine.
// Any problem is reported as a *schedule.ConfigError.
func NewEngine(s *schedule.Schedule, opts Options) (*Engine, error) {
	var problems []string
	if err := schedule.Validate(s); err != nil {
		var cerr *schedule.ConfigError
		if !errors.As(err, &cerr) {
			return nil, err
		}
		problems = append(problems, cerr.Problems...)
	}
	if opts.Classifier.CategoryMode == "" {
		opts.Classifier.CategoryMode = CategoryLast
	}
	problems = append(problems, opts.Pair.validate()...)
	problems = append(problems, opts.Classifier.validate()...)
	if len(problems) > 0 {
		return nil, &schedule.ConfigError{Problems: problems}
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		pairer:     NewPairer(opts.Pair),
		classifier: NewClassifier(s, opts.Classifier),
		detector:   NewDisruptionDetector(opts.SensitiveTags),
		workers:    workers,
	}, nil
}

// Run processes events and returns records ordered by person, then OUT time.
// sensitive is the secondary stream checked for disruption; nil skips the check.
func (e *Engine) Run(events, sensitive []models.Event) Result {
	byPerson := make(map[string][]models.Event)
	for _, ev := range events {
		byPerson[ev.PersonID] = append(byPerson[ev.PersonID], ev)
	}
	persons := make([]string, 0, len(byPerson))
	for id := range byPerson {
		persons = append(persons, id)
	}
	sort.Strings(persons)

	var idx SensitiveIndex
	if sensitive != nil {
		idx = e.detector.Index(sensitive)
	}

	type personResult struct {
		records   []models.ClassifiedInterval
		anomalies AnomalyCounts
	}
	results := make([]personResult, len(persons))
	process := func(i int) {
		records, anomalies := e.RunPerson(byPerson[persons[i]], idx)
		results[i] = personResult{records: records, anomalies: anomalies}
	}

	if e.workers == 1 || len(persons) < 2 {
		for i := range persons {
			process(i)
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < e.workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					process(i)
				}
			}()
		}
		for i := range persons {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	res := Result{Persons: len(persons), Events: len(events)}
	for _, r := range results {
		res.Records = append(res.Records, r.records...)
		res.Anomalies.Add(r.anomalies)
	}
	return res
}

// RunPerson pairs and classifies the events of a single person.
func (e *Engine) RunPerson(events []models.Event, idx SensitiveIndex) ([]models.ClassifiedInterval, AnomalyCounts) {
	intervals, anomalies := e.pairer.Pair(events)
	records := make([]models.ClassifiedInterval, 0, len(intervals))
	for _, iv := range intervals {
		rec := e.classifier.Classify(iv)
		if idx != nil {
			rec = e.detector.Apply(rec, idx)
		}
		records = append(records, rec)
	}
	return records, anomalies
}
