package analysis

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/cache"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/config"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/repository"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/schedule"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/sink"
)

// Analyzer is the interface that all analysis skills must implement
type Analyzer interface {
	// Analyze performs the analysis for a given task
	// taskID: the analysis task ID
	// mode: ModeIncremental or ModeFull
	Analyze(ctx context.Context, taskID int64, mode string) error

	// GetProgress returns the current progress of the analysis
	GetProgress(taskID int64) (*Progress, error)

	// GetName returns the name of the analyzer
	GetName() string
}

// Analysis modes
const (
	ModeIncremental = "incremental"
	ModeFull        = "full"
)

// ModeFor maps a task type onto an analysis mode
func ModeFor(taskType string) string {
	if taskType == models.TaskTypeFullRecompute {
		return ModeFull
	}
	return ModeIncremental
}

// Progress represents the progress of an analysis task
type Progress struct {
	Processed int     // Number of events processed
	Total     int     // Total number of events to process
	Percent   float64 // Progress percentage (0-100)
	Status    string
	Message   string
}

// Deps are the shared resources handed to analyzer factories
type Deps struct {
	DB       *sql.DB
	Config   *config.Config
	Schedule *schedule.Schedule
	Sink     sink.Sink          // may be nil
	Cache    *cache.ReportCache // may be nil
	Logger   *slog.Logger
}

// BaseAnalyzer provides common functionality for all analyzers
type BaseAnalyzer struct {
	Tasks  *repository.AnalysisTaskRepository
	Name   string
	Logger *slog.Logger
}

// NewBaseAnalyzer creates a new base analyzer
func NewBaseAnalyzer(deps Deps, name string) *BaseAnalyzer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BaseAnalyzer{
		Tasks:  repository.NewAnalysisTaskRepository(deps.DB),
		Name:   name,
		Logger: logger.With("component", "analyzer", "skill", name),
	}
}

// GetName returns the analyzer name
func (a *BaseAnalyzer) GetName() string {
	return a.Name
}

// GetProgress reads the task's progress from the database
func (a *BaseAnalyzer) GetProgress(taskID int64) (*Progress, error) {
	task, err := a.Tasks.GetByID(taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("analysis task not found: %d", taskID)
	}
	return &Progress{
		Processed: task.ProcessedEvents,
		Total:     task.TotalEvents,
		Percent:   task.ProgressPercent,
		Status:    task.Status,
		Message:   task.ErrorMessage,
	}, nil
}

// AnalyzerFactory is a function that creates an analyzer instance
type AnalyzerFactory func(deps Deps) (Analyzer, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AnalyzerFactory)
)

// RegisterAnalyzer registers an analyzer factory for a skill name
func RegisterAnalyzer(skillName string, factory AnalyzerFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[skillName] = factory
}

// GetAnalyzer builds the analyzer registered for skillName
func GetAnalyzer(skillName string, deps Deps) (Analyzer, error) {
	registryMu.RLock()
	factory, ok := registry[skillName]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown skill: %s", skillName)
	}
	return factory(deps)
}

// IsRegistered checks if an analyzer exists for skillName
func IsRegistered(skillName string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[skillName]
	return ok
}

// Skills lists the registered skill names in order
func Skills() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
