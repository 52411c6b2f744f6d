package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/analysis"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/repository"
)

// AnalysisTaskService handles analysis task business logic
type AnalysisTaskService struct {
	repo   *repository.AnalysisTaskRepository
	events *repository.EventRepository
	deps   analysis.Deps
	logger *slog.Logger

	mu      sync.Mutex
	running map[int64]context.CancelFunc
	wg      sync.WaitGroup
}

// NewAnalysisTaskService creates a new analysis task service
func NewAnalysisTaskService(repo *repository.AnalysisTaskRepository, events *repository.EventRepository, deps analysis.Deps, logger *slog.Logger) *AnalysisTaskService {
	return &AnalysisTaskService{
		repo:    repo,
		events:  events,
		deps:    deps,
		logger:  logger.With("component", "analysis_tasks"),
		running: make(map[int64]context.CancelFunc),
	}
}

// CreateTask records a new task and starts the analyzer in the background
func (s *AnalysisTaskService) CreateTask(ctx context.Context, skillName, taskType string, params *models.AnalysisParams, createdBy string) (*models.AnalysisTask, error) {
	if !analysis.IsRegistered(skillName) {
		return nil, fmt.Errorf("%w: unknown skill %s", ErrInvalidInput, skillName)
	}
	if taskType != models.TaskTypeIncremental && taskType != models.TaskTypeFullRecompute {
		return nil, fmt.Errorf("%w: invalid task type %s", ErrInvalidInput, taskType)
	}
	if params != nil {
		if err := validateDates(params.StartDate, params.EndDate); err != nil {
			return nil, err
		}
	}

	analyzer, err := analysis.GetAnalyzer(skillName, s.deps)
	if err != nil {
		return nil, fmt.Errorf("failed to build analyzer: %w", err)
	}

	count, err := s.events.Count(ctx, repository.TimeRange{})
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("%w: no events to analyze", ErrInvalidInput)
	}

	paramsJSON := ""
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize params: %w", err)
		}
		paramsJSON = string(b)
	}

	task := &models.AnalysisTask{
		SkillName:   skillName,
		TaskType:    taskType,
		Status:      models.TaskStatusPending,
		ParamsJSON:  paramsJSON,
		TotalEvents: count,
		CreatedBy:   createdBy,
	}
	if err := s.repo.Create(task); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.running[task.ID] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.execute(runCtx, task.ID, analyzer, analysis.ModeFor(taskType))

	return task, nil
}

func (s *AnalysisTaskService) execute(ctx context.Context, taskID int64, analyzer analysis.Analyzer, mode string) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		if cancel, ok := s.running[taskID]; ok {
			cancel()
			delete(s.running, taskID)
		}
		s.mu.Unlock()
	}()

	logger := s.logger.With("task_id", taskID, "skill", analyzer.GetName())
	err := analyzer.Analyze(ctx, taskID, mode)
	switch {
	case err == nil:
		logger.Info("analysis task finished")
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		logger.Info("analysis task cancelled")
		if mErr := s.repo.MarkAsCancelled(taskID); mErr != nil {
			logger.Error("failed to mark task cancelled", "error", mErr)
		}
	default:
		logger.Error("analysis task failed", "error", err)
		if mErr := s.repo.MarkAsFailed(taskID, err.Error()); mErr != nil {
			logger.Error("failed to mark task failed", "error", mErr)
		}
	}
}

// GetTask retrieves a task by ID
func (s *AnalysisTaskService) GetTask(id int64) (*models.AnalysisTask, error) {
	task, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: analysis task %d", ErrNotFound, id)
	}
	return task, nil
}

// ListTasks retrieves tasks with optional filters
func (s *AnalysisTaskService) ListTasks(skillName string, status string, limit int, offset int) ([]*models.AnalysisTask, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	tasks, err := s.repo.List(skillName, status, limit, offset)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*models.AnalysisTask{}
	}
	return tasks, nil
}

// CancelTask stops a pending or running task
func (s *AnalysisTaskService) CancelTask(id int64) error {
	task, err := s.GetTask(id)
	if err != nil {
		return err
	}
	if task.Status != models.TaskStatusPending && task.Status != models.TaskStatusRunning {
		return fmt.Errorf("%w: task is not running (status: %s)", ErrConflict, task.Status)
	}

	s.mu.Lock()
	cancel, ok := s.running[id]
	s.mu.Unlock()
	if ok {
		cancel()
		return nil
	}
	// no goroutine left for it, e.g. after a restart
	return s.repo.MarkAsCancelled(id)
}

// Shutdown cancels running tasks and waits for them to stop
func (s *AnalysisTaskService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, cancel := range s.running {
		cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
