package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/analysis"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/analysis/losstime"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/cache"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/config"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/database"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/ingest"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/models"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/repository"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/schedule"
	"github.com/tsaniafarihaa/Loss-Time-Analysis/internal/sink"
)

const badgeCSV = `person_id,name,timestamp,direction,location
E-1,Ana,2024-03-04 10:50:00,OUT,gate
E-1,Ana,2024-03-04 11:10:00,IN,gate
E-2,Budi,2024-03-04 09:00:00,OUT,gate
E-2,Budi,2024-03-04 09:25:00,IN,gate
E-3,Cici,2024-03-04 08:00:00,OUT,gate
E-4,Dedi,2024-03-04 10:50:00,OUT,gate
E-4,Dedi,2024-03-04 11:02:00,IN,office
E-9,Boss,2024-03-04 10:00:00,OUT,gate
bad,row
`

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	db        *sql.DB
	events    *EventService
	intervals *IntervalService
	stats     *StatsService
	tasks     *AnalysisTaskService
	mr        *miniredis.Miniredis
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "svc.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrationManager(db, discard).RunMigrations())

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	reportCache := cache.New(client, time.Minute, discard)

	cfg := &config.Config{
		Timezone:      "UTC",
		MaxDuration:   losstime.DefaultMaxDuration,
		SameDayOnly:   true,
		PairSelection: "nearest",
		CategoryMode:  "last",
		SensitiveTags: []string{"office"},
	}
	eventRepo := repository.NewEventRepository(db, time.UTC)
	deps := analysis.Deps{DB: db, Config: cfg, Schedule: schedule.Default(), Cache: reportCache, Logger: discard}

	return &fixture{
		db:        db,
		events:    NewEventService(eventRepo, ingest.NewReader(time.UTC, ingest.NewExclusions([]string{"E-9"})), discard),
		intervals: NewIntervalService(repository.NewIntervalRepository(db, time.UTC)),
		stats:     NewStatsService(repository.NewStatsRepository(db), reportCache),
		tasks:     NewAnalysisTaskService(repository.NewAnalysisTaskRepository(db), eventRepo, deps, discard),
		mr:        mr,
	}
}

func (f *fixture) runAnalysis(t *testing.T) *models.AnalysisTask {
	t.Helper()
	task, err := f.tasks.CreateTask(context.Background(), losstime.SkillName, models.TaskTypeFullRecompute, nil, "tester")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := f.tasks.GetTask(task.ID)
		return err == nil && got.Status != models.TaskStatusPending && got.Status != models.TaskStatusRunning
	}, 5*time.Second, 20*time.Millisecond)

	got, err := f.tasks.GetTask(task.ID)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusCompleted, got.Status, got.ErrorMessage)
	return got
}

func TestImportAndList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	report, err := f.events.Import(ctx, "badges.csv", strings.NewReader(badgeCSV))
	require.NoError(t, err)
	assert.Equal(t, 9, report.Rows)
	assert.Equal(t, 7, report.Imported)
	assert.Equal(t, 1, report.Excluded)
	assert.Equal(t, 1, report.Skipped)
	assert.NotEmpty(t, report.BatchID)

	resp, err := f.events.List(models.EventFilter{PersonID: "E-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)
	assert.Equal(t, 1, resp.TotalPages)

	// a second import continues the stream order
	_, err = f.events.Import(ctx, "badges.csv", strings.NewReader("person_id,timestamp,direction\nE-5,2024-03-05 07:00,IN\n"))
	require.NoError(t, err)
	resp, err = f.events.List(models.EventFilter{PersonID: "E-5"})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, int64(8), resp.Data[0].Seq)

	_, err = f.events.Import(ctx, "badges.csv", strings.NewReader("nothing,useful\n"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReimportSkipsStoredEvents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.events.Import(ctx, "badges.csv", strings.NewReader(badgeCSV))
	require.NoError(t, err)
	again, err := f.events.Import(ctx, "badges.csv", strings.NewReader(badgeCSV))
	require.NoError(t, err)
	assert.Equal(t, 0, again.Imported)
	assert.Equal(t, 7, again.Duplicates)

	f.runAnalysis(t)

	resp, err := f.intervals.List(models.IntervalFilter{PersonID: "E-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)

	summary, err := f.stats.GetSummary(ctx, models.StatsFilter{})
	require.NoError(t, err)
	assert.InDelta(t, 45.0, summary.TotalLossMinutes, 1e-9)
}

func TestConcurrentImportsGetDistinctSeq(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	const imports, perImport = 4, 5
	var wg sync.WaitGroup
	errs := make(chan error, imports)
	for i := 0; i < imports; i++ {
		var b strings.Builder
		b.WriteString("person_id,timestamp,direction\n")
		for j := 0; j < perImport; j++ {
			fmt.Fprintf(&b, "C-%d,2024-03-04 %02d:00,IN\n", i, 8+j)
		}
		wg.Add(1)
		go func(data string) {
			defer wg.Done()
			_, err := f.events.Import(ctx, "badges.csv", strings.NewReader(data))
			errs <- err
		}(b.String())
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var count, distinct, minSeq, maxSeq int
	err := f.db.QueryRow("SELECT COUNT(*), COUNT(DISTINCT seq), MIN(seq), MAX(seq) FROM access_events").
		Scan(&count, &distinct, &minSeq, &maxSeq)
	require.NoError(t, err)
	assert.Equal(t, imports*perImport, count)
	assert.Equal(t, count, distinct)
	assert.Equal(t, 1, minSeq)
	assert.Equal(t, count, maxSeq)
}

func TestImportXLSX(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	wb := excelize.NewFile()
	defer wb.Close()
	sheet := wb.GetSheetName(0)
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &[]interface{}{"Employee ID", "Name", "Timestamp", "Status"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A2", &[]interface{}{"E-1", "Ana", time.Date(2024, 3, 4, 10, 50, 0, 0, time.UTC), "OUT"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A3", &[]interface{}{"E-1", "Ana", "2024-03-04 11:10:00", "IN"}))
	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))

	report, err := f.events.Import(ctx, "Badges.XLSX", &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)

	resp, err := f.events.List(models.EventFilter{PersonID: "E-1"})
	require.NoError(t, err)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, time.Date(2024, 3, 4, 10, 50, 0, 0, time.UTC), resp.Data[1].Timestamp.UTC())
}

func TestAnalysisPipeline(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.events.Import(ctx, "badges.csv", strings.NewReader(badgeCSV))
	require.NoError(t, err)
	task := f.runAnalysis(t)
	assert.Contains(t, task.ResultSummary, `"unmatchedOut":1`)

	resp, err := f.intervals.List(models.IntervalFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Total)

	summary, err := f.stats.GetSummary(ctx, models.StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalRecords)
	assert.Equal(t, int64(3), summary.TotalPersons)
	// Ana 10, Budi 25, Dedi 10 (10:50-11:02 is two minutes of lunch)
	assert.InDelta(t, 45.0, summary.TotalLossMinutes, 1e-9)
	assert.InDelta(t, 10.0, summary.MedianLoss, 1e-9)
	assert.Equal(t, "2024-03-04", summary.FirstDate)

	top, err := f.stats.GetTopPersons(ctx, models.StatsFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "E-2", top[0].PersonID)

	categories, err := f.stats.GetCategoryLoss(ctx, models.StatsFilter{})
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Work", categories[0].Category)

	hourly, err := f.stats.GetHourlyDistribution(ctx, models.StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), hourly[10].Count)
	assert.Equal(t, int64(1), hourly[9].Count)

	var buf bytes.Buffer
	n, err := f.intervals.Export(ctx, models.IntervalFilter{Category: "Lunch"}, ExportCSV, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	buf.Reset()
	n, err = f.intervals.Export(ctx, models.IntervalFilter{}, ExportXLSX, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()
	sheetRows, err := wb.GetRows(sink.XLSXSheet)
	require.NoError(t, err)
	require.Len(t, sheetRows, 4)
	assert.Equal(t, sink.CSVHeader, sheetRows[0])

	_, err = f.intervals.Export(ctx, models.IntervalFilter{}, "pdf", &buf)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSummaryCacheInvalidatedByAnalysis(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.events.Import(ctx, "badges.csv", strings.NewReader(badgeCSV))
	require.NoError(t, err)
	f.runAnalysis(t)

	first, err := f.stats.GetSummary(ctx, models.StatsFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(3), first.TotalRecords)

	_, err = f.events.Import(ctx, "badges.csv", strings.NewReader("person_id,timestamp,direction\nE-7,2024-03-04 16:10,OUT\nE-7,2024-03-04 16:40,IN\n"))
	require.NoError(t, err)

	cached, err := f.stats.GetSummary(ctx, models.StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), cached.TotalRecords, "served from cache until the next run")

	f.runAnalysis(t)
	fresh, err := f.stats.GetSummary(ctx, models.StatsFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), fresh.TotalRecords)
}

func TestCreateTaskValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.tasks.CreateTask(ctx, "no_such_skill", models.TaskTypeFullRecompute, nil, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.tasks.CreateTask(ctx, losstime.SkillName, "SOMETIMES", nil, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.tasks.CreateTask(ctx, losstime.SkillName, models.TaskTypeFullRecompute, &models.AnalysisParams{StartDate: "04/03/2024"}, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.tasks.CreateTask(ctx, losstime.SkillName, models.TaskTypeFullRecompute, nil, "")
	assert.ErrorIs(t, err, ErrInvalidInput, "no events yet")

	_, err = f.tasks.GetTask(404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelFinishedTask(t *testing.T) {
	f := setup(t)
	_, err := f.events.Import(context.Background(), "badges.csv", strings.NewReader(badgeCSV))
	require.NoError(t, err)
	task := f.runAnalysis(t)

	assert.ErrorIs(t, f.tasks.CancelTask(task.ID), ErrConflict)

	tasks, err := f.tasks.ListTasks(losstime.SkillName, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, f.tasks.Shutdown(ctx))
}

func TestValidateDates(t *testing.T) {
	assert.NoError(t, validateDates("", ""))
	assert.NoError(t, validateDates("2024-03-01", "2024-03-04"))
	assert.ErrorIs(t, validateDates("2024-03-05", "2024-03-04"), ErrInvalidInput)
	assert.ErrorIs(t, validateDates("yesterday", ""), ErrInvalidInput)
}
