package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/orgledger/internal/domain"
	"github.com/iho/orgledger/internal/usecase"
)

type fakeCloser struct {
	got usecase.CloseMonthInput
	err error
}

func (f *fakeCloser) CloseMonth(_ context.Context, in usecase.CloseMonthInput) (*domain.PeriodClosing, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &domain.PeriodClosing{ID: "cls-1", NetSurplus: decimal.RequireFromString("1300")}, nil
}

type fakeDepreciator struct {
	mu      sync.Mutex
	input   usecase.BatchInput
	results []usecase.BatchResult
	postErr map[string]error
	posted  []string
}

func (f *fakeDepreciator) CalculateBatch(_ context.Context, in usecase.BatchInput) ([]usecase.BatchResult, error) {
	f.input = in
	return f.results, nil
}

func (f *fakeDepreciator) Post(_ context.Context, id, _ string) (*domain.DepreciationSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.postErr[id]; err != nil {
		return nil, err
	}
	f.posted = append(f.posted, id)
	return &domain.DepreciationSchedule{ID: id, Status: domain.ScheduleStatusPosted}, nil
}

func closeMonthTask(t *testing.T) *asynq.Task {
	t.Helper()
	task, err := NewCloseMonthTask(CloseMonthPayload{
		ScopeID: "org-1", FinancialYearID: "fy-2025", ClosingDate: "2025-04-15", Actor: "scheduler",
	})
	require.NoError(t, err)
	return task
}

func TestNewTasksValidateDates(t *testing.T) {
	_, err := NewCloseMonthTask(CloseMonthPayload{ScopeID: "org-1", ClosingDate: "15/04/2025"})
	assert.Error(t, err)

	_, err = NewDepreciationBatchTask(DepreciationBatchPayload{PeriodStart: "2025-04-01", PeriodEnd: "2025-04-31"})
	assert.Error(t, err)

	_, err = NewDepreciationBatchTask(DepreciationBatchPayload{
		PeriodStart: "2025-04-01", PeriodEnd: "2025-04-30", UnitsProduced: map[string]string{"a": "ten"},
	})
	assert.Error(t, err)

	task := closeMonthTask(t)
	assert.Equal(t, TaskCloseMonth, task.Type())
}

func TestCloseMonthJob(t *testing.T) {
	ctx := context.Background()

	t.Run("closes the month", func(t *testing.T) {
		closer := &fakeCloser{}
		err := NewCloseMonthJob(closer, zerolog.Nop()).Handle(ctx, closeMonthTask(t))
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC), closer.got.ClosingDate)
		assert.Equal(t, "org-1", closer.got.ScopeID)
		assert.Equal(t, "fy-2025", closer.got.FinancialYearID)
		assert.Equal(t, "scheduler", closer.got.Actor)
	})

	t.Run("already closed is done", func(t *testing.T) {
		closer := &fakeCloser{err: domain.ErrPeriodAlreadyClosed}
		assert.NoError(t, NewCloseMonthJob(closer, zerolog.Nop()).Handle(ctx, closeMonthTask(t)))
	})

	t.Run("configuration errors are not retried", func(t *testing.T) {
		closer := &fakeCloser{err: &domain.MissingAccountError{Key: domain.MappingGeneralFund, Code: "31001"}}
		err := NewCloseMonthJob(closer, zerolog.Nop()).Handle(ctx, closeMonthTask(t))
		assert.ErrorIs(t, err, asynq.SkipRetry)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("lock contention is retried", func(t *testing.T) {
		closer := &fakeCloser{err: domain.ErrClosingInProgress}
		err := NewCloseMonthJob(closer, zerolog.Nop()).Handle(ctx, closeMonthTask(t))
		assert.ErrorIs(t, err, domain.ErrClosingInProgress)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("malformed payload", func(t *testing.T) {
		err := NewCloseMonthJob(&fakeCloser{}, zerolog.Nop()).Handle(ctx, asynq.NewTask(TaskCloseMonth, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestDepreciationBatchJob(t *testing.T) {
	ctx := context.Background()
	payload := DepreciationBatchPayload{
		AssetIDs:        []string{"a1", "a2", "a3", "a4"},
		FinancialYearID: "fy-2025",
		Period:          "2025-04",
		PeriodStart:     "2025-04-01",
		PeriodEnd:       "2025-04-30",
		UnitsProduced:   map[string]string{"a4": "1200"},
		Actor:           "scheduler",
		AutoPost:        true,
	}
	task, err := NewDepreciationBatchTask(payload)
	require.NoError(t, err)

	dep := &fakeDepreciator{results: []usecase.BatchResult{
		{AssetID: "a1", Schedule: &domain.DepreciationSchedule{ID: "s1"}},
		{AssetID: "a2", Err: domain.ErrDuplicatePeriod},
		{AssetID: "a3", Err: domain.ErrNotDepreciable},
		{AssetID: "a4", Schedule: &domain.DepreciationSchedule{ID: "s4"}},
	}}

	require.NoError(t, NewDepreciationBatchJob(dep, zerolog.Nop()).Handle(ctx, task))
	assert.Equal(t, []string{"s1", "s4"}, dep.posted)
	assert.True(t, dep.input.UnitsProduced["a4"].Equal(decimal.RequireFromString("1200")))
	assert.Equal(t, time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC), dep.input.PeriodEnd)

	t.Run("transient failures are retried", func(t *testing.T) {
		dep := &fakeDepreciator{
			results: []usecase.BatchResult{{AssetID: "a1", Schedule: &domain.DepreciationSchedule{ID: "s1"}}},
			postErr: map[string]error{"s1": errors.New("connection reset")},
		}
		err := NewDepreciationBatchJob(dep, zerolog.Nop()).Handle(ctx, task)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("calculate only", func(t *testing.T) {
		p := payload
		p.AutoPost = false
		body, _ := json.Marshal(p)
		dep := &fakeDepreciator{results: []usecase.BatchResult{{AssetID: "a1", Schedule: &domain.DepreciationSchedule{ID: "s1"}}}}

		require.NoError(t, NewDepreciationBatchJob(dep, zerolog.Nop()).Handle(ctx, asynq.NewTask(TaskDepreciationBatch, body)))
		assert.Empty(t, dep.posted)
	})
}

func TestLoggerAdapter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(zerolog.New(&buf))

	l.Warn("queue ", "ledger", " paused")

	out := buf.String()
	assert.True(t, strings.Contains(out, `"message":"queue ledger paused"`), out)
	assert.True(t, strings.Contains(out, `"component":"asynq"`), out)
}

func TestClientRejectsDuplicateClose(t *testing.T) {
	s := miniredis.RunT(t)
	client := NewClient(asynq.RedisClientOpt{Addr: s.Addr()})
	defer client.Close()

	p := CloseMonthPayload{ScopeID: "org-1", FinancialYearID: "fy-2025", ClosingDate: "2025-04-15", Actor: "ops"}

	info, err := client.EnqueueCloseMonth(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, QueueLedger, info.Queue)

	_, err = client.EnqueueCloseMonth(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrClosingInProgress)
}
