package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/iho/orgledger/internal/usecase"
)

const (
	// QueueLedger is the queue every ledger task is enqueued on.
	QueueLedger = "ledger"

	TaskCloseMonth        = "ledger:close_month"
	TaskDepreciationBatch = "ledger:depreciation_batch"
)

// CloseMonthPayload asks the worker to close the month containing ClosingDate.
type CloseMonthPayload struct {
	ScopeID         string `json:"scope_id"`
	FinancialYearID string `json:"financial_year_id"`
	ClosingDate     string `json:"closing_date"` // YYYY-MM-DD
	Actor           string `json:"actor"`
}

// DepreciationBatchPayload calculates one period for many assets and optionally posts the results.
type DepreciationBatchPayload struct {
	AssetIDs        []string          `json:"asset_ids"`
	FinancialYearID string            `json:"financial_year_id"`
	Period          string            `json:"period"`
	PeriodStart     string            `json:"period_start"` // YYYY-MM-DD
	PeriodEnd       string            `json:"period_end"`   // YYYY-MM-DD
	UnitsProduced   map[string]string `json:"units_produced,omitempty"`
	Actor           string            `json:"actor"`
	AutoPost        bool              `json:"auto_post"`
}

// NewCloseMonthTask builds a month-close task. Only one close per scope and
// date can be queued at a time.
func NewCloseMonthTask(p CloseMonthPayload) (*asynq.Task, error) {
	if _, err := parseDate(p.ClosingDate); err != nil {
		return nil, err
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCloseMonth, body,
		asynq.Queue(QueueLedger),
		asynq.MaxRetry(5),
		asynq.TaskID(fmt.Sprintf("close_month:%s:%s:%s", p.ScopeID, p.FinancialYearID, p.ClosingDate)),
	), nil
}

// NewDepreciationBatchTask builds a depreciation batch task.
func NewDepreciationBatchTask(p DepreciationBatchPayload) (*asynq.Task, error) {
	if _, err := p.input(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDepreciationBatch, body,
		asynq.Queue(QueueLedger),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
	), nil
}

func (p CloseMonthPayload) input() (usecase.CloseMonthInput, error) {
	date, err := parseDate(p.ClosingDate)
	if err != nil {
		return usecase.CloseMonthInput{}, err
	}
	return usecase.CloseMonthInput{
		ClosingDate:     date,
		ScopeID:         p.ScopeID,
		FinancialYearID: p.FinancialYearID,
		Actor:           p.Actor,
	}, nil
}

func (p DepreciationBatchPayload) input() (usecase.BatchInput, error) {
	start, err := parseDate(p.PeriodStart)
	if err != nil {
		return usecase.BatchInput{}, err
	}
	end, err := parseDate(p.PeriodEnd)
	if err != nil {
		return usecase.BatchInput{}, err
	}

	var units map[string]decimal.Decimal
	if len(p.UnitsProduced) > 0 {
		units = make(map[string]decimal.Decimal, len(p.UnitsProduced))
		for assetID, raw := range p.UnitsProduced {
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return usecase.BatchInput{}, fmt.Errorf("units produced for %s: %w", assetID, err)
			}
			units[assetID] = d
		}
	}

	return usecase.BatchInput{
		PeriodStart:     start,
		PeriodEnd:       end,
		UnitsProduced:   units,
		AssetIDs:        p.AssetIDs,
		FinancialYearID: p.FinancialYearID,
		Period:          p.Period,
		Actor:           p.Actor,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
