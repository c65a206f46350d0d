package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iho/orgledger/internal/domain"
)

// withTx runs fn inside a read-write transaction bounded by
// DefaultTransactionTimeout. fn's error aborts the transaction.
func withTx(ctx context.Context, tm TransactionManager, fn func(ctx context.Context, tx Transaction) error) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := tm.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// withReadTx runs fn against a single read-only snapshot.
func withReadTx(ctx context.Context, tm TransactionManager, fn func(ctx context.Context, tx Transaction) error) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := tm.BeginReadOnly(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type auditRecord struct {
	scopeID      string
	actor        string
	action       domain.AuditAction
	resourceType string
	resourceID   string
	reason       string
	before       any
	after        any
}

func writeAudit(ctx context.Context, repo AuditRepository, tx Transaction, at time.Time, r auditRecord) error {
	if repo == nil {
		return nil
	}
	return repo.Create(ctx, tx, &domain.AuditLog{
		ID:           uuid.NewString(),
		ScopeID:      r.scopeID,
		Actor:        r.actor,
		Action:       r.action,
		ResourceType: r.resourceType,
		ResourceID:   r.resourceID,
		Reason:       strings.TrimSpace(r.reason),
		BeforeState:  domain.MarshalState(r.before),
		AfterState:   domain.MarshalState(r.after),
		CreatedAt:    at,
	})
}

func writeEvent(ctx context.Context, repo OutboxRepository, tx Transaction, ev *domain.OutboxEvent) error {
	if repo == nil {
		return nil
	}
	return repo.Create(ctx, tx, ev)
}

func defaultNow() time.Time {
	return time.Now().UTC()
}
