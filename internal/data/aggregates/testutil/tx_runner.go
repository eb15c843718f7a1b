package testutil

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/storefront-backend/internal/data/aggregates"
	"github.com/yungbote/storefront-backend/internal/platform/dbctx"
)

// InjectedTxRunner injects begin/commit failures around aggregate writes.
// With DB set the body runs in a real gorm transaction and an injected commit
// failure rolls it back, so tests can assert that nothing was persisted.
type InjectedTxRunner struct {
	mu sync.Mutex

	DB *gorm.DB

	FailBegin      error
	FailBeforeBody error
	FailCommit     error
	// FailCommitOnCall limits FailCommit to the n-th InTx call (1-based). Zero means every call.
	FailCommitOnCall int

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	call := r.BeginCalls
	failBegin := r.FailBegin
	failBeforeBody := r.FailBeforeBody
	failCommit := r.FailCommit
	if r.FailCommitOnCall > 0 && r.FailCommitOnCall != call {
		failCommit = nil
	}
	db := r.DB
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	if failBeforeBody != nil {
		r.rolledBack()
		return failBeforeBody
	}
	if fn == nil {
		r.committed()
		return nil
	}

	body := func(dbc dbctx.Context) error {
		if err := fn(dbc); err != nil {
			return err
		}
		return failCommit
	}

	var err error
	if db != nil {
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return body(dbctx.Context{Ctx: ctx, Tx: tx})
		})
	} else {
		err = body(dbctx.Context{Ctx: ctx})
	}
	if err != nil {
		r.rolledBack()
		return err
	}
	r.committed()
	return nil
}

func (r *InjectedTxRunner) committed() {
	r.mu.Lock()
	r.CommitCalls++
	r.mu.Unlock()
}

func (r *InjectedTxRunner) rolledBack() {
	r.mu.Lock()
	r.RollbackCalls++
	r.mu.Unlock()
}
