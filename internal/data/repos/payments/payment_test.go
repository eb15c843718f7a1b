package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/storefront-backend/internal/data/records"
	"github.com/yungbote/storefront-backend/internal/data/repos/testutil"
	"github.com/yungbote/storefront-backend/internal/platform/dbctx"
)

func TestPaymentRepoVersionedUpdate(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewPaymentRepo(db, testutil.Logger(t))
	orderID := uuid.New()
	now := time.Now().UTC()

	failed := &records.Payment{
		OrderID: orderID, Status: "failed", Amount: decimal.RequireFromString("20.00"), Currency: "USD",
		Method: "card", RefundedAmount: decimal.Zero, CreatedAt: now.Add(-time.Minute), UpdatedAt: now,
	}
	paid := &records.Payment{
		OrderID: orderID, Status: "completed", Amount: decimal.RequireFromString("20.00"), Currency: "USD",
		Method: "card", TransactionID: "txn_1", RefundedAmount: decimal.Zero, CreatedAt: now, UpdatedAt: now,
	}
	for _, p := range []*records.Payment{failed, paid} {
		if err := repo.Create(dbc, p); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	latest, err := repo.GetLatestByOrderID(dbc, orderID)
	if err != nil || latest == nil || latest.ID != paid.ID {
		t.Fatalf("GetLatestByOrderID: got %+v err=%v", latest, err)
	}
	settled, err := repo.GetSettledByOrderID(dbc, orderID)
	if err != nil || settled == nil || settled.ID != paid.ID {
		t.Fatalf("GetSettledByOrderID: got %+v err=%v", settled, err)
	}

	locked, err := repo.LockByID(dbc, paid.ID)
	if err != nil || locked == nil {
		t.Fatalf("LockByID: got %+v err=%v", locked, err)
	}
	stale := *locked
	locked.Status = "refunded"
	locked.RefundedAmount = decimal.RequireFromString("5.00")
	ok, err := repo.UpdateByVersion(dbc, locked)
	if err != nil || !ok || locked.Version != 1 {
		t.Fatalf("UpdateByVersion: ok=%v err=%v version=%d", ok, err, locked.Version)
	}
	ok, err = repo.UpdateByVersion(dbc, &stale)
	if err != nil || ok {
		t.Fatalf("UpdateByVersion(stale): want false,nil got %v,%v", ok, err)
	}

	if err := repo.CreateRefund(dbc, &records.PaymentRefund{
		PaymentID: paid.ID, Amount: decimal.RequireFromString("5.00"), Currency: "USD", CreatedAt: now,
	}); err != nil {
		t.Fatalf("CreateRefund: %v", err)
	}
	refunds, err := repo.ListRefunds(dbc, paid.ID)
	if err != nil || len(refunds) != 1 {
		t.Fatalf("ListRefunds: got %d err=%v", len(refunds), err)
	}
	all, err := repo.ListByOrderID(dbc, orderID)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListByOrderID: got %d err=%v", len(all), err)
	}
}
