package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/storefront-backend/internal/data/records"
	"github.com/yungbote/storefront-backend/internal/data/repos/testutil"
	"github.com/yungbote/storefront-backend/internal/domain/order"
	"github.com/yungbote/storefront-backend/internal/domain/values"
	"github.com/yungbote/storefront-backend/internal/platform/dbctx"
)

func TestOrderRepoCreateAndUpdateState(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewOrderRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, ctx, tx)

	o, err := order.New(uuid.Nil, u.ID, []order.Line{
		{ProductID: uuid.New(), ProductName: "A", UnitPrice: values.MustMoney("10.00", "USD"), Quantity: 2},
		{ProductID: uuid.New(), ProductName: "B", UnitPrice: values.MustMoney("5.00", "USD"), Quantity: 1},
	}, order.Address{Line1: "1 Main", City: "Town", PostalCode: "00001", Country: "US"}, time.Now())
	if err != nil {
		t.Fatalf("order.New: %v", err)
	}
	if err := repo.Create(dbc, records.OrderFromDomain(o)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	row, err := repo.LockByID(dbc, o.ID())
	if err != nil {
		t.Fatalf("LockByID: %v", err)
	}
	loaded, err := row.ToDomain()
	if err != nil {
		t.Fatalf("ToDomain: %v", err)
	}
	if !loaded.Total().Equal(values.MustMoney("25.00", "USD")) || len(loaded.Lines()) != 2 {
		t.Fatalf("unexpected order: %+v", loaded.Snapshot())
	}

	if _, err := loaded.MarkPaid(uuid.New(), time.Now()); err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if err := repo.UpdateState(dbc, records.OrderFromDomain(loaded)); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	again, err := repo.GetByID(dbc, o.ID())
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if again.Status != string(order.StatusConfirmed) || again.PaymentID == nil {
		t.Fatalf("state not persisted: status=%s payment=%v", again.Status, again.PaymentID)
	}

	list, err := repo.ListByUserID(dbc, u.ID, 10)
	if err != nil {
		t.Fatalf("ListByUserID: %v", err)
	}
	if len(list) != 1 || len(list[0].Lines) != 2 {
		t.Fatalf("ListByUserID: unexpected result: %+v", list)
	}
}
