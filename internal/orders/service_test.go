package orders

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dkravets/go-shop-checkout.git/internal/inventory"
)

// These tests need a migrated postgres; point POSTGRES_TEST_DSN at one to
// run them.
func testService(t *testing.T) (*Service, *pgxpool.Pool) {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	db, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	ref, err := LoadReference(context.Background(), db, "ordinary", "online")
	require.NoError(t, err)

	return &Service{
		DB:     db,
		Ledger: &inventory.Ledger{Log: zap.NewNop()},
		Ref:    ref,
		Log:    zap.NewNop(),
	}, db
}

func seedProduct(t *testing.T, db *pgxpool.Pool, price string, stock int) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(context.Background(), `
		INSERT INTO products(id, title, price, stock, is_active)
		VALUES ($1, $2, $3, $4, TRUE)`,
		id, "test product "+id[:8], price, stock)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.Exec(context.Background(), `DELETE FROM order_products WHERE product_id=$1`, id)
		_, _ = db.Exec(context.Background(), `DELETE FROM products WHERE id=$1`, id)
	})
	return id
}

func productStock(t *testing.T, db *pgxpool.Pool, id string) int {
	t.Helper()
	var stock int
	require.NoError(t, db.QueryRow(context.Background(),
		`SELECT stock FROM products WHERE id=$1`, id).Scan(&stock))
	return stock
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateInitOrderReservesStock(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()
	pid := seedProduct(t, db, "25.00", 10)

	orderID, err := svc.CreateInitOrder(ctx, "user-1",
		[]InitLine{{ProductID: pid, Qty: 4, UnitPrice: dec("25.00")}})
	require.NoError(t, err)

	assert.Equal(t, 6, productStock(t, db, pid))

	o, err := svc.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, o.Status)
	assert.True(t, dec("100.00").Equal(o.ProductsCost), "products cost %s", o.ProductsCost)
	assert.True(t, dec("100.00").Equal(o.TotalCost))
	require.Len(t, o.Lines, 1)
	assert.Equal(t, 4, o.Lines[0].TotalQuantity)
}

func TestCreateInitOrderAllOrNothing(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()
	ok := seedProduct(t, db, "10.00", 10)
	scarce := seedProduct(t, db, "10.00", 1)

	_, err := svc.CreateInitOrder(ctx, "user-1", []InitLine{
		{ProductID: ok, Qty: 2, UnitPrice: dec("10.00")},
		{ProductID: scarce, Qty: 5, UnitPrice: dec("10.00")},
	})
	var serr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 1, serr.Available)

	// The failed line must not have consumed the good one's stock.
	assert.Equal(t, 10, productStock(t, db, ok))
	assert.Equal(t, 1, productStock(t, db, scarce))
}

func TestCreateInitOrderEmpty(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.CreateInitOrder(context.Background(), "user-1", nil)
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestConcurrentLastUnit(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()
	pid := seedProduct(t, db, "10.00", 1)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateInitOrder(ctx, fmt.Sprintf("user-%d", i),
				[]InitLine{{ProductID: pid, Qty: 1, UnitPrice: dec("10.00")}})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		}
	}
	assert.Equal(t, 1, won, "exactly one attempt gets the last unit")
	assert.Equal(t, 0, productStock(t, db, pid))
}

func confirmTestOrder(t *testing.T, svc *Service, pid string) string {
	t.Helper()
	ctx := context.Background()
	orderID, err := svc.CreateInitOrder(ctx, "user-1",
		[]InitLine{{ProductID: pid, Qty: 2, UnitPrice: dec("10.00")}})
	require.NoError(t, err)
	_, err = svc.ConfirmOrder(ctx, orderID, Confirmation{
		FullName: "John Doe",
		Email:    "john@example.com",
		Phone:    "+79876543210",
		City:     "Moscow",
		Address:  "Red Square 1",
	})
	require.NoError(t, err)
	return orderID
}

func TestConfirmAddsDeliveryCost(t *testing.T) {
	svc, db := testService(t)
	pid := seedProduct(t, db, "10.00", 10)

	orderID := confirmTestOrder(t, svc, pid)
	o, err := svc.GetOrder(context.Background(), orderID)
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmed, o.Status)
	require.NotNil(t, o.DeliveryCost)
	// 20.00 worth of products is under ordinary's free-over threshold.
	assert.True(t, dec("5.00").Equal(*o.DeliveryCost), "delivery %s", *o.DeliveryCost)
	assert.True(t, dec("25.00").Equal(o.TotalCost), "total %s", o.TotalCost)
}

func TestFinalizePaymentIdempotent(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()
	pid := seedProduct(t, db, "10.00", 10)
	orderID := confirmTestOrder(t, svc, pid)

	_, err := svc.BeginPayment(ctx, orderID)
	require.NoError(t, err)

	require.NoError(t, svc.FinalizePayment(ctx, orderID, StatusPayed, nil))
	// Duplicate delivery of the same terminal result is a no-op.
	require.NoError(t, svc.FinalizePayment(ctx, orderID, StatusPayed, nil))

	o, err := svc.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, StatusPayed, o.Status)

	// But payed is terminal: the opposite result is refused.
	err = svc.FinalizePayment(ctx, orderID, StatusPaymentRejected, nil)
	var oerr *OrderError
	assert.ErrorAs(t, err, &oerr)
}

func TestRejectedOrderCanRetryPayment(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()
	pid := seedProduct(t, db, "10.00", 10)
	orderID := confirmTestOrder(t, svc, pid)

	_, err := svc.BeginPayment(ctx, orderID)
	require.NoError(t, err)
	msg := "Not enough money on the card!"
	require.NoError(t, svc.FinalizePayment(ctx, orderID, StatusPaymentRejected, &msg))

	o, err := svc.GetOrder(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, o.PaymentComment)
	assert.Equal(t, msg, *o.PaymentComment)

	// A new attempt clears the comment and re-enters payment_in_progress.
	_, err = svc.BeginPayment(ctx, orderID)
	require.NoError(t, err)
	o, err = svc.GetOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaymentInProgress, o.Status)
	assert.Nil(t, o.PaymentComment)
}

func TestUpdateLineDecreaseRestocks(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()
	pid := seedProduct(t, db, "25.00", 10)

	orderID, err := svc.CreateInitOrder(ctx, "user-1",
		[]InitLine{{ProductID: pid, Qty: 10, UnitPrice: dec("10.00")}})
	require.NoError(t, err)
	assert.Equal(t, 0, productStock(t, db, pid))

	o, err := svc.UpdateLine(ctx, orderID, pid, 4)
	require.NoError(t, err)

	assert.Equal(t, 6, productStock(t, db, pid))
	require.Len(t, o.Lines, 1)
	assert.Equal(t, 4, o.Lines[0].TotalQuantity)
	// 100.00 for 10 rescaled down to 4 at the original rate.
	assert.True(t, dec("40.00").Equal(o.Lines[0].TotalPrice),
		"line total %s", o.Lines[0].TotalPrice)
}

func TestRemoveLastLineLeavesEmptyOrder(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()
	pid := seedProduct(t, db, "10.00", 10)

	orderID, err := svc.CreateInitOrder(ctx, "user-1",
		[]InitLine{{ProductID: pid, Qty: 3, UnitPrice: dec("10.00")}})
	require.NoError(t, err)

	o, err := svc.RemoveLine(ctx, orderID, pid)
	require.NoError(t, err)

	assert.Equal(t, 10, productStock(t, db, pid))
	assert.Empty(t, o.Lines)
	assert.True(t, o.ProductsCost.IsZero())
}

func TestArchiveReleasesStock(t *testing.T) {
	svc, db := testService(t)
	ctx := context.Background()
	pid := seedProduct(t, db, "10.00", 10)

	orderID, err := svc.CreateInitOrder(ctx, "user-1",
		[]InitLine{{ProductID: pid, Qty: 4, UnitPrice: dec("10.00")}})
	require.NoError(t, err)
	assert.Equal(t, 6, productStock(t, db, pid))

	require.NoError(t, svc.Archive(ctx, orderID))
	assert.Equal(t, 10, productStock(t, db, pid))

	// Archived orders disappear from reads.
	_, err = svc.GetOrder(ctx, orderID)
	var nferr *NotFoundError
	assert.ErrorAs(t, err, &nferr)
}

func TestGetOrderNotFound(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.GetOrder(context.Background(), uuid.NewString())
	var nferr *NotFoundError
	assert.ErrorAs(t, err, &nferr)
}
