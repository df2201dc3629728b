package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventoryledger/backend/internal/domain"
	"inventoryledger/backend/internal/ledger"
	"inventoryledger/backend/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	ctx := context.Background()
	_, err := s.CreateWarehouse(ctx, domain.Warehouse{ID: "wh-1", Name: "Main", Kind: domain.WarehouseKindMain})
	require.NoError(t, err)
	for _, id := range []string{"p1", "p2"} {
		_, err := s.CreateProduct(ctx, domain.Product{ID: id, Name: id, CostPrice: decimal.NewFromInt(1), Price: decimal.NewFromInt(2)})
		require.NoError(t, err)
	}
	return s
}

func seedStock(t *testing.T, s *Store, productID string, qty int) {
	t.Helper()
	_, err := s.AdjustStock(context.Background(), domain.StockAdjustment{ProductID: productID, WarehouseID: "wh-1", Delta: qty})
	require.NoError(t, err)
}

func createOrder(t *testing.T, s *Store, id string, items ...domain.SalesOrderItem) {
	t.Helper()
	_, err := s.CreateSalesOrder(context.Background(), domain.SalesOrder{
		ID:                id,
		Items:             items,
		Type:              domain.SalesOrderTypeSale,
		SourceWarehouseID: "wh-1",
		PaymentMethod:     domain.PaymentCash,
		ShiftID:           "shift-1",
		TotalAmount:       decimal.NewFromInt(10),
	})
	require.NoError(t, err)
}

func transitionFn(machine *ledger.SalesOrderMachine, target domain.SalesOrderStatus, applied *bool) store.SalesOrderMutation {
	return func(order *domain.SalesOrder, stock store.StockWriter) error {
		res, err := machine.Transition(context.Background(), order, target, stock)
		if err != nil {
			return err
		}
		if applied != nil {
			*applied = res.StockApplied
		}
		return nil
	}
}

func stockOf(t *testing.T, s *Store, productID string) int {
	t.Helper()
	p, err := s.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.StockLocations["wh-1"]
}

func TestAdjustStock_NeverNegative(t *testing.T) {
	s := newTestStore(t)
	seedStock(t, s, "p1", 3)

	qty, err := s.AdjustStock(context.Background(), domain.StockAdjustment{ProductID: "p1", WarehouseID: "wh-1", Delta: -4})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 3, qty)
	assert.Equal(t, 3, stockOf(t, s, "p1"))

	_, err = s.AdjustStock(context.Background(), domain.StockAdjustment{ProductID: "ghost", WarehouseID: "wh-1", Delta: 1})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateSalesOrder_ConcurrentCompleteAppliesOnce(t *testing.T) {
	s := newTestStore(t)
	seedStock(t, s, "p1", 10)
	createOrder(t, s, "so-1", domain.SalesOrderItem{ProductID: "p1", Quantity: 4, Price: decimal.NewFromInt(2)})
	machine := ledger.NewSalesOrderMachine()

	const workers = 8
	applied := make([]bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.UpdateSalesOrder(context.Background(), "so-1", transitionFn(machine, domain.SalesOrderCompleted, &applied[i]))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	count := 0
	for _, a := range applied {
		if a {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, 6, stockOf(t, s, "p1"))
}

func TestUpdateSalesOrder_CompetingOrdersNeverOversell(t *testing.T) {
	s := newTestStore(t)
	seedStock(t, s, "p1", 5)
	createOrder(t, s, "so-a", domain.SalesOrderItem{ProductID: "p1", Quantity: 3})
	createOrder(t, s, "so-b", domain.SalesOrderItem{ProductID: "p1", Quantity: 3})
	machine := ledger.NewSalesOrderMachine()

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, id := range []string{"so-a", "so-b"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = s.UpdateSalesOrder(context.Background(), id, transitionFn(machine, domain.SalesOrderShipped, nil))
		}(i, id)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, domain.ErrInsufficientStock)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, stockOf(t, s, "p1"))
}

func TestUpdateSalesOrder_FailureLeavesEverythingUntouched(t *testing.T) {
	s := newTestStore(t)
	seedStock(t, s, "p1", 5)
	seedStock(t, s, "p2", 3)
	createOrder(t, s, "so-1",
		domain.SalesOrderItem{ProductID: "p1", Quantity: 5},
		domain.SalesOrderItem{ProductID: "p2", Quantity: 100},
	)

	_, err := s.UpdateSalesOrder(context.Background(), "so-1", transitionFn(ledger.NewSalesOrderMachine(), domain.SalesOrderCompleted, nil))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 5, stockOf(t, s, "p1"))
	assert.Equal(t, 3, stockOf(t, s, "p2"))

	order, err := s.GetSalesOrder(context.Background(), "so-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SalesOrderProcessing, order.Status)

	_, err = s.UpdateSalesOrder(context.Background(), "missing", transitionFn(ledger.NewSalesOrderMachine(), domain.SalesOrderCompleted, nil))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateShift_OneOpenPerUser(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.CreateShift(ctx, domain.PosShift{UserID: "u1", OpeningBalance: decimal.NewFromInt(100)})
	require.NoError(t, err)
	_, err = s.CreateShift(ctx, domain.PosShift{UserID: "u1"})
	require.ErrorIs(t, err, store.ErrConflict)

	open, err := s.GetOpenShiftByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, open.ID)

	_, err = s.GetOpenShiftByUser(ctx, "u2")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateShift_ConcurrentCloseHasOneWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateShift(ctx, domain.PosShift{ID: "shift-1", UserID: "u1", OpeningBalance: decimal.NewFromInt(100)})
	require.NoError(t, err)

	const workers = 6
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.UpdateShift(ctx, "shift-1", func(shift *domain.PosShift, orders []domain.SalesOrder) error {
				summary, err := ledger.Reconcile(*shift, orders, decimal.NewFromInt(100), time.Now().UTC())
				if err != nil {
					return err
				}
				ledger.CloseWith(shift, summary)
				return nil
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		require.ErrorIs(t, err, domain.ErrShiftAlreadyClosed)
	}
	assert.Equal(t, 1, winners)

	_, err = s.CreateShift(ctx, domain.PosShift{UserID: "u1"})
	require.NoError(t, err)
}

func TestUpdatePurchaseOrder_PricingCommitsWithOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreatePurchaseOrder(ctx, domain.PurchaseOrder{
		ID:    "po-1",
		Items: []domain.PurchaseOrderItem{{ProductID: "p1", Quantity: 1, Price: decimal.NewFromInt(3)}},
	})
	require.NoError(t, err)

	price := decimal.NewFromInt(10)
	po, err := s.UpdatePurchaseOrder(ctx, "po-1", func(po *domain.PurchaseOrder) ([]store.PricingUpdate, error) {
		po.Status = domain.PurchaseOrderOrdered
		return []store.PricingUpdate{{ProductID: "p1", CostPrice: decimal.NewFromInt(4), Price: &price}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseOrderOrdered, po.Status)

	p, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p.CostPrice.Equal(decimal.NewFromInt(4)))
	assert.True(t, p.ProfitMargin.Equal(decimal.NewFromInt(60)))

	_, err = s.UpdatePurchaseOrder(ctx, "po-1", func(po *domain.PurchaseOrder) ([]store.PricingUpdate, error) {
		po.Status = domain.PurchaseOrderCancelled
		return []store.PricingUpdate{{ProductID: "p1", CostPrice: decimal.NewFromInt(9)}, {ProductID: "ghost"}}, nil
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	unchanged, err := s.GetPurchaseOrder(ctx, "po-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseOrderOrdered, unchanged.Status)
	p, err = s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p.CostPrice.Equal(decimal.NewFromInt(4)))

	boom := errors.New("boom")
	_, err = s.UpdatePurchaseOrder(ctx, "po-1", func(po *domain.PurchaseOrder) ([]store.PricingUpdate, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
}

func TestFeasibilityStudies_UpsertReplaces(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := s.UpsertFeasibilityStudy(ctx, domain.FeasibilityStudy{ID: "INV-2026-01-01", CreationDate: now})
	require.NoError(t, err)
	_, err = s.UpsertFeasibilityStudy(ctx, domain.FeasibilityStudy{ID: "INV-2026-01-01", CreationDate: now.Add(time.Minute), Items: []domain.FeasibilityItem{{ProductID: "p1"}}})
	require.NoError(t, err)

	list, err := s.ListFeasibilityStudies(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Items, 1)

	require.NoError(t, s.DeleteFeasibilityStudy(ctx, "INV-2026-01-01"))
	require.ErrorIs(t, s.DeleteFeasibilityStudy(ctx, "INV-2026-01-01"), store.ErrNotFound)
}

func TestNewSeeded(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	warehouses, err := s.ListWarehouses(ctx)
	require.NoError(t, err)
	assert.Len(t, warehouses, 3)

	coffee, err := s.GetProduct(ctx, "prd-coffee")
	require.NoError(t, err)
	assert.Equal(t, 110, coffee.TotalStock())
	assert.True(t, coffee.ProfitMargin.Equal(decimal.RequireFromString("37.5")))
}
