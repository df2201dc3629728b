package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventoryledger/backend/internal/domain"
)

func TestProjectPurchaseOrder_EndToEnd(t *testing.T) {
	nine, eighteen := d("9"), d("18")
	po := domain.PurchaseOrder{
		ID:     "42",
		Status: domain.PurchaseOrderReceived,
		Items: []domain.PurchaseOrderItem{
			{ProductID: "p1", Quantity: 10, Price: d("5"), NewSellingPrice: decimal.NewNullDecimal(nine)},
			{ProductID: "p2", Quantity: 5, Price: d("10"), NewSellingPrice: decimal.NewNullDecimal(eighteen)},
		},
		Expenses: []domain.PurchaseOrderExpense{{Description: "freight", Amount: d("50")}},
	}
	products := map[string]domain.Product{
		"p1": {ID: "p1", Name: "Coffee", Price: d("8")},
		"p2": {ID: "p2", Name: "Tea", Price: d("12")},
	}
	at := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	study, err := ProjectPurchaseOrder(po, products, at)
	require.NoError(t, err)

	assert.Equal(t, "PO-42", study.ID)
	assert.Equal(t, domain.FeasibilitySourcePurchaseOrder, study.SourceType)
	require.Len(t, study.Items, 2)

	assert.True(t, study.Items[0].FinalCostPrice.Equal(d("7.5")))
	assert.True(t, study.Items[1].FinalCostPrice.Equal(d("15")))
	assert.True(t, study.Items[0].UnitProfit.Equal(d("1.5")))
	assert.True(t, study.Items[1].UnitProfit.Equal(d("3")))
	assert.True(t, study.Items[0].TotalProfit.Equal(d("15")))
	assert.True(t, study.Items[1].TotalProfit.Equal(d("15")))
	assert.Equal(t, "Coffee", study.Items[0].ProductName)

	assert.True(t, study.Totals.TotalCost.Equal(d("150")))
	assert.True(t, study.Totals.TotalExpectedRevenue.Equal(d("180")))
	assert.True(t, study.Totals.TotalExpectedProfit.Equal(d("30")))
	assert.True(t, study.Totals.AverageMarginPercent.Round(2).Equal(d("16.67")))

	rounded := study.Rounded(2)
	assert.Equal(t, "16.67", rounded.Totals.AverageMarginPercent.String())
}

func TestProjectPurchaseOrder_FallsBackToProductPrice(t *testing.T) {
	po := domain.PurchaseOrder{
		ID:    "7",
		Items: []domain.PurchaseOrderItem{{ProductID: "p1", Quantity: 2, Price: d("3")}},
	}
	products := map[string]domain.Product{"p1": {ID: "p1", Name: "Soap", Price: d("4")}}

	study, err := ProjectPurchaseOrder(po, products, time.Now())
	require.NoError(t, err)
	assert.True(t, study.Items[0].SellingPrice.Equal(d("4")))
	assert.True(t, study.Totals.TotalExpectedProfit.Equal(d("2")))
}

func TestProjectPurchaseOrder_UnknownProduct(t *testing.T) {
	po := domain.PurchaseOrder{ID: "7", Items: []domain.PurchaseOrderItem{{ProductID: "ghost", Quantity: 1, Price: d("1")}}}
	_, err := ProjectPurchaseOrder(po, map[string]domain.Product{}, time.Now())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProjectInventory_ExcludesZeroStock(t *testing.T) {
	products := []domain.Product{
		{ID: "b", Name: "Bread", CostPrice: d("2"), Price: d("3"), StockLocations: map[string]int{"w1": 4, "w2": 6}},
		{ID: "a", Name: "Apple", CostPrice: d("1"), Price: d("1.5"), StockLocations: map[string]int{"w1": 0, "w2": 0}},
		{ID: "c", Name: "Cheese", CostPrice: d("5"), Price: d("5"), StockLocations: nil},
		{ID: "m", Name: "Milk", CostPrice: d("1"), Price: d("2"), StockLocations: map[string]int{"w3": 1}},
	}
	at := time.Date(2026, 1, 2, 23, 59, 0, 0, time.UTC)

	study := ProjectInventory(products, at)
	assert.Equal(t, "INV-2026-01-02", study.ID)
	require.Len(t, study.Items, 2)
	assert.Equal(t, "b", study.Items[0].ProductID)
	assert.Equal(t, 10, study.Items[0].Quantity)
	assert.Equal(t, "m", study.Items[1].ProductID)

	assert.True(t, study.Totals.TotalCost.Equal(d("21")))
	assert.True(t, study.Totals.TotalExpectedRevenue.Equal(d("32")))
	assert.True(t, study.Totals.TotalExpectedProfit.Equal(d("11")))
}

func TestProjectInventory_ZeroRevenueMarginIsZero(t *testing.T) {
	products := []domain.Product{
		{ID: "free", Name: "Sample", CostPrice: d("1"), Price: decimal.Zero, StockLocations: map[string]int{"w1": 3}},
	}
	study := ProjectInventory(products, time.Now())
	assert.True(t, study.Totals.TotalExpectedRevenue.IsZero())
	assert.True(t, study.Totals.AverageMarginPercent.IsZero())
	assert.True(t, study.Totals.TotalExpectedProfit.Equal(d("-3")))

	empty := ProjectInventory(nil, time.Now())
	assert.Empty(t, empty.Items)
	assert.True(t, empty.Totals.AverageMarginPercent.IsZero())
}
