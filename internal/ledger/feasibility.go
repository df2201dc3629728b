package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"inventoryledger/backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// ProjectPurchaseOrder builds a study from a purchase order. The landed cost
// comes from Allocate; the selling price is the item's override when present,
// otherwise the product's current price.
func ProjectPurchaseOrder(po domain.PurchaseOrder, products map[string]domain.Product, at time.Time) (domain.FeasibilityStudy, error) {
	allocation, err := AllocatePurchaseOrder(po)
	if err != nil {
		return domain.FeasibilityStudy{}, err
	}

	items := make([]domain.FeasibilityItem, 0, len(po.Items))
	for i, line := range po.Items {
		product, ok := products[line.ProductID]
		if !ok {
			return domain.FeasibilityStudy{}, domain.NewError(domain.KindNotFound, line.ProductID, "product not found")
		}
		selling := product.Price
		if line.NewSellingPrice.Valid {
			selling = line.NewSellingPrice.Decimal
		}
		items = append(items, projectItem(product, line.Quantity, allocation.Lines[i].FinalUnitCost, selling))
	}

	totalCost := allocation.TotalItemValue.Add(allocation.TotalExpense)
	return domain.FeasibilityStudy{
		ID:           domain.PurchaseOrderStudyID(po.ID),
		SourceType:   domain.FeasibilitySourcePurchaseOrder,
		SourceID:     po.ID,
		CreationDate: at,
		Items:        items,
		Totals:       totals(items, totalCost),
	}, nil
}

// ProjectInventory builds a study from every product that has stock on hand,
// valued at its current cost and price. Products with no stock are omitted.
func ProjectInventory(products []domain.Product, at time.Time) domain.FeasibilityStudy {
	items := make([]domain.FeasibilityItem, 0, len(products))
	totalCost := decimal.Zero
	for _, product := range products {
		qty := product.TotalStock()
		if qty <= 0 {
			continue
		}
		items = append(items, projectItem(product, qty, product.CostPrice, product.Price))
		totalCost = totalCost.Add(product.CostPrice.Mul(decimal.NewFromInt(int64(qty))))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	id := domain.InventoryStudyID(at)
	return domain.FeasibilityStudy{
		ID:           id,
		SourceType:   domain.FeasibilitySourceCurrentInventory,
		SourceID:     id,
		CreationDate: at,
		Items:        items,
		Totals:       totals(items, totalCost),
	}
}

func projectItem(product domain.Product, qty int, finalCost decimal.Decimal, selling decimal.Decimal) domain.FeasibilityItem {
	unitProfit := selling.Sub(finalCost)
	return domain.FeasibilityItem{
		ProductID:      product.ID,
		ProductName:    product.Name,
		Quantity:       qty,
		FinalCostPrice: finalCost,
		SellingPrice:   selling,
		UnitProfit:     unitProfit,
		TotalProfit:    unitProfit.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func totals(items []domain.FeasibilityItem, totalCost decimal.Decimal) domain.FeasibilityTotals {
	revenue := decimal.Zero
	for _, item := range items {
		revenue = revenue.Add(item.SellingPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	profit := revenue.Sub(totalCost)
	margin := decimal.Zero
	if !revenue.IsZero() {
		margin = profit.Div(revenue).Mul(hundred)
	}
	return domain.FeasibilityTotals{
		TotalCost:            totalCost,
		TotalExpectedRevenue: revenue,
		TotalExpectedProfit:  profit,
		AverageMarginPercent: margin,
	}
}
