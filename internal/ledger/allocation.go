package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"inventoryledger/backend/internal/domain"
)

type CostLine struct {
	Quantity int
	UnitCost decimal.Decimal
}

type LineAllocation struct {
	ItemValue        decimal.Decimal `json:"item_value"`
	AllocatedExpense decimal.Decimal `json:"allocated_expense"`
	FinalUnitCost    decimal.Decimal `json:"final_unit_cost"`
}

type Allocation struct {
	Lines          []LineAllocation `json:"lines"`
	TotalItemValue decimal.Decimal  `json:"total_item_value"`
	TotalExpense   decimal.Decimal  `json:"total_expense"`
}

// Allocate spreads the expenses over the lines in proportion to each line's
// value (quantity x unit cost) and derives the landed unit cost. Nothing is
// rounded here; the allocated shares sum to the total expense.
func Allocate(lines []CostLine, expenses []decimal.Decimal) (Allocation, error) {
	totalExpense := decimal.Zero
	for i, amount := range expenses {
		if amount.IsNegative() {
			return Allocation{}, domain.NewError(domain.KindInvalidInput, fmt.Sprintf("expense[%d]", i), "expense cannot be negative")
		}
		totalExpense = totalExpense.Add(amount)
	}

	values := make([]decimal.Decimal, len(lines))
	totalValue := decimal.Zero
	for i, line := range lines {
		if line.Quantity < 0 {
			return Allocation{}, domain.NewError(domain.KindInvalidInput, fmt.Sprintf("item[%d]", i), "quantity cannot be negative")
		}
		if line.UnitCost.IsNegative() {
			return Allocation{}, domain.NewError(domain.KindInvalidInput, fmt.Sprintf("item[%d]", i), "unit cost cannot be negative")
		}
		values[i] = line.UnitCost.Mul(decimal.NewFromInt(int64(line.Quantity)))
		totalValue = totalValue.Add(values[i])
	}

	out := Allocation{
		Lines:          make([]LineAllocation, len(lines)),
		TotalItemValue: totalValue,
		TotalExpense:   totalExpense,
	}
	for i, line := range lines {
		share := decimal.Zero
		if !totalValue.IsZero() {
			share = values[i].Mul(totalExpense).Div(totalValue)
		}
		final := line.UnitCost
		if line.Quantity > 0 {
			final = final.Add(share.Div(decimal.NewFromInt(int64(line.Quantity))))
		}
		out.Lines[i] = LineAllocation{
			ItemValue:        values[i],
			AllocatedExpense: share,
			FinalUnitCost:    final,
		}
	}
	return out, nil
}

// AllocatePurchaseOrder runs Allocate over a purchase order's items and
// expenses in order.
func AllocatePurchaseOrder(po domain.PurchaseOrder) (Allocation, error) {
	lines := make([]CostLine, len(po.Items))
	for i, item := range po.Items {
		lines[i] = CostLine{Quantity: item.Quantity, UnitCost: item.Price}
	}
	expenses := make([]decimal.Decimal, len(po.Expenses))
	for i, expense := range po.Expenses {
		expenses[i] = expense.Amount
	}
	return Allocate(lines, expenses)
}
