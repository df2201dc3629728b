package ledger

import (
	"context"
	"sort"

	"inventoryledger/backend/internal/domain"
)

// TransitionTable lists the legal targets for every status. Statuses with no
// entry are terminal.
type TransitionTable[S ~string] map[S][]S

func (t TransitionTable[S]) Allows(from S, to S) bool {
	for _, target := range t[from] {
		if target == to {
			return true
		}
	}
	return false
}

func (t TransitionTable[S]) Terminal(status S) bool {
	return len(t[status]) == 0
}

// check returns (noop, err). Re-applying the current status is a no-op.
func (t TransitionTable[S]) check(orderID string, from S, to S) (bool, error) {
	if from == to {
		return true, nil
	}
	if !t.Allows(from, to) {
		return false, domain.NewError(domain.KindInvalidTransition, orderID, "cannot move from %s to %s", from, to)
	}
	return false, nil
}

var SalesOrderTransitions = TransitionTable[domain.SalesOrderStatus]{
	domain.SalesOrderProcessing: {domain.SalesOrderShipped, domain.SalesOrderCompleted, domain.SalesOrderCancelled},
	domain.SalesOrderShipped:    {domain.SalesOrderCompleted, domain.SalesOrderCancelled},
}

var PurchaseOrderTransitions = TransitionTable[domain.PurchaseOrderStatus]{
	domain.PurchaseOrderDraft:   {domain.PurchaseOrderOrdered, domain.PurchaseOrderCancelled},
	domain.PurchaseOrderOrdered: {domain.PurchaseOrderReceived, domain.PurchaseOrderCancelled},
}

// StockMutator applies a signed quantity change to one (product, warehouse)
// cell. Implementations must refuse a change that would leave the cell
// negative with a domain.KindInsufficientStock error.
type StockMutator interface {
	Adjust(ctx context.Context, productID string, warehouseID string, delta int) error
}

type Transition struct {
	From         domain.SalesOrderStatus
	To           domain.SalesOrderStatus
	StockApplied bool
	Deltas       []domain.StockAdjustment
}

type SalesOrderMachine struct {
	table TransitionTable[domain.SalesOrderStatus]
}

func NewSalesOrderMachine() *SalesOrderMachine {
	return &SalesOrderMachine{table: SalesOrderTransitions}
}

// Transition moves order to target. Entering shipped or completed from a
// status that has not yet moved stock applies one stock change per product
// through stock. If any change fails, the changes already made are reversed
// and order is left untouched.
func (m *SalesOrderMachine) Transition(ctx context.Context, order *domain.SalesOrder, target domain.SalesOrderStatus, stock StockMutator) (Transition, error) {
	if !target.IsValid() {
		return Transition{}, domain.NewError(domain.KindInvalidInput, order.ID, "unknown status %q", target)
	}
	result := Transition{From: order.Status, To: target}
	noop, err := m.table.check(order.ID, order.Status, target)
	if err != nil {
		return Transition{}, err
	}
	if noop {
		return result, nil
	}

	if target.Fulfilled() && !order.Status.Fulfilled() {
		deltas := StockDeltas(*order)
		if err := applyAll(ctx, stock, deltas); err != nil {
			return Transition{}, err
		}
		result.StockApplied = true
		result.Deltas = deltas
	}

	order.Status = target
	return result, nil
}

// StockDeltas returns the per-product change a fulfilled order makes at its
// source warehouse: negative for sales, positive for returns.
func StockDeltas(order domain.SalesOrder) []domain.StockAdjustment {
	sign := -1
	if order.Type == domain.SalesOrderTypeReturn {
		sign = 1
	}
	byProduct := make(map[string]int, len(order.Items))
	for _, item := range order.Items {
		byProduct[item.ProductID] += item.Quantity
	}
	deltas := make([]domain.StockAdjustment, 0, len(byProduct))
	for productID, qty := range byProduct {
		deltas = append(deltas, domain.StockAdjustment{
			ProductID:   productID,
			WarehouseID: order.SourceWarehouseID,
			Delta:       sign * qty,
			Reason:      "sales_order:" + order.ID,
		})
	}
	// stable order keeps lock acquisition deterministic in the stores
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].ProductID < deltas[j].ProductID })
	return deltas
}

func applyAll(ctx context.Context, stock StockMutator, deltas []domain.StockAdjustment) error {
	for i, d := range deltas {
		if err := stock.Adjust(ctx, d.ProductID, d.WarehouseID, d.Delta); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = stock.Adjust(ctx, deltas[j].ProductID, deltas[j].WarehouseID, -deltas[j].Delta)
			}
			return err
		}
	}
	return nil
}

type PurchaseOrderMachine struct {
	table TransitionTable[domain.PurchaseOrderStatus]
}

func NewPurchaseOrderMachine() *PurchaseOrderMachine {
	return &PurchaseOrderMachine{table: PurchaseOrderTransitions}
}

// Transition validates and applies a purchase order status change. It reports
// whether the change is a no-op. Receiving never touches stock.
func (m *PurchaseOrderMachine) Transition(po *domain.PurchaseOrder, target domain.PurchaseOrderStatus) (bool, error) {
	if !target.IsValid() {
		return false, domain.NewError(domain.KindInvalidInput, po.ID, "unknown status %q", target)
	}
	noop, err := m.table.check(po.ID, po.Status, target)
	if err != nil || noop {
		return noop, err
	}
	po.Status = target
	return false, nil
}
