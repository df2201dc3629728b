package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"inventoryledger/backend/internal/domain"
	"inventoryledger/backend/internal/ledger"
	"inventoryledger/backend/internal/store"
)

func (s *Service) CreatePurchaseOrder(ctx context.Context, req domain.PurchaseOrderCreateRequest) (domain.PurchaseOrder, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.PurchaseOrder{}, err
	}

	warehouseID := strings.TrimSpace(req.DestinationWarehouseID)
	if _, err := s.repo.GetWarehouse(ctx, warehouseID); err != nil {
		return domain.PurchaseOrder{}, translate(err, domain.KindNotFound, warehouseID)
	}
	items, expenses, err := s.purchaseLines(ctx, req.Items, req.Expenses)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	now := s.now()
	created, err := s.repo.CreatePurchaseOrder(ctx, domain.PurchaseOrder{
		Items:                  items,
		Expenses:               expenses,
		Status:                 domain.PurchaseOrderDraft,
		DestinationWarehouseID: warehouseID,
		CreatedAt:              now,
		UpdatedAt:              now,
	})
	if err != nil {
		return domain.PurchaseOrder{}, translate(err, domain.KindOrderNotFound, "")
	}

	s.logAudit(ctx, "purchase_order_create", "purchase_order", created.ID, fmt.Sprintf("items=%d,expenses=%d", len(items), len(expenses)))
	return *created, nil
}

// UpdatePurchaseOrder replaces items and expenses while the order is still
// draft or ordered.
func (s *Service) UpdatePurchaseOrder(ctx context.Context, id string, req domain.PurchaseOrderUpdateRequest) (domain.PurchaseOrder, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.PurchaseOrder{}, err
	}

	items, expenses, err := s.purchaseLines(ctx, req.Items, req.Expenses)
	if err != nil {
		return domain.PurchaseOrder{}, err
	}

	updated, err := s.repo.UpdatePurchaseOrder(ctx, id, func(po *domain.PurchaseOrder) ([]store.PricingUpdate, error) {
		if !po.Editable() {
			return nil, domain.NewError(domain.KindInvalidTransition, po.ID, "purchase order is %s and can no longer be edited", po.Status)
		}
		po.Items = items
		po.Expenses = expenses
		po.UpdatedAt = s.now()
		return nil, nil
	})
	if err != nil {
		return domain.PurchaseOrder{}, translate(err, domain.KindOrderNotFound, id)
	}

	s.logAudit(ctx, "purchase_order_update", "purchase_order", updated.ID, fmt.Sprintf("items=%d,expenses=%d", len(items), len(expenses)))
	return *updated, nil
}

func (s *Service) purchaseLines(ctx context.Context, inputs []domain.PurchaseOrderItemInput, expenseInputs []domain.PurchaseOrderExpenseInput) ([]domain.PurchaseOrderItem, []domain.PurchaseOrderExpense, error) {
	if len(inputs) == 0 {
		return nil, nil, domain.NewError(domain.KindInvalidInput, "", "purchase order needs at least one item")
	}

	items := make([]domain.PurchaseOrderItem, 0, len(inputs))
	productIDs := make([]string, 0, len(inputs))
	for _, input := range inputs {
		item, err := domain.NewPurchaseOrderItem(input.ProductID, input.Quantity, input.Price, input.NewSellingPrice)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, item)
		productIDs = append(productIDs, item.ProductID)
	}
	if err := s.requireProducts(ctx, productIDs); err != nil {
		return nil, nil, err
	}

	expenses := make([]domain.PurchaseOrderExpense, 0, len(expenseInputs))
	for _, input := range expenseInputs {
		expense, err := domain.NewPurchaseOrderExpense(input.Description, input.Amount)
		if err != nil {
			return nil, nil, err
		}
		expenses = append(expenses, expense)
	}
	return items, expenses, nil
}

func (s *Service) requireProducts(ctx context.Context, ids []string) error {
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return domain.NewError(domain.KindNotFound, id, "product not found")
		}
	}
	return nil
}

func (s *Service) GetPurchaseOrder(ctx context.Context, id string) (domain.PurchaseOrder, error) {
	po, err := s.repo.GetPurchaseOrder(ctx, id)
	if err != nil {
		return domain.PurchaseOrder{}, translate(err, domain.KindOrderNotFound, id)
	}
	return *po, nil
}

func (s *Service) ListPurchaseOrders(ctx context.Context, status string, limit int) ([]domain.PurchaseOrder, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && !domain.PurchaseOrderStatus(status).IsValid() {
		return nil, domain.NewError(domain.KindInvalidInput, status, "unknown purchase order status")
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListPurchaseOrders(ctx, status, limit)
}

// CreateSalesOrder records a sale or return in processing status. Stock does
// not move until the order is shipped or completed.
func (s *Service) CreateSalesOrder(ctx context.Context, req domain.SalesOrderCreateRequest) (domain.SalesOrder, error) {
	if err := requireRole(ctx, domain.RoleAdmin, domain.RoleCashier); err != nil {
		return domain.SalesOrder{}, err
	}
	if !req.Type.IsValid() || !req.PaymentMethod.IsValid() {
		return domain.SalesOrder{}, domain.NewError(domain.KindInvalidInput, "", "unknown order type or payment method")
	}
	if len(req.Items) == 0 {
		return domain.SalesOrder{}, domain.NewError(domain.KindInvalidInput, "", "sales order needs at least one item")
	}

	warehouseID := strings.TrimSpace(req.SourceWarehouseID)
	warehouse, err := s.repo.GetWarehouse(ctx, warehouseID)
	if err != nil {
		return domain.SalesOrder{}, translate(err, domain.KindNotFound, warehouseID)
	}
	if req.Type == domain.SalesOrderTypeSale && !warehouse.SaleEligible() {
		return domain.SalesOrder{}, domain.NewError(domain.KindInvalidInput, warehouse.ID, "cannot sell from an in-transit warehouse")
	}

	items := make([]domain.SalesOrderItem, 0, len(req.Items))
	productIDs := make([]string, 0, len(req.Items))
	for _, input := range req.Items {
		item, err := domain.NewSalesOrderItem(input.ProductID, input.Quantity, input.Price)
		if err != nil {
			return domain.SalesOrder{}, err
		}
		items = append(items, item)
		productIDs = append(productIDs, item.ProductID)
	}
	if err := s.requireProducts(ctx, productIDs); err != nil {
		return domain.SalesOrder{}, err
	}

	shiftID := strings.TrimSpace(req.ShiftID)
	if shiftID != "" {
		shift, err := s.repo.GetShift(ctx, shiftID)
		if err != nil {
			return domain.SalesOrder{}, translate(err, domain.KindShiftNotFound, shiftID)
		}
		if shift.Status != domain.ShiftStatusOpen {
			return domain.SalesOrder{}, domain.NewError(domain.KindShiftAlreadyClosed, shiftID, "cannot record orders on a closed shift")
		}
	}

	now := s.now()
	order := domain.SalesOrder{
		Items:             items,
		Status:            domain.SalesOrderProcessing,
		Type:              req.Type,
		SourceWarehouseID: warehouse.ID,
		PaymentMethod:     req.PaymentMethod,
		ShiftID:           shiftID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	order.ApplyTotals(s.taxRate)

	created, err := s.repo.CreateSalesOrder(ctx, order)
	if err != nil {
		return domain.SalesOrder{}, translate(err, domain.KindOrderNotFound, "")
	}

	s.logAudit(ctx, "sales_order_create", "sales_order", created.ID, fmt.Sprintf("type=%s,total=%s,shift=%s", created.Type, created.TotalAmount, created.ShiftID))
	return *created, nil
}

func (s *Service) GetSalesOrder(ctx context.Context, id string) (domain.SalesOrder, error) {
	order, err := s.repo.GetSalesOrder(ctx, id)
	if err != nil {
		return domain.SalesOrder{}, translate(err, domain.KindOrderNotFound, id)
	}
	return *order, nil
}

func (s *Service) ListSalesOrders(ctx context.Context, status string, limit int) ([]domain.SalesOrder, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && !domain.SalesOrderStatus(status).IsValid() {
		return nil, domain.NewError(domain.KindInvalidInput, status, "unknown sales order status")
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListSalesOrders(ctx, status, limit)
}

// TransitionOrderStatus moves a sales or purchase order to target. For sales
// orders the status change and its stock changes commit together or not at
// all. Receiving a purchase order fixes landed costs and reprices the
// products in the same transaction.
func (s *Service) TransitionOrderStatus(ctx context.Context, orderID string, kind domain.OrderKind, target string) (domain.TransitionResponse, error) {
	orderID = strings.TrimSpace(orderID)
	target = strings.ToLower(strings.TrimSpace(target))
	if orderID == "" {
		return domain.TransitionResponse{}, domain.NewError(domain.KindInvalidInput, "", "order id required")
	}

	switch kind {
	case domain.OrderKindSales:
		if err := requireRole(ctx, domain.RoleAdmin, domain.RoleCashier); err != nil {
			return domain.TransitionResponse{}, err
		}
		return s.transitionSalesOrder(ctx, orderID, domain.SalesOrderStatus(target))
	case domain.OrderKindPurchase:
		if err := requireRole(ctx, domain.RoleAdmin); err != nil {
			return domain.TransitionResponse{}, err
		}
		return s.transitionPurchaseOrder(ctx, orderID, domain.PurchaseOrderStatus(target))
	default:
		return domain.TransitionResponse{}, domain.NewError(domain.KindInvalidInput, orderID, "unknown order kind %q", kind)
	}
}

func (s *Service) transitionSalesOrder(ctx context.Context, orderID string, target domain.SalesOrderStatus) (domain.TransitionResponse, error) {
	var result ledger.Transition
	_, err := s.repo.UpdateSalesOrder(ctx, orderID, func(order *domain.SalesOrder, stock store.StockWriter) error {
		transition, err := s.salesMachine.Transition(ctx, order, target, stock)
		if err != nil {
			return err
		}
		if transition.From != transition.To {
			order.UpdatedAt = s.now()
		}
		result = transition
		return nil
	})
	if err != nil {
		s.log.Info("sales order transition rejected",
			zap.String("order_id", orderID),
			zap.String("target", string(target)),
			zap.Error(err),
		)
		return domain.TransitionResponse{}, translate(err, domain.KindOrderNotFound, orderID)
	}

	s.log.Info("sales order transitioned",
		zap.String("order_id", orderID),
		zap.String("from", string(result.From)),
		zap.String("to", string(result.To)),
		zap.Bool("stock_applied", result.StockApplied),
	)
	if result.From != result.To {
		detail := fmt.Sprintf("%s->%s", result.From, result.To)
		if result.StockApplied {
			adjustments := make([]string, len(result.Deltas))
			for i, delta := range result.Deltas {
				adjustments[i] = delta.String()
			}
			detail += " stock=" + strings.Join(adjustments, ";")
		}
		s.logAudit(ctx, "sales_order_transition", "sales_order", orderID, detail)
	}

	return domain.TransitionResponse{
		OrderID:      orderID,
		Kind:         domain.OrderKindSales,
		FromStatus:   string(result.From),
		ToStatus:     string(result.To),
		StockApplied: result.StockApplied,
	}, nil
}

func (s *Service) transitionPurchaseOrder(ctx context.Context, orderID string, target domain.PurchaseOrderStatus) (domain.TransitionResponse, error) {
	var from domain.PurchaseOrderStatus
	var noop bool
	_, err := s.repo.UpdatePurchaseOrder(ctx, orderID, func(po *domain.PurchaseOrder) ([]store.PricingUpdate, error) {
		from = po.Status
		var err error
		noop, err = s.purchaseMachine.Transition(po, target)
		if err != nil || noop {
			return nil, err
		}

		now := s.now()
		po.UpdatedAt = now
		if target != domain.PurchaseOrderReceived {
			return nil, nil
		}
		received := now
		po.ReceivedAt = &received
		return landedPricing(po)
	})
	if err != nil {
		return domain.TransitionResponse{}, translate(err, domain.KindOrderNotFound, orderID)
	}

	s.log.Info("purchase order transitioned",
		zap.String("order_id", orderID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.Bool("noop", noop),
	)
	if !noop {
		s.logAudit(ctx, "purchase_order_transition", "purchase_order", orderID, fmt.Sprintf("%s->%s", from, target))
	}

	return domain.TransitionResponse{
		OrderID:    orderID,
		Kind:       domain.OrderKindPurchase,
		FromStatus: string(from),
		ToStatus:   string(target),
	}, nil
}

// landedPricing stores each item's landed unit cost and returns the product
// repricing it implies. When a product appears on several lines the last line
// wins.
func landedPricing(po *domain.PurchaseOrder) ([]store.PricingUpdate, error) {
	allocation, err := ledger.AllocatePurchaseOrder(*po)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string]store.PricingUpdate, len(po.Items))
	for i := range po.Items {
		item := &po.Items[i]
		final := allocation.Lines[i].FinalUnitCost
		item.FinalCostPrice = decimal.NewNullDecimal(final)

		update := store.PricingUpdate{ProductID: item.ProductID, CostPrice: final}
		if item.NewSellingPrice.Valid {
			price := item.NewSellingPrice.Decimal
			update.Price = &price
		}
		byProduct[item.ProductID] = update
	}

	updates := make([]store.PricingUpdate, 0, len(byProduct))
	for _, update := range byProduct {
		updates = append(updates, update)
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].ProductID < updates[j].ProductID })
	return updates, nil
}
