package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventoryledger/backend/internal/domain"
	"inventoryledger/backend/internal/store"
	"inventoryledger/backend/internal/xid"
)

const purchaseOrderColumns = `id, status, destination_warehouse_id, items, expenses, created_at, updated_at, received_at`

func scanPurchaseOrder(row interface{ Scan(dest ...any) error }) (domain.PurchaseOrder, error) {
	var po domain.PurchaseOrder
	var destination sql.NullString
	var itemsRaw, expensesRaw []byte
	var receivedAt sql.NullTime
	if err := row.Scan(&po.ID, &po.Status, &destination, &itemsRaw, &expensesRaw, &po.CreatedAt, &po.UpdatedAt, &receivedAt); err != nil {
		return domain.PurchaseOrder{}, err
	}
	po.DestinationWarehouseID = destination.String
	po.ReceivedAt = timePtr(receivedAt)
	if err := json.Unmarshal(itemsRaw, &po.Items); err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("decode purchase order %s items: %w", po.ID, err)
	}
	if err := json.Unmarshal(expensesRaw, &po.Expenses); err != nil {
		return domain.PurchaseOrder{}, fmt.Errorf("decode purchase order %s expenses: %w", po.ID, err)
	}
	return po, nil
}

func (s *Store) CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	if len(po.Items) == 0 {
		return nil, store.ErrInvalidRecord
	}
	if po.ID == "" {
		po.ID = xid.New("po")
	}
	if po.CreatedAt.IsZero() {
		po.CreatedAt = time.Now().UTC()
	}
	if po.UpdatedAt.IsZero() {
		po.UpdatedAt = po.CreatedAt
	}
	if po.Status == "" {
		po.Status = domain.PurchaseOrderDraft
	}
	if po.Expenses == nil {
		po.Expenses = []domain.PurchaseOrderExpense{}
	}
	itemsRaw, expensesRaw, err := encodePurchaseOrder(po)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO purchase_orders (`+purchaseOrderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, po.ID, po.Status, nullString(po.DestinationWarehouseID), itemsRaw, expensesRaw, po.CreatedAt, po.UpdatedAt, nullTime(po.ReceivedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("warehouse %s: %w", po.DestinationWarehouseID, store.ErrNotFound)
		}
		return nil, err
	}
	saved := po.Clone()
	return &saved, nil
}

func encodePurchaseOrder(po domain.PurchaseOrder) ([]byte, []byte, error) {
	itemsRaw, err := json.Marshal(po.Items)
	if err != nil {
		return nil, nil, err
	}
	expenses := po.Expenses
	if expenses == nil {
		expenses = []domain.PurchaseOrderExpense{}
	}
	expensesRaw, err := json.Marshal(expenses)
	if err != nil {
		return nil, nil, err
	}
	return itemsRaw, expensesRaw, nil
}

func (s *Store) GetPurchaseOrder(ctx context.Context, id string) (*domain.PurchaseOrder, error) {
	po, err := scanPurchaseOrder(s.db.QueryRowContext(ctx, `SELECT `+purchaseOrderColumns+` FROM purchase_orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &po, nil
}

func (s *Store) ListPurchaseOrders(ctx context.Context, status string, limit int) ([]domain.PurchaseOrder, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+purchaseOrderColumns+`
		FROM purchase_orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, strings.ToLower(strings.TrimSpace(status)), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.PurchaseOrder, 0, limit)
	for rows.Next() {
		po, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, po)
	}
	return result, rows.Err()
}

// UpdatePurchaseOrder locks the order row, runs fn and writes the order and
// the pricing updates fn returns in one transaction. Products are locked in
// id order.
func (s *Store) UpdatePurchaseOrder(ctx context.Context, id string, fn store.PurchaseOrderMutation) (*domain.PurchaseOrder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	po, err := scanPurchaseOrder(tx.QueryRowContext(ctx, `SELECT `+purchaseOrderColumns+` FROM purchase_orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	updates, err := fn(&po)
	if err != nil {
		return nil, err
	}
	po.ID = id
	if po.UpdatedAt.IsZero() {
		po.UpdatedAt = time.Now().UTC()
	}

	byProduct := make(map[string]store.PricingUpdate, len(updates))
	ids := make([]string, 0, len(updates))
	for _, update := range updates {
		if _, seen := byProduct[update.ProductID]; !seen {
			ids = append(ids, update.ProductID)
		}
		byProduct[update.ProductID] = update
	}
	for _, productID := range sortStrings(ids) {
		if _, err := applyPricing(ctx, tx, byProduct[productID], po.UpdatedAt); err != nil {
			return nil, err
		}
	}

	itemsRaw, expensesRaw, err := encodePurchaseOrder(po)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE purchase_orders
		SET status = $2, destination_warehouse_id = $3, items = $4, expenses = $5, updated_at = $6, received_at = $7
		WHERE id = $1
	`, po.ID, po.Status, nullString(po.DestinationWarehouseID), itemsRaw, expensesRaw, po.UpdatedAt, nullTime(po.ReceivedAt))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &po, nil
}

const salesOrderColumns = `id, status, order_type, source_warehouse_id, payment_method, shift_id, items,
	subtotal, tax_amount, total_amount, created_at, updated_at`

func scanSalesOrder(row interface{ Scan(dest ...any) error }) (domain.SalesOrder, error) {
	var order domain.SalesOrder
	var shiftID sql.NullString
	var itemsRaw []byte
	if err := row.Scan(&order.ID, &order.Status, &order.Type, &order.SourceWarehouseID, &order.PaymentMethod,
		&shiftID, &itemsRaw, &order.Subtotal, &order.TaxAmount, &order.TotalAmount, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return domain.SalesOrder{}, err
	}
	order.ShiftID = shiftID.String
	if err := json.Unmarshal(itemsRaw, &order.Items); err != nil {
		return domain.SalesOrder{}, fmt.Errorf("decode sales order %s items: %w", order.ID, err)
	}
	return order, nil
}

func (s *Store) CreateSalesOrder(ctx context.Context, order domain.SalesOrder) (*domain.SalesOrder, error) {
	if len(order.Items) == 0 || order.SourceWarehouseID == "" {
		return nil, store.ErrInvalidRecord
	}
	if order.ID == "" {
		order.ID = xid.New("so")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	if order.Status == "" {
		order.Status = domain.SalesOrderProcessing
	}
	itemsRaw, err := json.Marshal(order.Items)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sales_orders (`+salesOrderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, order.ID, order.Status, order.Type, order.SourceWarehouseID, order.PaymentMethod, nullString(order.ShiftID),
		itemsRaw, order.Subtotal, order.TaxAmount, order.TotalAmount, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("sales order %s reference: %w", order.ID, store.ErrNotFound)
		}
		return nil, err
	}
	saved := order.Clone()
	return &saved, nil
}

func (s *Store) GetSalesOrder(ctx context.Context, id string) (*domain.SalesOrder, error) {
	order, err := scanSalesOrder(s.db.QueryRowContext(ctx, `SELECT `+salesOrderColumns+` FROM sales_orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Store) ListSalesOrders(ctx context.Context, status string, limit int) ([]domain.SalesOrder, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+salesOrderColumns+`
		FROM sales_orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, strings.ToLower(strings.TrimSpace(status)), limit)
	if err != nil {
		return nil, err
	}
	return collectSalesOrders(rows)
}

func (s *Store) ListSalesOrdersByShift(ctx context.Context, shiftID string) ([]domain.SalesOrder, error) {
	return listSalesOrdersByShift(ctx, s.db, shiftID)
}

func listSalesOrdersByShift(ctx context.Context, q querier, shiftID string) ([]domain.SalesOrder, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+salesOrderColumns+`
		FROM sales_orders
		WHERE shift_id = $1
		ORDER BY created_at, id
	`, shiftID)
	if err != nil {
		return nil, err
	}
	return collectSalesOrders(rows)
}

func collectSalesOrders(rows *sql.Rows) ([]domain.SalesOrder, error) {
	defer rows.Close()
	result := make([]domain.SalesOrder, 0, 32)
	for rows.Next() {
		order, err := scanSalesOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, order)
	}
	return result, rows.Err()
}

// UpdateSalesOrder locks the order row and hands fn a stock writer bound to
// the same transaction. Stock changes and the order commit together.
func (s *Store) UpdateSalesOrder(ctx context.Context, id string, fn store.SalesOrderMutation) (*domain.SalesOrder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	order, err := scanSalesOrder(tx.QueryRowContext(ctx, `SELECT `+salesOrderColumns+` FROM sales_orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if err := fn(&order, txStock{tx: tx}); err != nil {
		return nil, err
	}
	order.ID = id
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = time.Now().UTC()
	}

	itemsRaw, err := json.Marshal(order.Items)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE sales_orders
		SET status = $2, items = $3, subtotal = $4, tax_amount = $5, total_amount = $6, updated_at = $7
		WHERE id = $1
	`, order.ID, order.Status, itemsRaw, order.Subtotal, order.TaxAmount, order.TotalAmount, order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &order, nil
}
