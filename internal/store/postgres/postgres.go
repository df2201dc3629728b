package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"inventoryledger/backend/internal/domain"
	"inventoryledger/backend/internal/store"
	"inventoryledger/backend/internal/xid"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

var _ store.Repository = (*Store)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const productColumns = `id, name, cost_price, price, profit_margin, created_at, updated_at`

func scanProduct(row interface{ Scan(dest ...any) error }) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.CostPrice, &p.Price, &p.ProfitMargin, &p.CreatedAt, &p.UpdatedAt)
	p.StockLocations = map[string]int{}
	return p, err
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stock, err := s.stockByProduct(ctx, s.db, "")
	if err != nil {
		return nil, err
	}
	for i := range products {
		for warehouseID, qty := range stock[products[i].ID] {
			products[i].StockLocations[warehouseID] = qty
		}
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	stock, err := s.stockByProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	for warehouseID, qty := range stock[id] {
		p.StockLocations[warehouseID] = qty
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result[p.ID] = p
	}
	return result, rows.Err()
}

// stockByProduct returns product -> warehouse -> qty, for one product or all
// of them when productID is empty.
func (s *Store) stockByProduct(ctx context.Context, q querier, productID string) (map[string]map[string]int, error) {
	query := `SELECT product_id, warehouse_id, qty FROM stock_levels`
	args := []any{}
	if productID != "" {
		query += ` WHERE product_id = $1`
		args = append(args, productID)
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]map[string]int)
	for rows.Next() {
		var pid, warehouseID string
		var qty int
		if err := rows.Scan(&pid, &warehouseID, &qty); err != nil {
			return nil, err
		}
		if result[pid] == nil {
			result[pid] = make(map[string]int)
		}
		result[pid][warehouseID] = qty
	}
	return result, rows.Err()
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.CostPrice.IsNegative() || product.Price.IsNegative() {
		return nil, store.ErrInvalidRecord
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.Reprice(product.CostPrice, product.Price, product.CreatedAt)
	product.StockLocations = map[string]int{}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, cost_price, price, profit_margin, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, product.ID, product.Name, product.CostPrice, product.Price, product.ProfitMargin, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) UpdateProductPricing(ctx context.Context, update store.PricingUpdate, at time.Time) (*domain.Product, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	p, err := applyPricing(ctx, tx, update, at)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	stock, err := s.stockByProduct(ctx, s.db, p.ID)
	if err != nil {
		return nil, err
	}
	for warehouseID, qty := range stock[p.ID] {
		p.StockLocations[warehouseID] = qty
	}
	return &p, nil
}

func applyPricing(ctx context.Context, tx *sql.Tx, update store.PricingUpdate, at time.Time) (domain.Product, error) {
	p, err := scanProduct(tx.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, update.ProductID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, fmt.Errorf("product %s: %w", update.ProductID, store.ErrNotFound)
		}
		return domain.Product{}, err
	}
	price := p.Price
	if update.Price != nil {
		price = *update.Price
	}
	if update.CostPrice.IsNegative() || price.IsNegative() {
		return domain.Product{}, store.ErrInvalidRecord
	}
	p.Reprice(update.CostPrice, price, at)
	_, err = tx.ExecContext(ctx, `
		UPDATE products
		SET cost_price = $2, price = $3, profit_margin = $4, updated_at = $5
		WHERE id = $1
	`, p.ID, p.CostPrice, p.Price, p.ProfitMargin, p.UpdatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (s *Store) CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (*domain.Warehouse, error) {
	if strings.TrimSpace(warehouse.Name) == "" || !warehouse.Kind.IsValid() {
		return nil, store.ErrInvalidRecord
	}
	if warehouse.ID == "" {
		warehouse.ID = xid.New("wh")
	}
	if warehouse.CreatedAt.IsZero() {
		warehouse.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO warehouses (id, name, kind, created_at) VALUES ($1,$2,$3,$4)
	`, warehouse.ID, warehouse.Name, warehouse.Kind, warehouse.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	return &warehouse, nil
}

func (s *Store) GetWarehouse(ctx context.Context, id string) (*domain.Warehouse, error) {
	var w domain.Warehouse
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, created_at FROM warehouses WHERE id = $1
	`, id).Scan(&w.ID, &w.Name, &w.Kind, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (s *Store) ListWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, kind, created_at FROM warehouses ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.Warehouse, 0, 8)
	for rows.Next() {
		var w domain.Warehouse
		if err := rows.Scan(&w.ID, &w.Name, &w.Kind, &w.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (s *Store) AdjustStock(ctx context.Context, adjustment domain.StockAdjustment) (int, error) {
	return adjustStock(ctx, s.db, adjustment.ProductID, adjustment.WarehouseID, adjustment.Delta)
}

// adjustStock changes one cell in a single statement. Increments upsert the
// row; decrements only match when the result stays non-negative.
func adjustStock(ctx context.Context, q querier, productID string, warehouseID string, delta int) (int, error) {
	var qty int
	if delta >= 0 {
		err := q.QueryRowContext(ctx, `
			INSERT INTO stock_levels (product_id, warehouse_id, qty, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (product_id, warehouse_id)
			DO UPDATE SET qty = stock_levels.qty + EXCLUDED.qty, updated_at = now()
			RETURNING qty
		`, productID, warehouseID, delta).Scan(&qty)
		if err != nil {
			if isForeignKeyViolation(err) {
				return 0, fmt.Errorf("stock cell %s@%s: %w", productID, warehouseID, store.ErrNotFound)
			}
			return 0, err
		}
		return qty, nil
	}

	err := q.QueryRowContext(ctx, `
		UPDATE stock_levels
		SET qty = qty + $3, updated_at = now()
		WHERE product_id = $1 AND warehouse_id = $2 AND qty + $3 >= 0
		RETURNING qty
	`, productID, warehouseID, delta).Scan(&qty)
	if err == nil {
		return qty, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	var available int
	err = q.QueryRowContext(ctx, `
		SELECT qty FROM stock_levels WHERE product_id = $1 AND warehouse_id = $2
	`, productID, warehouseID).Scan(&available)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	return available, domain.NewError(domain.KindInsufficientStock, productID,
		"warehouse %s has %d, requested %d", warehouseID, available, -delta)
}

// txStock adjusts stock inside the caller's transaction; nothing is visible
// until commit.
type txStock struct {
	tx *sql.Tx
}

func (w txStock) Adjust(ctx context.Context, productID string, warehouseID string, delta int) error {
	_, err := adjustStock(ctx, w.tx, productID, warehouseID, delta)
	return err
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.AuditLog, 0, 64)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRecord
	}
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at) VALUES ($1,$2,$3,true,$4)
	`, username, user.Password, user.Role, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at FROM users ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidRecord
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password = $2 WHERE username = $1`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullString(val string) sql.NullString {
	return sql.NullString{String: val, Valid: val != ""}
}

func nullTime(val *time.Time) sql.NullTime {
	if val == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *val, Valid: true}
}

func timePtr(val sql.NullTime) *time.Time {
	if !val.Valid {
		return nil
	}
	t := val.Time.UTC()
	return &t
}

func sortStrings(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}
