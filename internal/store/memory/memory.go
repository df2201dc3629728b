package memory

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"inventoryledger/backend/internal/domain"
	"inventoryledger/backend/internal/store"
	"inventoryledger/backend/internal/xid"
)

// Store keeps everything in process. mu guards the maps and stock cells;
// orderLocks and shiftLocks serialize the read-modify-write closures per id so
// the expensive part of an update runs without holding mu.
type Store struct {
	mu                 sync.RWMutex
	products           map[string]domain.Product
	warehouses         map[string]domain.Warehouse
	stock              map[string]map[string]int
	purchaseOrdersByID map[string]domain.PurchaseOrder
	salesOrdersByID    map[string]domain.SalesOrder
	shiftsByID         map[string]domain.PosShift
	studiesByID        map[string]domain.FeasibilityStudy
	auditLogs          []domain.AuditLog
	usersByUsername    map[string]domain.UserAccount

	orderLocks *keyedMutex
	shiftLocks *keyedMutex
}

var _ store.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		products:           make(map[string]domain.Product),
		warehouses:         make(map[string]domain.Warehouse),
		stock:              make(map[string]map[string]int),
		purchaseOrdersByID: make(map[string]domain.PurchaseOrder),
		salesOrdersByID:    make(map[string]domain.SalesOrder),
		shiftsByID:         make(map[string]domain.PosShift),
		studiesByID:        make(map[string]domain.FeasibilityStudy),
		auditLogs:          make([]domain.AuditLog, 0, 128),
		usersByUsername:    make(map[string]domain.UserAccount),
		orderLocks:         newKeyedMutex(),
		shiftLocks:         newKeyedMutex(),
	}
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from LEDGER_SEED_ADMIN_PASSWORD and
// LEDGER_SEED_CASHIER_PASSWORD; dev defaults are used with a warning when
// unset. The postgres store never uses these.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("LEDGER_SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("LEDGER_SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("LEDGER_SEED_ADMIN_PASSWORD") == "" || os.Getenv("LEDGER_SEED_CASHIER_PASSWORD") == "" {
		zap.L().Warn("memory store using default dev credentials",
			zap.String("hint", "set LEDGER_SEED_ADMIN_PASSWORD and LEDGER_SEED_CASHIER_PASSWORD"))
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			panic(fmt.Sprintf("memory store: hash seed password for %s: %v", u.username, err))
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

const (
	SeedWarehouseMain    = "wh-main"
	SeedWarehouseBranch  = "wh-branch"
	SeedWarehouseTransit = "wh-transit"
)

// NewSeeded returns a store with demo users, three warehouses and a small
// catalogue stocked in the main warehouse.
func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()

	now := time.Now().UTC()
	for _, w := range []domain.Warehouse{
		{ID: SeedWarehouseMain, Name: "Main warehouse", Kind: domain.WarehouseKindMain},
		{ID: SeedWarehouseBranch, Name: "Branch store", Kind: domain.WarehouseKindBranch},
		{ID: SeedWarehouseTransit, Name: "In transit", Kind: domain.WarehouseKindInTransit},
	} {
		w.CreatedAt = now
		s.warehouses[w.ID] = w
	}

	for _, seed := range []struct {
		id, name, cost, price string
		main, branch          int
	}{
		{"prd-coffee", "Ground coffee 250g", "5", "8", 100, 10},
		{"prd-tea", "Black tea 50 bags", "10", "12", 50, 0},
		{"prd-sugar", "Sugar 1kg", "2", "3", 0, 20},
		{"prd-milk", "UHT milk 1L", "1.2", "1.9", 80, 12},
	} {
		p := domain.Product{ID: seed.id, Name: seed.name, CreatedAt: now}
		p.Reprice(decimal.RequireFromString(seed.cost), decimal.RequireFromString(seed.price), now)
		s.products[p.ID] = p
		s.stock[p.ID] = map[string]int{SeedWarehouseMain: seed.main, SeedWarehouseBranch: seed.branch}
	}
	return s
}

// withStock fills StockLocations from the stock cells. Caller holds mu.
func (s *Store) withStock(p domain.Product) domain.Product {
	out := p.Clone()
	for warehouseID, qty := range s.stock[p.ID] {
		out.StockLocations[warehouseID] = qty
	}
	return out
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, s.withStock(p))
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Name == b.Name {
			return cmpString(a.ID, b.ID)
		}
		return cmpString(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	out := s.withStock(p)
	return &out, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, exists := s.products[id]; exists {
			result[id] = s.withStock(p)
		}
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || product.CostPrice.IsNegative() || product.Price.IsNegative() {
		return nil, store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrConflict
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	product.Reprice(product.CostPrice, product.Price, product.CreatedAt)
	product.StockLocations = nil
	s.products[product.ID] = product
	out := s.withStock(product)
	return &out, nil
}

func (s *Store) UpdateProductPricing(_ context.Context, update store.PricingUpdate, at time.Time) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.applyPricingLocked(update, at)
	if err != nil {
		return nil, err
	}
	out := s.withStock(p)
	return &out, nil
}

func (s *Store) applyPricingLocked(update store.PricingUpdate, at time.Time) (domain.Product, error) {
	p, exists := s.products[update.ProductID]
	if !exists {
		return domain.Product{}, fmt.Errorf("product %s: %w", update.ProductID, store.ErrNotFound)
	}
	price := p.Price
	if update.Price != nil {
		price = *update.Price
	}
	if update.CostPrice.IsNegative() || price.IsNegative() {
		return domain.Product{}, store.ErrInvalidRecord
	}
	p.Reprice(update.CostPrice, price, at)
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) CreateWarehouse(_ context.Context, warehouse domain.Warehouse) (*domain.Warehouse, error) {
	if strings.TrimSpace(warehouse.Name) == "" || !warehouse.Kind.IsValid() {
		return nil, store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if warehouse.ID == "" {
		warehouse.ID = xid.New("wh")
	}
	if _, exists := s.warehouses[warehouse.ID]; exists {
		return nil, store.ErrConflict
	}
	if warehouse.CreatedAt.IsZero() {
		warehouse.CreatedAt = time.Now().UTC()
	}
	s.warehouses[warehouse.ID] = warehouse
	out := warehouse
	return &out, nil
}

func (s *Store) GetWarehouse(_ context.Context, id string) (*domain.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, exists := s.warehouses[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &w, nil
}

func (s *Store) ListWarehouses(_ context.Context) ([]domain.Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Warehouse, 0, len(s.warehouses))
	for _, w := range s.warehouses {
		result = append(result, w)
	}
	slices.SortFunc(result, func(a, b domain.Warehouse) int { return cmpString(a.ID, b.ID) })
	return result, nil
}

// AdjustStock applies a single signed change and returns the new quantity.
func (s *Store) AdjustStock(_ context.Context, adjustment domain.StockAdjustment) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkCellLocked(adjustment.ProductID, adjustment.WarehouseID); err != nil {
		return 0, err
	}
	current := s.stock[adjustment.ProductID][adjustment.WarehouseID]
	next := current + adjustment.Delta
	if next < 0 {
		return current, insufficient(adjustment.ProductID, adjustment.WarehouseID, current, -adjustment.Delta)
	}
	s.setCellLocked(adjustment.ProductID, adjustment.WarehouseID, next)
	return next, nil
}

func (s *Store) checkCellLocked(productID string, warehouseID string) error {
	if _, exists := s.products[productID]; !exists {
		return fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
	}
	if _, exists := s.warehouses[warehouseID]; !exists {
		return fmt.Errorf("warehouse %s: %w", warehouseID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) setCellLocked(productID string, warehouseID string, qty int) {
	cells, ok := s.stock[productID]
	if !ok {
		cells = make(map[string]int)
		s.stock[productID] = cells
	}
	cells[warehouseID] = qty
}

func insufficient(productID string, warehouseID string, available int, requested int) error {
	return domain.NewError(domain.KindInsufficientStock, productID,
		"warehouse %s has %d, requested %d", warehouseID, available, requested)
}

func (s *Store) CreatePurchaseOrder(_ context.Context, po domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	if len(po.Items) == 0 {
		return nil, store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if po.ID == "" {
		po.ID = xid.New("po")
	}
	if _, exists := s.purchaseOrdersByID[po.ID]; exists {
		return nil, store.ErrConflict
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
	s.purchaseOrdersByID[po.ID] = po.Clone()
	saved := po.Clone()
	return &saved, nil
}

func (s *Store) GetPurchaseOrder(_ context.Context, id string) (*domain.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	po, exists := s.purchaseOrdersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	out := po.Clone()
	return &out, nil
}

func (s *Store) ListPurchaseOrders(_ context.Context, status string, limit int) ([]domain.PurchaseOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status = strings.ToLower(strings.TrimSpace(status))
	result := make([]domain.PurchaseOrder, 0, len(s.purchaseOrdersByID))
	for _, po := range s.purchaseOrdersByID {
		if status != "" && string(po.Status) != status {
			continue
		}
		result = append(result, po.Clone())
	}
	slices.SortFunc(result, func(a, b domain.PurchaseOrder) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return truncate(result, limit), nil
}

// UpdatePurchaseOrder runs fn on a copy of the order. The order and the
// pricing updates fn returns are committed together, or not at all.
func (s *Store) UpdatePurchaseOrder(_ context.Context, id string, fn store.PurchaseOrderMutation) (*domain.PurchaseOrder, error) {
	unlock := s.orderLocks.Lock("po:" + id)
	defer unlock()

	s.mu.RLock()
	current, exists := s.purchaseOrdersByID[id]
	s.mu.RUnlock()
	if !exists {
		return nil, store.ErrNotFound
	}

	working := current.Clone()
	updates, err := fn(&working)
	if err != nil {
		return nil, err
	}
	working.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, update := range updates {
		if _, exists := s.products[update.ProductID]; !exists {
			return nil, fmt.Errorf("product %s: %w", update.ProductID, store.ErrNotFound)
		}
	}
	at := working.UpdatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	for _, update := range updates {
		if _, err := s.applyPricingLocked(update, at); err != nil {
			return nil, err
		}
	}
	s.purchaseOrdersByID[id] = working.Clone()
	out := working.Clone()
	return &out, nil
}

func (s *Store) CreateSalesOrder(_ context.Context, order domain.SalesOrder) (*domain.SalesOrder, error) {
	if len(order.Items) == 0 || order.SourceWarehouseID == "" {
		return nil, store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = xid.New("so")
	}
	if _, exists := s.salesOrdersByID[order.ID]; exists {
		return nil, store.ErrConflict
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
	s.salesOrdersByID[order.ID] = order.Clone()
	out := order.Clone()
	return &out, nil
}

func (s *Store) GetSalesOrder(_ context.Context, id string) (*domain.SalesOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.salesOrdersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	out := order.Clone()
	return &out, nil
}

func (s *Store) ListSalesOrders(_ context.Context, status string, limit int) ([]domain.SalesOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status = strings.ToLower(strings.TrimSpace(status))
	result := make([]domain.SalesOrder, 0, len(s.salesOrdersByID))
	for _, order := range s.salesOrdersByID {
		if status != "" && string(order.Status) != status {
			continue
		}
		result = append(result, order.Clone())
	}
	slices.SortFunc(result, func(a, b domain.SalesOrder) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return truncate(result, limit), nil
}

func (s *Store) ListSalesOrdersByShift(_ context.Context, shiftID string) ([]domain.SalesOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ordersForShiftLocked(shiftID), nil
}

func (s *Store) ordersForShiftLocked(shiftID string) []domain.SalesOrder {
	result := make([]domain.SalesOrder, 0, 16)
	for _, order := range s.salesOrdersByID {
		if order.ShiftID == shiftID {
			result = append(result, order.Clone())
		}
	}
	slices.SortFunc(result, func(a, b domain.SalesOrder) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return result
}

// UpdateSalesOrder runs fn on a copy of the order with a staged stock writer.
// Updates to the same order are serialized. Staged stock changes are checked
// again and applied together with the order under the store lock, so a
// failure anywhere leaves both stock and order untouched.
func (s *Store) UpdateSalesOrder(_ context.Context, id string, fn store.SalesOrderMutation) (*domain.SalesOrder, error) {
	unlock := s.orderLocks.Lock("so:" + id)
	defer unlock()

	s.mu.RLock()
	current, exists := s.salesOrdersByID[id]
	s.mu.RUnlock()
	if !exists {
		return nil, store.ErrNotFound
	}

	working := current.Clone()
	staged := newStagedStock(s)
	if err := fn(&working, staged); err != nil {
		return nil, err
	}
	working.ID = id

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := staged.commitLocked(); err != nil {
		return nil, err
	}
	s.salesOrdersByID[id] = working.Clone()
	out := working.Clone()
	return &out, nil
}

// CreateShift refuses a second open shift for the same user.
func (s *Store) CreateShift(_ context.Context, shift domain.PosShift) (*domain.PosShift, error) {
	if strings.TrimSpace(shift.UserID) == "" {
		return nil, store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.shiftsByID {
		if existing.UserID == shift.UserID && existing.Status == domain.ShiftStatusOpen {
			return nil, store.ErrConflict
		}
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if _, exists := s.shiftsByID[shift.ID]; exists {
		return nil, store.ErrConflict
	}
	if shift.StartTime.IsZero() {
		shift.StartTime = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen
	shift.EndTime = nil

	s.shiftsByID[shift.ID] = shift.Clone()
	out := shift.Clone()
	return &out, nil
}

func (s *Store) GetShift(_ context.Context, id string) (*domain.PosShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shift, exists := s.shiftsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	out := shift.Clone()
	return &out, nil
}

func (s *Store) GetOpenShiftByUser(_ context.Context, userID string) (*domain.PosShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, shift := range s.shiftsByID {
		if shift.UserID == userID && shift.Status == domain.ShiftStatusOpen {
			out := shift.Clone()
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

// UpdateShift serializes per shift id, so of two concurrent closes the second
// sees the first one's closed shift.
func (s *Store) UpdateShift(_ context.Context, id string, fn store.ShiftMutation) (*domain.PosShift, error) {
	unlock := s.shiftLocks.Lock(id)
	defer unlock()

	s.mu.RLock()
	current, exists := s.shiftsByID[id]
	orders := s.ordersForShiftLocked(id)
	s.mu.RUnlock()
	if !exists {
		return nil, store.ErrNotFound
	}

	working := current.Clone()
	if err := fn(&working, orders); err != nil {
		return nil, err
	}
	working.ID = id

	s.mu.Lock()
	s.shiftsByID[id] = working.Clone()
	s.mu.Unlock()

	out := working.Clone()
	return &out, nil
}

func (s *Store) UpsertFeasibilityStudy(_ context.Context, study domain.FeasibilityStudy) (*domain.FeasibilityStudy, error) {
	if study.ID == "" {
		return nil, store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.studiesByID[study.ID] = study.Clone()
	out := study.Clone()
	return &out, nil
}

func (s *Store) GetFeasibilityStudy(_ context.Context, id string) (*domain.FeasibilityStudy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	study, exists := s.studiesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	out := study.Clone()
	return &out, nil
}

func (s *Store) ListFeasibilityStudies(_ context.Context, limit int) ([]domain.FeasibilityStudy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.FeasibilityStudy, 0, len(s.studiesByID))
	for _, study := range s.studiesByID {
		result = append(result, study.Clone())
	}
	slices.SortFunc(result, func(a, b domain.FeasibilityStudy) int {
		return newestFirst(a.CreationDate, b.CreationDate, a.ID, b.ID)
	})
	return truncate(result, limit), nil
}

func (s *Store) DeleteFeasibilityStudy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.studiesByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.studiesByID, id)
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		return newestFirst(a.CreatedAt, b.CreatedAt, a.ID, b.ID)
	})
	return truncate(result, limit), nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRecord
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrConflict
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidRecord
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func newestFirst(a time.Time, b time.Time, aID string, bID string) int {
	if a.Equal(b) {
		return cmpString(bID, aID)
	}
	if a.After(b) {
		return -1
	}
	return 1
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}
