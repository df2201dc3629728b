package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"inventoryledger/backend/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidRecord = errors.New("invalid record")
)

// StockWriter changes stock cells inside an UpdateSalesOrder closure. A change
// that would leave a cell negative fails with domain.KindInsufficientStock.
// Nothing is visible to other callers until the closure returns nil.
type StockWriter interface {
	Adjust(ctx context.Context, productID string, warehouseID string, delta int) error
}

// PricingUpdate is applied to a product in the same transaction as the
// purchase order change that produced it. A nil Price keeps the current price.
type PricingUpdate struct {
	ProductID string
	CostPrice decimal.Decimal
	Price     *decimal.Decimal
}

type PurchaseOrderMutation func(po *domain.PurchaseOrder) ([]PricingUpdate, error)

type SalesOrderMutation func(order *domain.SalesOrder, stock StockWriter) error

// ShiftMutation receives every sales order tagged with the shift, loaded in
// the same critical section as the shift itself.
type ShiftMutation func(shift *domain.PosShift, orders []domain.SalesOrder) error

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProductPricing(ctx context.Context, update PricingUpdate, at time.Time) (*domain.Product, error)

	CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (*domain.Warehouse, error)
	GetWarehouse(ctx context.Context, id string) (*domain.Warehouse, error)
	ListWarehouses(ctx context.Context) ([]domain.Warehouse, error)
	AdjustStock(ctx context.Context, adjustment domain.StockAdjustment) (int, error)

	CreatePurchaseOrder(ctx context.Context, po domain.PurchaseOrder) (*domain.PurchaseOrder, error)
	GetPurchaseOrder(ctx context.Context, id string) (*domain.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, status string, limit int) ([]domain.PurchaseOrder, error)
	UpdatePurchaseOrder(ctx context.Context, id string, fn PurchaseOrderMutation) (*domain.PurchaseOrder, error)

	CreateSalesOrder(ctx context.Context, order domain.SalesOrder) (*domain.SalesOrder, error)
	GetSalesOrder(ctx context.Context, id string) (*domain.SalesOrder, error)
	ListSalesOrders(ctx context.Context, status string, limit int) ([]domain.SalesOrder, error)
	ListSalesOrdersByShift(ctx context.Context, shiftID string) ([]domain.SalesOrder, error)
	UpdateSalesOrder(ctx context.Context, id string, fn SalesOrderMutation) (*domain.SalesOrder, error)

	CreateShift(ctx context.Context, shift domain.PosShift) (*domain.PosShift, error)
	GetShift(ctx context.Context, id string) (*domain.PosShift, error)
	GetOpenShiftByUser(ctx context.Context, userID string) (*domain.PosShift, error)
	UpdateShift(ctx context.Context, id string, fn ShiftMutation) (*domain.PosShift, error)

	UpsertFeasibilityStudy(ctx context.Context, study domain.FeasibilityStudy) (*domain.FeasibilityStudy, error)
	GetFeasibilityStudy(ctx context.Context, id string) (*domain.FeasibilityStudy, error)
	ListFeasibilityStudies(ctx context.Context, limit int) ([]domain.FeasibilityStudy, error)
	DeleteFeasibilityStudy(ctx context.Context, id string) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
