package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type ProductCreateRequest struct {
	ID        string          `json:"id" validate:"required,max=64"`
	Name      string          `json:"name" validate:"required,max=200"`
	CostPrice decimal.Decimal `json:"cost_price"`
	Price     decimal.Decimal `json:"price"`
}

type ProductPricingRequest struct {
	CostPrice *decimal.Decimal `json:"cost_price,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

type WarehouseCreateRequest struct {
	ID   string        `json:"id" validate:"required,max=64"`
	Name string        `json:"name" validate:"required,max=200"`
	Kind WarehouseKind `json:"kind" validate:"required,oneof=main branch in_transit special"`
}

type StockAdjustmentRequest struct {
	ProductID   string `json:"product_id" validate:"required"`
	WarehouseID string `json:"warehouse_id" validate:"required"`
	Delta       int    `json:"delta" validate:"required"`
	Reason      string `json:"reason" validate:"max=500"`
}

type PurchaseOrderItemInput struct {
	ProductID       string           `json:"product_id" validate:"required"`
	Quantity        int              `json:"quantity" validate:"min=1"`
	Price           decimal.Decimal  `json:"price"`
	NewSellingPrice *decimal.Decimal `json:"new_selling_price,omitempty"`
}

type PurchaseOrderExpenseInput struct {
	Description string          `json:"description" validate:"max=500"`
	Amount      decimal.Decimal `json:"amount"`
}

type PurchaseOrderCreateRequest struct {
	DestinationWarehouseID string                      `json:"destination_warehouse_id" validate:"required"`
	Items                  []PurchaseOrderItemInput    `json:"items" validate:"required,min=1,dive"`
	Expenses               []PurchaseOrderExpenseInput `json:"expenses" validate:"dive"`
}

type PurchaseOrderUpdateRequest struct {
	Items    []PurchaseOrderItemInput    `json:"items" validate:"required,min=1,dive"`
	Expenses []PurchaseOrderExpenseInput `json:"expenses" validate:"dive"`
}

type SalesOrderItemInput struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"min=1"`
	Price     decimal.Decimal `json:"price"`
}

type SalesOrderCreateRequest struct {
	Type              SalesOrderType        `json:"type" validate:"required,oneof=sale return"`
	SourceWarehouseID string                `json:"source_warehouse_id" validate:"required"`
	PaymentMethod     PaymentMethod         `json:"payment_method" validate:"required,oneof=cash card payment_link"`
	ShiftID           string                `json:"shift_id,omitempty"`
	Items             []SalesOrderItemInput `json:"items" validate:"required,min=1,dive"`
}

type StatusTransitionRequest struct {
	Status string `json:"status" validate:"required"`
}

type TransitionResponse struct {
	OrderID      string    `json:"order_id"`
	Kind         OrderKind `json:"kind"`
	FromStatus   string    `json:"from_status"`
	ToStatus     string    `json:"to_status"`
	StockApplied bool      `json:"stock_applied"`
}

type ShiftOpenRequest struct {
	UserID         string          `json:"user_id"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type ShiftCloseRequest struct {
	CountedCash decimal.Decimal `json:"counted_cash"`
}

type LandedCostLineInput struct {
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

type LandedCostRequest struct {
	Items    []LandedCostLineInput `json:"items" validate:"required,min=1"`
	Expenses []decimal.Decimal     `json:"expenses"`
}

type FeasibilityBuildRequest struct {
	SourceType      FeasibilitySourceType `json:"source_type" validate:"required,oneof=purchase_order current_inventory"`
	PurchaseOrderID string                `json:"purchase_order_id,omitempty" validate:"required_if=SourceType purchase_order"`
}

type UserCreateRequest struct {
	Username string `json:"username" validate:"required,min=4,max=64"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     string `json:"role" validate:"required,oneof=admin cashier"`
}

type UserView struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
