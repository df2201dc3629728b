package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Product struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	CostPrice      decimal.Decimal `json:"cost_price"`
	Price          decimal.Decimal `json:"price"`
	ProfitMargin   decimal.Decimal `json:"profit_margin"`
	StockLocations map[string]int  `json:"stock_locations"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (p Product) TotalStock() int {
	total := 0
	for _, qty := range p.StockLocations {
		total += qty
	}
	return total
}

// Reprice sets cost and price and recomputes the margin.
func (p *Product) Reprice(costPrice decimal.Decimal, price decimal.Decimal, at time.Time) {
	p.CostPrice = costPrice
	p.Price = price
	p.ProfitMargin = ProfitMargin(costPrice, price)
	p.UpdatedAt = at
}

func (p Product) Clone() Product {
	out := p
	out.StockLocations = make(map[string]int, len(p.StockLocations))
	for warehouseID, qty := range p.StockLocations {
		out.StockLocations[warehouseID] = qty
	}
	return out
}

// ProfitMargin returns (price - cost) / price as a percentage, 0 when price is 0.
func ProfitMargin(costPrice decimal.Decimal, price decimal.Decimal) decimal.Decimal {
	if price.IsZero() {
		return decimal.Zero
	}
	return price.Sub(costPrice).Div(price).Mul(hundred)
}

type WarehouseKind string

const (
	WarehouseKindMain      WarehouseKind = "main"
	WarehouseKindBranch    WarehouseKind = "branch"
	WarehouseKindInTransit WarehouseKind = "in_transit"
	WarehouseKindSpecial   WarehouseKind = "special"
)

func (k WarehouseKind) IsValid() bool {
	switch k {
	case WarehouseKindMain, WarehouseKindBranch, WarehouseKindInTransit, WarehouseKindSpecial:
		return true
	}
	return false
}

type Warehouse struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Kind      WarehouseKind `json:"kind"`
	CreatedAt time.Time     `json:"created_at"`
}

// SaleEligible is false for in-transit warehouses; their stock is not sold from.
func (w Warehouse) SaleEligible() bool {
	return w.Kind != WarehouseKindInTransit
}

type PurchaseOrderStatus string

const (
	PurchaseOrderDraft     PurchaseOrderStatus = "draft"
	PurchaseOrderOrdered   PurchaseOrderStatus = "ordered"
	PurchaseOrderReceived  PurchaseOrderStatus = "received"
	PurchaseOrderCancelled PurchaseOrderStatus = "cancelled"
)

func (s PurchaseOrderStatus) IsValid() bool {
	switch s {
	case PurchaseOrderDraft, PurchaseOrderOrdered, PurchaseOrderReceived, PurchaseOrderCancelled:
		return true
	}
	return false
}

type PurchaseOrderItem struct {
	ProductID       string              `json:"product_id"`
	Quantity        int                 `json:"quantity"`
	Price           decimal.Decimal     `json:"price"`
	NewSellingPrice decimal.NullDecimal `json:"new_selling_price"`
	FinalCostPrice  decimal.NullDecimal `json:"final_cost_price"`
}

// NewPurchaseOrderItem validates a purchase line. newSellingPrice may be nil.
func NewPurchaseOrderItem(productID string, quantity int, price decimal.Decimal, newSellingPrice *decimal.Decimal) (PurchaseOrderItem, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return PurchaseOrderItem{}, NewError(KindInvalidInput, "", "product id required")
	}
	if quantity < 1 {
		return PurchaseOrderItem{}, NewError(KindInvalidInput, productID, "quantity must be positive")
	}
	if price.IsNegative() {
		return PurchaseOrderItem{}, NewError(KindInvalidInput, productID, "unit cost cannot be negative")
	}
	item := PurchaseOrderItem{ProductID: productID, Quantity: quantity, Price: price}
	if newSellingPrice != nil {
		if newSellingPrice.IsNegative() {
			return PurchaseOrderItem{}, NewError(KindInvalidInput, productID, "selling price cannot be negative")
		}
		item.NewSellingPrice = decimal.NewNullDecimal(*newSellingPrice)
	}
	return item, nil
}

func (i PurchaseOrderItem) Value() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type PurchaseOrderExpense struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

func NewPurchaseOrderExpense(description string, amount decimal.Decimal) (PurchaseOrderExpense, error) {
	if amount.IsNegative() {
		return PurchaseOrderExpense{}, NewError(KindInvalidInput, description, "expense amount cannot be negative")
	}
	return PurchaseOrderExpense{Description: strings.TrimSpace(description), Amount: amount}, nil
}

type PurchaseOrder struct {
	ID                     string                 `json:"id"`
	Items                  []PurchaseOrderItem    `json:"items"`
	Expenses               []PurchaseOrderExpense `json:"expenses"`
	Status                 PurchaseOrderStatus    `json:"status"`
	DestinationWarehouseID string                 `json:"destination_warehouse_id"`
	CreatedAt              time.Time              `json:"created_at"`
	UpdatedAt              time.Time              `json:"updated_at"`
	ReceivedAt             *time.Time             `json:"received_at,omitempty"`
}

// Editable reports whether items and expenses may still change.
func (po PurchaseOrder) Editable() bool {
	return po.Status == PurchaseOrderDraft || po.Status == PurchaseOrderOrdered
}

func (po PurchaseOrder) Clone() PurchaseOrder {
	out := po
	out.Items = append([]PurchaseOrderItem(nil), po.Items...)
	out.Expenses = append([]PurchaseOrderExpense(nil), po.Expenses...)
	if po.ReceivedAt != nil {
		at := *po.ReceivedAt
		out.ReceivedAt = &at
	}
	return out
}

type SalesOrderStatus string

const (
	SalesOrderProcessing SalesOrderStatus = "processing"
	SalesOrderShipped    SalesOrderStatus = "shipped"
	SalesOrderCompleted  SalesOrderStatus = "completed"
	SalesOrderCancelled  SalesOrderStatus = "cancelled"
)

func (s SalesOrderStatus) IsValid() bool {
	switch s {
	case SalesOrderProcessing, SalesOrderShipped, SalesOrderCompleted, SalesOrderCancelled:
		return true
	}
	return false
}

// Fulfilled is true for the statuses that have already moved stock.
func (s SalesOrderStatus) Fulfilled() bool {
	return s == SalesOrderShipped || s == SalesOrderCompleted
}

type SalesOrderType string

const (
	SalesOrderTypeSale   SalesOrderType = "sale"
	SalesOrderTypeReturn SalesOrderType = "return"
)

func (t SalesOrderType) IsValid() bool {
	return t == SalesOrderTypeSale || t == SalesOrderTypeReturn
}

type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentCard        PaymentMethod = "card"
	PaymentPaymentLink PaymentMethod = "payment_link"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentPaymentLink:
		return true
	}
	return false
}

type SalesOrderItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func NewSalesOrderItem(productID string, quantity int, price decimal.Decimal) (SalesOrderItem, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return SalesOrderItem{}, NewError(KindInvalidInput, "", "product id required")
	}
	if quantity < 1 {
		return SalesOrderItem{}, NewError(KindInvalidInput, productID, "quantity must be positive")
	}
	if price.IsNegative() {
		return SalesOrderItem{}, NewError(KindInvalidInput, productID, "price cannot be negative")
	}
	return SalesOrderItem{ProductID: productID, Quantity: quantity, Price: price}, nil
}

type SalesOrder struct {
	ID                string           `json:"id"`
	Items             []SalesOrderItem `json:"items"`
	Status            SalesOrderStatus `json:"status"`
	Type              SalesOrderType   `json:"type"`
	SourceWarehouseID string           `json:"source_warehouse_id"`
	PaymentMethod     PaymentMethod    `json:"payment_method"`
	ShiftID           string           `json:"shift_id,omitempty"`
	Subtotal          decimal.Decimal  `json:"subtotal"`
	TaxAmount         decimal.Decimal  `json:"tax_amount"`
	TotalAmount       decimal.Decimal  `json:"total_amount"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// ApplyTotals recomputes subtotal, flat-rate tax and total from the items.
func (o *SalesOrder) ApplyTotals(taxRatePercent decimal.Decimal) {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	o.Subtotal = subtotal
	o.TaxAmount = subtotal.Mul(taxRatePercent).Div(hundred)
	o.TotalAmount = o.Subtotal.Add(o.TaxAmount)
}

func (o SalesOrder) Clone() SalesOrder {
	out := o
	out.Items = append([]SalesOrderItem(nil), o.Items...)
	return out
}

type ShiftStatus string

const (
	ShiftStatusOpen   ShiftStatus = "open"
	ShiftStatusClosed ShiftStatus = "closed"
)

type PosShift struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	StartTime      time.Time       `json:"start_time"`
	EndTime        *time.Time      `json:"end_time,omitempty"`
	Status         ShiftStatus     `json:"status"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	CalculatedCash decimal.Decimal `json:"calculated_cash"`
	CashSales      decimal.Decimal `json:"cash_sales"`
	CardSales      decimal.Decimal `json:"card_sales"`
	CashReturns    decimal.Decimal `json:"cash_returns"`
	Difference     decimal.Decimal `json:"difference"`
}

func (s PosShift) Clone() PosShift {
	out := s
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	return out
}

type FeasibilitySourceType string

const (
	FeasibilitySourcePurchaseOrder    FeasibilitySourceType = "purchase_order"
	FeasibilitySourceCurrentInventory FeasibilitySourceType = "current_inventory"
)

type FeasibilityItem struct {
	ProductID      string          `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Quantity       int             `json:"quantity"`
	FinalCostPrice decimal.Decimal `json:"final_cost_price"`
	SellingPrice   decimal.Decimal `json:"selling_price"`
	UnitProfit     decimal.Decimal `json:"unit_profit"`
	TotalProfit    decimal.Decimal `json:"total_profit"`
}

type FeasibilityTotals struct {
	TotalCost            decimal.Decimal `json:"total_cost"`
	TotalExpectedRevenue decimal.Decimal `json:"total_expected_revenue"`
	TotalExpectedProfit  decimal.Decimal `json:"total_expected_profit"`
	AverageMarginPercent decimal.Decimal `json:"average_margin_percent"`
}

type FeasibilityStudy struct {
	ID           string                `json:"id"`
	SourceType   FeasibilitySourceType `json:"source_type"`
	SourceID     string                `json:"source_id"`
	CreationDate time.Time             `json:"creation_date"`
	Items        []FeasibilityItem     `json:"items"`
	Totals       FeasibilityTotals     `json:"totals"`
}

func (s FeasibilityStudy) Clone() FeasibilityStudy {
	out := s
	out.Items = append([]FeasibilityItem(nil), s.Items...)
	return out
}

func PurchaseOrderStudyID(purchaseOrderID string) string {
	return "PO-" + purchaseOrderID
}

func InventoryStudyID(at time.Time) string {
	return "INV-" + at.UTC().Format("2006-01-02")
}

// Rounded returns a copy with every amount rounded for display.
func (s FeasibilityStudy) Rounded(places int32) FeasibilityStudy {
	out := s
	out.Items = make([]FeasibilityItem, len(s.Items))
	for i, item := range s.Items {
		item.FinalCostPrice = item.FinalCostPrice.Round(places)
		item.SellingPrice = item.SellingPrice.Round(places)
		item.UnitProfit = item.UnitProfit.Round(places)
		item.TotalProfit = item.TotalProfit.Round(places)
		out.Items[i] = item
	}
	out.Totals = FeasibilityTotals{
		TotalCost:            s.Totals.TotalCost.Round(places),
		TotalExpectedRevenue: s.Totals.TotalExpectedRevenue.Round(places),
		TotalExpectedProfit:  s.Totals.TotalExpectedProfit.Round(places),
		AverageMarginPercent: s.Totals.AverageMarginPercent.Round(places),
	}
	return out
}

type OrderKind string

const (
	OrderKindSales    OrderKind = "sales"
	OrderKindPurchase OrderKind = "purchase"
)

type StockAdjustment struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Delta       int    `json:"delta"`
	Reason      string `json:"reason"`
}

func (a StockAdjustment) String() string {
	return fmt.Sprintf("%s@%s%+d", a.ProductID, a.WarehouseID, a.Delta)
}

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
	RoleSystem  = "system"
)

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}
