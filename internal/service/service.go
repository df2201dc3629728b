package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"inventoryledger/backend/internal/cache"
	"inventoryledger/backend/internal/domain"
	"inventoryledger/backend/internal/ledger"
	"inventoryledger/backend/internal/store"
	"inventoryledger/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	TaxRatePercent decimal.Decimal
	StudyCacheTTL  time.Duration
	Logger         *zap.Logger
	Clock          func() time.Time
}

type Service struct {
	repo            store.Repository
	studies         cache.StudyCache
	studyTTL        time.Duration
	taxRate         decimal.Decimal
	salesMachine    *ledger.SalesOrderMachine
	purchaseMachine *ledger.PurchaseOrderMachine
	builds          singleflight.Group
	log             *zap.Logger
	now             func() time.Time
}

func New(repo store.Repository, studies cache.StudyCache, opts Options) *Service {
	if studies == nil {
		studies = cache.NoopStudyCache{}
	}
	if opts.StudyCacheTTL <= 0 {
		opts.StudyCacheTTL = 5 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		repo:            repo,
		studies:         studies,
		studyTTL:        opts.StudyCacheTTL,
		taxRate:         opts.TaxRatePercent,
		salesMachine:    ledger.NewSalesOrderMachine(),
		purchaseMachine: ledger.NewPurchaseOrderMachine(),
		log:             opts.Logger.Named("service"),
		now:             opts.Clock,
	}
}

// AllocateLandedCost previews how expenses spread over purchase lines without
// touching any record.
func (s *Service) AllocateLandedCost(_ context.Context, req domain.LandedCostRequest) (ledger.Allocation, error) {
	lines := make([]ledger.CostLine, len(req.Items))
	for i, item := range req.Items {
		lines[i] = ledger.CostLine{Quantity: item.Quantity, UnitCost: item.UnitCost}
	}
	return ledger.Allocate(lines, req.Expenses)
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, translate(err, domain.KindNotFound, id)
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Product{}, err
	}

	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Product{}, domain.NewError(domain.KindInvalidInput, req.ID, "product name required")
	}
	if req.CostPrice.IsNegative() || req.Price.IsNegative() {
		return domain.Product{}, domain.NewError(domain.KindInvalidInput, req.ID, "prices cannot be negative")
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:        req.ID,
		Name:      req.Name,
		CostPrice: req.CostPrice,
		Price:     req.Price,
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.Product{}, translate(err, domain.KindNotFound, req.ID)
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("cost=%s,price=%s", created.CostPrice, created.Price))
	return *created, nil
}

// UpdateProductPricing changes cost and/or price. A field left nil keeps its
// current value.
func (s *Service) UpdateProductPricing(ctx context.Context, id string, req domain.ProductPricingRequest) (domain.Product, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Product{}, err
	}
	if req.CostPrice == nil && req.Price == nil {
		return domain.Product{}, domain.NewError(domain.KindInvalidInput, id, "nothing to update")
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, translate(err, domain.KindNotFound, id)
	}

	update := store.PricingUpdate{ProductID: existing.ID, CostPrice: existing.CostPrice, Price: req.Price}
	if req.CostPrice != nil {
		update.CostPrice = *req.CostPrice
	}
	if update.CostPrice.IsNegative() || (update.Price != nil && update.Price.IsNegative()) {
		return domain.Product{}, domain.NewError(domain.KindInvalidInput, id, "prices cannot be negative")
	}

	updated, err := s.repo.UpdateProductPricing(ctx, update, s.now())
	if err != nil {
		return domain.Product{}, translate(err, domain.KindNotFound, id)
	}

	s.logAudit(ctx, "product_pricing_update", "product", updated.ID, fmt.Sprintf("cost=%s,price=%s", updated.CostPrice, updated.Price))
	return *updated, nil
}

func (s *Service) CreateWarehouse(ctx context.Context, req domain.WarehouseCreateRequest) (domain.Warehouse, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.Warehouse{}, err
	}

	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || !req.Kind.IsValid() {
		return domain.Warehouse{}, domain.NewError(domain.KindInvalidInput, req.ID, "warehouse name and a valid kind are required")
	}

	created, err := s.repo.CreateWarehouse(ctx, domain.Warehouse{
		ID:        req.ID,
		Name:      req.Name,
		Kind:      req.Kind,
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.Warehouse{}, translate(err, domain.KindNotFound, req.ID)
	}

	s.logAudit(ctx, "warehouse_create", "warehouse", created.ID, string(created.Kind))
	return *created, nil
}

func (s *Service) ListWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	return s.repo.ListWarehouses(ctx)
}

type StockLevel struct {
	ProductID   string `json:"product_id"`
	WarehouseID string `json:"warehouse_id"`
	Quantity    int    `json:"quantity"`
}

// AdjustStock is the manual stock-in/stock-out path. A decrement that would
// leave the cell negative fails with INSUFFICIENT_STOCK.
func (s *Service) AdjustStock(ctx context.Context, req domain.StockAdjustmentRequest) (StockLevel, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return StockLevel{}, err
	}

	adjustment := domain.StockAdjustment{
		ProductID:   strings.TrimSpace(req.ProductID),
		WarehouseID: strings.TrimSpace(req.WarehouseID),
		Delta:       req.Delta,
		Reason:      strings.TrimSpace(req.Reason),
	}
	if adjustment.ProductID == "" || adjustment.WarehouseID == "" || adjustment.Delta == 0 {
		return StockLevel{}, domain.NewError(domain.KindInvalidInput, adjustment.ProductID, "product, warehouse and a non-zero delta are required")
	}

	qty, err := s.repo.AdjustStock(ctx, adjustment)
	if err != nil {
		return StockLevel{}, translate(err, domain.KindNotFound, adjustment.ProductID+"@"+adjustment.WarehouseID)
	}

	s.log.Info("stock adjusted",
		zap.String("product_id", adjustment.ProductID),
		zap.String("warehouse_id", adjustment.WarehouseID),
		zap.Int("delta", adjustment.Delta),
		zap.Int("quantity", qty),
	)
	s.logAudit(ctx, "stock_adjust", "stock", adjustment.String(), adjustment.Reason)
	return StockLevel{ProductID: adjustment.ProductID, WarehouseID: adjustment.WarehouseID, Quantity: qty}, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if strings.TrimSpace(date) == "" {
		from = s.now().Add(-24 * time.Hour)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, domain.NewError(domain.KindInvalidInput, date, "date must be YYYY-MM-DD")
		}
		from = parsed.UTC()
	}
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: domain.RoleSystem}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now(),
	}); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("entity", entityType+"/"+entityID),
			zap.Error(err),
		)
	}
}

// requireRole passes for an actor holding one of roles. The system role used
// by operator tooling always passes.
func requireRole(ctx context.Context, roles ...string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.NewError(domain.KindForbidden, "", "authenticated actor required")
	}
	if actor.Role == domain.RoleSystem {
		return nil
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return domain.NewError(domain.KindForbidden, actor.Username, "%s role required", strings.Join(roles, " or "))
}

// translate turns store sentinels into domain errors carrying the entity id.
// notFound picks the kind used for a missing record.
func translate(err error, notFound domain.ErrorKind, entityID string) error {
	var domainErr *domain.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, store.ErrNotFound):
		return domain.NewError(notFound, entityID, "%v", err)
	case errors.Is(err, store.ErrConflict):
		return domain.NewError(domain.KindConflict, entityID, "%v", err)
	case errors.Is(err, store.ErrInvalidRecord):
		return domain.NewError(domain.KindInvalidInput, entityID, "%v", err)
	default:
		return err
	}
}
