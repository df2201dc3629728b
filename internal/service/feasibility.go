package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"inventoryledger/backend/internal/domain"
	"inventoryledger/backend/internal/ledger"
)

// BuildFeasibilityStudy projects profitability from a received purchase order
// or from current stock and stores the result under its deterministic id,
// replacing any earlier study with that id.
func (s *Service) BuildFeasibilityStudy(ctx context.Context, req domain.FeasibilityBuildRequest) (domain.FeasibilityStudy, error) {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return domain.FeasibilityStudy{}, err
	}

	switch req.SourceType {
	case domain.FeasibilitySourcePurchaseOrder:
		return s.buildPurchaseOrderStudy(ctx, strings.TrimSpace(req.PurchaseOrderID))
	case domain.FeasibilitySourceCurrentInventory:
		return s.buildInventoryStudy(ctx)
	default:
		return domain.FeasibilityStudy{}, domain.NewError(domain.KindInvalidInput, string(req.SourceType), "unknown feasibility source")
	}
}

func (s *Service) buildPurchaseOrderStudy(ctx context.Context, purchaseOrderID string) (domain.FeasibilityStudy, error) {
	if purchaseOrderID == "" {
		return domain.FeasibilityStudy{}, domain.NewError(domain.KindInvalidInput, "", "purchase order id required")
	}
	po, err := s.repo.GetPurchaseOrder(ctx, purchaseOrderID)
	if err != nil {
		return domain.FeasibilityStudy{}, translate(err, domain.KindOrderNotFound, purchaseOrderID)
	}
	if po.Status != domain.PurchaseOrderReceived {
		return domain.FeasibilityStudy{}, domain.NewError(domain.KindInvalidInput, po.ID, "purchase order is %s, studies need a received order", po.Status)
	}

	productIDs := make([]string, len(po.Items))
	for i, item := range po.Items {
		productIDs[i] = item.ProductID
	}
	products, err := s.repo.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return domain.FeasibilityStudy{}, err
	}

	study, err := ledger.ProjectPurchaseOrder(*po, products, s.now())
	if err != nil {
		return domain.FeasibilityStudy{}, err
	}
	return s.saveStudy(ctx, study)
}

// buildInventoryStudy coalesces concurrent builds for the same day into one
// projection and write.
func (s *Service) buildInventoryStudy(ctx context.Context) (domain.FeasibilityStudy, error) {
	at := s.now()
	id := domain.InventoryStudyID(at)
	v, err, shared := s.builds.Do(id, func() (any, error) {
		products, err := s.repo.ListProducts(ctx)
		if err != nil {
			return domain.FeasibilityStudy{}, err
		}
		return s.saveStudy(ctx, ledger.ProjectInventory(products, at))
	})
	if err != nil {
		return domain.FeasibilityStudy{}, err
	}
	if shared {
		s.log.Debug("inventory study build shared", zap.String("study_id", id))
	}
	return v.(domain.FeasibilityStudy).Clone(), nil
}

func (s *Service) saveStudy(ctx context.Context, study domain.FeasibilityStudy) (domain.FeasibilityStudy, error) {
	saved, err := s.repo.UpsertFeasibilityStudy(ctx, study)
	if err != nil {
		return domain.FeasibilityStudy{}, translate(err, domain.KindNotFound, study.ID)
	}
	if err := s.studies.Set(ctx, saved, s.studyTTL); err != nil {
		s.log.Warn("failed to cache feasibility study", zap.String("study_id", saved.ID), zap.Error(err))
	}

	s.log.Info("feasibility study built",
		zap.String("study_id", saved.ID),
		zap.String("source_type", string(saved.SourceType)),
		zap.Int("items", len(saved.Items)),
		zap.String("margin_percent", saved.Totals.AverageMarginPercent.StringFixed(2)),
	)
	s.logAudit(ctx, "feasibility_build", "feasibility_study", saved.ID, string(saved.SourceType))
	return *saved, nil
}

func (s *Service) GetFeasibilityStudy(ctx context.Context, id string) (domain.FeasibilityStudy, error) {
	id = strings.TrimSpace(id)
	cached, ok, err := s.studies.Get(ctx, id)
	if err != nil {
		s.log.Warn("study cache read failed", zap.String("study_id", id), zap.Error(err))
	}
	if ok {
		return *cached, nil
	}

	study, err := s.repo.GetFeasibilityStudy(ctx, id)
	if err != nil {
		return domain.FeasibilityStudy{}, translate(err, domain.KindNotFound, id)
	}
	if err := s.studies.Set(ctx, study, s.studyTTL); err != nil {
		s.log.Warn("failed to cache feasibility study", zap.String("study_id", id), zap.Error(err))
	}
	return *study, nil
}

func (s *Service) ListFeasibilityStudies(ctx context.Context, limit int) ([]domain.FeasibilityStudy, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListFeasibilityStudies(ctx, limit)
}

func (s *Service) DeleteFeasibilityStudy(ctx context.Context, id string) error {
	if err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteFeasibilityStudy(ctx, id); err != nil {
		return translate(err, domain.KindNotFound, id)
	}
	if err := s.studies.Delete(ctx, id); err != nil {
		s.log.Warn("failed to evict feasibility study", zap.String("study_id", id), zap.Error(err))
	}

	s.logAudit(ctx, "feasibility_delete", "feasibility_study", id, "")
	return nil
}
