package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"inventoryledger/backend/internal/domain"
	"inventoryledger/backend/internal/ledger"
	"inventoryledger/backend/internal/store"
)

type ShiftCloseResponse struct {
	Shift   domain.PosShift     `json:"shift"`
	Summary ledger.ShiftSummary `json:"summary"`
}

// OpenShift starts a cash shift for userID. When userID is empty the caller's
// own username is used. A user can hold one open shift at a time.
func (s *Service) OpenShift(ctx context.Context, req domain.ShiftOpenRequest) (domain.PosShift, error) {
	if err := requireRole(ctx, domain.RoleAdmin, domain.RoleCashier); err != nil {
		return domain.PosShift{}, err
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			userID = actor.Username
		}
	}
	if userID == "" {
		return domain.PosShift{}, domain.NewError(domain.KindInvalidInput, "", "user id required")
	}
	if req.OpeningBalance.IsNegative() {
		return domain.PosShift{}, domain.NewError(domain.KindInvalidInput, userID, "opening balance cannot be negative")
	}

	saved, err := s.repo.CreateShift(ctx, domain.PosShift{
		UserID:         userID,
		StartTime:      s.now(),
		Status:         domain.ShiftStatusOpen,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.PosShift{}, domain.NewError(domain.KindConflict, userID, "user already has an open shift")
		}
		return domain.PosShift{}, translate(err, domain.KindShiftNotFound, userID)
	}

	s.logAudit(ctx, "shift_open", "shift", saved.ID, "opening="+saved.OpeningBalance.String())
	return *saved, nil
}

// CloseShift reconciles the drawer against the shift's fulfilled orders and
// closes it. Of two concurrent closes exactly one succeeds; the other gets
// SHIFT_ALREADY_CLOSED.
func (s *Service) CloseShift(ctx context.Context, shiftID string, countedCash decimal.Decimal) (ShiftCloseResponse, error) {
	if err := requireRole(ctx, domain.RoleAdmin, domain.RoleCashier); err != nil {
		return ShiftCloseResponse{}, err
	}
	shiftID = strings.TrimSpace(shiftID)
	if countedCash.IsNegative() {
		return ShiftCloseResponse{}, domain.NewError(domain.KindInvalidInput, shiftID, "counted cash cannot be negative")
	}

	var summary ledger.ShiftSummary
	closed, err := s.repo.UpdateShift(ctx, shiftID, func(shift *domain.PosShift, orders []domain.SalesOrder) error {
		if err := s.requireShiftOwner(ctx, *shift); err != nil {
			return err
		}
		result, err := ledger.Reconcile(*shift, orders, countedCash, s.now())
		if err != nil {
			return err
		}
		ledger.CloseWith(shift, result)
		summary = result
		return nil
	})
	if err != nil {
		return ShiftCloseResponse{}, translate(err, domain.KindShiftNotFound, shiftID)
	}

	s.log.Info("shift closed",
		zap.String("shift_id", closed.ID),
		zap.String("user_id", closed.UserID),
		zap.String("calculated_cash", summary.CalculatedCash.String()),
		zap.String("difference", summary.Difference.String()),
		zap.Int("orders", summary.OrderCount),
	)
	s.logAudit(ctx, "shift_close", "shift", closed.ID, "counted="+countedCash.String()+",difference="+summary.Difference.String())

	return ShiftCloseResponse{Shift: *closed, Summary: summary}, nil
}

// requireShiftOwner lets cashiers close only their own shift.
func (s *Service) requireShiftOwner(ctx context.Context, shift domain.PosShift) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleCashier || actor.Username == shift.UserID {
		return nil
	}
	return domain.NewError(domain.KindForbidden, shift.ID, "shift belongs to another user")
}

func (s *Service) GetShift(ctx context.Context, shiftID string) (domain.PosShift, error) {
	shift, err := s.repo.GetShift(ctx, strings.TrimSpace(shiftID))
	if err != nil {
		return domain.PosShift{}, translate(err, domain.KindShiftNotFound, shiftID)
	}
	return *shift, nil
}

// GetOpenShift returns the user's open shift from the store. There is no
// process-wide notion of an active shift.
func (s *Service) GetOpenShift(ctx context.Context, userID string) (domain.PosShift, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			userID = actor.Username
		}
	}
	shift, err := s.repo.GetOpenShiftByUser(ctx, userID)
	if err != nil {
		return domain.PosShift{}, translate(err, domain.KindShiftNotFound, userID)
	}
	return *shift, nil
}
