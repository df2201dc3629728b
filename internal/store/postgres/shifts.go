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

const shiftColumns = `id, user_id, status, start_time, end_time, opening_balance, closing_balance,
	calculated_cash, cash_sales, card_sales, cash_returns, difference`

func scanShift(row interface{ Scan(dest ...any) error }) (domain.PosShift, error) {
	var shift domain.PosShift
	var endTime sql.NullTime
	err := row.Scan(&shift.ID, &shift.UserID, &shift.Status, &shift.StartTime, &endTime,
		&shift.OpeningBalance, &shift.ClosingBalance, &shift.CalculatedCash,
		&shift.CashSales, &shift.CardSales, &shift.CashReturns, &shift.Difference)
	shift.EndTime = timePtr(endTime)
	return shift, err
}

// CreateShift relies on the partial unique index on open shifts per user.
func (s *Store) CreateShift(ctx context.Context, shift domain.PosShift) (*domain.PosShift, error) {
	if strings.TrimSpace(shift.UserID) == "" {
		return nil, store.ErrInvalidRecord
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.StartTime.IsZero() {
		shift.StartTime = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen
	shift.EndTime = nil

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pos_shifts (`+shiftColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, shift.ID, shift.UserID, shift.Status, shift.StartTime, nullTime(shift.EndTime),
		shift.OpeningBalance, shift.ClosingBalance, shift.CalculatedCash,
		shift.CashSales, shift.CardSales, shift.CashReturns, shift.Difference)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}
	saved := shift.Clone()
	return &saved, nil
}

func (s *Store) GetShift(ctx context.Context, id string) (*domain.PosShift, error) {
	shift, err := scanShift(s.db.QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM pos_shifts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &shift, nil
}

func (s *Store) GetOpenShiftByUser(ctx context.Context, userID string) (*domain.PosShift, error) {
	shift, err := scanShift(s.db.QueryRowContext(ctx, `
		SELECT `+shiftColumns+` FROM pos_shifts WHERE user_id = $1 AND status = 'open'
	`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &shift, nil
}

// UpdateShift locks the shift row, so concurrent closes queue behind each
// other and the later ones see the closed status.
func (s *Store) UpdateShift(ctx context.Context, id string, fn store.ShiftMutation) (*domain.PosShift, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	shift, err := scanShift(tx.QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM pos_shifts WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	orders, err := listSalesOrdersByShift(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(&shift, orders); err != nil {
		return nil, err
	}
	shift.ID = id

	_, err = tx.ExecContext(ctx, `
		UPDATE pos_shifts
		SET status = $2, end_time = $3, closing_balance = $4, calculated_cash = $5,
			cash_sales = $6, card_sales = $7, cash_returns = $8, difference = $9
		WHERE id = $1
	`, shift.ID, shift.Status, nullTime(shift.EndTime), shift.ClosingBalance, shift.CalculatedCash,
		shift.CashSales, shift.CardSales, shift.CashReturns, shift.Difference)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &shift, nil
}

const studyColumns = `id, source_type, source_id, creation_date, items, totals`

func scanStudy(row interface{ Scan(dest ...any) error }) (domain.FeasibilityStudy, error) {
	var study domain.FeasibilityStudy
	var itemsRaw, totalsRaw []byte
	if err := row.Scan(&study.ID, &study.SourceType, &study.SourceID, &study.CreationDate, &itemsRaw, &totalsRaw); err != nil {
		return domain.FeasibilityStudy{}, err
	}
	if err := json.Unmarshal(itemsRaw, &study.Items); err != nil {
		return domain.FeasibilityStudy{}, fmt.Errorf("decode study %s items: %w", study.ID, err)
	}
	if err := json.Unmarshal(totalsRaw, &study.Totals); err != nil {
		return domain.FeasibilityStudy{}, fmt.Errorf("decode study %s totals: %w", study.ID, err)
	}
	return study, nil
}

func (s *Store) UpsertFeasibilityStudy(ctx context.Context, study domain.FeasibilityStudy) (*domain.FeasibilityStudy, error) {
	if study.ID == "" {
		return nil, store.ErrInvalidRecord
	}
	items := study.Items
	if items == nil {
		items = []domain.FeasibilityItem{}
	}
	itemsRaw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	totalsRaw, err := json.Marshal(study.Totals)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feasibility_studies (`+studyColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE
		SET source_type = EXCLUDED.source_type, source_id = EXCLUDED.source_id,
			creation_date = EXCLUDED.creation_date, items = EXCLUDED.items, totals = EXCLUDED.totals
	`, study.ID, study.SourceType, study.SourceID, study.CreationDate, itemsRaw, totalsRaw)
	if err != nil {
		return nil, err
	}
	saved := study.Clone()
	return &saved, nil
}

func (s *Store) GetFeasibilityStudy(ctx context.Context, id string) (*domain.FeasibilityStudy, error) {
	study, err := scanStudy(s.db.QueryRowContext(ctx, `SELECT `+studyColumns+` FROM feasibility_studies WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &study, nil
}

func (s *Store) ListFeasibilityStudies(ctx context.Context, limit int) ([]domain.FeasibilityStudy, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+studyColumns+`
		FROM feasibility_studies
		ORDER BY creation_date DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.FeasibilityStudy, 0, limit)
	for rows.Next() {
		study, err := scanStudy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, study)
	}
	return result, rows.Err()
}

func (s *Store) DeleteFeasibilityStudy(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM feasibility_studies WHERE id = $1`, id)
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
