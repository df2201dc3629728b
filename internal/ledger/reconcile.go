package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"inventoryledger/backend/internal/domain"
)

type ShiftSummary struct {
	ShiftID          string          `json:"shift_id"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	CashSales        decimal.Decimal `json:"cash_sales"`
	CardSales        decimal.Decimal `json:"card_sales"`
	PaymentLinkSales decimal.Decimal `json:"payment_link_sales"`
	CashReturns      decimal.Decimal `json:"cash_returns"`
	CalculatedCash   decimal.Decimal `json:"calculated_cash"`
	CountedCash      decimal.Decimal `json:"counted_cash"`
	Difference       decimal.Decimal `json:"difference"`
	OrderCount       int             `json:"order_count"`
	EndTime          time.Time       `json:"end_time"`
}

// Reconcile computes the expected drawer cash for an open shift from the
// shipped or completed orders tagged with it. Orders for other shifts and
// orders still processing or cancelled are ignored.
func Reconcile(shift domain.PosShift, orders []domain.SalesOrder, countedCash decimal.Decimal, at time.Time) (ShiftSummary, error) {
	if shift.Status == domain.ShiftStatusClosed {
		return ShiftSummary{}, domain.NewError(domain.KindShiftAlreadyClosed, shift.ID, "shift closed at %s", formatEnd(shift.EndTime))
	}
	if countedCash.IsNegative() {
		return ShiftSummary{}, domain.NewError(domain.KindInvalidInput, shift.ID, "counted cash cannot be negative")
	}

	summary := ShiftSummary{
		ShiftID:          shift.ID,
		OpeningBalance:   shift.OpeningBalance,
		CashSales:        decimal.Zero,
		CardSales:        decimal.Zero,
		PaymentLinkSales: decimal.Zero,
		CashReturns:      decimal.Zero,
		CountedCash:      countedCash,
		EndTime:          at,
	}
	for _, order := range orders {
		if order.ShiftID != shift.ID || !order.Status.Fulfilled() {
			continue
		}
		summary.OrderCount++
		if order.Type == domain.SalesOrderTypeReturn {
			if order.PaymentMethod == domain.PaymentCash {
				summary.CashReturns = summary.CashReturns.Add(order.TotalAmount)
			}
			continue
		}
		switch order.PaymentMethod {
		case domain.PaymentCash:
			summary.CashSales = summary.CashSales.Add(order.TotalAmount)
		case domain.PaymentCard:
			summary.CardSales = summary.CardSales.Add(order.TotalAmount)
		case domain.PaymentPaymentLink:
			summary.PaymentLinkSales = summary.PaymentLinkSales.Add(order.TotalAmount)
		}
	}
	summary.CalculatedCash = shift.OpeningBalance.Add(summary.CashSales).Sub(summary.CashReturns)
	summary.Difference = countedCash.Sub(summary.CalculatedCash)
	return summary, nil
}

// CloseWith records the summary on the shift as its terminal state.
func CloseWith(shift *domain.PosShift, summary ShiftSummary) {
	end := summary.EndTime
	shift.Status = domain.ShiftStatusClosed
	shift.EndTime = &end
	shift.ClosingBalance = summary.CountedCash
	shift.CalculatedCash = summary.CalculatedCash
	shift.CashSales = summary.CashSales
	shift.CardSales = summary.CardSales
	shift.CashReturns = summary.CashReturns
	shift.Difference = summary.Difference
}

func formatEnd(end *time.Time) string {
	if end == nil {
		return "unknown time"
	}
	return end.UTC().Format(time.RFC3339)
}
