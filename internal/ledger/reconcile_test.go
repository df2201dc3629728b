package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventoryledger/backend/internal/domain"
)

func shiftOrder(id string, typ domain.SalesOrderType, method domain.PaymentMethod, status domain.SalesOrderStatus, total string) domain.SalesOrder {
	return domain.SalesOrder{
		ID:            id,
		ShiftID:       "shift-1",
		Type:          typ,
		PaymentMethod: method,
		Status:        status,
		TotalAmount:   d(total),
	}
}

func TestReconcile_Formula(t *testing.T) {
	shift := domain.PosShift{ID: "shift-1", Status: domain.ShiftStatusOpen, OpeningBalance: d("100")}
	orders := []domain.SalesOrder{
		shiftOrder("s1", domain.SalesOrderTypeSale, domain.PaymentCash, domain.SalesOrderCompleted, "200"),
		shiftOrder("s2", domain.SalesOrderTypeSale, domain.PaymentCash, domain.SalesOrderShipped, "50"),
		shiftOrder("s3", domain.SalesOrderTypeSale, domain.PaymentCard, domain.SalesOrderCompleted, "75"),
		shiftOrder("s4", domain.SalesOrderTypeSale, domain.PaymentPaymentLink, domain.SalesOrderCompleted, "40"),
		shiftOrder("r1", domain.SalesOrderTypeReturn, domain.PaymentCash, domain.SalesOrderCompleted, "30"),
		shiftOrder("r2", domain.SalesOrderTypeReturn, domain.PaymentCard, domain.SalesOrderCompleted, "15"),
		shiftOrder("p1", domain.SalesOrderTypeSale, domain.PaymentCash, domain.SalesOrderProcessing, "999"),
		shiftOrder("c1", domain.SalesOrderTypeSale, domain.PaymentCash, domain.SalesOrderCancelled, "999"),
	}
	other := shiftOrder("x1", domain.SalesOrderTypeSale, domain.PaymentCash, domain.SalesOrderCompleted, "500")
	other.ShiftID = "shift-2"
	orders = append(orders, other)

	at := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	summary, err := Reconcile(shift, orders, d("310"), at)
	require.NoError(t, err)

	assert.True(t, summary.CashSales.Equal(d("250")))
	assert.True(t, summary.CardSales.Equal(d("75")))
	assert.True(t, summary.PaymentLinkSales.Equal(d("40")))
	assert.True(t, summary.CashReturns.Equal(d("30")))
	assert.True(t, summary.CalculatedCash.Equal(d("320")))
	assert.True(t, summary.Difference.Equal(d("-10")))
	assert.Equal(t, 6, summary.OrderCount)

	CloseWith(&shift, summary)
	assert.Equal(t, domain.ShiftStatusClosed, shift.Status)
	require.NotNil(t, shift.EndTime)
	assert.True(t, shift.EndTime.Equal(at))
	assert.True(t, shift.ClosingBalance.Equal(d("310")))
	assert.True(t, shift.Difference.Equal(d("-10")))
}

func TestReconcile_OverageIsPositive(t *testing.T) {
	shift := domain.PosShift{ID: "shift-1", Status: domain.ShiftStatusOpen, OpeningBalance: d("50")}
	summary, err := Reconcile(shift, nil, d("52.5"), time.Now())
	require.NoError(t, err)
	assert.True(t, summary.CalculatedCash.Equal(d("50")))
	assert.True(t, summary.Difference.Equal(d("2.5")))
}

func TestReconcile_RejectsClosedShift(t *testing.T) {
	end := time.Now()
	shift := domain.PosShift{ID: "shift-1", Status: domain.ShiftStatusClosed, EndTime: &end}
	_, err := Reconcile(shift, nil, decimal.Zero, time.Now())
	require.ErrorIs(t, err, domain.ErrShiftAlreadyClosed)
}

func TestReconcile_RejectsNegativeCount(t *testing.T) {
	shift := domain.PosShift{ID: "shift-1", Status: domain.ShiftStatusOpen}
	_, err := Reconcile(shift, nil, d("-1"), time.Now())
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
