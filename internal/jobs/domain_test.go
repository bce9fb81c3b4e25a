package jobs

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusDesigning, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusOnHold, true},
		{StatusPending, StatusPrinting, false},
		{StatusDesigning, StatusAwaitingApproval, true},
		{StatusDesigning, StatusRevision, true},
		{StatusDesigning, StatusApproved, false},
		{StatusAwaitingApproval, StatusApproved, true},
		{StatusAwaitingApproval, StatusRevision, true},
		{StatusAwaitingApproval, StatusCancelled, false},
		{StatusRevision, StatusAwaitingApproval, true},
		{StatusApproved, StatusPrinting, true},
		{StatusPrinting, StatusCutting, true},
		{StatusPrinting, StatusLaminating, true},
		{StatusPrinting, StatusReady, true},
		{StatusCutting, StatusLaminating, true},
		{StatusCutting, StatusReady, true},
		{StatusLaminating, StatusReady, true},
		{StatusReady, StatusCompleted, true},
		{StatusReady, StatusPending, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusOnHold, StatusPending, true},
		{StatusOnHold, StatusDesigning, true},
		{StatusOnHold, StatusCancelled, true},
		{StatusOnHold, StatusPrinting, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.allowed, CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatusesHaveNoExits(t *testing.T) {
	require.Empty(t, AllowedNext(StatusCompleted))
	require.Empty(t, AllowedNext(StatusCancelled))
}

func TestAllowedNextSorted(t *testing.T) {
	next := AllowedNext(StatusPending)
	require.Equal(t, []Status{StatusCancelled, StatusDesigning, StatusOnHold}, next)
}

func TestIsValidStatus(t *testing.T) {
	require.True(t, IsValidStatus(StatusLaminating))
	require.False(t, IsValidStatus(Status("shipped")))
	require.False(t, IsValidStatus(Status("PENDING")))
}

func TestDerivePaymentStatus(t *testing.T) {
	price := decimal.NewFromInt(300)
	discount := decimal.Zero

	require.Equal(t, PaymentUnpaid, DerivePaymentStatus(decimal.Zero, price, discount))
	require.Equal(t, PaymentPartial, DerivePaymentStatus(decimal.NewFromInt(100), price, discount))
	require.Equal(t, PaymentPaid, DerivePaymentStatus(decimal.NewFromInt(300), price, discount))
	require.Equal(t, PaymentPaid, DerivePaymentStatus(decimal.NewFromInt(350), price, discount))

	// Discount lowers the bar for full payment.
	require.Equal(t, PaymentPaid, DerivePaymentStatus(decimal.NewFromInt(250), price, decimal.NewFromInt(50)))

	// No money received is always unpaid, whatever the price.
	require.Equal(t, PaymentUnpaid, DerivePaymentStatus(decimal.Zero, decimal.Zero, decimal.Zero))
}

func TestEffectivePrice(t *testing.T) {
	job := Job{QuotedPrice: decimal.NewFromInt(1500), DiscountAmount: decimal.NewFromInt(200)}
	require.True(t, job.EffectivePrice().Equal(decimal.NewFromInt(1300)))
}

func TestInvalidTransitionErrorMessage(t *testing.T) {
	err := newInvalidTransition(StatusReady, StatusDesigning)
	require.Contains(t, err.Error(), "ready")
	require.Contains(t, err.Error(), "designing")
	require.Equal(t, []Status{StatusCompleted}, err.Allowed)
}
