package models

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendTurnEvictsOldest(t *testing.T) {
	s := NewSession("whatsapp:+9779800000001", "whatsapp")

	for i := 0; i < 15; i++ {
		s.AppendTurn(RoleUser, fmt.Sprintf("message %d", i))
		s.AppendTurn(RoleAssistant, fmt.Sprintf("reply %d", i))
	}

	require.Len(t, s.History, MaxHistoryTurns)
	// The newest turn is always the last reply; the oldest surviving turn
	// follows from a fixed-size window over 30 appended turns.
	assert.Equal(t, "reply 14", s.History[len(s.History)-1].Content)
	assert.Equal(t, "message 10", s.History[0].Content)
}

func TestAppendTurnDropsDuplicateUserTurn(t *testing.T) {
	s := NewSession("whatsapp:+9779800000001", "whatsapp")

	s.AppendTurn(RoleUser, "2 steam momo")
	s.AppendTurn(RoleUser, "2 steam momo") // duplicate webhook delivery
	require.Len(t, s.History, 1)

	// Same text after an assistant turn is a genuine repeat, keep it.
	s.AppendTurn(RoleAssistant, "Added 2 × Steam Momo")
	s.AppendTurn(RoleUser, "2 steam momo")
	assert.Len(t, s.History, 3)

	// Assistant turns are never deduplicated.
	s.AppendTurn(RoleAssistant, "Added 2 × Steam Momo")
	s.AppendTurn(RoleAssistant, "Added 2 × Steam Momo")
	assert.Len(t, s.History, 5)
}

func TestAddCartLineMergesByItemID(t *testing.T) {
	s := NewSession("whatsapp:+9779800000001", "whatsapp")
	price := decimal.NewFromInt(180)

	s.AddCartLine(CartLine{ItemID: "momo-steam", Name: "Steam Momo", UnitPrice: price, Quantity: 2})
	s.AddCartLine(CartLine{ItemID: "coke", Name: "Coke", UnitPrice: decimal.NewFromInt(80), Quantity: 1})
	s.AddCartLine(CartLine{ItemID: "momo-steam", Name: "Steam Momo", UnitPrice: price, Quantity: 3})

	require.Len(t, s.Cart, 2)
	assert.Equal(t, 5, s.Cart[0].Quantity)
	assert.Equal(t, "momo-steam", s.Cart[0].ItemID)
	assert.Equal(t, 6, s.CartCount())
	assert.True(t, CartTotal(s.Cart).Equal(decimal.NewFromInt(980)))
}

func TestRemoveCartLine(t *testing.T) {
	s := NewSession("whatsapp:+9779800000001", "whatsapp")
	s.AddCartLine(CartLine{ItemID: "momo-steam", Name: "Steam Momo", UnitPrice: decimal.NewFromInt(180), Quantity: 2})

	assert.False(t, s.RemoveCartLine("coke"))
	assert.True(t, s.RemoveCartLine("momo-steam"))
	assert.Empty(t, s.Cart)
}

func TestStageTransitions(t *testing.T) {
	cases := []struct {
		from, to Stage
		allowed  bool
	}{
		{StageInitial, StageViewingMenu, true},
		{StageInitial, StageInitial, true},
		{StageViewingMenu, StageConfirmingOrder, true},
		{StageConfirmingOrder, StageSelectingPayment, true},
		{StageSelectingPayment, StageOrderComplete, true},
		{StageSelectingPayment, StageAwaitingPayment, true},
		{StageAwaitingPayment, StageOrderComplete, true},
		// a failed gateway payment re-opens payment selection
		{StageAwaitingPayment, StageSelectingPayment, true},
		{StageOrderComplete, StageInitial, true},
		// cancel confirmation is reachable from and returns to anywhere
		{StageSelectingPayment, StageConfirmingCancel, true},
		{StageConfirmingCancel, StageQuickCartAction, true},
		// payment selection cannot be skipped or re-entered sideways
		{StageSelectingPayment, StageViewingMenu, false},
		{StageInitial, StageSelectingPayment, false},
		{StageInitial, StageOrderComplete, false},
		{StageViewingMenu, Stage("bogus"), false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}
