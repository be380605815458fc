package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTextMessage(t *testing.T) {
	msg := Normalize(InboundEvent{
		Platform: "whatsapp",
		From:     "+9779800000001",
		EventID:  "SM001",
		Text:     "  2 steam momo  ",
	})

	require.NotNil(t, msg)
	assert.Equal(t, "whatsapp:+9779800000001", msg.UserID)
	assert.Equal(t, "2 steam momo", msg.Text)
	assert.Nil(t, msg.Interactive)
}

func TestNormalizeButtonReplyBecomesText(t *testing.T) {
	msg := Normalize(InboundEvent{
		Platform:      "whatsapp",
		From:          "+9779800000001",
		ButtonPayload: "confirm_yes",
		ButtonText:    "Confirm",
	})

	require.NotNil(t, msg)
	require.NotNil(t, msg.Interactive)
	assert.Equal(t, "button", msg.Interactive.Type)
	assert.Equal(t, "confirm_yes", msg.Interactive.ID)
	// the transcript should read naturally, so Text carries the label
	assert.Equal(t, "Confirm", msg.Text)
}

func TestNormalizeListReplyFallsBackToID(t *testing.T) {
	msg := Normalize(InboundEvent{
		Platform: "whatsapp",
		From:     "+9779800000001",
		ListID:   "momo-steam",
	})

	require.NotNil(t, msg)
	require.NotNil(t, msg.Interactive)
	assert.Equal(t, "list", msg.Interactive.Type)
	assert.Equal(t, "momo-steam", msg.Text)
}

func TestNormalizeLocationFillsEmptyText(t *testing.T) {
	msg := Normalize(InboundEvent{
		Platform: "whatsapp",
		From:     "+9779800000001",
		Latitude: "27.7172",
		Address:  "Baneshwor, Kathmandu",
	})

	require.NotNil(t, msg)
	require.NotNil(t, msg.Location)
	assert.Equal(t, "Baneshwor, Kathmandu", msg.Text)
}

func TestNormalizeDropsEmptyEvent(t *testing.T) {
	msg := Normalize(InboundEvent{
		Platform: "whatsapp",
		From:     "+9779800000001",
		EventID:  "SM001",
		Text:     "   ",
	})

	assert.Nil(t, msg)
}
