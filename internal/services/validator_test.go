package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddToCartQuantity(t *testing.T) {
	cases := []struct {
		name    string
		args    map[string]any
		valid   bool
		message string
	}{
		{"default quantity", map[string]any{"item_name": "steam momo"}, true, ""},
		{"one", map[string]any{"item_name": "steam momo", "quantity": float64(1)}, true, ""},
		{"fifty", map[string]any{"item_name": "steam momo", "quantity": float64(50)}, true, ""},
		{"numeric string", map[string]any{"item_name": "steam momo", "quantity": "3"}, true, ""},
		{"zero", map[string]any{"item_name": "steam momo", "quantity": float64(0)}, false, msgQuantityTooSmall},
		{"negative", map[string]any{"item_name": "steam momo", "quantity": float64(-1)}, false, msgQuantityTooSmall},
		{"over cap", map[string]any{"item_name": "steam momo", "quantity": float64(51)}, false, msgQuantityTooLarge},
		{"gibberish string", map[string]any{"item_name": "steam momo", "quantity": "abc"}, false, msgQuantityNotNumber},
		{"fractional", map[string]any{"item_name": "steam momo", "quantity": 2.5}, false, msgQuantityNotNumber},
		{"short item name", map[string]any{"item_name": " m "}, false, msgItemNameTooShort},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			valid, message := ValidateAction(ActionAddToCart, tc.args)
			assert.Equal(t, tc.valid, valid)
			assert.Equal(t, tc.message, message)
		})
	}
}

func TestValidateAddMultipleChecksEachEntry(t *testing.T) {
	args := map[string]any{
		"items": []any{
			map[string]any{"item_name": "steam momo", "quantity": float64(2)},
			map[string]any{"item_name": "coke", "quantity": float64(0)},
		},
	}
	valid, message := ValidateAction(ActionAddMultipleToCart, args)
	require.False(t, valid)
	assert.Equal(t, msgQuantityTooSmall, message)
}

func TestValidateProvideLocation(t *testing.T) {
	valid, message := ValidateAction(ActionProvideLocation, map[string]any{"address": "KTM"})
	require.False(t, valid)
	assert.Equal(t, msgAddressTooShort, message)

	valid, _ = ValidateAction(ActionProvideLocation, map[string]any{"address": "Baneshwor, Kathmandu"})
	assert.True(t, valid)
}

func TestValidateUnknownKindPasses(t *testing.T) {
	valid, message := ValidateAction(ActionShowMenu, map[string]any{"anything": "goes"})
	assert.True(t, valid)
	assert.Empty(t, message)
}

func TestQuantityArgDefaults(t *testing.T) {
	assert.Equal(t, 1, quantityArg(map[string]any{}))
	assert.Equal(t, 4, quantityArg(map[string]any{"quantity": float64(4)}))
	assert.Equal(t, 1, quantityArg(map[string]any{"quantity": "junk"}))
}
