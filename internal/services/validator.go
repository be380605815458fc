package services

import (
	"math"
	"strconv"
	"strings"
)

// MaxQuantityPerItem caps how many units of one item a chat order may hold.
const MaxQuantityPerItem = 50

// Validation messages reused by tests.
const (
	msgQuantityNotNumber = "I couldn't read that quantity. Please send a plain number, like \"2 steam momo\"."
	msgQuantityTooSmall  = "Quantity needs to be at least 1."
	msgQuantityTooLarge  = "For more than 50 of an item, please call us directly and we'll arrange it."
	msgItemNameTooShort  = "Which item would you like? Please send the item name."
	msgAddressTooShort   = "That address looks too short. Please send your full delivery address."
	msgTagTooLong        = "Please keep the preference short, like \"spicy\" or \"veg\"."
)

// ValidateAction runs per-action-kind sanity checks before any side effect.
// Unknown action kinds pass by default. On failure it returns false and a
// user-facing corrective message; the caller must not dispatch.
func ValidateAction(name string, args map[string]any) (bool, string) {
	switch name {
	case ActionAddToCart:
		return validateCartItem(args)
	case ActionAddMultipleToCart:
		items, ok := args["items"].([]any)
		if !ok {
			return true, "" // missing list is a dispatcher concern, not a validation error
		}
		for _, raw := range items {
			item, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if valid, msg := validateCartItem(item); !valid {
				return false, msg
			}
		}
		return true, ""
	case ActionProvideLocation:
		if address, present := args["address"]; present {
			s, _ := address.(string)
			if len(strings.TrimSpace(s)) < 5 {
				return false, msgAddressTooShort
			}
		}
		return true, ""
	case ActionGetRecommendations:
		if tag, present := args["tag"]; present {
			s, _ := tag.(string)
			if len(s) > 50 {
				return false, msgTagTooLong
			}
		}
		return true, ""
	default:
		return true, ""
	}
}

func validateCartItem(args map[string]any) (bool, string) {
	if raw, present := args["quantity"]; present {
		if _, msg := parseQuantity(raw); msg != "" {
			return false, msg
		}
	}
	if raw, present := args["item_name"]; present {
		name, _ := raw.(string)
		if len(strings.TrimSpace(name)) < 2 {
			return false, msgItemNameTooShort
		}
	}
	return true, ""
}

// parseQuantity accepts the quantity however JSON delivered it (number or
// string) and returns a user-facing message when it is unusable.
func parseQuantity(raw any) (int, string) {
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, msgQuantityNotNumber
		}
		return checkQuantityRange(int(v))
	case int:
		return checkQuantityRange(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, msgQuantityNotNumber
		}
		return checkQuantityRange(n)
	case nil:
		return 1, ""
	default:
		return 0, msgQuantityNotNumber
	}
}

func checkQuantityRange(n int) (int, string) {
	if n <= 0 {
		return 0, msgQuantityTooSmall
	}
	if n > MaxQuantityPerItem {
		return 0, msgQuantityTooLarge
	}
	return n, ""
}

// quantityArg resolves a validated quantity argument at dispatch time,
// defaulting to 1 when absent.
func quantityArg(args map[string]any) int {
	raw, present := args["quantity"]
	if !present {
		return 1
	}
	n, msg := parseQuantity(raw)
	if msg != "" {
		return 1
	}
	return n
}
