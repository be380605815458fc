package services

import (
	"sort"

	"github.com/openai/openai-go"
)

// The closed action catalog. The classifier may only propose these names;
// anything else is treated as a hallucination and replaced with a
// plain-text fallback.
const (
	ActionShowMenu             = "show_menu"
	ActionShowItems            = "show_items"
	ActionGetRecommendations   = "get_recommendations"
	ActionAddToCart            = "add_to_cart"
	ActionAddMultipleToCart    = "add_multiple_to_cart"
	ActionRemoveFromCart       = "remove_from_cart"
	ActionViewCart             = "view_cart"
	ActionClearCart            = "clear_cart"
	ActionCheckout             = "checkout"
	ActionProcessOrderResponse = "process_order_response"
	ActionSelectPayment        = "select_payment"
	ActionProvideLocation      = "provide_location"
	ActionSelectService        = "select_service"
	ActionOrderHistory         = "order_history"
	ActionCancelOrder          = "cancel_order"
	ActionConfirmAge           = "confirm_age"
	ActionRespondText          = "respond_text"
)

// actionCatalog maps each allowed action to its function-tool definition.
// This map is the single source of truth: the classifier tools, the
// hallucination check, and the dispatcher registry are all derived from it.
var actionCatalog = map[string]openai.FunctionDefinitionParam{
	ActionShowMenu: {
		Name:        ActionShowMenu,
		Description: openai.String("Show the menu categories to the user."),
		Parameters:  objectSchema(map[string]any{}, nil),
	},
	ActionShowItems: {
		Name:        ActionShowItems,
		Description: openai.String("List the items of one menu category."),
		Parameters: objectSchema(map[string]any{
			"category": map[string]any{"type": "string", "description": "Category name, e.g. momo, drinks"},
		}, []string{"category"}),
	},
	ActionGetRecommendations: {
		Name:        ActionGetRecommendations,
		Description: openai.String("Suggest items, optionally filtered by a short preference tag."),
		Parameters: objectSchema(map[string]any{
			"tag": map[string]any{"type": "string", "description": "Optional preference like spicy, veg, drinks"},
		}, nil),
	},
	ActionAddToCart: {
		Name:        ActionAddToCart,
		Description: openai.String("Add one item to the cart by name. Use add_multiple_to_cart when the user names several items."),
		Parameters: objectSchema(map[string]any{
			"item_name": map[string]any{"type": "string"},
			"quantity":  map[string]any{"type": "integer", "minimum": 1},
		}, []string{"item_name"}),
	},
	ActionAddMultipleToCart: {
		Name:        ActionAddMultipleToCart,
		Description: openai.String("Add several items to the cart in one go."),
		Parameters: objectSchema(map[string]any{
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"item_name": map[string]any{"type": "string"},
						"quantity":  map[string]any{"type": "integer", "minimum": 1},
					},
					"required": []string{"item_name"},
				},
			},
		}, []string{"items"}),
	},
	ActionRemoveFromCart: {
		Name:        ActionRemoveFromCart,
		Description: openai.String("Remove an item from the cart by name."),
		Parameters: objectSchema(map[string]any{
			"item_name": map[string]any{"type": "string"},
		}, []string{"item_name"}),
	},
	ActionViewCart: {
		Name:        ActionViewCart,
		Description: openai.String("Show the current cart contents and total."),
		Parameters:  objectSchema(map[string]any{}, nil),
	},
	ActionClearCart: {
		Name:        ActionClearCart,
		Description: openai.String("Empty the cart. Requires a confirmation step."),
		Parameters:  objectSchema(map[string]any{}, nil),
	},
	ActionCheckout: {
		Name:        ActionCheckout,
		Description: openai.String("Start checkout: show the order summary for confirmation."),
		Parameters:  objectSchema(map[string]any{}, nil),
	},
	ActionProcessOrderResponse: {
		Name:        ActionProcessOrderResponse,
		Description: openai.String("Record the user's answer to a pending confirmation prompt."),
		Parameters: objectSchema(map[string]any{
			"action": map[string]any{"type": "string", "enum": []string{"confirmed", "cancelled"}},
		}, []string{"action"}),
	},
	ActionSelectPayment: {
		Name:        ActionSelectPayment,
		Description: openai.String("Choose a payment method for the pending order."),
		Parameters: objectSchema(map[string]any{
			"method": map[string]any{"type": "string", "enum": []string{"cash", "card", "wallet"}},
		}, []string{"method"}),
	},
	ActionProvideLocation: {
		Name:        ActionProvideLocation,
		Description: openai.String("Save the user's delivery address."),
		Parameters: objectSchema(map[string]any{
			"address": map[string]any{"type": "string"},
		}, []string{"address"}),
	},
	ActionSelectService: {
		Name:        ActionSelectService,
		Description: openai.String("Record whether the user wants delivery or pickup."),
		Parameters: objectSchema(map[string]any{
			"type": map[string]any{"type": "string", "enum": []string{"delivery", "pickup"}},
		}, []string{"type"}),
	},
	ActionOrderHistory: {
		Name:        ActionOrderHistory,
		Description: openai.String("Show the user's recent orders."),
		Parameters:  objectSchema(map[string]any{}, nil),
	},
	ActionCancelOrder: {
		Name:        ActionCancelOrder,
		Description: openai.String("User wants to cancel the in-progress order. Always goes through a confirmation step."),
		Parameters:  objectSchema(map[string]any{}, nil),
	},
	ActionConfirmAge: {
		Name:        ActionConfirmAge,
		Description: openai.String("User confirmed they are of legal age for restricted items."),
		Parameters:  objectSchema(map[string]any{}, nil),
	},
	ActionRespondText: {
		Name:        ActionRespondText,
		Description: openai.String("Reply with plain text when no other action fits."),
		Parameters: objectSchema(map[string]any{
			"text": map[string]any{"type": "string"},
		}, []string{"text"}),
	},
}

// KnownAction reports whether name is part of the closed catalog.
func KnownAction(name string) bool {
	_, ok := actionCatalog[name]
	return ok
}

// ActionNames returns the catalog names in stable order.
func ActionNames() []string {
	names := make([]string, 0, len(actionCatalog))
	for name := range actionCatalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToolDefinitions returns the catalog as OpenAI function tools.
func ToolDefinitions() []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, 0, len(actionCatalog))
	for _, name := range ActionNames() {
		tools = append(tools, openai.ChatCompletionToolParam{Function: actionCatalog[name]})
	}
	return tools
}

func objectSchema(properties map[string]any, required []string) openai.FunctionParameters {
	schema := openai.FunctionParameters{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
