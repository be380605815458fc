package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jeshanrai/orderbot-backend/internal/models"
	"github.com/jeshanrai/orderbot-backend/internal/storage"
)

const downstreamApology = "😔 Sorry, something went wrong on our side. Please try that again in a moment."

// Dispatcher maps resolved actions to handlers that mutate the session,
// advance the conversation stage, and decide what to render. Handlers
// never let a downstream failure escape: Dispatch converts errors into an
// apology and rolls the stage back to the last stable one.
type Dispatcher struct {
	catalog  Catalog
	orders   Orders
	payments PaymentLinks
	handlers map[string]handlerFunc
}

type handlerFunc func(ctx context.Context, action models.ResolvedAction, s *models.Session) (*RenderIntent, error)

// NewDispatcher builds the dispatcher and verifies at startup that the
// handler registry covers the whole action catalog, so a catalog entry
// without a handler is caught at boot rather than mid-conversation.
func NewDispatcher(catalog Catalog, orders Orders, payments PaymentLinks) (*Dispatcher, error) {
	d := &Dispatcher{catalog: catalog, orders: orders, payments: payments}
	d.handlers = map[string]handlerFunc{
		ActionShowMenu:             d.handleShowMenu,
		ActionShowItems:            d.handleShowItems,
		ActionGetRecommendations:   d.handleGetRecommendations,
		ActionAddToCart:            d.handleAddToCart,
		ActionAddMultipleToCart:    d.handleAddMultipleToCart,
		ActionRemoveFromCart:       d.handleRemoveFromCart,
		ActionViewCart:             d.handleViewCart,
		ActionClearCart:            d.handleCancelOrder, // clearing the cart is destructive too, same two-phase path
		ActionCheckout:             d.handleCheckout,
		ActionProcessOrderResponse: d.handleProcessOrderResponse,
		ActionSelectPayment:        d.handleSelectPayment,
		ActionProvideLocation:      d.handleProvideLocation,
		ActionSelectService:        d.handleSelectService,
		ActionOrderHistory:         d.handleOrderHistory,
		ActionCancelOrder:          d.handleCancelOrder,
		ActionConfirmAge:           d.handleConfirmAge,
		ActionRespondText:          d.handleRespondText,
	}
	for _, name := range ActionNames() {
		if _, ok := d.handlers[name]; !ok {
			return nil, fmt.Errorf("no handler registered for action %q", name)
		}
	}
	return d, nil
}

// Dispatch executes the action against the session. It always returns a
// render intent and leaves the session stage valid.
func (d *Dispatcher) Dispatch(ctx context.Context, action models.ResolvedAction, s *models.Session) *RenderIntent {
	handler, ok := d.handlers[action.Name]
	if !ok {
		// The intent engine filters unknown names; this is a safety net.
		log.Printf("dispatch called with unknown action %q for %s", action.Name, s.UserID)
		return TextIntent("%s", genericApology)
	}

	prevStage := s.Stage
	intent, err := handler(ctx, action, s)
	if err != nil {
		log.Printf("action %s failed for %s: %v", action.Name, s.UserID, err)
		s.Stage = prevStage
		return TextIntent("%s", downstreamApology)
	}

	s.LastAction = action.Name
	return intent
}

// setStage moves the session to next if the transition table allows it.
// Disallowed transitions are logged and refused rather than applied, so a
// buggy handler can never drift the session into an invalid stage.
func setStage(s *models.Session, next models.Stage) {
	if !s.Stage.CanTransitionTo(next) {
		log.Printf("blocked stage transition %s -> %s for %s", s.Stage, next, s.UserID)
		return
	}
	s.Stage = next
}

func (d *Dispatcher) handleShowMenu(ctx context.Context, _ models.ResolvedAction, s *models.Session) (*RenderIntent, error) {
	categories, err := d.catalog.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if len(categories) == 0 {
		return TextIntent("Our menu is being updated right now, please check back in a bit!"), nil
	}

	rows := make([]Button, 0, len(categories))
	for _, category := range categories {
		rows = append(rows, Button{ID: category, Title: category})
	}
	setStage(s, models.StageViewingMenu)
	return &RenderIntent{
		Kind:     RenderList,
		Text:     "Here's our menu 📋 — pick a category:",
		Sections: []ListSection{{Title: "Menu", Items: rows}},
	}, nil
}

func (d *Dispatcher) handleShowItems(ctx context.Context, action models.ResolvedAction, s *models.Session) (*RenderIntent, error) {
	category := strings.TrimSpace(action.StringArg("category"))
	items, err := d.catalog.ListItemsByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list items for %q: %w", category, err)
	}
	if len(items) == 0 {
		return TextIntent("I couldn't find a %q category. Say \"menu\" to see what we have.", category), nil
	}

	rows := make([]Button, 0, len(items))
	for _, item := range items {
		rows = append(rows, Button{ID: item.ID, Title: fmt.Sprintf("%s — Rs. %s", item.Name, item.Price.StringFixed(2))})
	}
	setStage(s, models.StageViewingItems)
	return &RenderIntent{
		Kind:     RenderList,
		Text:     fmt.Sprintf("Here's what we have in %s:", category),
		Sections: []ListSection{{Title: category, Items: rows}},
	}, nil
}

func (d *Dispatcher) handleGetRecommendations(ctx context.Context, action models.ResolvedAction, s *models.Session) (*RenderIntent, error) {
	tag := action.StringArg("tag")
	items, err := d.catalog.Recommend(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("recommend %q: %w", tag, err)
	}
	if len(items) == 0 {
		return TextIntent("Nothing matched that, sorry! Say \"menu\" to browse everything."), nil
	}

	s.Recommendations = s.Recommendations[:0]
	var b strings.Builder
	b.WriteString("You might like:\n")
	for _, item := range items {
		s.Recommendations = append(s.Recommendations, models.RecommendedItem{ItemID: item.ID, Name: item.Name})
		fmt.Fprintf(&b, "• %s — Rs. %s\n", item.Name, item.Price.StringFixed(2))
	}
	b.WriteString("\nJust tell me which one to add!")
	setStage(s, models.StageViewingItems)
	return TextIntent("%s", b.String()), nil
}

func (d *Dispatcher) handleAddToCart(ctx context.Context, action models.ResolvedAction, s *models.Session) (*RenderIntent, error) {
	ref := strings.TrimSpace(action.StringArg("item_name"))
	if ref == "" && len(s.Recommendations) > 0 {
		// "add it" after a recommendation: resolve by the suggested id.
		ref = s.Recommendations[0].ItemID
	}
	if ref == "" {
		return TextIntent("%s", msgItemNameTooShort), nil
	}

	item, err := resolveItem(ctx, d.catalog, ref)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return TextIntent("I couldn't find \"%s\" on the menu. Say \"menu\" to browse what we have.", ref), nil
		}
		return nil, fmt.Errorf("resolve item %q: %w", ref, err)
	}
	if item.AgeRestricted && !s.AgeVerified {
		return ConfirmIntent(fmt.Sprintf("%s is an age-restricted item. Please confirm you are of legal drinking age.", item.Name)), nil
	}

	quantity := quantityArg(action.Args)
	s.AddCartLine(models.CartLine{ItemID: item.ID, Name: item.Name, UnitPrice: item.Price, Quantity: quantity})
	setStage(s, models.StageQuickCartAction)

	return TextIntent("Added %d × %s 🛒 Cart total: Rs. %s (%d items). Say \"checkout\" when you're ready, or keep adding.",
		quantity, item.Name, models.CartTotal(s.Cart).StringFixed(2), s.CartCount()), nil
}

func (d *Dispatcher) handleAddMultipleToCart(ctx context.Context, action models.ResolvedAction, s *models.Session) (*RenderIntent, error) {
	rawItems, _ := action.Args["items"].([]any)
	if len(rawItems) == 0 {
		return TextIntent("%s", msgItemNameTooShort), nil
	}

	// Resolve the whole batch before touching the cart so a transport error
	// partway through never leaves a half-applied add behind.
	var lines []models.CartLine
	var added, missing, restricted []string
	for _, raw := range rawItems {
		entry, _ := raw.(map[string]any)
		if entry == nil {
			continue
		}
		ref, _ := entry["item_name"].(string)
		if ref == "" {
			ref, _ = entry["item_id"].(string)
		}
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}

		item, err := resolveItem(ctx, d.catalog, ref)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// Items genuinely off the menu are reported individually;
				// the ones we did find still go in.
				missing = append(missing, ref)
				continue
			}
			return nil, fmt.Errorf("resolve item %q: %w", ref, err)
		}
		if item.AgeRestricted && !s.AgeVerified {
			restricted = append(restricted, item.Name)
			continue
		}
		quantity := quantityArg(entry)
		lines = append(lines, models.CartLine{ItemID: item.ID, Name: item.Name, UnitPrice: item.Price, Quantity: quantity})
		added = append(added, fmt.Sprintf("%d × %s", quantity, item.Name))
	}
	for _, line := range lines {
		s.AddCartLine(line)
	}

	if len(added) == 0 && len(missing) == 0 && len(restricted) == 0 {
		return TextIntent("%s", msgItemNameTooShort), nil
	}

	var b strings.Builder
	if len(added) > 0 {
		fmt.Fprintf(&b, "Added %s 🛒 Cart total: Rs. %s (%d items).",
			strings.Join(added, ", "), models.CartTotal(s.Cart).StringFixed(2), s.CartCount())
		setStage(s, models.StageQuickCartAction)
	}
	if len(missing) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "I couldn't find: %s.", strings.Join(missing, ", "))
	}
	if len(restricted) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s need an age confirmation first — please confirm you are of legal drinking age.", strings.Join(restricted, ", "))
	}
	if len(added) > 0 {
		b.WriteString(" Say \"checkout\" when you're ready.")
	}
	return TextIntent("%s", b.String()), nil
}

func (d *Dispatcher) handleRemoveFromCart(_ context.Context, action models.ResolvedAction, s *models.Session) (*RenderIntent, error) {
	ref := strings.ToLower(strings.TrimSpace(action.StringArg("item_name")))
	if ref == "" {
		return TextIntent("%s", msgItemNameTooShort), nil
	}

	for _, line := range s.Cart {
		if line.ItemID == ref || strings.Contains(strings.ToLower(line.Name), ref) {
			s.RemoveCartLine(line.ItemID)
			setStage(s, models.StageCartOptions)
			if len(s.Cart) == 0 {
				return TextIntent("Removed %s. Your cart is now empty.", line.Name), nil
			}
			return TextIntent("Removed %s. Cart total: Rs. %s (%d items).",
				line.Name, models.CartTotal(s.Cart).StringFixed(2), s.CartCount()), nil
		}
	}
	return TextIntent("\"%s\" isn't in your cart. Say \"cart\" to see what's there.", action.StringArg("item_name")), nil
}

func (d *Dispatcher) handleViewCart(_ context.Context, _ models.ResolvedAction, s *models.Session) (*RenderIntent, error) {
	if len(s.Cart) == 0 {
		return TextIntent("Your cart is empty. Say \"menu\" to start browsing!"), nil
	}

	setStage(s, models.StageCartOptions)
	return &RenderIntent{
		Kind: RenderButtons,
		Text: cartSummary(s),
		Buttons: []Button{
			{ID: "checkout", Title: "Checkout"},
			{ID: "clear_cart", Title: "Clear cart"},
		},
	}, nil
}

// handleCheckout re-validates every cart line against the catalog at
// confirmation time. Items that went unavailable since they were added are
// dropped and reported; prices are refreshed from the catalog.
func (d *Dispatcher) handleCheckout(ctx context.Context, _ models.ResolvedAction, s *models.Session) (*RenderIntent, error) {
	if len(s.Cart) == 0 {
		return TextIntent("Your cart is empty — nothing to check out yet. Say \"menu\" to browse!"), nil
	}

	var valid []models.CartLine
	var dropped []string
	for _, line := range s.Cart {
		item, err := d.catalog.GetItemByID(ctx, line.ItemID)
		if err != nil {
			// Only a definitive "gone" drops the line. An outage must not
			// delete anything the user put in the cart.
			if errors.Is(err, storage.ErrNotFound) {
				dropped = append(dropped, line.Name)
				continue
			}
			return nil, fmt.Errorf("revalidate %s: %w", line.ItemID, err)
		}
		line.UnitPrice = item.Price
		line.Name = item.Name
		valid = append(valid, line)
	}

	if len(valid) == 0 {
		return TextIntent("Sorry — %s no longer available, and nothing else is in your cart. Say \"menu\" to pick something else.",
			availabilityPhrase(dropped)), nil
	}
	s.Cart = valid

	var b strings.Builder
	if len(dropped) > 0 {
		fmt.Fprintf(&b, "Heads up: %s no longer available and got removed.\n\n", availabilityPhrase(dropped))
	}
	b.WriteString("🧾 *Order summary*\n")
	b.WriteString(cartSummary(s))
	b.WriteString("\n\nShall I place this order?")

	setStage(s, models.StageConfirmingOrder)
	return ConfirmIntent(b.String()), nil
}

func (d *Dispatcher) handleProcessOrderResponse(ctx context.Context, action models.ResolvedAction, s *models.Session) (*RenderIntent, error) {
	response := strings.ToLower(action.StringArg("action"))

	switch s.Stage {
	case models.StageConfirmingCancel:
		if response == "confirmed" {
			s.ClearCart()
			s.PendingOrder = nil
			s.ReturnStage = ""
			setStage(s, models.StageInitial)
			return TextIntent("Done — order cancelled and cart cleared. Say \"menu\" whenever you're hungry again!"), nil
		}
		resume := s.ReturnStage
		s.ReturnStage = ""
		if !resume.Valid() {
			resume = models.StageInitial
		}
		setStage(s, resume)
		return TextIntent("No problem, your cart is untouched. Say \"checkout\" when you're ready."), nil

	case models.StageConfirmingOrder:
		if response != "confirmed" {
			setStage(s, models.StageCartOptions)
			return TextIntent("Okay, order not placed. Your cart is saved — say \"checkout\" anytime."), nil
		}

		// Create the durable order before any payment method is chosen, so
		// a replayed payment selection can never create a second order.
		order, err := d.orders.CreateOrder(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}
		s.PendingOrder = &models.PendingOrder{
			OrderID: order.OrderID,
			Items:   append([]models.CartLine(nil), s.Cart...),
			Total:   order.Total,
		}
		setStage(s, models.StageSelectingPayment)
		return &RenderIntent{
			Kind: RenderButtons,
			Text: fmt.Sprintf("Order %s placed! Total: Rs. %s. How would you like to pay?", order.OrderID, order.Total.StringFixed(2)),
			Buttons: []Button{
				{ID: "cash", Title: "Cash"},
				{ID: "card", Title: "Card"},
				{ID: "wallet", Title: "Wallet"},
			},
		}, nil
	}

	return TextIntent("There's nothing waiting for a yes/no right now. Say \"menu\" to browse or \"cart\" to review your order."), nil
}

func (d *Dispatcher) handleSelectPayment(ctx context.Context, action models.ResolvedAction, s *models.Session) (*RenderIntent, error) {
	if s.PendingOrder == nil {
		return TextIntent("There's no order waiting for payment. Say \"checkout\" to place one first."), nil
	}

	method := strings.ToLower(action.StringArg("method"))
	order, err := d.orders.SetPaymentMethod(ctx, s.PendingOrder.OrderID, method)
	if err != nil {
		return nil, fmt.Errorf("set payment method: %w", err)
	}

	s.PaymentMethod = method
	s.ClearCart()
	s.ReminderSent = false

	if method == "cash" {
		orderID, total := s.PendingOrder.OrderID, s.PendingOrder.Total
		s.PendingOrder = nil
		setStage(s, models.StageOrderComplete)
		return TextIntent("🎉 All set! Order %s, Rs. %s, payable in cash on %s. Thank you!",
			orderID, total.StringFixed(2), deliveryOrPickup(s)), nil
	}

	link, err := d.payments.CreateCheckoutLink(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("create checkout link: %w", err)
	}
	setStage(s, models.StageAwaitingPayment)
	return TextIntent("Almost there! Pay for order %s here:\n%s\n\nI'll confirm as soon as the payment lands.",
		order.OrderID, link), nil
}

func (d *Dispatcher) handleProvideLocation(_ context.Context, action models.ResolvedAction, s *models.Session) (*RenderIntent, error) {
	address := strings.TrimSpace(action.StringArg("address"))
	if address == "" {
		return TextIntent("%s", msgAddressTooShort), nil
	}
	s.DeliveryAddress = address
	if s.ServiceType == "" {
		s.ServiceType = "delivery"
	}
	return TextIntent("Got it — delivering to: %s", address), nil
}

func (d *Dispatcher) handleSelectService(_ context.Context, action models.ResolvedAction, s *models.Session) (*RenderIntent, error) {
	serviceType := strings.ToLower(action.StringArg("type"))
	if serviceType != "delivery" && serviceType != "pickup" {
		return TextIntent("Delivery or pickup — which one works for you?"), nil
	}
	s.ServiceType = serviceType
	if serviceType == "delivery" && s.DeliveryAddress == "" {
		return TextIntent("Delivery it is! What's your address?"), nil
	}
	return TextIntent("Noted — %s it is.", serviceType), nil
}

func (d *Dispatcher) handleOrderHistory(ctx context.Context, _ models.ResolvedAction, s *models.Session) (*RenderIntent, error) {
	orders, err := d.orders.GetHistory(ctx, s.UserID, 5)
	if err != nil {
		return nil, fmt.Errorf("order history: %w", err)
	}
	if len(orders) == 0 {
		return TextIntent("No orders yet! Say \"menu\" to place your first one."), nil
	}

	var b strings.Builder
	b.WriteString("Your recent orders:\n")
	for _, order := range orders {
		fmt.Fprintf(&b, "• %s — Rs. %s (%s)\n", order.OrderID, order.Total.StringFixed(2), order.Status)
	}
	return TextIntent("%s", b.String()), nil
}

// handleCancelOrder is phase one of the two-phase cancel: it never clears
// anything itself, it only asks for explicit confirmation.
func (d *Dispatcher) handleCancelOrder(_ context.Context, _ models.ResolvedAction, s *models.Session) (*RenderIntent, error) {
	if len(s.Cart) == 0 && s.PendingOrder == nil {
		return TextIntent("There's nothing in progress to cancel. Say \"menu\" to start an order!"), nil
	}

	if s.Stage != models.StageConfirmingCancel {
		s.ReturnStage = s.Stage
		setStage(s, models.StageConfirmingCancel)
	}
	return ConfirmIntent(fmt.Sprintf("You have %d item(s) in your cart. Really cancel and clear everything?", s.CartCount())), nil
}

func (d *Dispatcher) handleConfirmAge(_ context.Context, _ models.ResolvedAction, s *models.Session) (*RenderIntent, error) {
	s.AgeVerified = true
	return TextIntent("Thanks, noted ✅ You can order age-restricted items now."), nil
}

func (d *Dispatcher) handleRespondText(_ context.Context, action models.ResolvedAction, s *models.Session) (*RenderIntent, error) {
	text := strings.TrimSpace(action.StringArg("text"))
	if text == "" {
		text = genericApology
	}
	return TextIntent("%s", text), nil
}

func cartSummary(s *models.Session) string {
	var b strings.Builder
	for _, line := range s.Cart {
		fmt.Fprintf(&b, "• %d × %s — Rs. %s\n", line.Quantity, line.Name, line.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: Rs. %s", models.CartTotal(s.Cart).StringFixed(2))
	return b.String()
}

func availabilityPhrase(names []string) string {
	if len(names) == 1 {
		return names[0] + " is"
	}
	return strings.Join(names, ", ") + " are"
}

func deliveryOrPickup(s *models.Session) string {
	if s.ServiceType == "pickup" {
		return "pickup"
	}
	return "delivery"
}
