package services

import "strings"

// InboundEvent is the raw, platform-flavored view of one webhook event as
// the handler received it. Unused fields stay empty.
type InboundEvent struct {
	Platform      string
	From          string
	EventID       string
	Text          string
	ButtonPayload string
	ButtonText    string
	ListID        string
	ListTitle     string
	Latitude      string
	Longitude     string
	Address       string
	CatalogItems  []CatalogOrderItem
}

// CatalogOrderItem is one entry of a platform-native catalog cart.
type CatalogOrderItem struct {
	ItemID   string
	Quantity int
}

// InteractiveReply describes a tapped button or list row.
type InteractiveReply struct {
	Type  string // "button" or "list"
	ID    string
	Title string
}

// Location is a shared location or typed address.
type Location struct {
	Latitude  string
	Longitude string
	Address   string
}

// InboundMessage is the canonical message shape every platform event is
// reduced to before the pipeline runs.
type InboundMessage struct {
	UserID       string // platform-qualified
	Platform     string
	EventID      string
	Text         string
	Interactive  *InteractiveReply
	CatalogOrder []CatalogOrderItem
	Location     *Location
}

// Normalize reduces a raw event to the canonical shape. An interactive
// reply always yields non-empty Text (the reply's title) so the transcript
// reads naturally. Events carrying neither text, an interactive reply, a
// catalog cart, nor a location are dropped: Normalize returns nil and the
// pipeline must not touch the session.
func Normalize(ev InboundEvent) *InboundMessage {
	msg := &InboundMessage{
		UserID:       ev.Platform + ":" + ev.From,
		Platform:     ev.Platform,
		EventID:      ev.EventID,
		Text:         strings.TrimSpace(ev.Text),
		CatalogOrder: ev.CatalogItems,
	}

	switch {
	case ev.ButtonPayload != "" || ev.ButtonText != "":
		title := ev.ButtonText
		if title == "" {
			title = ev.ButtonPayload
		}
		msg.Interactive = &InteractiveReply{Type: "button", ID: ev.ButtonPayload, Title: title}
		msg.Text = title
	case ev.ListID != "" || ev.ListTitle != "":
		title := ev.ListTitle
		if title == "" {
			title = ev.ListID
		}
		msg.Interactive = &InteractiveReply{Type: "list", ID: ev.ListID, Title: title}
		msg.Text = title
	}

	if ev.Latitude != "" || ev.Longitude != "" || ev.Address != "" {
		msg.Location = &Location{Latitude: ev.Latitude, Longitude: ev.Longitude, Address: ev.Address}
		if msg.Text == "" && ev.Address != "" {
			msg.Text = ev.Address
		}
	}

	if msg.Text == "" && msg.Interactive == nil && len(msg.CatalogOrder) == 0 && msg.Location == nil {
		return nil
	}
	return msg
}
