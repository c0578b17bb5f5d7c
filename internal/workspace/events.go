package workspace

import (
	"context"
	"fmt"
	"strconv"

	"github.com/odyssey-erp/purchasedesk/internal/keymap"
	"github.com/odyssey-erp/purchasedesk/internal/purchase"
)

// EventType names a desk interaction.
type EventType string

const (
	EventAddRow          EventType = "add_row"
	EventUpdateRow       EventType = "update_row"
	EventRemoveRow       EventType = "remove_row"
	EventOverallDiscount EventType = "overall_discount"
	EventInvoiceNumber   EventType = "invoice_number"
	EventPurchaseDate    EventType = "purchase_date"
	EventFocus           EventType = "focus"
	EventBlur            EventType = "blur"
	EventText            EventType = "type"
	EventPick            EventType = "pick"
	EventKey             EventType = "key"
	EventHistory         EventType = "history"
	EventCloseHistory    EventType = "close_history"
	EventReload          EventType = "reload"
	EventCancelEdit      EventType = "cancel_edit"
)

// Event is one interaction posted by a client.
type Event struct {
	Type  EventType      `json:"type" validate:"required,oneof=add_row update_row remove_row overall_discount invoice_number purchase_date focus blur type pick key history close_history reload cancel_edit"`
	Field purchase.Field `json:"field,omitempty"`
	Row   int            `json:"row" validate:"gte=0"`
	Index int            `json:"index" validate:"gte=0"`
	Value string         `json:"value,omitempty" validate:"max=500"`
	Key   string         `json:"key,omitempty" validate:"required_if=Type key,max=40"`
}

// Result reports how the desk reacted to an event. Error carries a rejected edit or a
// failed save; the desk stays usable either way.
type Result struct {
	View
	Action  keymap.Action `json:"action,omitempty"`
	Handled bool          `json:"handled"`
	Error   string        `json:"error,omitempty"`
}

// apply must run on the session goroutine.
func apply(ctx context.Context, c *purchase.Controller, ev Event) (keymap.Action, bool, error) {
	switch ev.Type {
	case EventAddRow:
		c.AddRow()
		return "", true, nil
	case EventUpdateRow:
		return "", true, c.UpdateRow(ev.Row, ev.Field, ev.Value)
	case EventRemoveRow:
		c.RemoveRow(ev.Row)
		return "", true, nil
	case EventOverallDiscount:
		return "", true, c.SetOverallDiscount(ev.Value)
	case EventInvoiceNumber:
		c.SetInvoiceNumber(ev.Value)
		return "", true, nil
	case EventPurchaseDate:
		return "", true, c.SetPurchaseDate(ev.Value)
	case EventFocus:
		switch ev.Field {
		case purchase.FieldSupplier:
			c.SupplierFocus()
		case purchase.FieldItem:
			c.ItemFocus(ev.Row)
		default:
			c.SetFocus(purchase.Focus{Field: ev.Field, Row: ev.Row})
		}
		return "", true, nil
	case EventBlur:
		switch ev.Field {
		case purchase.FieldSupplier:
			c.SupplierBlur()
		case purchase.FieldItem:
			c.ItemBlur(ev.Row)
		default:
			return "", false, nil
		}
		return "", true, nil
	case EventText:
		switch ev.Field {
		case purchase.FieldSupplier:
			c.SupplierType(ev.Value)
		case purchase.FieldItem:
			c.ItemType(ev.Row, ev.Value)
		default:
			return "", false, fmt.Errorf("%w: field %q is not searchable", purchase.ErrInvalidInput, ev.Field)
		}
		return "", true, nil
	case EventPick:
		switch ev.Field {
		case purchase.FieldSupplier:
			return "", c.SupplierPick(ev.Index), nil
		case purchase.FieldItem:
			return "", c.ItemPick(ev.Row, ev.Index), nil
		}
		return "", false, fmt.Errorf("%w: field %q is not searchable", purchase.ErrInvalidInput, ev.Field)
	case EventKey:
		return c.HandleKey(ctx, ev.Key)
	case EventHistory:
		_, err := c.ItemHistory(ctx, ev.Row)
		return "", true, err
	case EventCloseHistory:
		c.CloseHistory()
		return "", true, nil
	case EventReload:
		return "", true, c.Load(ctx)
	case EventCancelEdit:
		c.CancelEdit()
		return "", true, nil
	}
	return "", false, fmt.Errorf("%w: unknown event %q", purchase.ErrInvalidInput, ev.Type)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
