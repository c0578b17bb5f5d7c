package purchase

import (
	"context"

	"github.com/odyssey-erp/purchasedesk/internal/keymap"
	"github.com/odyssey-erp/purchasedesk/internal/searchselect"
)

var navigationKeys = map[string]searchselect.Key{
	"arrowdown": searchselect.KeyArrowDown,
	"down":      searchselect.KeyArrowDown,
	"arrowup":   searchselect.KeyArrowUp,
	"up":        searchselect.KeyArrowUp,
	"enter":     searchselect.KeyEnter,
	"tab":       searchselect.KeyTab,
	"escape":    searchselect.KeyEscape,
}

// HandleKey dispatches a key chord for the current focus. Keymap bindings win; bare
// navigation keys go to the focused search. The returned action is empty when the
// chord was not a keymap binding.
func (c *Controller) HandleKey(ctx context.Context, chord string) (keymap.Action, bool, error) {
	if action, ok := c.keys.Lookup(chord, c.focus.InItemRow()); ok {
		handled, err := c.runAction(ctx, action)
		return action, handled, err
	}

	norm, err := keymap.Normalize(chord)
	if err != nil {
		return "", false, nil
	}
	key, ok := navigationKeys[norm]
	if !ok {
		return "", false, nil
	}
	switch c.focus.Field {
	case FieldSupplier:
		return "", c.SupplierKey(key), nil
	case FieldItem:
		return "", c.ItemKey(c.focus.Row, key), nil
	}
	return "", false, nil
}

func (c *Controller) runAction(ctx context.Context, action keymap.Action) (bool, error) {
	switch action {
	case keymap.ActionSaveOrder:
		_, err := c.Submit(ctx)
		return true, err
	case keymap.ActionRemoveRow:
		if !c.validRow(c.focus.Row) {
			return false, nil
		}
		c.RemoveRow(c.focus.Row)
		return true, nil
	case keymap.ActionItemHistory:
		if !c.validRow(c.focus.Row) || c.draft.Items[c.focus.Row].ItemID == 0 {
			return false, nil
		}
		_, err := c.ItemHistory(ctx, c.focus.Row)
		return true, err
	case keymap.ActionFocusItemSearch:
		row := c.focus.Row
		if !c.focus.InItemRow() || !c.validRow(row) {
			if len(c.draft.Items) == 0 {
				c.AddRow()
			}
			row = len(c.draft.Items) - 1
		}
		c.ItemFocus(row)
		return true, nil
	case keymap.ActionAddRow:
		c.ItemFocus(c.AddRow())
		return true, nil
	}
	return false, nil
}
