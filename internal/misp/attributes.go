package misp

import (
	"context"
	"fmt"
)

// AddEventAttribute adds attr to eventID. A KindDuplicate result means the
// event already carries the value and nothing changed.
func (c *Client) AddEventAttribute(ctx context.Context, eventID int, attr Attribute) *Result {
	req := AddAttributeRequest{
		Value:    attr.Value,
		Type:     attr.Type,
		Category: attr.Category,
		Comment:  attr.Comment,
		EventID:  eventID,
	}
	return c.post(ctx, fmt.Sprintf("/attributes/add/%d", eventID), req)
}
