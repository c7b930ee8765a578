package misp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Mode decides what CreateEvent does with an event that already exists.
type Mode int

const (
	// ModeCreateOnly leaves an existing event untouched.
	ModeCreateOnly Mode = iota
	// ModeReconcile applies the requested tags and attributes to an
	// existing event as well.
	ModeReconcile
)

// ErrEventNotCreated is returned when CreateEvent ends up without an event id.
var ErrEventNotCreated = errors.New("event not created")

// CreateEventRequest describes the event CreateEvent should ensure exists.
type CreateEventRequest struct {
	Organization   string
	EventName      string
	PublisherEmail string
	Publish        bool
	Distribution   int
	TagIDs         []int
	LocalTags      bool
	Attributes     []Attribute
	Mode           Mode
	// StopOnError aborts at the first failed call instead of logging and
	// carrying on. Duplicate attributes never count as failures.
	StopOnError bool
}

// CreateEventResult reports what CreateEvent did.
type CreateEventResult struct {
	EventID    int
	Created    bool
	Lookup     *Result
	Create     *Result
	Tags       []*Result
	Attributes []*Result
}

// Failed counts tag and attribute calls that were neither successful nor
// duplicates.
func (r *CreateEventResult) Failed() int {
	n := 0
	for _, res := range r.Tags {
		if !res.Benign() {
			n++
		}
	}
	for _, res := range r.Attributes {
		if !res.Benign() {
			n++
		}
	}
	return n
}

// FindEvent searches for events of org whose info matches eventName. The
// attribute filter is only sent when non-empty.
func (c *Client) FindEvent(ctx context.Context, org, eventName, attributeFilter string) *Result {
	return c.post(ctx, "/events/index", EventIndexRequest{
		Org:       org,
		EventInfo: eventName,
		Attribute: attributeFilter,
	})
}

// DecodeEvents reads the event list returned by FindEvent.
func DecodeEvents(res *Result) ([]EventSummary, error) {
	var raw []eventEnvelope
	if err := res.Decode(&raw); err != nil {
		return nil, err
	}
	events := make([]EventSummary, 0, len(raw))
	for _, e := range raw {
		events = append(events, e.summary())
	}
	return events, nil
}

// FirstEventID returns the id of the first event in a FindEvent result.
// Failed calls, empty lists and unreadable bodies all report not found.
func FirstEventID(res *Result) (int, bool) {
	var refs []eventRef
	if err := res.Decode(&refs); err != nil || len(refs) == 0 {
		return 0, false
	}
	id := refs[0].id()
	return id, id > 0
}

// CreatedEventID reads the id out of a /events/add response.
func CreatedEventID(res *Result) (int, error) {
	var ref eventRef
	if err := res.Decode(&ref); err != nil {
		return 0, err
	}
	id := ref.id()
	if id <= 0 {
		return 0, fmt.Errorf("response carries no event id")
	}
	return id, nil
}

// CreateEvent makes sure an event named req.EventName exists for
// req.Organization, then tags it and adds attributes in input order. An
// existing event is reused and, unless req.Mode is ModeReconcile, left as is.
func (c *Client) CreateEvent(ctx context.Context, req CreateEventRequest) (*CreateEventResult, error) {
	log := c.logger.With(
		zap.String("org", req.Organization),
		zap.String("event", req.EventName))

	out := &CreateEventResult{}

	out.Lookup = c.FindEvent(ctx, req.Organization, req.EventName, "")
	if !out.Lookup.OK() {
		if req.StopOnError {
			return out, fmt.Errorf("event lookup failed: %w", out.Lookup.Err)
		}
		log.Warn("event lookup failed, treating event as absent", zap.Error(out.Lookup.Err))
	}

	if id, found := FirstEventID(out.Lookup); found {
		out.EventID = id
		log.Info("event already exists", zap.Int("event_id", id))
		if req.Mode != ModeReconcile {
			c.notify(ctx, req, out, log)
			return out, nil
		}
	} else {
		out.Create = c.post(ctx, "/events/add", AddEventRequest{
			Info:              req.EventName,
			OrgID:             req.Organization,
			Published:         req.Publish,
			EventCreatorEmail: req.PublisherEmail,
			Distribution:      req.Distribution,
		})
		id, err := CreatedEventID(out.Create)
		if err != nil {
			return out, fmt.Errorf("%w: %v", ErrEventNotCreated, err)
		}
		out.EventID = id
		out.Created = true
		log.Info("event created", zap.Int("event_id", id))
	}

	for _, tagID := range req.TagIDs {
		res := c.AddEventTag(ctx, out.EventID, tagID, req.LocalTags)
		out.Tags = append(out.Tags, res)
		if !res.OK() {
			if req.StopOnError {
				return out, fmt.Errorf("failed to add tag %d to event %d: %w", tagID, out.EventID, res.Err)
			}
			log.Warn("failed to add tag", zap.Int("event_id", out.EventID), zap.Int("tag_id", tagID), zap.Error(res.Err))
		}
	}

	for _, attr := range req.Attributes {
		res := c.AddEventAttribute(ctx, out.EventID, attr)
		out.Attributes = append(out.Attributes, res)
		if !res.Benign() {
			if req.StopOnError {
				return out, fmt.Errorf("failed to add attribute %q to event %d: %w", attr.Value, out.EventID, res.Err)
			}
			log.Warn("failed to add attribute", zap.Int("event_id", out.EventID), zap.String("value", attr.Value), zap.Error(res.Err))
		}
	}

	c.notify(ctx, req, out, log)
	return out, nil
}

func (c *Client) notify(ctx context.Context, req CreateEventRequest, out *CreateEventResult, log *zap.Logger) {
	if c.notifier == nil {
		return
	}
	notice := EventNotice{
		EventID: out.EventID,
		Info:    req.EventName,
		Org:     req.Organization,
		Created: out.Created,
	}
	if err := c.notifier.NotifyEvent(ctx, notice); err != nil {
		log.Warn("failed to publish event notice", zap.Error(err))
	}
}

// String renders a one-line JSON summary of the result.
func (r *CreateEventResult) String() string {
	data, err := json.Marshal(struct {
		EventID int  `json:"event_id"`
		Created bool `json:"created"`
		Tags    int  `json:"tags"`
		Attrs   int  `json:"attributes"`
		Failed  int  `json:"failed"`
	}{r.EventID, r.Created, len(r.Tags), len(r.Attributes), r.Failed()})
	if err != nil {
		return fmt.Sprintf("event %d", r.EventID)
	}
	return string(data)
}
