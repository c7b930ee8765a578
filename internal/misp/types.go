package misp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Attribute is a single indicator to attach to an event.
type Attribute struct {
	Value    string `json:"value" yaml:"value"`
	Type     string `json:"type" yaml:"type"`
	Category string `json:"category" yaml:"category"`
	Comment  string `json:"comment" yaml:"comment"`
}

// MISP API Request Types

// EventIndexRequest is the body of POST /events/index.
type EventIndexRequest struct {
	Org       string `json:"org"`
	EventInfo string `json:"eventinfo"`
	Attribute string `json:"attribute,omitempty"`
}

// AddEventRequest is the body of POST /events/add.
type AddEventRequest struct {
	Info              string `json:"info"`
	OrgID             string `json:"org_id"`
	Published         bool   `json:"published"`
	EventCreatorEmail string `json:"event_creator_email"`
	Distribution      int    `json:"distribution"`
}

// AddAttributeRequest is the body of POST /attributes/add/{eventId}.
type AddAttributeRequest struct {
	Value    string `json:"value"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Comment  string `json:"comment"`
	EventID  int    `json:"event_id"`
}

// MISP API Response Types

// FlexInt decodes ids that MISP sends either as JSON numbers or as strings.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", s, err)
		}
		*f = FlexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// FlexString decodes fields MISP sends as strings on one server and as
// numbers on another. org_id carries an organisation name or a numeric id.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(data)
	return nil
}

// EventSummary is the subset of a MISP event this client reads back.
type EventSummary struct {
	ID                FlexInt    `json:"id"`
	UUID              string     `json:"uuid"`
	Info              string     `json:"info"`
	OrgID             FlexString `json:"org_id"`
	EventCreatorEmail string     `json:"event_creator_email"`
}

// eventEnvelope accepts both the wrapped ({"Event": {...}}) and the flat
// representation MISP uses depending on endpoint and version.
type eventEnvelope struct {
	Event *EventSummary `json:"Event"`
	EventSummary
}

func (e eventEnvelope) summary() EventSummary {
	if e.Event != nil {
		return *e.Event
	}
	return e.EventSummary
}

// eventRef reads nothing but the id of an event, wrapped or flat.
type eventRef struct {
	Event *struct {
		ID FlexInt `json:"id"`
	} `json:"Event"`
	ID FlexInt `json:"id"`
}

func (e eventRef) id() int {
	if e.Event != nil {
		return int(e.Event.ID)
	}
	return int(e.ID)
}

// TagSummary represents a tag returned by /tags/search.
type TagSummary struct {
	ID         FlexInt `json:"id"`
	Name       string  `json:"name"`
	Colour     string  `json:"colour"`
	Exportable bool    `json:"exportable"`
	HideTag    bool    `json:"hide_tag"`
}

// API Error Types

// ErrorBody is the error document MISP returns with a non-2xx status.
// errors.value is either a string or a list of strings.
type ErrorBody struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	URL     string `json:"url"`
	Errors  struct {
		Value json.RawMessage `json:"value"`
	} `json:"errors"`
}

// Reasons flattens errors.value into a list.
func (e ErrorBody) Reasons() []string {
	if len(e.Errors.Value) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(e.Errors.Value, &single); err == nil {
		return []string{single}
	}
	var many []string
	if err := json.Unmarshal(e.Errors.Value, &many); err == nil {
		return many
	}
	return nil
}

// Distribution Level Constants
const (
	DistributionOrganization = 0
	DistributionCommunity    = 1
	DistributionConnected    = 2
	DistributionAll          = 3
	DistributionSharingGroup = 4
	DistributionInherit      = 5
)
