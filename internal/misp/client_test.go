package misp

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, srv *mockMISP, opts ...ClientOption) *Client {
	t.Helper()
	c, err := NewClient(srv.URL+"/", "test-api-key", opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("https://misp.test///", "key")
	require.NoError(t, err)
	assert.Equal(t, "https://misp.test", c.BaseURL())
	assert.Equal(t, BuildAuthHeader("key"), c.Headers())

	_, err = NewClient("", "key")
	assert.Error(t, err)
}

func TestClient_IndependentInstances(t *testing.T) {
	a := newMockMISP(t)
	b := newMockMISP(t)
	ca, err := NewClient(a.URL, "key-a")
	require.NoError(t, err)
	cb, err := NewClient(b.URL, "key-b")
	require.NoError(t, err)

	ca.SearchTags(context.Background(), "x")
	cb.SearchTags(context.Background(), "y")

	require.Len(t, a.recorded(), 1)
	require.Len(t, b.recorded(), 1)
	assert.Equal(t, "key-a", a.recorded()[0].Header.Get("Authorization"))
	assert.Equal(t, "key-b", b.recorded()[0].Header.Get("Authorization"))
}

func TestFindEvent_WithoutAttributeFilter(t *testing.T) {
	srv := newMockMISP(t)
	srv.handle("/events/index", respond(http.StatusOK, []interface{}{}))
	c := newTestClient(t, srv)

	res := c.FindEvent(context.Background(), "orgX", "Test Event 1", "")
	require.True(t, res.OK())

	reqs := srv.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/events/index", reqs[0].Path)
	body := reqs[0].JSON(t)
	assert.Equal(t, "orgX", body["org"])
	assert.Equal(t, "Test Event 1", body["eventinfo"])
	assert.NotContains(t, body, "attribute")
}

func TestFindEvent_WithAttributeFilter(t *testing.T) {
	srv := newMockMISP(t)
	c := newTestClient(t, srv)

	c.FindEvent(context.Background(), "orgX", "Test Event 1", "1.2.3.4")

	body := srv.recorded()[0].JSON(t)
	assert.Equal(t, "1.2.3.4", body["attribute"])
}

func TestFirstEventID(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		id    int
		found bool
	}{
		{"flat string id", `[{"id":"12","info":"a"},{"id":"13"}]`, 12, true},
		{"flat numeric id", `[{"id":12}]`, 12, true},
		{"wrapped", `[{"Event":{"id":"99","info":"a"}}]`, 99, true},
		{"empty list", `[]`, 0, false},
		{"not a list", `{"message":"nothing"}`, 0, false},
		{"zero id", `[{"id":"0"}]`, 0, false},
		{"org name echoed", `[{"id":"7","info":"a","org_id":"orgX","distribution":"x","published":"0"}]`, 7, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := &Result{Kind: KindOK, Response: &Response{StatusCode: 200, Body: []byte(tc.body)}}
			id, found := FirstEventID(res)
			assert.Equal(t, tc.found, found)
			assert.Equal(t, tc.id, id)
		})
	}

	_, found := FirstEventID(&Result{Kind: KindTransport})
	assert.False(t, found)
	_, found = FirstEventID(nil)
	assert.False(t, found)
}

func TestDecodeEvents_OrgIDNameOrNumber(t *testing.T) {
	res := &Result{Kind: KindOK, Response: &Response{StatusCode: 200,
		Body: []byte(`[{"id":"7","org_id":"orgX"},{"Event":{"id":8,"org_id":3}}]`)}}

	events, err := DecodeEvents(res)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, FlexString("orgX"), events[0].OrgID)
	assert.Equal(t, FlexInt(8), events[1].ID)
	assert.Equal(t, FlexString("3"), events[1].OrgID)
}

func TestAddEventTag(t *testing.T) {
	srv := newMockMISP(t)
	c := newTestClient(t, srv)

	c.AddEventTag(context.Background(), 42, 5, false)
	c.AddEventTag(context.Background(), 42, 9, true)

	reqs := srv.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/events/addTag/42/5", reqs[0].Path)
	assert.Empty(t, reqs[0].Body)
	assert.Equal(t, "/events/addTag/42/9/local:1", reqs[1].Path)
	assert.Empty(t, reqs[1].Body)
}

func TestAddEventAttribute(t *testing.T) {
	srv := newMockMISP(t)
	c := newTestClient(t, srv)

	res := c.AddEventAttribute(context.Background(), 42, Attribute{
		Value:    "1.2.3.4",
		Type:     "ip-dst",
		Category: "Network activity",
		Comment:  "c2",
	})
	require.True(t, res.OK())

	reqs := srv.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/attributes/add/42", reqs[0].Path)
	assert.JSONEq(t,
		`{"value":"1.2.3.4","type":"ip-dst","category":"Network activity","comment":"c2","event_id":42}`,
		string(reqs[0].Body))
}

func TestAddEventAttribute_DuplicateIsBenign(t *testing.T) {
	srv := newMockMISP(t)
	srv.handle("/attributes/add/42", respondRaw(http.StatusForbidden,
		`{"errors":{"value":"A similar attribute already exists for this event"}}`))
	c := newTestClient(t, srv)

	res := c.AddEventAttribute(context.Background(), 42, Attribute{Value: "1.2.3.4", Type: "ip-dst"})
	assert.Equal(t, KindDuplicate, res.Kind)
	assert.True(t, res.Benign())
}

func TestSearchTags(t *testing.T) {
	srv := newMockMISP(t)
	srv.handle("/tags/search/tlp", respond(http.StatusOK, []interface{}{
		map[string]interface{}{"Tag": map[string]interface{}{"id": "5", "name": "tlp:white"}},
		map[string]interface{}{"id": 9, "name": "tlp:green"},
	}))
	c := newTestClient(t, srv)

	res := c.SearchTags(context.Background(), "tlp")
	require.True(t, res.OK())

	reqs := srv.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "/tags/search/tlp", reqs[0].Path)

	tags, err := DecodeTags(res)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, FlexInt(5), tags[0].ID)
	assert.Equal(t, "tlp:white", tags[0].Name)
	assert.Equal(t, FlexInt(9), tags[1].ID)
}

func TestSearchTags_EscapesFragment(t *testing.T) {
	srv := newMockMISP(t)
	c := newTestClient(t, srv)

	c.SearchTags(context.Background(), "apt 28/x")

	assert.Equal(t, "/tags/search/apt%2028%2Fx", srv.recorded()[0].Path)
}

func TestFlexInt(t *testing.T) {
	var v struct {
		A FlexInt `json:"a"`
		B FlexInt `json:"b"`
		C FlexInt `json:"c"`
		D FlexInt `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"17","b":4,"c":null,"d":""}`), &v))
	assert.Equal(t, FlexInt(17), v.A)
	assert.Equal(t, FlexInt(4), v.B)
	assert.Equal(t, FlexInt(0), v.C)
	assert.Equal(t, FlexInt(0), v.D)

	assert.Error(t, json.Unmarshal([]byte(`{"a":"x1"}`), &v))
}
