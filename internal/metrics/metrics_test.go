package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashfaaq98/mispctl/internal/misp"
)

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "/events/addTag", Endpoint("", "https://misp.test/events/addTag/42/5/local:1"))
	assert.Equal(t, "/events/index", Endpoint("", "https://misp.test/events/index"))
	assert.Equal(t, "/tags/search", Endpoint("", "https://misp.test/tags/search/tlp"))
	assert.Equal(t, "/", Endpoint("", "https://misp.test"))
	assert.Equal(t, "invalid", Endpoint("", "://bad"))
}

func TestEndpoint_BasePath(t *testing.T) {
	assert.Equal(t, "/events/addTag", Endpoint("/misp", "https://host/misp/events/addTag/42/5"))
	assert.Equal(t, "/tags/search", Endpoint("/misp", "https://host/misp/tags/search/tlp"))
	assert.Equal(t, "/", Endpoint("/misp", "https://host/misp"))
	assert.Equal(t, "/mispx/events", Endpoint("/misp", "https://host/mispx/events/index"))
}

func TestRecorder_BaseURLPrefix(t *testing.T) {
	r := NewRecorder("https://host/misp/")
	require.NoError(t, r.RecordCall(context.Background(), misp.Call{Method: "POST", URI: "https://host/misp/events/index", Kind: misp.KindOK}))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Calls.WithLabelValues("POST", "/events/index", "ok")))
}

func TestRecorder_RecordCall(t *testing.T) {
	r := NewRecorder("https://m")
	ctx := context.Background()

	require.NoError(t, r.RecordCall(ctx, misp.Call{Method: "POST", URI: "https://m/attributes/add/1", Kind: misp.KindOK, Duration: time.Millisecond}))
	require.NoError(t, r.RecordCall(ctx, misp.Call{Method: "POST", URI: "https://m/attributes/add/2", Kind: misp.KindDuplicate}))
	require.NoError(t, r.RecordCall(ctx, misp.Call{Method: "POST", URI: "https://m/attributes/add/3", Kind: misp.KindDuplicate}))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Calls.WithLabelValues("POST", "/attributes/add", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Calls.WithLabelValues("POST", "/attributes/add", "duplicate")))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder("https://m")
	_ = r.RecordCall(context.Background(), misp.Call{Method: "GET", URI: "https://m/tags/search/x", Kind: misp.KindTransport})

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `mispctl_api_calls_total{endpoint="/tags/search",method="GET",outcome="transport"} 1`)
}
