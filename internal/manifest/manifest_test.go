package manifest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashfaaq98/mispctl/internal/misp"
)

const sampleManifest = `
org: orgX
name: Test Event 1
publisher_email: analyst@orgx.test
publish: true
distribution: 1
tags: [5, 9]
attributes:
  - value: 1.2.3.4
    type: ip-dst
    category: Network activity
    comment: c2
`

func TestParse(t *testing.T) {
	ms, err := Parse(strings.NewReader(sampleManifest))
	require.NoError(t, err)
	require.Len(t, ms, 1)

	req := ms[0].Request()
	assert.Equal(t, "orgX", req.Organization)
	assert.Equal(t, "Test Event 1", req.EventName)
	assert.Equal(t, "analyst@orgx.test", req.PublisherEmail)
	assert.True(t, req.Publish)
	assert.Equal(t, misp.DistributionCommunity, req.Distribution)
	assert.Equal(t, []int{5, 9}, req.TagIDs)
	assert.Equal(t, misp.ModeCreateOnly, req.Mode)
	assert.Equal(t, []misp.Attribute{
		{Value: "1.2.3.4", Type: "ip-dst", Category: "Network activity", Comment: "c2"},
	}, req.Attributes)
}

func TestParse_MultipleDocumentsAndJSON(t *testing.T) {
	input := `{"org": "a", "name": "one", "reconcile": true}
---
org: b
name: two
`
	ms, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, misp.ModeReconcile, ms[0].Request().Mode)
	assert.Equal(t, misp.DistributionOrganization, ms[1].Request().Distribution)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing org":       "name: x\n",
		"missing name":      "org: x\n",
		"bad distribution":  "org: x\nname: y\ndistribution: 9\n",
		"attribute no type": "org: x\nname: y\nattributes:\n  - value: v\n",
		"unknown field":     "org: x\nname: y\ncolour: red\n",
		"list document":     "- just\n- a list\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	ms, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, ms)
}
