package misp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildAuthHeader(t *testing.T) {
	for _, key := range []string{"test-api-key", "", "  spaced key  ", "ünïcødé"} {
		h := BuildAuthHeader(key)
		assert.Len(t, h, 3)
		assert.Equal(t, key, h["Authorization"])
		assert.Equal(t, "application/json", h["Accept"])
		assert.Equal(t, "application/json", h["Content-Type"])
	}
}

func TestBuildAuthHeader_FreshMapPerCall(t *testing.T) {
	a := BuildAuthHeader("k")
	a["Authorization"] = "changed"
	assert.Equal(t, "k", BuildAuthHeader("k")["Authorization"])
}
