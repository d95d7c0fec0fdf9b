package translation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURN_RoundTrip(t *testing.T) {
	ids := []string{
		"urn:adsk.objects:os.object:drawkeeper-dev/1712345678901_plant.dwg",
		"urn:adsk.objects:os.object:b/ñandú ü?.dxf",
		"x",
	}
	for _, id := range ids {
		urn := EncodeURN(id)
		assert.NotContains(t, urn, "=")
		assert.False(t, strings.ContainsAny(urn, "+/"), "urn %q is not url-safe", urn)

		got, err := DecodeURN(urn)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestDecodeURN_Invalid(t *testing.T) {
	_, err := DecodeURN("not base64!")
	assert.Error(t, err)
}
