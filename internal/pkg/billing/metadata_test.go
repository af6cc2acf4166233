package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestTipMetadataRoundTrip(t *testing.T) {
	tests := map[string]TipMetadata{
		"full":    {ProfileID: 12, Name: strPtr("Bob"), Message: strPtr("Great video! ünïcødé, \"quotes\" and None"), IsPrivate: true},
		"no name": {ProfileID: 3, Message: strPtr("hi")},
		"anon":    {ProfileID: 1},
		"literal": {ProfileID: 9, Name: strPtr("None"), Message: strPtr("null")},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			out, err := DecodeTipMetadata(in.Encode())
			require.NoError(t, err)
			assert.Equal(t, in, out)
		})
	}
}

func TestTipMetadataOmitsAbsentValues(t *testing.T) {
	encoded := TipMetadata{ProfileID: 4}.Encode()
	assert.Equal(t, map[string]string{"creator_profile_id": "4", "is_private": "false"}, encoded)
}

func TestDecodeTipMetadataRejectsBadInput(t *testing.T) {
	bad := []map[string]string{
		{},
		{"creator_profile_id": "abc"},
		{"creator_profile_id": "0"},
		{"creator_profile_id": "1", "is_private": "maybe"},
	}
	for _, raw := range bad {
		_, err := DecodeTipMetadata(raw)
		assert.Error(t, err, "%v", raw)
	}
}
