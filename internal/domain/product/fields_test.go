package product

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagsUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Tags
	}{
		{name: "json array", in: `["denim","y2k","oversized"]`, want: Tags{"denim", "y2k", "oversized"}},
		{name: "comma string", in: `"denim, y2k , oversized"`, want: Tags{"denim", "y2k", "oversized"}},
		{name: "single value string", in: `"vintage"`, want: Tags{"vintage"}},
		{name: "empty string", in: `""`, want: nil},
		{name: "empty array", in: `[]`, want: Tags{}},
		{name: "array with blanks dropped", in: `["denim"," ",""]`, want: Tags{"denim"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Tags
			require.NoError(t, json.Unmarshal([]byte(tt.in), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTagsUnmarshal_Invalid(t *testing.T) {
	var got Tags
	err := json.Unmarshal([]byte(`42`), &got)
	require.Error(t, err)
}

func TestImagesUnmarshal(t *testing.T) {
	t.Run("array", func(t *testing.T) {
		var got Images
		require.NoError(t, json.Unmarshal([]byte(`["a.jpg","b.jpg"]`), &got))
		assert.Equal(t, Images{"a.jpg", "b.jpg"}, got)
	})

	t.Run("bare string is one path, not split on commas", func(t *testing.T) {
		var got Images
		require.NoError(t, json.Unmarshal([]byte(`"covers/red,blue.jpg"`), &got))
		assert.Equal(t, Images{"covers/red,blue.jpg"}, got)
	})
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusAvailable, StatusReserved, StatusSold, StatusHidden} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, Status("archived").Valid())
	assert.False(t, Status("").Valid())
}

func TestPrimaryImage(t *testing.T) {
	assert.Equal(t, "", Product{}.PrimaryImage())
	assert.Equal(t, "a.jpg", Product{Images: Images{"a.jpg", "b.jpg"}}.PrimaryImage())
}
