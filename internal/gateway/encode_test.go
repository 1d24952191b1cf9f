package gateway

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vendorsync/internal/record"
)

func TestEncodeKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  record.EntityKey
		want string
	}{
		{key: "ABC", want: "ABC"},
		{key: "#FOO", want: "%23FOO"},
		{key: "a-b.c_d~e", want: "a-b.c_d~e"},
		{key: "A/B", want: "A%2FB"},
		{key: "A B", want: "A%20B"},
		{key: "50%", want: "50%25"},
		{key: "?&=+", want: "%3F%26%3D%2B"},
		{key: "é", want: "%C3%A9"},
		{key: "CAFE\u0301", want: "CAFE%CC%81"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.key), func(t *testing.T) {
			t.Parallel()

			got := EncodeKey(tt.key)
			assert.Equal(t, tt.want, got)

			decoded, err := url.PathUnescape(got)
			require.NoError(t, err)
			assert.Equal(t, string(tt.key), decoded)
		})
	}
}
