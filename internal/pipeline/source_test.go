package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vendorsync/internal/errors"
	"github.com/roach88/vendorsync/internal/record"
)

func TestParseSourceList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    []record.EntityKey
		wantErr error
	}{
		{
			name:  "comma separated",
			input: "A,B,C,D,E,F,G",
			want:  []record.EntityKey{"A", "B", "C", "D", "E", "F", "G"},
		},
		{
			name:  "newlines, blanks and whitespace",
			input: "\ufeffA, B\r\nC,,D\n\nE ,F\n",
			want:  []record.EntityKey{"A", "B", "C", "D", "E", "F"},
		},
		{
			name:  "duplicates keep first position",
			input: "A,B,A,C,D,E,B,F",
			want:  []record.EntityKey{"A", "B", "C", "D", "E", "F"},
		},
		{
			name:  "reserved characters survive",
			input: "#A,B/1,C D,E?,F&,G",
			want:  []record.EntityKey{"#A", "B/1", "C D", "E?", "F&", "G"},
		},
		{
			name:    "three codes",
			input:   "A,B,C",
			wantErr: errors.ErrInsufficientInput,
		},
		{
			name:    "duplicates do not count",
			input:   "A,A,A,B,B,B,C",
			wantErr: errors.ErrInsufficientInput,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: errors.ErrInsufficientInput,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseSourceList(tt.input)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadSourceFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "codes.csv")
	require.NoError(t, os.WriteFile(path, []byte("A,B,C,D,E,F"), 0600))

	keys, err := ReadSourceFile(path)
	require.NoError(t, err)
	assert.Len(t, keys, 6)

	_, err = ReadSourceFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}
