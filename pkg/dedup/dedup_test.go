package dedup

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeen(t *testing.T) {
	d := New()
	assert.False(t, d.Seen("hello"))
	assert.True(t, d.Seen("hello"))
	assert.True(t, d.Seen("  hello\t"))
	assert.False(t, d.Seen("Hello"))
	assert.Equal(t, 2, d.Len())
}

func TestFilter(t *testing.T) {
	in := "a\nb\na\n\nc\nb \n"
	var out bytes.Buffer

	kept, dropped, err := New().Filter(strings.NewReader(in), &out)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\n", out.String())
	assert.Equal(t, 3, kept)
	assert.Equal(t, 3, dropped)
}
