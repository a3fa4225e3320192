package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferredWriter_Flush(t *testing.T) {
	var w DeferredWriter

	_, err := w.Write([]byte("first\nsecond\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("third\n"))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, w.Flush(&out))
	assert.Equal(t, "first\nsecond\nthird\n", out.String())

	out.Reset()
	require.NoError(t, w.Flush(&out))
	assert.Empty(t, out.String(), "flush resets the buffer")
}
