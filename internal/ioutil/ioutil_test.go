package ioutil_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/zipstream/internal/ioutil"
)

func TestCountingWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cw := &ioutil.CountingWriter{W: &buf}

	n, err := cw.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = cw.Write([]byte(" world"))
	require.NoError(t, err)

	assert.Equal(t, uint64(11), cw.N)
	assert.Equal(t, "hello world", buf.String())
}

func TestLimitWriter_WithinLimit(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lw := &ioutil.LimitWriter{W: &buf, Max: 10}

	_, err := lw.Write([]byte("12345"))
	require.NoError(t, err)
	_, err = lw.Write([]byte("67890"))
	require.NoError(t, err)

	assert.Equal(t, uint64(10), lw.N)
	assert.Equal(t, "1234567890", buf.String())
}

func TestLimitWriter_RejectsBeforeForwarding(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lw := &ioutil.LimitWriter{W: &buf, Max: 8}

	_, err := lw.Write([]byte("12345"))
	require.NoError(t, err)

	// The whole oversized write is rejected; no partial bytes reach the
	// underlying writer.
	_, err = lw.Write([]byte("67890"))
	require.ErrorIs(t, err, ioutil.ErrWriteLimit)
	assert.Equal(t, uint64(5), lw.N)
	assert.Equal(t, "12345", buf.String())
}
