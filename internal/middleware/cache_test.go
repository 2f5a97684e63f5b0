package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaptureWriterCountsBeyondLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, limit: 8}

	// Fill the capture buffer exactly, then keep writing.
	_, err := cw.Write([]byte("12345678"))
	assert.NoError(t, err)
	_, err = cw.Write([]byte("overflow"))
	assert.NoError(t, err)

	// The buffer is truncated at the limit, but size reflects the full
	// response so an at-limit truncated body is never mistaken for a
	// complete one and cached.
	assert.Equal(t, "12345678", cw.buf.String())
	assert.Equal(t, int64(16), cw.size)
	assert.Greater(t, cw.size, cw.limit)

	// The client still received everything.
	assert.Equal(t, "12345678overflow", rec.Body.String())
}

func TestCaptureWriterUnlimited(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, limit: 0}

	_, err := cw.Write([]byte("anything goes"))
	assert.NoError(t, err)
	assert.Equal(t, "anything goes", cw.buf.String())
	assert.Equal(t, int64(13), cw.size)
}
