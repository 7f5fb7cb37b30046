//go:build unix

package gcode

import (
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineStartFifoDoesNotBlock(t *testing.T) {
	e, _ := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "job.fifo")
	require.NoError(t, syscall.Mkfifo(path, 0o644))

	done := make(chan error, 1)
	go func() { done <- e.Start(path) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrOpenFailed)
	case <-time.After(2 * time.Second):
		t.Fatal("start blocked on a fifo with no writer")
	}
	assert.NoError(t, e.Stop())
	assert.Equal(t, Status{State: StateStopped}, e.Status())
}
