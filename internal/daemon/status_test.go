package daemon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCell(t *testing.T) {
	var c statusCell
	assert.Equal(t, StatusStopped, c.Load())
	assert.True(t, c.transition(StatusStopped, StatusStarting))
	assert.False(t, c.transition(StatusStopped, StatusStarting))
	assert.Equal(t, StatusStarting, c.Load())
	c.Store(StatusRunning)
	assert.Equal(t, "running", c.Load().String())
}
