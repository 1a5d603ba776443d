package editor

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestModeVariants(t *testing.T) {
	areaID := uuid.New()

	idle, drawing, editing := Idle(), Drawing(), Editing(areaID)

	assert.True(t, idle.IsIdle())
	assert.True(t, drawing.IsDrawing())
	assert.True(t, editing.IsEditing())
	assert.False(t, drawing.IsEditing())

	id, ok := editing.EditingArea()
	assert.True(t, ok)
	assert.Equal(t, areaID, id)

	_, ok = drawing.EditingArea()
	assert.False(t, ok)

	assert.Equal(t, "idle", idle.String())
	assert.Equal(t, "drawing", drawing.String())
	assert.Equal(t, "editing", editing.String())
}
