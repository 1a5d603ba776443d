package editor

import "github.com/google/uuid"

type modeKind int

const (
	modeIdle modeKind = iota
	modeDrawing
	modeEditing
)

// Mode is the editor's interaction mode as a tagged variant:
// Idle | Drawing | Editing(areaID). Drawing and Editing cannot coexist and
// only Editing carries an area id.
type Mode struct {
	kind   modeKind
	areaID uuid.UUID
}

func Idle() Mode    { return Mode{kind: modeIdle} }
func Drawing() Mode { return Mode{kind: modeDrawing} }

func Editing(areaID uuid.UUID) Mode {
	return Mode{kind: modeEditing, areaID: areaID}
}

func (m Mode) IsIdle() bool    { return m.kind == modeIdle }
func (m Mode) IsDrawing() bool { return m.kind == modeDrawing }
func (m Mode) IsEditing() bool { return m.kind == modeEditing }

// EditingArea returns the area under edit, if any.
func (m Mode) EditingArea() (uuid.UUID, bool) {
	return m.areaID, m.kind == modeEditing
}

func (m Mode) String() string {
	switch m.kind {
	case modeDrawing:
		return "drawing"
	case modeEditing:
		return "editing"
	default:
		return "idle"
	}
}
