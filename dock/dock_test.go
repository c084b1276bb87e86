package dock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeMatches(t *testing.T) {
	d := Dock{DockCode: "4812"}

	assert.True(t, d.CodeMatches("4812"))
	assert.False(t, d.CodeMatches("4813"))
	assert.False(t, d.CodeMatches(""))
	assert.False(t, d.CodeMatches("48122"))
}

func TestOccupied(t *testing.T) {
	assert.False(t, Dock{Status: StatusEmpty}.Occupied())
	assert.True(t, Dock{Status: StatusOccupied}.Occupied())
}
