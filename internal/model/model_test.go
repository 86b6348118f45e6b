package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryValid(t *testing.T) {
	assert.True(t, CategoryE.Valid())
	assert.True(t, CategoryF.Valid())
	assert.True(t, CategoryWildcard.Valid())
	assert.False(t, Category("X").Valid())
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "safe", ActionSafe.String())
	assert.Equal(t, "monitor", ActionMonitor.String())
	assert.Equal(t, "caution", ActionCaution.String())
	assert.Equal(t, "cleanup", ActionCleanup.String())
}

func TestNoFilterMatchesEverything(t *testing.T) {
	f := NoFilter()
	assert.Empty(t, f.Asset)
	assert.Equal(t, -1, f.Index)
	assert.Equal(t, CategoryWildcard, f.Category)
}
