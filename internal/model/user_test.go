package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanActAs(t *testing.T) {
	assert.True(t, CanActAs(1, RoleUser, 1))
	assert.False(t, CanActAs(1, RoleUser, 2))
	assert.True(t, CanActAs(1, RoleAdmin, 2))
	assert.False(t, CanActAs(1, "", 2))
}
