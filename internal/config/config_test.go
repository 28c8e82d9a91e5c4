package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnviron_DefaultsWhenUnset(t *testing.T) {
	c := FromEnviron("")
	assert.Equal(t, ProfileWorkspace, c.BootProfile)
	assert.Equal(t, 3, c.Quantum)
	assert.Equal(t, 1000, c.DefaultCPUBudget)
}

func TestFromEnviron_PrefixOverridesSharedFallback(t *testing.T) {
	t.Setenv("CAPSULE_QUANTUM", "5")
	t.Setenv("EDITOR_QUANTUM", "7")
	c := FromEnviron("EDITOR")
	assert.Equal(t, 7, c.Quantum)
}

func TestFromEnviron_FallsBackToSharedWhenPrefixUnset(t *testing.T) {
	t.Setenv("CAPSULE_QUANTUM", "9")
	c := FromEnviron("EDITOR")
	assert.Equal(t, 9, c.Quantum)
}

func TestFromEnviron_BootProfileParsing(t *testing.T) {
	t.Setenv("CAPSULE_BOOT_PROFILE", "kiosk")
	c := FromEnviron("")
	assert.Equal(t, ProfileKiosk, c.BootProfile)
}

func TestFromEnviron_InvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("CAPSULE_QUANTUM", "not-a-number")
	c := FromEnviron("")
	assert.Equal(t, 3, c.Quantum)
}
