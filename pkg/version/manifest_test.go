package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifest(t *testing.T) {
	m, err := LoadManifest(ProtocolVersion{Major: 4, Minor: 2})
	require.NoError(t, err)

	assert.Equal(t, "4.2", m.Version)
	assert.True(t, m.Supports("HELLO"))
	assert.True(t, m.Supports("PULL"))
	assert.False(t, m.Supports("PULL_ALL"), "4.x replaces PULL_ALL with PULL")

	def, ok := m.MessageBySignature(0x70)
	require.True(t, ok)
	assert.Equal(t, "SUCCESS", def.Name)
}

func TestLoadManifest_V3(t *testing.T) {
	m, err := LoadManifest(ProtocolVersion{Major: 3, Minor: 0})
	require.NoError(t, err)

	assert.True(t, m.Supports("PULL_ALL"))
	assert.False(t, m.Supports("PULL"))
}

func TestLoadManifest_Unknown(t *testing.T) {
	_, err := LoadManifest(ProtocolVersion{Major: 9, Minor: 9})
	require.Error(t, err)
}

func TestLoadManifest_Cached(t *testing.T) {
	a, err := LoadManifest(ProtocolVersion{Major: 4, Minor: 0})
	require.NoError(t, err)

	b, err := LoadManifest(ProtocolVersion{Major: 4, Minor: 0})
	require.NoError(t, err)

	assert.Same(t, a, b)
}

func TestAvailableManifests(t *testing.T) {
	versions, err := AvailableManifests()
	require.NoError(t, err)

	assert.Contains(t, versions, "3.0")
	assert.Contains(t, versions, "4.0")
	assert.Contains(t, versions, "4.1")
	assert.Contains(t, versions, "4.2")
}
