package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want Version
	}{
		{"24.1", Version{24, 1, 0}},
		{"9.2.0", Version{9, 2, 0}},
		{"23", Version{23, 0, 0}},
		{" 24.1.2 ", Version{24, 1, 2}},
	}
	for _, tt := range tests {
		got, err := ParseVersion(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseVersion("not-a-version")
	assert.Error(t, err)
	_, err = ParseVersion("")
	assert.Error(t, err)
}

func TestLoadResolvesOnMajorMinor(t *testing.T) {
	reg, err := Load(Version{Major: 24, Minor: 1})
	require.NoError(t, err)
	assert.Equal(t, Version{24, 1, 0}, reg.Version)

	// Patch differences resolve to the same resource.
	again, err := Load(Version{Major: 24, Minor: 1, Patch: 2})
	require.NoError(t, err)
	assert.Same(t, reg, again, "registries are cached and shared per version")
}

func TestLoadUnknownVersion(t *testing.T) {
	_, err := Load(Version{Major: 3, Minor: 0})
	require.Error(t, err)

	var notFound *SchemaNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, 3, notFound.Version.Major)
	assert.NotEmpty(t, notFound.Searched)
}

func TestClassLookup(t *testing.T) {
	reg, err := Load(Version{Major: 24, Minor: 1})
	require.NoError(t, err)

	zone, err := reg.Class("Zone")
	require.NoError(t, err)
	assert.Equal(t, "Zone", zone.Name)
	assert.True(t, zone.HasName)

	// Class names are case-insensitive.
	same, err := reg.Class("ZONE")
	require.NoError(t, err)
	assert.Same(t, zone, same)

	_, err = reg.Class("Chiller:Electric")
	var unknown *UnknownClassError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "Chiller:Electric", unknown.Class)
}

func TestFieldAccessors(t *testing.T) {
	reg, err := Load(Version{Major: 24, Minor: 1})
	require.NoError(t, err)

	i, err := reg.FieldIndex("Zone", "x_origin")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	def, ok, err := reg.FieldDefault("Zone", "multiplier")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, float64(1), def)

	_, ok, err = reg.FieldDefault("Zone", "ceiling_height")
	require.NoError(t, err)
	assert.False(t, ok)

	isRef, err := reg.IsReferenceField("BuildingSurface:Detailed", "zone_name")
	require.NoError(t, err)
	assert.True(t, isRef)

	isRef, err = reg.IsReferenceField("Zone", "x_origin")
	require.NoError(t, err)
	assert.False(t, isRef)

	_, err = reg.FieldIndex("Zone", "no_such_field")
	var unknown *UnknownFieldError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "Zone", unknown.Class)
	assert.Equal(t, "no_such_field", unknown.Field)
}

func TestExtensibleClassSpec(t *testing.T) {
	reg, err := Load(Version{Major: 24, Minor: 1})
	require.NoError(t, err)

	surface, err := reg.Class("BuildingSurface:Detailed")
	require.NoError(t, err)
	require.NotNil(t, surface.Extensible)
	assert.Equal(t, "vertices", surface.Extensible.Name)
	assert.Equal(t, 3, surface.GroupSize())
	assert.Equal(t, -1, surface.MaxFields())

	// FieldNames returns the fixed prefix only.
	names, err := reg.FieldNames("BuildingSurface:Detailed")
	require.NoError(t, err)
	assert.Len(t, names, surface.NumFixed())
	assert.NotContains(t, names, "vertex_x_coordinate")

	// Positions beyond the prefix replicate the group pattern.
	fixed := surface.NumFixed()
	assert.Equal(t, "vertex_x_coordinate", surface.FieldNameAt(fixed))
	assert.Equal(t, "vertex_z_coordinate", surface.FieldNameAt(fixed+2))
	assert.Equal(t, "vertex_x_coordinate", surface.FieldNameAt(fixed+3))

	// Group field names resolve to the first repetition.
	i, err := surface.FieldIndex("vertex_y_coordinate")
	require.NoError(t, err)
	assert.Equal(t, fixed+1, i)

	zone, err := reg.Class("Zone")
	require.NoError(t, err)
	assert.Nil(t, zone.FieldAt(len(zone.Fields)), "fixed classes have no fields past the prefix")
}
