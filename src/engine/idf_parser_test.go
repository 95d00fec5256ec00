package engine_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idfstore/src/engine"
	"idfstore/src/schema"
)

const sampleIDF = `
Version, 24.1;

Zone, TestZone, 0, 0, 0, 0, 1, 1;

ScheduleTypeLimits,
  Fraction,                !- Name
  0,                       !- Lower Limit Value
  1,                       !- Upper Limit Value
  Continuous;              !- Numeric Type

Schedule:Constant,
  TestSchedule,            !- Name
  Fraction,                !- Schedule Type Limits Name
  1.0;                     !- Hourly Value

People,
  TestPeople,              !- Name
  TestZone,                !- Zone Name
  TestSchedule,            !- Number of People Schedule Name
  People,                  !- Number of People Calculation Method
  10;                      !- Number of People
`

func parseIDF(t *testing.T, input string, opts engine.ParseOptions) *engine.Document {
	t.Helper()
	doc, err := engine.NewIDFParser(opts, testLogger(t)).Parse([]byte(input))
	require.NoError(t, err)
	return doc
}

func TestParseIDF(t *testing.T) {
	doc := parseIDF(t, sampleIDF, engine.ParseOptions{})

	assert.Equal(t, schema.Version{Major: 24, Minor: 1}, doc.Version)
	assert.Equal(t, 4, doc.Len(), "the Version statement is not stored as an object")

	zone, ok := doc.Get("Zone", "TestZone")
	require.True(t, ok)
	mult, err := zone.FieldByName("multiplier")
	require.NoError(t, err)
	assert.Equal(t, float64(1), mult)

	people, ok := doc.Get("People", "TestPeople")
	require.True(t, ok)
	n, err := people.FieldByName("number_of_people")
	require.NoError(t, err)
	assert.Equal(t, float64(10), n)

	refs := doc.GetReferencing("TestZone")
	require.Len(t, refs, 1)
	assert.Equal(t, "TestPeople", refs[0].Name)

	refs = doc.GetReferencing("TestSchedule")
	require.Len(t, refs, 1)
	assert.Equal(t, "People", refs[0].Class)
}

func TestParseBlankFieldsStayUnset(t *testing.T) {
	input := `
Version, 24.1;
Lights,
  L1,                      !- Name
  ,                        !- Zone Name
  ,                        !- Schedule Name
  LightingLevel,           !- Design Level Calculation Method
  100;                     !- Lighting Level
`
	doc := parseIDF(t, input, engine.ParseOptions{})

	lights, ok := doc.Get("Lights", "L1")
	require.True(t, ok)
	assert.False(t, lights.IsSet(0))
	assert.True(t, lights.IsSet(3))
	assert.Equal(t, 0, doc.RefStats()["total_references"], "blank reference fields build no edges")
}

func TestParseNumericFallback(t *testing.T) {
	input := `
Version, 24.1;
People,
  P1, , , People,
  autocalculate;           !- Number of People
`
	doc := parseIDF(t, input, engine.ParseOptions{})

	people, ok := doc.Get("People", "P1")
	require.True(t, ok)
	n, err := people.FieldByName("number_of_people")
	require.NoError(t, err)
	assert.Equal(t, "autocalculate", n, "non-numeric tokens in numeric fields stay strings")
}

func TestParseUnterminatedStatement(t *testing.T) {
	input := "Version, 24.1;\nZone,\n  TestZone"
	_, err := engine.NewIDFParser(engine.ParseOptions{}, testLogger(t)).Parse([]byte(input))

	var parseErr *engine.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Contains(t, parseErr.Reason, "unterminated")
}

func TestParseUnknownClass(t *testing.T) {
	input := "Version, 24.1;\nChiller:Electric, C1, 0;\nZone, Z1;"

	// Strict: error with line context.
	_, err := engine.NewIDFParser(engine.ParseOptions{Strict: true}, testLogger(t)).Parse([]byte(input))
	var parseErr *engine.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 2, parseErr.Line)
	var unknown *schema.UnknownClassError
	assert.True(t, errors.As(err, &unknown))

	// Lenient: the statement is skipped with a warning.
	parser := engine.NewIDFParser(engine.ParseOptions{}, testLogger(t))
	doc, err := parser.Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Len())
	assert.Error(t, parser.Warnings())
}

func TestParseExtensibleGroups(t *testing.T) {
	input := `
Version, 24.1;
Zone, Z1;
Material, M1, Rough, 0.1, 1.0, 2000, 900;
Construction, C1, M1, M1, M1;
BuildingSurface:Detailed,
  Wall1,                   !- Name
  Wall,                    !- Surface Type
  C1,                      !- Construction Name
  Z1,                      !- Zone Name
  ,                        !- Space Name
  Outdoors,                !- Outside Boundary Condition
  ,                        !- Outside Boundary Condition Object
  SunExposed,              !- Sun Exposure
  WindExposed,             !- Wind Exposure
  0.5,                     !- View Factor to Ground
  4,                       !- Number of Vertices
  0, 0, 0,                 !- Vertex 1
  10, 0, 0,                !- Vertex 2
  10, 10, 0,               !- Vertex 3
  0, 10, 0;                !- Vertex 4
`
	doc := parseIDF(t, input, engine.ParseOptions{Strict: true})

	wall, ok := doc.Get("BuildingSurface:Detailed", "Wall1")
	require.True(t, ok)
	fixed := wall.Spec().NumFixed()
	assert.Equal(t, fixed+12, wall.NumFields(), "4 vertex groups of 3 coordinates")
	assert.Equal(t, 10.0, wall.Field(fixed+3), "vertex 2 x-coordinate")

	construction, ok := doc.Get("Construction", "C1")
	require.True(t, ok)
	assert.Equal(t, 3, construction.NumFields(), "outside layer plus 2 extensible layers")

	// The construction references its material once per layer, the
	// surface references construction and zone.
	assert.Len(t, doc.GetReferencing("M1"), 1)
	assert.Len(t, doc.GetReferencing("C1"), 1)
}

func TestParseExtensibleCountMismatch(t *testing.T) {
	input := `
Version, 24.1;
BuildingSurface:Detailed,
  Wall1, Wall, , , , Outdoors, , SunExposed, WindExposed, 0.5, 4,
  0, 0, 0,
  10, 0;
`
	_, err := engine.NewIDFParser(engine.ParseOptions{Strict: true}, testLogger(t)).Parse([]byte(input))

	var mismatch *engine.FieldCountMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "BuildingSurface:Detailed", mismatch.Class)
	assert.Equal(t, 3, mismatch.GroupSize)

	// Lenient mode keeps the partial group.
	parser := engine.NewIDFParser(engine.ParseOptions{}, testLogger(t))
	doc, err := parser.Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Len())
	assert.Error(t, parser.Warnings())
}

func TestParseExcessFieldsOnFixedClass(t *testing.T) {
	input := "Version, 24.1;\nZone, Z1, 0, 0, 0, 0, 1, 1, , , , , , Yes, ExtraOne, ExtraTwo;"

	_, err := engine.NewIDFParser(engine.ParseOptions{Strict: true}, testLogger(t)).Parse([]byte(input))
	var mismatch *engine.FieldCountMismatchError
	require.True(t, errors.As(err, &mismatch))

	parser := engine.NewIDFParser(engine.ParseOptions{}, testLogger(t))
	doc, err := parser.Parse([]byte(input))
	require.NoError(t, err)

	zone, ok := doc.Get("Zone", "Z1")
	require.True(t, ok)
	require.Len(t, zone.Extras(), 2, "excess values are preserved as opaque extras")
	assert.Equal(t, "ExtraOne", zone.Extras()[0])
}

func TestParseDuplicateName(t *testing.T) {
	input := "Version, 24.1;\nZone, Z1;\nZone, z1;"

	_, err := engine.NewIDFParser(engine.ParseOptions{Strict: true}, testLogger(t)).Parse([]byte(input))
	var dup *engine.DuplicateNameError
	require.True(t, errors.As(err, &dup))

	parser := engine.NewIDFParser(engine.ParseOptions{}, testLogger(t))
	doc, err := parser.Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Len(), "lenient mode keeps the first object")
}

func TestParseMissingVersion(t *testing.T) {
	input := "Zone, Z1;"

	_, err := engine.NewIDFParser(engine.ParseOptions{}, testLogger(t)).Parse([]byte(input))
	var notFound *engine.VersionNotFoundError
	require.True(t, errors.As(err, &notFound))

	// An explicit override substitutes for detection.
	version := schema.Version{Major: 24, Minor: 1}
	doc, err := engine.NewIDFParser(engine.ParseOptions{Version: &version}, testLogger(t)).Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Len())
}

func TestWriterOmitsTrailingDefaults(t *testing.T) {
	doc := engine.NewDocument(testRegistry(t))
	_, err := doc.Add("Zone", "MyZone", map[string]interface{}{"x_origin": 10.0})
	require.NoError(t, err)

	out, err := engine.NewIDFWriter(testLogger(t)).WriteString(doc)
	require.NoError(t, err)

	assert.Contains(t, out, "Zone,")
	assert.Contains(t, out, "MyZone")
	assert.Contains(t, out, "!- X Origin")
	assert.NotContains(t, out, "Multiplier", "trailing default-valued fields are omitted")

	// x_origin is position 1; position 0 emits as a blank value.
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "Version,", lines[0])
}

func TestRoundTripIDF(t *testing.T) {
	doc := parseIDF(t, sampleIDF, engine.ParseOptions{})

	out, err := engine.NewIDFWriter(testLogger(t)).WriteString(doc)
	require.NoError(t, err)

	reparsed := parseIDF(t, out, engine.ParseOptions{Strict: true})
	assert.Equal(t, doc.Version, reparsed.Version)
	assertDocsEqual(t, doc, reparsed)
	assertDocsEqual(t, reparsed, doc)
}
