package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idfstore/src/engine"
	"idfstore/src/helpers"
)

// scanReferencing recomputes get_referencing by brute force: every
// object whose reference fields hold the name, case-insensitively.
// The incremental graph must always agree with this.
func scanReferencing(doc *engine.Document, name string) map[*engine.Object]bool {
	want := make(map[*engine.Object]bool)
	key := helpers.NormalizeName(name)
	for _, obj := range doc.AllObjects() {
		spec := obj.Spec()
		for i := 0; i < obj.NumFields(); i++ {
			if !spec.IsReferenceAt(i) || !obj.IsSet(i) {
				continue
			}
			if s, ok := obj.Field(i).(string); ok && helpers.NormalizeName(s) == key {
				want[obj] = true
			}
		}
	}
	return want
}

func assertGraphConsistent(t *testing.T, doc *engine.Document, names ...string) {
	t.Helper()
	for _, name := range names {
		want := scanReferencing(doc, name)
		got := doc.GetReferencing(name)
		require.Len(t, got, len(want), "graph disagrees with scan for %q", name)
		for _, obj := range got {
			assert.True(t, want[obj], "graph lists %s %q for %q, scan does not", obj.Class, obj.Name, name)
		}
		assert.Equal(t, len(want) > 0, doc.IsReferenced(name))
	}
}

func TestGraphConsistencyUnderMutation(t *testing.T) {
	doc := engine.NewDocument(testRegistry(t))

	_, err := doc.Add("Zone", "Z1", nil)
	require.NoError(t, err)
	_, err = doc.Add("Zone", "Z2", nil)
	require.NoError(t, err)
	lights, err := doc.Add("Lights", "L1", map[string]interface{}{"zone_name": "Z1"})
	require.NoError(t, err)
	people, err := doc.Add("People", "P1", map[string]interface{}{"zone_name": "Z1"})
	require.NoError(t, err)
	assertGraphConsistent(t, doc, "Z1", "Z2", "L1")

	require.NoError(t, doc.SetField(lights, "zone_name", "Z2"))
	assertGraphConsistent(t, doc, "Z1", "Z2")

	_, err = doc.Rename("Zone", "Z1", "Z3")
	require.NoError(t, err)
	assertGraphConsistent(t, doc, "Z1", "Z2", "Z3")

	require.NoError(t, doc.Remove(people, false))
	assertGraphConsistent(t, doc, "Z1", "Z2", "Z3")

	dup, err := doc.CopyObject(lights, "L2")
	require.NoError(t, err)
	assertGraphConsistent(t, doc, "Z2", "L2")

	require.NoError(t, doc.Remove(dup, false))
	assertGraphConsistent(t, doc, "Z2")
}

func TestGetReferencingWithFields(t *testing.T) {
	doc := engine.NewDocument(testRegistry(t))

	_, err := doc.Add("Zone", "Z1", nil)
	require.NoError(t, err)
	_, err = doc.Add("Lights", "L1", map[string]interface{}{"zone_name": "Z1"})
	require.NoError(t, err)

	pairs := doc.GetReferencingWithFields("Z1")
	require.Len(t, pairs, 1)
	assert.Equal(t, "Lights", pairs[0].Object.Class)
	assert.Equal(t, "zone_name", pairs[0].Field)
}

func TestUsedSchedulesReachability(t *testing.T) {
	doc := engine.NewDocument(testRegistry(t))

	_, err := doc.Add("ScheduleTypeLimits", "Fraction", nil)
	require.NoError(t, err)
	day, err := doc.Add("Schedule:Day:Interval", "Dd", map[string]interface{}{
		"schedule_type_limits_name": "Fraction",
	})
	require.NoError(t, err)
	week, err := doc.Add("Schedule:Week:Daily", "W", map[string]interface{}{
		"sunday_schedule_day_name":    "Dd",
		"monday_schedule_day_name":    "Dd",
		"tuesday_schedule_day_name":   "Dd",
		"wednesday_schedule_day_name": "Dd",
		"thursday_schedule_day_name":  "Dd",
		"friday_schedule_day_name":    "Dd",
		"saturday_schedule_day_name":  "Dd",
	})
	require.NoError(t, err)
	year, err := doc.Add("Schedule:Year", "Y", map[string]interface{}{
		"schedule_week_name": "W",
	})
	require.NoError(t, err)
	_, err = doc.Add("Schedule:Day:Interval", "Orphan", nil)
	require.NoError(t, err)

	_, err = doc.Add("Zone", "Z1", nil)
	require.NoError(t, err)
	_, err = doc.Add("ElectricEquipment", "E1", map[string]interface{}{
		"zone_name":     "Z1",
		"schedule_name": "Y",
	})
	require.NoError(t, err)

	used := doc.UsedSchedules()
	require.Len(t, used, 3)
	assert.Contains(t, used, year)
	assert.Contains(t, used, week)
	assert.Contains(t, used, day)

	// Deterministic regardless of traversal order.
	assert.Equal(t, used, doc.UsedSchedules())
}

func TestUsedSchedulesTerminatesOnCycles(t *testing.T) {
	doc := engine.NewDocument(testRegistry(t))

	// Two schedules referencing each other; reference chains are
	// expected to be acyclic by convention, but traversal must not
	// loop when they are not.
	a, err := doc.Add("Schedule:Year", "CycleA", map[string]interface{}{
		"schedule_week_name": "CycleB",
	})
	require.NoError(t, err)
	b, err := doc.Add("Schedule:Year", "CycleB", map[string]interface{}{
		"schedule_week_name": "CycleA",
	})
	require.NoError(t, err)

	_, err = doc.Add("Lights", "L1", map[string]interface{}{"schedule_name": "CycleA"})
	require.NoError(t, err)

	used := doc.UsedSchedules()
	require.Len(t, used, 2)
	assert.Contains(t, used, a)
	assert.Contains(t, used, b)
}

func TestUsedSchedulesEmptyWithoutRoots(t *testing.T) {
	doc := engine.NewDocument(testRegistry(t))

	// Schedules exist but nothing outside the schedule classes
	// references them.
	_, err := doc.Add("Schedule:Constant", "Lonely", nil)
	require.NoError(t, err)

	assert.Empty(t, doc.UsedSchedules())
}

func TestRefStats(t *testing.T) {
	doc := engine.NewDocument(testRegistry(t))

	_, err := doc.Add("Zone", "Z1", nil)
	require.NoError(t, err)
	_, err = doc.Add("Lights", "L1", map[string]interface{}{"zone_name": "Z1", "schedule_name": "S1"})
	require.NoError(t, err)

	stats := doc.RefStats()
	assert.Equal(t, 2, stats["total_references"])
	assert.Equal(t, 1, stats["objects_with_references"])
	assert.Equal(t, 2, stats["names_referenced"])
	assert.Equal(t, 1, stats["object_lists"], "Zone provides ZoneNames; Lights provides nothing")
}

func TestObjectListProviders(t *testing.T) {
	doc := engine.NewDocument(testRegistry(t))

	assert.Empty(t, doc.ObjectListProviders("ScheduleNames"))

	_, err := doc.Add("Schedule:Constant", "S1", nil)
	require.NoError(t, err)
	_, err = doc.Add("Schedule:Year", "Y1", nil)
	require.NoError(t, err)
	_, err = doc.Add("Zone", "Z1", nil)
	require.NoError(t, err)

	// Both schedule classes feed the same list; lookup is
	// case-insensitive.
	assert.Equal(t, []string{"Schedule:Constant", "Schedule:Year"}, doc.ObjectListProviders("schedulenames"))
	assert.Equal(t, []string{"Zone"}, doc.ObjectListProviders("ZoneNames"))

	stats := doc.RefStats()
	assert.Equal(t, 2, stats["object_lists"], "ScheduleNames and ZoneNames")
}

func TestDanglingScopedToObjectList(t *testing.T) {
	doc := engine.NewDocument(testRegistry(t))

	_, err := doc.Add("Zone", "Z1", nil)
	require.NoError(t, err)
	_, err = doc.Add("Schedule:Constant", "S", nil)
	require.NoError(t, err)

	// zone_name draws from ZoneNames; a name that only exists as a
	// schedule does not satisfy it.
	_, err = doc.Add("Lights", "L1", map[string]interface{}{"zone_name": "S"})
	require.NoError(t, err)

	dangling := doc.DanglingReferences()
	require.Len(t, dangling, 1)
	assert.Equal(t, "Lights", dangling[0].Class)
	assert.Equal(t, "zone_name", dangling[0].Field)
	assert.Equal(t, "S", dangling[0].Target)

	// Pointing the field at a real zone resolves it.
	lights, ok := doc.Get("Lights", "L1")
	require.True(t, ok)
	require.NoError(t, doc.SetField(lights, "zone_name", "Z1"))
	assert.Empty(t, doc.DanglingReferences())
}
