package reconcile

import (
	"fmt"
	"math/rand"
	"testing"
	"wisecal/internal/render"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func events(ids ...string) []render.Event {
	out := make([]render.Event, 0, len(ids))
	for _, id := range ids {
		out = append(out, render.Event{ID: id, Title: "title " + id})
	}
	return out
}

func insertIDs(p Plan) []string {
	out := make([]string, 0, len(p.Insert))
	for _, ev := range p.Insert {
		out = append(out, ev.ID)
	}
	return out
}

func TestDiff(t *testing.T) {
	plan := Diff(events("a", "b", "c"), NewIDSet("b", "c", "d", "e"))

	if diff := cmp.Diff(events("a"), plan.Insert); diff != "" {
		t.Errorf("Insert mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"d", "e"}, plan.Delete)
	assert.Equal(t, []string{"b", "c"}, plan.Unchanged)
	assert.False(t, plan.Empty())
}

func TestDiffFirstSync(t *testing.T) {
	plan := Diff(events("a", "b"), NewIDSet())
	assert.Equal(t, []string{"a", "b"}, insertIDs(plan))
	assert.Empty(t, plan.Delete)
	assert.Empty(t, plan.Unchanged)
}

func TestDiffEmptyTargetDeletesEverything(t *testing.T) {
	plan := Diff(nil, NewIDSet("x", "y"))
	assert.Empty(t, plan.Insert)
	assert.Equal(t, []string{"x", "y"}, plan.Delete)
}

func TestDiffIsIdempotent(t *testing.T) {
	target := events("a", "b", "c")
	first := Diff(target, NewIDSet("c", "z"))

	synced := NewIDSet(first.Unchanged...)
	for _, id := range insertIDs(first) {
		synced.Add(id)
	}
	second := Diff(target, synced)
	assert.True(t, second.Empty())
	assert.Equal(t, []string{"a", "b", "c"}, second.Unchanged)
}

func TestDiffCollapsesDuplicateTargets(t *testing.T) {
	plan := Diff(events("a", "a", "b"), NewIDSet("b"))
	assert.Equal(t, []string{"a"}, insertIDs(plan))
	assert.Equal(t, []string{"b"}, plan.Unchanged)
}

func TestDiffPartitionLaw(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		universe := rng.Intn(30) + 1
		var targetIDs []string
		persisted := NewIDSet()
		for i := 0; i < universe; i++ {
			id := fmt.Sprintf("id%02d", i)
			if rng.Intn(2) == 0 {
				targetIDs = append(targetIDs, id)
			}
			if rng.Intn(2) == 0 {
				persisted.Add(id)
			}
		}
		plan := Diff(events(targetIDs...), persisted)

		inserted := NewIDSet(insertIDs(plan)...)
		deleted := NewIDSet(plan.Delete...)
		for id := range inserted {
			assert.False(t, deleted.Has(id), "insert and delete overlap on %s", id)
			assert.False(t, persisted.Has(id))
		}
		for id := range deleted {
			assert.True(t, persisted.Has(id))
		}
		covered := NewIDSet(plan.Unchanged...)
		for id := range inserted {
			covered.Add(id)
		}
		assert.Equal(t, NewIDSet(targetIDs...), covered)
		for _, id := range plan.Unchanged {
			assert.True(t, persisted.Has(id))
		}
		assert.Equal(t, len(persisted), len(plan.Unchanged)+len(plan.Delete))
	}
}

func TestIDSet(t *testing.T) {
	s := NewIDSet("b", "a")
	c := s.Clone()
	c.Add("c")
	assert.False(t, s.Has("c"))
	assert.Equal(t, []string{"a", "b", "c"}, c.Sorted())
}
