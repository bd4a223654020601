package reconcile

import (
	"sort"
	"wisecal/internal/render"
)

// IDSet is a set of event ids.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Plan partitions one pass into events to create, ids to remove and ids
// already in place.
type Plan struct {
	Insert    []render.Event
	Delete    []string
	Unchanged []string
}

func (p Plan) Empty() bool {
	return len(p.Insert) == 0 && len(p.Delete) == 0
}

// Diff computes the plan converging persisted to target. Target order is
// kept for inserts; deletes and unchanged ids are sorted.
func Diff(target []render.Event, persisted IDSet) Plan {
	plan := Plan{
		Insert:    make([]render.Event, 0),
		Delete:    make([]string, 0),
		Unchanged: make([]string, 0),
	}
	targetIDs := make(IDSet, len(target))
	for _, ev := range target {
		if targetIDs.Has(ev.ID) {
			continue
		}
		targetIDs.Add(ev.ID)
		if persisted.Has(ev.ID) {
			plan.Unchanged = append(plan.Unchanged, ev.ID)
			continue
		}
		plan.Insert = append(plan.Insert, ev)
	}
	for id := range persisted {
		if !targetIDs.Has(id) {
			plan.Delete = append(plan.Delete, id)
		}
	}
	sort.Strings(plan.Delete)
	sort.Strings(plan.Unchanged)
	return plan
}
