package layout

// entry is an event being laid out. pos stays nil until the event has been
// given a slot.
type entry struct {
	Event
	pos *position
}

type position struct {
	offset  int
	cluster *accumulator
}

func (e *entry) placed() bool {
	return e.pos != nil
}

// assigneeSet keeps labels unique in first-seen order.
type assigneeSet struct {
	order []string
	seen  map[string]struct{}
}

func (s *assigneeSet) add(labels ...string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	for _, l := range labels {
		if _, ok := s.seen[l]; ok {
			continue
		}
		s.seen[l] = struct{}{}
		s.order = append(s.order, l)
	}
}

// accumulator is the cluster under construction during a sweep.
type accumulator struct {
	maxOffset int
	members   []*entry

	// assignees is one set per column, shared by every cluster of the sweep.
	assignees *assigneeSet
}

// reset starts the next cluster. The assignee set is handed over, not
// copied, so every cluster of the column ends up with the column's union.
func (acc *accumulator) reset() *accumulator {
	return &accumulator{assignees: acc.assignees}
}

// absorb merges the segment's assignees and adds its unplaced events as
// members. It returns the events that still need a slot, in segment order.
func (acc *accumulator) absorb(segment []*entry) []*entry {
	var pending []*entry
	for _, e := range segment {
		acc.assignees.add(e.Assignees...)
		if !e.placed() {
			acc.members = append(acc.members, e)
			pending = append(pending, e)
		}
	}
	return pending
}

type slotState uint8

const (
	slotUnseen slotState = iota
	slotFree
	slotTaken
)

// firstFreeOffset returns the lowest slot none of whose placed occupants
// overlap e, growing the cluster when every slot is taken. A slot can hold
// several members as long as they do not overlap each other.
func (acc *accumulator) firstFreeOffset(e *entry) int {
	slots := make([]slotState, len(acc.members))
	for _, m := range acc.members {
		if !m.placed() {
			continue
		}
		off := m.pos.offset
		for off >= len(slots) {
			slots = append(slots, slotUnseen)
		}
		if slots[off] != slotTaken && !Overlaps(e.Event, m.Event) {
			slots[off] = slotFree
		} else {
			slots[off] = slotTaken
		}
	}

	for i, s := range slots {
		if s == slotFree {
			return i
		}
	}

	acc.maxOffset++
	return acc.maxOffset - 1
}

// segmentOf returns e followed by every other event of the column that
// overlaps e directly. Overlap chains are not followed transitively.
func segmentOf(e *entry, column []*entry) []*entry {
	segment := []*entry{e}
	for _, other := range column {
		if other.ID == e.ID {
			continue
		}
		if Overlaps(other.Event, e.Event) {
			segment = append(segment, other)
		}
	}
	return segment
}

// reclaimable lists the slots below e's own slot, lowest first. These are
// taken to be freed by events that ended before e's segment continues.
func reclaimable(e *entry) []int {
	if !e.placed() {
		return nil
	}
	out := make([]int, 0, e.pos.offset)
	for i := 0; i < e.pos.offset; i++ {
		out = append(out, i)
	}
	return out
}

// advance performs one sweep step for e. It returns the accumulator that is
// current after the step and whether that accumulator was newly started.
func (acc *accumulator) advance(e *entry, column []*entry) (*accumulator, bool) {
	segment := segmentOf(e, column)

	fresh := true
	for _, s := range segment {
		if s.placed() {
			fresh = false
			break
		}
	}

	next := acc
	if fresh {
		next = acc.reset()
	}

	pending := next.absorb(segment)
	available := reclaimable(e)

	for i, p := range pending {
		var off int
		switch {
		case fresh:
			next.maxOffset++
			off = i
		case len(available) > 0:
			off, available = available[0], available[1:]
		default:
			off = next.firstFreeOffset(p)
		}
		p.pos = &position{offset: off, cluster: next}
	}

	return next, fresh
}

// sweep walks the sorted column once and returns the clusters in the order
// they were started together with the column's assignee union.
func sweep(sorted []*entry) ([]*accumulator, []string) {
	var clusters []*accumulator
	current := &accumulator{assignees: &assigneeSet{}}
	for _, e := range sorted {
		var fresh bool
		current, fresh = current.advance(e, sorted)
		if fresh {
			clusters = append(clusters, current)
		}
	}
	return clusters, current.assignees.order
}
