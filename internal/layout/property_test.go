package layout_test

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekcal/internal/layout"
)

var pool = []string{"Joe", "Amy", "Theo", "Bea", "Mike", "Bart", "Leon", "Liz", "Jen", "Kim"}

// roster builds a busy working week: 15-minute aligned starts between 08:00
// and 17:00, durations of 15 to 90 minutes, one or two assignees. No two
// events of a column share both start and end.
func roster(seed uint64, n, columns int) []layout.Event {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	seen := make(map[[3]int]bool)
	out := make([]layout.Event, 0, n)
	for len(out) < n {
		col := rng.IntN(columns)
		start := (8*60 + rng.IntN(9*60)) / 15 * 15
		end := start + 15*(1+rng.IntN(6))
		key := [3]int{col, start, end}
		if seen[key] {
			continue
		}
		seen[key] = true

		picked := slices.Clone(pool)
		rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })

		out = append(out, layout.Event{
			ID:        fmt.Sprintf("e%d", len(out)+1),
			Column:    col,
			Start:     start,
			End:       end,
			Assignees: picked[:1+rng.IntN(2)],
		})
	}
	return out
}

// placement is the observable layout of one event: its slot, its cluster
// width and the members it shares a cluster with.
type placement struct {
	Offset    int
	MaxOffset int
	Members   string
	Assignees string
}

func placements(positioned []layout.PositionedEvent) map[string]placement {
	members := make(map[*layout.Cluster][]string)
	for _, p := range positioned {
		members[p.Cluster] = append(members[p.Cluster], p.ID)
	}
	out := make(map[string]placement, len(positioned))
	for _, p := range positioned {
		m := slices.Clone(members[p.Cluster])
		slices.Sort(m)
		out[p.ID] = placement{
			Offset:    p.Offset,
			MaxOffset: p.Cluster.MaxOffset,
			Members:   strings.Join(m, ","),
			Assignees: strings.Join(p.Cluster.Assignees, ","),
		}
	}
	return out
}

func TestProperty_EveryEventPositioned(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		input := roster(seed, 60, 5)
		got := layout.Compute(input)
		require.Len(t, got, len(input), "seed %d", seed)

		gotIDs := ids(got)
		wantIDs := make([]string, 0, len(input))
		for _, e := range input {
			wantIDs = append(wantIDs, e.ID)
		}
		assert.ElementsMatch(t, wantIDs, gotIDs, "seed %d", seed)

		for _, p := range got {
			require.NotNil(t, p.Cluster, "seed %d event %s", seed, p.ID)
			assert.GreaterOrEqual(t, p.Offset, 0)
		}
	}
}

func TestProperty_ClusterWidthBounds(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		got := layout.Compute(roster(seed, 60, 5))

		size := make(map[*layout.Cluster]int)
		highest := make(map[*layout.Cluster]int)
		for _, p := range got {
			size[p.Cluster]++
			if p.Offset > highest[p.Cluster] {
				highest[p.Cluster] = p.Offset
			}
		}
		for c, n := range size {
			assert.LessOrEqual(t, c.MaxOffset, n, "seed %d cluster %d wider than its members", seed, c.ID)
			assert.GreaterOrEqual(t, c.MaxOffset, highest[c]+1, "seed %d cluster %d narrower than its slots", seed, c.ID)
		}
	}
}

func TestProperty_ClusterIDsUnique(t *testing.T) {
	got := layout.Compute(roster(7, 80, 7))

	byCluster := make(map[int]*layout.Cluster)
	for _, p := range got {
		if prev, ok := byCluster[p.Cluster.ID]; ok {
			assert.Same(t, prev, p.Cluster, "cluster id %d reused", p.Cluster.ID)
			continue
		}
		byCluster[p.Cluster.ID] = p.Cluster
	}
}

func TestProperty_ClustersStayInsideOneColumn(t *testing.T) {
	got := layout.Compute(roster(3, 80, 7))

	column := make(map[*layout.Cluster]int)
	for _, p := range got {
		if c, ok := column[p.Cluster]; ok {
			assert.Equal(t, c, p.Column, "cluster %d spans columns", p.Cluster.ID)
			continue
		}
		column[p.Cluster] = p.Column
	}
}

func TestProperty_Deterministic(t *testing.T) {
	input := roster(11, 60, 5)
	assert.Equal(t, placements(layout.Compute(input)), placements(layout.Compute(input)))
}

func TestProperty_InputOrderDoesNotMatter(t *testing.T) {
	input := roster(5, 60, 5)
	shuffled := slices.Clone(input)
	rng := rand.New(rand.NewPCG(42, 43))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	assert.Equal(t, placements(layout.Compute(input)), placements(layout.Compute(shuffled)))
}

func TestProperty_StripAndRecomputeIsIdempotent(t *testing.T) {
	for seed := uint64(1); seed <= 10; seed++ {
		first := layout.Compute(roster(seed, 60, 5))
		second := layout.Compute(layout.Strip(first))
		assert.Equal(t, placements(first), placements(second), "seed %d", seed)
	}
}

func TestProperty_ColumnIsolation(t *testing.T) {
	input := roster(9, 60, 5)

	changed := slices.Clone(input)
	for i := range changed {
		if changed[i].Column == 1 {
			changed[i].Start += 30
			changed[i].End += 45
		}
	}
	changed = append(changed, layout.Event{ID: "extra", Column: 1, Start: 600, End: 700})

	before := placements(layout.Compute(input))
	after := placements(layout.Compute(changed))
	for _, e := range input {
		if e.Column == 1 {
			continue
		}
		assert.Equal(t, before[e.ID], after[e.ID], "event %s in column %d moved", e.ID, e.Column)
	}
}

func TestProperty_TouchingBoundaryCanShareOffset(t *testing.T) {
	// Back-to-back blocks through the day: each one touches the next.
	var input []layout.Event
	for i := 0; i < 8; i++ {
		start := 8*60 + i*30
		input = append(input, layout.Event{ID: fmt.Sprintf("slot%d", i), Column: 2, Start: start, End: start + 30})
	}

	for _, p := range layout.Compute(input) {
		assert.Equal(t, 0, p.Offset, p.ID)
		assert.Equal(t, 1, p.Cluster.MaxOffset, p.ID)
	}
}

// reclaimWitness reports whether y can have been given its slot through a
// slot released below an earlier event e of the same column: e is visited
// before y, sits higher than y and y starts or ends inside it.
func reclaimWitness(y layout.PositionedEvent, column []layout.PositionedEvent) bool {
	for _, e := range column {
		if e.ID == y.ID || e.Offset <= y.Offset {
			continue
		}
		visitedFirst := e.Start < y.Start || (e.Start == y.Start && e.End > y.End)
		if visitedFirst && layout.Overlaps(y.Event, e.Event) {
			return true
		}
	}
	return false
}

// Overlapping events of one cluster can share a slot. Each such pair is
// explained either by a reclaimed slot or by one event containing the other,
// which the slot search does not see because it only tests the new member's
// boundaries.
func TestProperty_SharedSlotCollisionsAreExplained(t *testing.T) {
	collisions := 0
	for seed := uint64(1); seed <= 500; seed++ {
		got := layout.Compute(roster(seed, 60, 5))

		byColumn := make(map[int][]layout.PositionedEvent)
		for _, p := range got {
			byColumn[p.Column] = append(byColumn[p.Column], p)
		}

		for _, column := range byColumn {
			for i, x := range column {
				for _, y := range column[i+1:] {
					if x.Cluster != y.Cluster || x.Offset != y.Offset {
						continue
					}
					xy, yx := layout.Overlaps(x.Event, y.Event), layout.Overlaps(y.Event, x.Event)
					if !xy && !yx {
						continue
					}
					collisions++
					explained := xy != yx || reclaimWitness(x, column) || reclaimWitness(y, column)
					assert.True(t, explained, "seed %d: %s %d-%d and %s %d-%d share slot %d",
						seed, x.ID, x.Start, x.End, y.ID, y.Start, y.End, x.Offset)
				}
			}
		}
	}
	assert.Positive(t, collisions, "the roster is expected to produce shared-slot overlaps")
}
