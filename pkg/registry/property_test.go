package registry

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/cmdpanel/pkg/testutil"
)

func TestProperty_GroupOrderContiguous(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := testutil.NewDefault().Settings(rapid.SliceOfN(rapid.IntRange(0, 3), 0, 5).Draw(t, "sizes")...)
		r := New(&s, WithIDGenerator(seqIDs()))

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			ids := groupIDs(r)
			pick := func(label string) string {
				if len(ids) == 0 {
					return "none"
				}
				return rapid.SampledFrom(ids).Draw(t, label)
			}
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				r.AddGroup("g", "")
			case 1:
				r.DeleteGroup(pick("delete"))
			case 2:
				r.MoveGroup(pick("move"), rapid.SampledFrom([]int{-1, 1}).Draw(t, "dir"))
			case 3:
				r.ReorderGroup(pick("reorder"), rapid.IntRange(-1, 8).Draw(t, "index"))
			}
			testutil.AssertGroupOrder(t, r.Settings().Groups)
		}
	})
}

func TestProperty_MoveCommandPreservesMultiset(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sizes := rapid.SliceOfN(rapid.IntRange(0, 4), 1, 4).Draw(t, "sizes")
		s := testutil.NewDefault().Settings(sizes...)
		r := New(&s)
		total := 0
		for _, n := range sizes {
			total += n
		}

		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			groups := r.Settings().Groups
			src := groups[rapid.IntRange(0, len(groups)-1).Draw(t, "src")]
			dst := groups[rapid.IntRange(0, len(groups)-1).Draw(t, "dst")]
			if len(src.Commands) == 0 {
				continue
			}
			cmd := rapid.SampledFrom(testutil.CommandIDs(src)).Draw(t, "cmd")
			r.MoveCommand(cmd, src.ID, dst.ID, rapid.IntRange(-1, 6).Draw(t, "index"))

			count := 0
			for _, g := range r.Settings().Groups {
				testutil.AssertCommandOrder(t, g)
				count += len(g.Commands)
			}
			if count != total {
				t.Fatalf("command count changed: %d -> %d", total, count)
			}
		}
	})
}

func TestProperty_RecentListInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := New(nil)
		limit := rapid.IntRange(1, 8).Draw(t, "limit")
		r.SetPreferences(PreferencesPatch{RecentlyUsedLimit: &limit})

		ids := rapid.SliceOfN(rapid.IntRange(0, 12), 1, 50).Draw(t, "ids")
		for _, n := range ids {
			id := fmt.Sprintf("c%d", n)
			r.AddToRecent(id)

			recent := r.Settings().RecentlyUsed
			if recent[0] != id {
				t.Fatalf("expected %s at front, got %v", id, recent)
			}
			if len(recent) > limit {
				t.Fatalf("recent has %d entries, limit %d", len(recent), limit)
			}
			if err := r.Settings().Validate(); err != nil {
				t.Fatalf("invalid settings: %v", err)
			}
		}
	})
}

func TestProperty_MostUsedSorted(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := New(nil)
		usage := rapid.MapOf(rapid.StringMatching(`[a-e]{1,3}`), rapid.IntRange(0, 20)).Draw(t, "usage")
		r.Settings().CommandUsageCount = usage

		got := r.MostUsedCommands()
		if len(got) > r.Settings().MostUsedLimit {
			t.Fatalf("result longer than limit: %d", len(got))
		}
		for i, id := range got {
			if usage[id] <= 0 {
				t.Fatalf("zero-count command %s listed", id)
			}
			if i == 0 {
				continue
			}
			prev := got[i-1]
			if usage[prev] < usage[id] || (usage[prev] == usage[id] && prev > id) {
				t.Fatalf("out of order at %d: %v", i, got)
			}
		}
	})
}
