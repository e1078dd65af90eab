//go:build property

package watcher

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestDebouncerProperties validates batching invariants of the debouncer
func TestDebouncerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9876)
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	// Property: a burst yields one batch with one sorted event per distinct path
	properties.Property("burst coalesces to distinct sorted paths", prop.ForAll(
		func(picks []int) bool {
			if len(picks) == 0 {
				return true
			}

			d := NewDebouncer(20 * time.Millisecond)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go d.start(ctx)

			distinct := make(map[string]bool)
			for _, p := range picks {
				path := fmt.Sprintf("t%02d.tpl", p)
				distinct[path] = true
				d.Add(ChangeEvent{Type: EventTypeModified, Path: path})
			}

			select {
			case batch := <-d.Output():
				if len(batch) != len(distinct) {
					return false
				}
				return sort.SliceIsSorted(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
			case <-time.After(2 * time.Second):
				return false
			}
		},
		gen.SliceOfN(20, gen.IntRange(0, 9)),
	))

	properties.TestingRun(t)
}
