package usecase

import (
	"context"
	"sync"

	"github.com/bkharvest/harvester/internal/domain"
)

// FanOutResult holds the merged outcome of one fan-out call.
type FanOutResult[K comparable, V any] struct {
	Values  map[K]V
	Skipped map[K]domain.Absence
}

// SkippedByReason counts skipped units per absence reason.
func (r FanOutResult[K, V]) SkippedByReason() map[domain.AbsenceReason]int {
	counts := make(map[domain.AbsenceReason]int)
	for _, a := range r.Skipped {
		counts[a.Reason]++
	}
	return counts
}

type fanOutItem[K comparable, V any] struct {
	key    K
	result domain.Result[V]
}

// FanOut calls fetch once per unit with at most workers calls in flight and
// blocks until every unit is done. Workers hand results to a single collector,
// so the maps are never written concurrently. Present results land in Values;
// everything else in Skipped. On key collisions the later-collected write wins.
// Units not started before ctx is cancelled are skipped as transport absences.
func FanOut[K comparable, V any](
	ctx context.Context,
	units []K,
	workers int,
	fetch func(context.Context, K) domain.Result[V],
) FanOutResult[K, V] {
	out := FanOutResult[K, V]{
		Values:  make(map[K]V, len(units)),
		Skipped: make(map[K]domain.Absence),
	}
	if len(units) == 0 {
		return out
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(units) {
		workers = len(units)
	}

	jobs := make(chan K)
	results := make(chan fanOutItem[K, V], workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				if err := ctx.Err(); err != nil {
					results <- fanOutItem[K, V]{key: key, result: domain.Absent[V](domain.AbsenceTransport, "%v", err)}
					continue
				}
				results <- fanOutItem[K, V]{key: key, result: fetch(ctx, key)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, key := range units {
			jobs <- key
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for item := range results {
		if v, ok := item.result.Get(); ok {
			out.Values[item.key] = v
			delete(out.Skipped, item.key)
			continue
		}
		if _, seen := out.Values[item.key]; seen {
			continue
		}
		absence, _ := item.result.Absence()
		out.Skipped[item.key] = absence
	}

	return out
}
