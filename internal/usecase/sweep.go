package usecase

import (
	"context"
	"log/slog"

	"github.com/bkharvest/harvester/internal/domain"
)

// DefaultSweepStep is the grid spacing in degrees. The nearby search already
// covers a wide radius, so neighbouring cells overlap heavily.
const DefaultSweepStep = 0.5

// Search areas covering the United States.
var (
	ContiguousUS = domain.Region{Name: "contiguous", LatStart: 49.384358, LatEnd: 24.396308, LonStart: -124.848974, LonEnd: -66.885444}
	Hawaii       = domain.Region{Name: "hawaii", LatStart: 22.533, LatEnd: 18.709, LonStart: -160.950, LonEnd: -154.490}
	Alaska       = domain.Region{Name: "alaska", LatStart: 71.371, LatEnd: 55.304, LonStart: -169.233, LonEnd: -140.669}
)

// USRegions returns the three regions of the full-country sweep.
func USRegions() []domain.Region {
	return []domain.Region{ContiguousUS, Hawaii, Alaska}
}

// Sweep walks the region row by row: latitude steps down from LatStart while
// strictly above LatEnd, longitude steps up from LonStart while strictly below
// LonEnd. Positions are computed from the row/column index so that floating
// point drift cannot add or drop a cell.
func Sweep(region domain.Region, step float64) []domain.Coordinate {
	if step <= 0 {
		return nil
	}

	var samples []domain.Coordinate
	for row := 0; ; row++ {
		lat := region.LatStart - float64(row)*step
		if !(lat > region.LatEnd) {
			break
		}
		for col := 0; ; col++ {
			lon := region.LonStart + float64(col)*step
			if !(lon < region.LonEnd) {
				break
			}
			samples = append(samples, domain.Coordinate{Lat: lat, Lon: lon})
		}
	}
	return samples
}

// DiscoveryReport summarises one Discover call.
type DiscoveryReport struct {
	Samples int
	Fetched int
	Skipped map[domain.AbsenceReason]int
	Stores  int
}

// Discoverer finds stores by sweeping regions with the nearby-stores query.
type Discoverer struct {
	client  domain.BKClient
	workers int
	step    float64
}

// NewDiscoverer creates a new Discoverer
func NewDiscoverer(client domain.BKClient, workers int, step float64) *Discoverer {
	if step <= 0 {
		step = DefaultSweepStep
	}
	return &Discoverer{client: client, workers: workers, step: step}
}

// Discover sweeps every region and merges the stores found by store ID.
// Regions and cells are merged in sweep order, so when cells overlap the
// record from the later cell wins.
func (d *Discoverer) Discover(ctx context.Context, regions ...domain.Region) (map[string]domain.StoreRecord, DiscoveryReport) {
	stores := make(map[string]domain.StoreRecord)
	report := DiscoveryReport{Skipped: make(map[domain.AbsenceReason]int)}

	for _, region := range regions {
		samples := Sweep(region, d.step)
		slog.InfoContext(ctx, "sweeping region", "region", region.Name, "samples", len(samples))

		found := FanOut(ctx, samples, d.workers, d.client.FetchNearbyStores)

		report.Samples += len(samples)
		report.Fetched += len(found.Values)
		for reason, n := range found.SkippedByReason() {
			report.Skipped[reason] += n
		}

		for _, at := range samples {
			for _, store := range found.Values[at] {
				stores[store.Key()] = store
			}
		}
	}

	report.Stores = len(stores)
	return stores, report
}
