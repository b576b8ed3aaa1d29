package metrics

import (
	"time"

	"github.com/rigdev/pulse/internal/daterange"
)

// DailySeries buckets records of w by calendar day in the window's zone.
// Days without records are absent from the maps.
func DailySeries(deploys []Deployment, incidents []Incident, w daterange.Window, src Sources) map[Family]map[string]float64 {
	out := make(map[Family]map[string]float64, len(families))
	for _, f := range families {
		out[f] = make(map[string]float64)
	}

	if src.Deployments {
		type bucket struct {
			succeeded int
			failed    int
			leadTotal time.Duration
			leadCount int
		}
		buckets := make(map[string]*bucket)
		for _, d := range deploys {
			if !w.Contains(d.DeployedAt) {
				continue
			}
			key := w.DayKey(d.DeployedAt)
			b, ok := buckets[key]
			if !ok {
				b = &bucket{}
				buckets[key] = b
			}
			switch d.Status {
			case DeploySucceeded:
				b.succeeded++
				if !d.CommittedAt.IsZero() && !d.CommittedAt.After(d.DeployedAt) {
					b.leadTotal += d.DeployedAt.Sub(d.CommittedAt)
					b.leadCount++
				}
			case DeployFailed:
				b.failed++
			}
		}
		for key, b := range buckets {
			out[DeploymentFrequency][key] = float64(b.succeeded)
			if b.leadCount > 0 {
				out[LeadTime][key] = (b.leadTotal / time.Duration(b.leadCount)).Seconds()
			}
			if total := b.succeeded + b.failed; total > 0 {
				out[ChangeFailureRate][key] = float64(b.failed) / float64(total) * 100.0
			}
		}
	}

	if src.Incidents {
		totals := make(map[string]time.Duration)
		counts := make(map[string]int)
		for _, inc := range incidents {
			if inc.ResolvedAt == nil || !w.Contains(*inc.ResolvedAt) || inc.ResolvedAt.Before(inc.OpenedAt) {
				continue
			}
			key := w.DayKey(*inc.ResolvedAt)
			totals[key] += inc.ResolvedAt.Sub(inc.OpenedAt)
			counts[key]++
		}
		for key, total := range totals {
			out[MeanTimeToRestore][key] = (total / time.Duration(counts[key])).Seconds()
		}
	}

	return out
}
