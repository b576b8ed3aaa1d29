package metrics

import (
	"sort"
	"time"

	"github.com/rigdev/pulse/internal/daterange"
)

// DeployStatus is the upstream verdict on a deployment.
type DeployStatus string

const (
	DeploySucceeded DeployStatus = "success"
	DeployFailed    DeployStatus = "failure"
)

// Deployment is a pre-classified deployment record.
type Deployment struct {
	ID          string       `json:"id"`
	Team        string       `json:"team"`
	Repo        string       `json:"repo"`
	SHA         string       `json:"sha"`
	Environment string       `json:"environment"`
	Status      DeployStatus `json:"status"`
	CommittedAt time.Time    `json:"committed_at"`
	DeployedAt  time.Time    `json:"deployed_at"`
}

// Incident is a pre-classified production incident.
type Incident struct {
	ID         string     `json:"id"`
	Team       string     `json:"team"`
	Title      string     `json:"title"`
	OpenedAt   time.Time  `json:"opened_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Sources says which integrations feed a team. Metrics without a source are
// left nil.
type Sources struct {
	Deployments bool `json:"deployments"`
	Incidents   bool `json:"incidents"`
	// RecoveryFromDeployments derives restore time from failed deployments
	// and the next successful one when no incident tracker is connected.
	RecoveryFromDeployments bool `json:"recovery_from_deployments"`
}

// Summary holds the raw DORA values of one window. Durations are seconds,
// frequency is deployments per day, failure rate is percent.
type Summary struct {
	LeadTime            *float64 `json:"lead_time"`
	DeploymentFrequency *float64 `json:"deployment_frequency"`
	ChangeFailureRate   *float64 `json:"change_failure_rate"`
	MeanTimeToRestore   *float64 `json:"mean_time_to_restore"`

	Deployments       int `json:"deployments"`
	FailedDeployments int `json:"failed_deployments"`
	Recoveries        int `json:"recoveries"`
}

// Value returns the raw value of family f.
func (s Summary) Value(f Family) *float64 {
	switch f {
	case LeadTime:
		return s.LeadTime
	case DeploymentFrequency:
		return s.DeploymentFrequency
	case ChangeFailureRate:
		return s.ChangeFailureRate
	case MeanTimeToRestore:
		return s.MeanTimeToRestore
	default:
		return nil
	}
}

// Values returns every family's raw value keyed by family.
func (s Summary) Values() map[Family]*float64 {
	out := make(map[Family]*float64, len(families))
	for _, f := range families {
		out[f] = s.Value(f)
	}
	return out
}

// Summarize computes the DORA values for records falling inside w.
func Summarize(deploys []Deployment, incidents []Incident, w daterange.Window, src Sources) Summary {
	var s Summary

	windowDeploys := make([]Deployment, 0, len(deploys))
	for _, d := range deploys {
		if w.Contains(d.DeployedAt) {
			windowDeploys = append(windowDeploys, d)
		}
	}

	if src.Deployments {
		succeeded := 0
		var totalLeadTime time.Duration
		leadTimes := 0
		for _, d := range windowDeploys {
			switch d.Status {
			case DeploySucceeded:
				succeeded++
				if !d.CommittedAt.IsZero() && !d.CommittedAt.After(d.DeployedAt) {
					totalLeadTime += d.DeployedAt.Sub(d.CommittedAt)
					leadTimes++
				}
			case DeployFailed:
				s.FailedDeployments++
			}
		}
		s.Deployments = succeeded + s.FailedDeployments

		if days := w.CalendarDays(); days > 0 {
			s.DeploymentFrequency = ptr(float64(succeeded) / float64(days))
		}
		if leadTimes > 0 {
			s.LeadTime = ptr((totalLeadTime / time.Duration(leadTimes)).Seconds())
		}
		if s.Deployments > 0 {
			s.ChangeFailureRate = ptr(float64(s.FailedDeployments) / float64(s.Deployments) * 100.0)
		}
	}

	switch {
	case src.Incidents:
		mttr, n := incidentRecovery(incidents, w)
		s.Recoveries = n
		if n > 0 {
			s.MeanTimeToRestore = ptr(mttr.Seconds())
		}
	case src.RecoveryFromDeployments && src.Deployments:
		mttr, n := deploymentRecovery(windowDeploys)
		s.Recoveries = n
		if n > 0 {
			s.MeanTimeToRestore = ptr(mttr.Seconds())
		}
	}

	return s
}

// incidentRecovery averages open-to-resolve time of incidents resolved in w.
func incidentRecovery(incidents []Incident, w daterange.Window) (time.Duration, int) {
	var total time.Duration
	n := 0
	for _, inc := range incidents {
		if inc.ResolvedAt == nil || !w.Contains(*inc.ResolvedAt) || inc.ResolvedAt.Before(inc.OpenedAt) {
			continue
		}
		total += inc.ResolvedAt.Sub(inc.OpenedAt)
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return total / time.Duration(n), n
}

// deploymentRecovery pairs the first failure of a streak with the next
// successful deployment.
func deploymentRecovery(deploys []Deployment) (time.Duration, int) {
	events := make([]Deployment, 0, len(deploys))
	for _, d := range deploys {
		switch d.Status {
		case DeploySucceeded, DeployFailed:
			events = append(events, d)
		}
	}
	if len(events) == 0 {
		return 0, 0
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].DeployedAt.Before(events[j].DeployedAt)
	})

	var openFailure *time.Time
	var totalRecovery time.Duration
	recoveries := 0

	for _, event := range events {
		switch event.Status {
		case DeployFailed:
			if openFailure == nil {
				failureTime := event.DeployedAt
				openFailure = &failureTime
			}
		case DeploySucceeded:
			if openFailure != nil && event.DeployedAt.After(*openFailure) {
				totalRecovery += event.DeployedAt.Sub(*openFailure)
				recoveries++
				openFailure = nil
			}
		}
	}

	if recoveries == 0 {
		return 0, 0
	}
	return totalRecovery / time.Duration(recoveries), recoveries
}

func ptr(v float64) *float64 {
	return &v
}
