// Package metrics derives dashboard statistics from prior authorization
// request snapshots over a time window. Compute is pure; the repository only
// loads snapshots.
package metrics

import (
	"math"
	"time"
)

// Snapshot is the slice of a request the aggregator needs.
type Snapshot struct {
	Status      string
	Priority    string
	PayerID     string
	CreatedAt   time.Time
	SubmittedAt *time.Time
}

// MonthBucket is one calendar month of the trend, bounded in UTC.
type MonthBucket struct {
	Month        string  `json:"month"` // YYYY-MM
	Count        int     `json:"count"`
	ApprovalRate float64 `json:"approval_rate"`
}

// Dashboard is the derived read model served to clients.
type Dashboard struct {
	TotalRequests     int            `json:"total_requests"`
	ApprovalRate      float64        `json:"approval_rate"`
	AvgTurnaroundDays float64        `json:"avg_turnaround_days"`
	ByStatus          map[string]int `json:"by_status"`
	PayerCounts       map[string]int `json:"payer_counts"`
	MonthlyTrend      []MonthBucket  `json:"monthly_trend"`
}

// trendMonths is how many calendar months the trend covers, current month
// included.
const trendMonths = 4

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// approvalRate computes approved/(approved+denied)*100 rounded to one
// decimal. Zero denominator yields 0 rather than an error.
func approvalRate(approved, denied int) float64 {
	decided := approved + denied
	if decided == 0 {
		return 0
	}
	return round1(float64(approved) / float64(decided) * 100)
}

// Compute aggregates the snapshots into a Dashboard. Month bucketing uses UTC
// calendar boundaries so the trend is stable across deployments.
func Compute(snapshots []*Snapshot, now time.Time) *Dashboard {
	d := &Dashboard{
		ByStatus:    make(map[string]int),
		PayerCounts: make(map[string]int),
	}

	approved, denied := 0, 0
	turnaroundSum := 0.0
	turnaroundCount := 0

	for _, s := range snapshots {
		d.TotalRequests++
		d.ByStatus[s.Status]++
		if s.PayerID != "" {
			d.PayerCounts[s.PayerID]++
		}
		switch s.Status {
		case "approved":
			approved++
		case "denied":
			denied++
		}
		if s.SubmittedAt != nil {
			turnaroundSum += s.SubmittedAt.Sub(s.CreatedAt).Hours() / 24
			turnaroundCount++
		}
	}

	d.ApprovalRate = approvalRate(approved, denied)
	if turnaroundCount > 0 {
		d.AvgTurnaroundDays = round1(turnaroundSum / float64(turnaroundCount))
	}

	d.MonthlyTrend = monthlyTrend(snapshots, now.UTC())
	return d
}

func monthlyTrend(snapshots []*Snapshot, now time.Time) []MonthBucket {
	buckets := make([]MonthBucket, 0, trendMonths)

	// Oldest month first, ending with the current month.
	for i := trendMonths - 1; i >= 0; i-- {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)

		count, approved, denied := 0, 0, 0
		for _, s := range snapshots {
			created := s.CreatedAt.UTC()
			if created.Before(start) || !created.Before(end) {
				continue
			}
			count++
			switch s.Status {
			case "approved":
				approved++
			case "denied":
				denied++
			}
		}

		buckets = append(buckets, MonthBucket{
			Month:        start.Format("2006-01"),
			Count:        count,
			ApprovalRate: approvalRate(approved, denied),
		})
	}
	return buckets
}
