package core

// SummaryStats aggregates a period's project list. It is always recomputed
// from the list, never persisted as the source of truth.
type SummaryStats struct {
	TotalProjects int     `json:"totalProjects"`
	TotalRevenue  float64 `json:"totalRevenue"`
	TotalCosts    float64 `json:"totalCosts"`
	NetProfit     float64 `json:"netProfit"`
}

// PeriodSnapshot is one period's project list plus its cached stats.
type PeriodSnapshot struct {
	Projects []ProjectRecord `json:"projects"`
	Stats    SummaryStats    `json:"stats"`
}

// TrendPoint is one (period, net profit) sample for the monthly trend chart.
type TrendPoint struct {
	Period string  `json:"period"`
	Profit float64 `json:"profit"`
}

// ComputeSummary rolls up revenue, cost and profit over a project list.
func ComputeSummary(projects []ProjectRecord) SummaryStats {
	stats := SummaryStats{TotalProjects: len(projects)}
	for _, p := range projects {
		stats.TotalRevenue += p.ClientPayment
		stats.TotalCosts += p.TotalCost
	}
	stats.NetProfit = stats.TotalRevenue - stats.TotalCosts
	return stats
}
