// Package core holds the project cost domain model and the derived-metrics
// arithmetic shared by every storage backend.
package core

import "time"

// Clock supplies the creation timestamp for computed records. Injected so
// tests can pin it.
type Clock func() time.Time

// ComputeMetrics derives the six cost/profit fields from a project's inputs.
// The caller validates inputs first; the computation itself never fails.
//
// The engineer cost is the salary figure as supplied: the form already
// collects the total monthly engineering cost, so the headcount is recorded
// but not multiplied in.
func ComputeMetrics(in ProjectInput, now Clock) ProjectRecord {
	if now == nil {
		now = time.Now
	}
	engineerCost := in.EngineerSalary
	ceVisitCost := in.CEVisitCharge * in.VisitsPerMonth
	directCost := engineerCost + ceVisitCost + in.TransportCost
	overheadCost := directCost * (in.OverheadAllocation / 100)
	totalCost := directCost + overheadCost
	profit := in.ClientPayment - totalCost

	return ProjectRecord{
		ProjectInput: in,
		EngineerCost: engineerCost,
		CEVisitCost:  ceVisitCost,
		DirectCost:   directCost,
		OverheadCost: overheadCost,
		TotalCost:    totalCost,
		Profit:       profit,
		CreatedAt:    now().UTC().Format(time.RFC3339),
	}
}
