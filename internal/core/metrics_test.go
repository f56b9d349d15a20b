package core

import (
	"testing"
	"time"
)

func fixedClock(t *testing.T) Clock {
	t.Helper()
	ts := time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func TestComputeMetricsScenario(t *testing.T) {
	in := ProjectInput{
		Name:               "Alpha",
		NumEngineers:       2,
		EngineerSalary:     1000,
		CEVisitCharge:      50,
		VisitsPerMonth:     4,
		TransportCost:      100,
		ClientPayment:      1800,
		OverheadAllocation: 10,
	}
	rec := ComputeMetrics(in, fixedClock(t))

	if rec.EngineerCost != 1000 {
		t.Fatalf("engineerCost = %v, want 1000", rec.EngineerCost)
	}
	if rec.CEVisitCost != 200 {
		t.Fatalf("ceVisitCost = %v, want 200", rec.CEVisitCost)
	}
	if rec.DirectCost != 1300 {
		t.Fatalf("directCost = %v, want 1300", rec.DirectCost)
	}
	if rec.OverheadCost != 130 {
		t.Fatalf("overheadCost = %v, want 130", rec.OverheadCost)
	}
	if rec.TotalCost != 1430 {
		t.Fatalf("totalCost = %v, want 1430", rec.TotalCost)
	}
	if rec.Profit != 370 {
		t.Fatalf("profit = %v, want 370", rec.Profit)
	}
	if rec.CreatedAt != "2025-03-15T10:30:00Z" {
		t.Fatalf("timestamp = %q", rec.CreatedAt)
	}
}

func TestComputeMetricsIdentities(t *testing.T) {
	cases := []ProjectInput{
		{Name: "a", EngineerSalary: 5000, CEVisitCharge: 120, VisitsPerMonth: 2, TransportCost: 300, ClientPayment: 9000, OverheadAllocation: 15},
		{Name: "b", EngineerSalary: 0, CEVisitCharge: 0, VisitsPerMonth: 0, TransportCost: 0, ClientPayment: 0, OverheadAllocation: 0},
		{Name: "c", EngineerSalary: 1234.56, CEVisitCharge: 78.9, VisitsPerMonth: 3, TransportCost: 45.5, ClientPayment: 2000.25, OverheadAllocation: 12.5},
		{Name: "d", EngineerSalary: 100, ClientPayment: 50, OverheadAllocation: 100},
	}
	for i, in := range cases {
		rec := ComputeMetrics(in, fixedClock(t))
		if got, want := rec.DirectCost, in.EngineerSalary+in.CEVisitCharge*in.VisitsPerMonth+in.TransportCost; got != want {
			t.Fatalf("case %d: directCost = %v, want %v", i, got, want)
		}
		if got, want := rec.OverheadCost, rec.DirectCost*(in.OverheadAllocation/100); got != want {
			t.Fatalf("case %d: overheadCost = %v, want %v", i, got, want)
		}
		if rec.TotalCost != rec.DirectCost+rec.OverheadCost {
			t.Fatalf("case %d: totalCost = %v, want %v", i, rec.TotalCost, rec.DirectCost+rec.OverheadCost)
		}
		if rec.Profit != in.ClientPayment-rec.TotalCost {
			t.Fatalf("case %d: profit = %v, want %v", i, rec.Profit, in.ClientPayment-rec.TotalCost)
		}
	}
}

func TestComputeMetricsDeterministic(t *testing.T) {
	in := ProjectInput{Name: "x", EngineerSalary: 100, ClientPayment: 200}
	a := ComputeMetrics(in, fixedClock(t))
	b := ComputeMetrics(in, fixedClock(t))
	if a != b {
		t.Fatalf("expected identical records, got %+v vs %+v", a, b)
	}
}

func TestComputeMetricsDefaultClock(t *testing.T) {
	rec := ComputeMetrics(ProjectInput{Name: "x"}, nil)
	if _, err := time.Parse(time.RFC3339, rec.CreatedAt); err != nil {
		t.Fatalf("timestamp %q not RFC3339: %v", rec.CreatedAt, err)
	}
}
