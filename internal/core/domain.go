package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrEmptyName       = errors.New("project name cannot be empty")
	ErrNegativeValue   = errors.New("numeric fields must be zero or positive")
	ErrNotFinite       = errors.New("numeric fields must be finite")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrInvalidYear     = errors.New("invalid year")
	ErrNoPeriodLoaded  = errors.New("no period loaded")
	ErrNotFound        = errors.New("no data file exists for this period")
	ErrExportCanceled  = errors.New("export canceled")
	ErrIndexOutOfRange = errors.New("project index out of range")
)

type (
	// ProjectInput holds the raw fields entered for one project engagement.
	// All monetary fields are plain currency amounts for the month.
	ProjectInput struct {
		Name               string  `json:"projectName"`
		NumEngineers       float64 `json:"numEngineers"`
		EngineerSalary     float64 `json:"engineerSalary"`
		CEVisitCharge      float64 `json:"ceVisitCharge"`
		VisitsPerMonth     float64 `json:"visitsPerMonth"`
		TransportCost      float64 `json:"transportCost"`
		ClientPayment      float64 `json:"clientPayment"`
		OverheadAllocation float64 `json:"overheadAllocation"` // percent, 0-100 expected
	}

	// ProjectRecord is a ProjectInput plus the derived cost/profit fields.
	// Derived fields are always a deterministic function of the inputs and
	// are never edited independently of them.
	ProjectRecord struct {
		ProjectInput
		EngineerCost float64 `json:"engineerCost"`
		CEVisitCost  float64 `json:"ceVisitCost"`
		DirectCost   float64 `json:"directCost"`
		OverheadCost float64 `json:"overheadCost"`
		TotalCost    float64 `json:"totalCost"`
		Profit       float64 `json:"profit"`
		CreatedAt    string  `json:"timestamp"` // ISO-8601
	}

	// PeriodKey identifies one (month, year) reporting bucket.
	PeriodKey struct {
		Month int `json:"month"` // 1-12
		Year  int `json:"year"`
	}
)

// Key returns the composite storage key. The month is zero-padded so that
// lexicographic ordering of keys matches chronological ordering.
func (p PeriodKey) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func (p PeriodKey) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: %d", ErrInvalidMonth, p.Month)
	}
	if p.Year < 1900 || p.Year > 3000 {
		return fmt.Errorf("%w: %d", ErrInvalidYear, p.Year)
	}
	return nil
}

func (p PeriodKey) IsZero() bool {
	return p.Month == 0 && p.Year == 0
}

// Validate enforces the raw input contract: non-empty name and seven finite,
// non-negative numeric fields. The overhead percent is expected in 0-100 but
// not enforced beyond non-negativity.
func (in ProjectInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrEmptyName
	}
	fields := map[string]float64{
		"numEngineers":       in.NumEngineers,
		"engineerSalary":     in.EngineerSalary,
		"ceVisitCharge":      in.CEVisitCharge,
		"visitsPerMonth":     in.VisitsPerMonth,
		"transportCost":      in.TransportCost,
		"clientPayment":      in.ClientPayment,
		"overheadAllocation": in.OverheadAllocation,
	}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s", ErrNotFinite, name)
		}
		if v < 0 {
			return fmt.Errorf("%w: %s", ErrNegativeValue, name)
		}
	}
	return nil
}

// IsValidationError reports whether err stems from bad user input rather
// than a storage fault.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrNotFinite) ||
		errors.Is(err, ErrInvalidMonth) ||
		errors.Is(err, ErrInvalidYear)
}
