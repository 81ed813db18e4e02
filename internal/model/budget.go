package model

// ProjectType is the billing model of the tracked project.
type ProjectType string

// Project types. Fixed-hours and retainer projects track cumulative budget.
const (
	ProjectHourly     ProjectType = "hourly"
	ProjectFixedHours ProjectType = "fixed-hours"
	ProjectRetainer   ProjectType = "retainer"
)

// Budgeted reports whether the project type consumes a budget of hours.
func (p ProjectType) Budgeted() bool {
	return p == ProjectFixedHours || p == ProjectRetainer
}

// Valid reports whether p is a known project type.
func (p ProjectType) Valid() bool {
	switch p {
	case ProjectHourly, ProjectFixedHours, ProjectRetainer:
		return true
	}
	return false
}

// BudgetStats holds cumulative budget consumption. All ratios are 0..1.
type BudgetStats struct {
	BudgetHours     float64 `json:"budgetHours"`
	BudgetUsed      float64 `json:"budgetUsed"`
	BudgetRemaining float64 `json:"budgetRemaining"`
	BudgetProgress  float64 `json:"budgetProgress"`
}

// NewBudgetStats computes remaining and progress for used hours against budget.
// Remaining never drops below zero and progress is clamped to [0, 1].
func NewBudgetStats(budget, used float64) BudgetStats {
	bs := BudgetStats{BudgetHours: budget, BudgetUsed: used}
	if budget <= 0 {
		return bs
	}
	bs.BudgetRemaining = budget - used
	if bs.BudgetRemaining < 0 {
		bs.BudgetRemaining = 0
	}
	bs.BudgetProgress = used / budget
	if bs.BudgetProgress > 1 {
		bs.BudgetProgress = 1
	}
	if bs.BudgetProgress < 0 {
		bs.BudgetProgress = 0
	}
	return bs
}
