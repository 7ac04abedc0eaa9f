package store

import (
	"time"
)

// Test status constants.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)

// Bug status constants.
const (
	BugStatusOpen       = "open"
	BugStatusInProgress = "in-progress"
	BugStatusResolved   = "resolved"
)

// Bug severity constants.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// TestCaseStatusActive is the default status of a new test case.
const TestCaseStatusActive = "active"

// TestRecord is a single recorded test execution. Records are immutable
// once written.
type TestRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;index" json:"name"`
	Status    string    `gorm:"not null;index" json:"status"`
	Duration  int       `gorm:"not null" json:"duration"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName overrides the default gorm table name.
func (TestRecord) TableName() string { return "tests" }

// BugReport is a reported defect.
type BugReport struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"not null" json:"description"`
	Severity    string    `gorm:"not null" json:"severity"`
	Status      string    `gorm:"not null;default:open" json:"status"`
	Assignee    *string   `json:"assignee"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName overrides the default gorm table name.
func (BugReport) TableName() string { return "bugs" }

// TestCase is a manual test case definition.
type TestCase struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Title          string    `gorm:"not null" json:"title"`
	Description    string    `gorm:"not null" json:"description"`
	Steps          string    `gorm:"type:text;not null" json:"steps"`
	ExpectedResult string    `gorm:"not null" json:"expected_result"`
	Priority       string    `gorm:"not null" json:"priority"`
	Status         string    `gorm:"not null;default:active" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName overrides the default gorm table name.
func (TestCase) TableName() string { return "test_cases" }

// AutomationReport summarises one automated suite execution.
type AutomationReport struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SuiteName   string    `gorm:"not null;index" json:"suite_name"`
	TotalTests  int       `gorm:"not null" json:"total_tests"`
	Passed      int       `gorm:"not null" json:"passed"`
	Failed      int       `gorm:"not null" json:"failed"`
	Duration    int       `gorm:"not null" json:"duration"`
	Environment string    `gorm:"not null" json:"environment"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName overrides the default gorm table name.
func (AutomationReport) TableName() string { return "automation_reports" }

// TestSummary is the raw aggregate over the tests table.
type TestSummary struct {
	Total         int64
	Passed        int64
	Failed        int64
	AvgDurationMs float64
}
