package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// SeedData holds the sample rows inserted into empty tables.
type SeedData struct {
	Tests     []TestRecord
	Bugs      []BugReport
	TestCases []TestCase
	Reports   []AutomationReport
}

// DefaultTestNames are the names of the seeded test records, in insertion
// order.
var DefaultTestNames = []string{
	"Login with valid credentials",
	"Navigate to dashboard",
	"Search functionality",
	"User profile update",
	"Logout flow",
}

// DefaultSeedData returns the sample dataset a fresh database starts with.
func DefaultSeedData() *SeedData {
	durations := []int{245, 312, 189, 267, 156}

	tests := make([]TestRecord, 0, len(DefaultTestNames))
	for i, name := range DefaultTestNames {
		tests = append(tests, TestRecord{
			Name:     name,
			Status:   StatusPassed,
			Duration: durations[i],
		})
	}

	john, jane := "John", "Jane"

	return &SeedData{
		Tests: tests,
		Bugs: []BugReport{
			{
				Title:       "Login button not responsive on mobile",
				Description: "Button click not registering on iOS",
				Severity:    SeverityHigh,
				Status:      BugStatusOpen,
				Assignee:    &john,
			},
			{
				Title:       "Search returns empty results",
				Description: "Search returns no results for valid queries",
				Severity:    SeverityCritical,
				Status:      BugStatusInProgress,
				Assignee:    &jane,
			},
		},
		TestCases: []TestCase{
			{
				Title:          "Login Test",
				Description:    "Verify login works",
				Steps:          "1. Go to login\n2. Enter credentials\n3. Click login",
				ExpectedResult: "User logged in",
				Priority:       "p1",
				Status:         TestCaseStatusActive,
			},
			{
				Title:          "Search Test",
				Description:    "Verify search works",
				Steps:          "1. Go to search\n2. Enter query\n3. Click search",
				ExpectedResult: "Results displayed",
				Priority:       "p2",
				Status:         TestCaseStatusActive,
			},
		},
	}
}

// Seed inserts the given rows into each table that is currently empty.
// Tables that already hold rows are left untouched, so repeated calls are
// no-ops. Two processes seeding the same empty database at once may both
// insert; only a single instance per database is supported.
func (s *store) Seed(ctx context.Context, data *SeedData) error {
	if data == nil {
		return nil
	}

	seeded := 0

	steps := []struct {
		table string
		model any
		rows  any
		n     int
	}{
		{"tests", &TestRecord{}, &data.Tests, len(data.Tests)},
		{"bugs", &BugReport{}, &data.Bugs, len(data.Bugs)},
		{"test_cases", &TestCase{}, &data.TestCases, len(data.TestCases)},
		{"automation_reports", &AutomationReport{}, &data.Reports, len(data.Reports)},
	}

	for _, step := range steps {
		if step.n == 0 {
			continue
		}

		inserted, err := s.seedIfEmpty(ctx, step.model, step.rows)
		if err != nil {
			return fmt.Errorf("seeding %s: %w", step.table, err)
		}

		if inserted {
			seeded += step.n

			s.log.WithField("table", step.table).
				WithField("count", step.n).
				Debug("Seeded table")
		}
	}

	if seeded > 0 {
		s.log.WithField("count", seeded).Info("Seeded sample data")
	}

	return nil
}

// seedIfEmpty inserts rows when the model's table has no rows. rows must
// be a pointer to a slice of the model type.
func (s *store) seedIfEmpty(
	ctx context.Context, model any, rows any,
) (bool, error) {
	inserted := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(model).Count(&n).Error; err != nil {
			return fmt.Errorf("counting rows: %w", err)
		}

		if n > 0 {
			return nil
		}

		if err := tx.Create(rows).Error; err != nil {
			return fmt.Errorf("inserting rows: %w", err)
		}

		inserted = true

		return nil
	})

	return inserted, err
}
