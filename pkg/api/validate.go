package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ethpandaops/qahub/pkg/api/store"
)

// Accepted enum values for request payloads.
var (
	bugSeverities = []string{
		store.SeverityLow, store.SeverityMedium,
		store.SeverityHigh, store.SeverityCritical,
	}
	bugStatuses = []string{
		store.BugStatusOpen, store.BugStatusInProgress, store.BugStatusResolved,
	}
	testCasePriorities = []string{"p1", "p2", "p3", "p4"}
)

const maxRequestBodyBytes = 1 << 20

// decodeJSON decodes the request body into v. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}

		return errors.New("invalid request body")
	}

	return nil
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", field)
	}

	return nil
}

func requireOneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}

	return fmt.Errorf("%s must be one of: %s", field, strings.Join(allowed, ", "))
}

func requireNonNegative(field string, value *int) error {
	if value == nil {
		return fmt.Errorf("%s is required", field)
	}

	if *value < 0 {
		return fmt.Errorf("%s must not be negative", field)
	}

	return nil
}

// --- Bugs ---

type createBugRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Severity    string  `json:"severity"`
	Status      string  `json:"status"`
	Assignee    *string `json:"assignee"`
}

func (req *createBugRequest) validate() error {
	if req.Status == "" {
		req.Status = store.BugStatusOpen
	}

	return errors.Join(
		requireText("title", req.Title),
		requireText("description", req.Description),
		requireOneOf("severity", req.Severity, bugSeverities),
		requireOneOf("status", req.Status, bugStatuses),
	)
}

func (req *createBugRequest) toModel() *store.BugReport {
	return &store.BugReport{
		Title:       req.Title,
		Description: req.Description,
		Severity:    req.Severity,
		Status:      req.Status,
		Assignee:    req.Assignee,
	}
}

// --- Test cases ---

type createTestCaseRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Steps          string `json:"steps"`
	ExpectedResult string `json:"expected_result"`
	Priority       string `json:"priority"`
	Status         string `json:"status"`
}

func (req *createTestCaseRequest) validate() error {
	if req.Status == "" {
		req.Status = store.TestCaseStatusActive
	}

	return errors.Join(
		requireText("title", req.Title),
		requireText("description", req.Description),
		requireText("steps", req.Steps),
		requireText("expected_result", req.ExpectedResult),
		requireOneOf("priority", req.Priority, testCasePriorities),
	)
}

func (req *createTestCaseRequest) toModel() *store.TestCase {
	return &store.TestCase{
		Title:          req.Title,
		Description:    req.Description,
		Steps:          req.Steps,
		ExpectedResult: req.ExpectedResult,
		Priority:       req.Priority,
		Status:         req.Status,
	}
}

// --- Automation reports ---

type createReportRequest struct {
	SuiteName   string `json:"suite_name"`
	TotalTests  *int   `json:"total_tests"`
	Passed      *int   `json:"passed"`
	Failed      *int   `json:"failed"`
	Duration    *int   `json:"duration"`
	Environment string `json:"environment"`
}

func (req *createReportRequest) validate() error {
	err := errors.Join(
		requireText("suite_name", req.SuiteName),
		requireNonNegative("total_tests", req.TotalTests),
		requireNonNegative("passed", req.Passed),
		requireNonNegative("failed", req.Failed),
		requireNonNegative("duration", req.Duration),
		requireText("environment", req.Environment),
	)
	if err != nil {
		return err
	}

	if *req.Passed > *req.TotalTests || *req.Failed > *req.TotalTests-*req.Passed {
		return errors.New("passed + failed must not exceed total_tests")
	}

	return nil
}

func (req *createReportRequest) toModel() *store.AutomationReport {
	return &store.AutomationReport{
		SuiteName:   req.SuiteName,
		TotalTests:  *req.TotalTests,
		Passed:      *req.Passed,
		Failed:      *req.Failed,
		Duration:    *req.Duration,
		Environment: req.Environment,
	}
}
