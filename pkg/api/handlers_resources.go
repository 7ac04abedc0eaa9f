package api

import (
	"fmt"
	"net/http"
)

// --- Bugs ---

func (s *server) handleListBugs(w http.ResponseWriter, r *http.Request) {
	bugs, err := s.store.ListBugs(r.Context())
	if err != nil {
		s.writeInternalError(w, err, "Failed to list bugs")

		return
	}

	writeJSON(w, http.StatusOK, bugs)
}

func (s *server) handleCreateBug(w http.ResponseWriter, r *http.Request) {
	var req createBugRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	if err := req.validate(); err != nil {
		writeValidationError(w, err)

		return
	}

	bug := req.toModel()
	if err := s.store.CreateBug(r.Context(), bug); err != nil {
		s.writeInternalError(w, err, "Failed to create bug")

		return
	}

	writeJSON(w, http.StatusCreated, bug)
}

func (s *server) handleDeleteBug(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	deleted, err := s.store.DeleteBug(r.Context(), id)
	if err != nil {
		s.writeInternalError(w, err, "Failed to delete bug")

		return
	}

	if deleted == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{"bug not found"})

		return
	}

	writeJSON(w, http.StatusOK,
		messageResponse{fmt.Sprintf("Bug %d deleted", id)})
}

// --- Test cases ---

func (s *server) handleListTestCases(w http.ResponseWriter, r *http.Request) {
	cases, err := s.store.ListTestCases(r.Context())
	if err != nil {
		s.writeInternalError(w, err, "Failed to list test cases")

		return
	}

	writeJSON(w, http.StatusOK, cases)
}

func (s *server) handleCreateTestCase(w http.ResponseWriter, r *http.Request) {
	var req createTestCaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	if err := req.validate(); err != nil {
		writeValidationError(w, err)

		return
	}

	tc := req.toModel()
	if err := s.store.CreateTestCase(r.Context(), tc); err != nil {
		s.writeInternalError(w, err, "Failed to create test case")

		return
	}

	writeJSON(w, http.StatusCreated, tc)
}

func (s *server) handleDeleteTestCase(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	deleted, err := s.store.DeleteTestCase(r.Context(), id)
	if err != nil {
		s.writeInternalError(w, err, "Failed to delete test case")

		return
	}

	if deleted == 0 {
		writeJSON(w, http.StatusNotFound, errorResponse{"test case not found"})

		return
	}

	writeJSON(w, http.StatusOK,
		messageResponse{fmt.Sprintf("Test case %d deleted", id)})
}

// --- Automation reports ---

func (s *server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.store.ListReports(r.Context(), reportListLimit)
	if err != nil {
		s.writeInternalError(w, err, "Failed to list reports")

		return
	}

	writeJSON(w, http.StatusOK, reports)
}

// handleCreateReport stores a report and, when archiving is enabled,
// queues a copy for upload.
func (s *server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	if err := req.validate(); err != nil {
		writeValidationError(w, err)

		return
	}

	report := req.toModel()
	if err := s.store.CreateReport(r.Context(), report); err != nil {
		s.writeInternalError(w, err, "Failed to create report")

		return
	}

	if s.archiver != nil && !s.archiver.Enqueue(report) {
		s.metrics.archiveDropped.Inc()
	}

	writeJSON(w, http.StatusCreated, report)
}
