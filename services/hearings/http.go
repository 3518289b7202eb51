package hearings

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

type hearingResponse struct {
	CaseID      string `json:"case_id"`
	CaseNumber  string `json:"case_number"`
	PartyName   string `json:"party_name"`
	Officer     string `json:"officer,omitempty"`
	HearingDate string `json:"hearing_date"`
	HearingTime string `json:"hearing_time,omitempty"`
	Location    string `json:"location,omitempty"`
	ScrapedAt   int64  `json:"scraped_at"`
}

type runResponse struct {
	RunID           string `json:"run_id"`
	StartedAt       int64  `json:"started_at"`
	FinishedAt      int64  `json:"finished_at"`
	RecordCount     int64  `json:"record_count"`
	RejectionCount  int64  `json:"rejection_count"`
	PartitionCount  int64  `json:"partition_count"`
	FailureCount    int64  `json:"failure_count"`
	IncompleteCount int64  `json:"incomplete_count"`
	Complete        bool   `json:"complete"`
}

// RegisterHandlers mounts the read-only lookup API.
func (s Service) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/hearings/{caseNumber}", s.handleGetHearing)
	mux.HandleFunc("GET /api/runs/latest", s.handleGetLatestRun)
}

func writeJson(w http.ResponseWriter, r *http.Request, value any) {
	w.Header().Set("content-type", "application/json")
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		slog.WarnContext(r.Context(), "write json response", "err", err)
	}
}

func (s Service) handleGetHearing(w http.ResponseWriter, r *http.Request) {
	caseNumber := r.PathValue("caseNumber")
	hearing, err := s.Lookup(r.Context(), caseNumber)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "no hearing on file for case", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJson(w, r, hearingResponse{
		CaseID:      hearing.CaseID,
		CaseNumber:  hearing.CaseNumber,
		PartyName:   hearing.PartyName,
		Officer:     hearing.Officer,
		HearingDate: hearing.HearingDate,
		HearingTime: hearing.HearingTime,
		Location:    hearing.Location,
		ScrapedAt:   hearing.ScrapedAt,
	})
}

func (s Service) handleGetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.LatestRun(r.Context())
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "no harvest runs recorded", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJson(w, r, runResponse{
		RunID:           run.RunID,
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
		RecordCount:     run.RecordCount,
		RejectionCount:  run.RejectionCount,
		PartitionCount:  run.PartitionCount,
		FailureCount:    run.FailureCount,
		IncompleteCount: run.IncompleteCount,
		Complete:        run.Complete,
	})
}
