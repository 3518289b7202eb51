package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type HarvestRun struct {
	ID              int64
	RunID           string
	StartedAt       int64
	FinishedAt      int64
	RecordCount     int64
	RejectionCount  int64
	PartitionCount  int64
	FailureCount    int64
	IncompleteCount int64
	Complete        bool
}

type Hearing struct {
	ID          int64
	RunID       string
	CaseID      string
	CaseNumber  string
	PartyName   string
	Officer     string
	HearingDate string
	HearingTime string
	Location    string
	ScrapedAt   int64
}

const createHarvestRun = `
INSERT INTO harvest_run (
    run_id, started_at, finished_at, record_count, rejection_count,
    partition_count, failure_count, incomplete_count, complete
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateHarvestRunParams struct {
	RunID           string
	StartedAt       int64
	FinishedAt      int64
	RecordCount     int64
	RejectionCount  int64
	PartitionCount  int64
	FailureCount    int64
	IncompleteCount int64
	Complete        bool
}

func (q *Queries) CreateHarvestRun(ctx context.Context, arg CreateHarvestRunParams) error {
	_, err := q.db.ExecContext(ctx, createHarvestRun,
		arg.RunID,
		arg.StartedAt,
		arg.FinishedAt,
		arg.RecordCount,
		arg.RejectionCount,
		arg.PartitionCount,
		arg.FailureCount,
		arg.IncompleteCount,
		arg.Complete,
	)
	return err
}

const getLatestHarvestRun = `
SELECT id, run_id, started_at, finished_at, record_count, rejection_count,
       partition_count, failure_count, incomplete_count, complete
FROM harvest_run
ORDER BY finished_at DESC, id DESC
LIMIT 1
`

func (q *Queries) GetLatestHarvestRun(ctx context.Context) (HarvestRun, error) {
	row := q.db.QueryRowContext(ctx, getLatestHarvestRun)
	var r HarvestRun
	err := row.Scan(
		&r.ID,
		&r.RunID,
		&r.StartedAt,
		&r.FinishedAt,
		&r.RecordCount,
		&r.RejectionCount,
		&r.PartitionCount,
		&r.FailureCount,
		&r.IncompleteCount,
		&r.Complete,
	)
	return r, err
}

const createHearing = `
INSERT INTO hearing (
    run_id, case_id, case_number, party_name, officer,
    hearing_date, hearing_time, location, scraped_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateHearingParams struct {
	RunID       string
	CaseID      string
	CaseNumber  string
	PartyName   string
	Officer     string
	HearingDate string
	HearingTime string
	Location    string
	ScrapedAt   int64
}

func (q *Queries) CreateHearing(ctx context.Context, arg CreateHearingParams) error {
	_, err := q.db.ExecContext(ctx, createHearing,
		arg.RunID,
		arg.CaseID,
		arg.CaseNumber,
		arg.PartyName,
		arg.Officer,
		arg.HearingDate,
		arg.HearingTime,
		arg.Location,
		arg.ScrapedAt,
	)
	return err
}

const getLatestHearingByCaseNumber = `
SELECT id, run_id, case_id, case_number, party_name, officer,
       hearing_date, hearing_time, location, scraped_at
FROM hearing
WHERE case_number = ?
ORDER BY scraped_at DESC, id DESC
LIMIT 1
`

func (q *Queries) GetLatestHearingByCaseNumber(ctx context.Context, caseNumber string) (Hearing, error) {
	row := q.db.QueryRowContext(ctx, getLatestHearingByCaseNumber, caseNumber)
	var h Hearing
	err := row.Scan(
		&h.ID,
		&h.RunID,
		&h.CaseID,
		&h.CaseNumber,
		&h.PartyName,
		&h.Officer,
		&h.HearingDate,
		&h.HearingTime,
		&h.Location,
		&h.ScrapedAt,
	)
	return h, err
}

const getHearingsForRun = `
SELECT id, run_id, case_id, case_number, party_name, officer,
       hearing_date, hearing_time, location, scraped_at
FROM hearing
WHERE run_id = ?
ORDER BY case_id
`

func (q *Queries) GetHearingsForRun(ctx context.Context, runID string) ([]Hearing, error) {
	rows, err := q.db.QueryContext(ctx, getHearingsForRun, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Hearing
	for rows.Next() {
		var h Hearing
		err := rows.Scan(
			&h.ID,
			&h.RunID,
			&h.CaseID,
			&h.CaseNumber,
			&h.PartyName,
			&h.Officer,
			&h.HearingDate,
			&h.HearingTime,
			&h.Location,
			&h.ScrapedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
