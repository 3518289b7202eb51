package hearings

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"courtharvest-backend/lib/harvest"
	"courtharvest-backend/lib/testutil"
	"courtharvest-backend/lib/timezone"
	"courtharvest-backend/services/hearings/db"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type fakeSession struct {
	issued time.Time
}

func (s fakeSession) IssuedAt() time.Time {
	return s.issued
}

// fakeSource hands out a fixed result set without caps, so every run
// stays a single partition.
type fakeSource struct {
	rows []harvest.RawRecord
}

func (s fakeSource) Handshake(ctx context.Context) (harvest.Session, error) {
	return fakeSession{issued: time.Now()}, nil
}

func (s fakeSource) FetchPage(
	ctx context.Context,
	part harvest.Partition,
	session harvest.Session,
	offset, limit int,
) (harvest.ResultPage, error) {
	var records []harvest.RawRecord
	for i := offset; i < len(s.rows) && i < offset+limit; i++ {
		records = append(records, s.rows[i])
	}
	return harvest.ResultPage{
		Records: records,
		Offset:  offset,
		Total:   len(s.rows),
	}, nil
}

func testOptions() harvest.Options {
	return harvest.Options{
		Workers:           2,
		PageSize:          2,
		MaxAttempts:       2,
		CallTimeout:       time.Second * 5,
		RequestsPerSecond: 1000,
		Burst:             100,
		InitialBackoff:    time.Millisecond,
	}
}

func TestService(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/hearings",
		DbSchema: db.Schema,
	})
	defer cleanup()

	today := timezone.Now().Format(harvest.DefaultDateFormat)
	source := fakeSource{rows: []harvest.RawRecord{
		{
			"case_id": "101", "case_number": "2026-TR-000101",
			"party_name": "DOE, JANE", "officer": "ADAMS, A",
			"hearing_date": today, "hearing_time": "9:00 AM",
			"location": "Courtroom 1A",
		},
		{
			"case_id": "102", "case_number": "2026-TR-000102",
			"party_name": "ROE, RICHARD", "officer": "Baker B",
			"hearing_date": today, "hearing_time": "10:30 AM",
			"location": "Courtroom 2C",
		},
		{
			"case_id": "103", "case_number": "2026-TR-000103",
			"party_name": "POE, EDGAR",
			"hearing_date": today,
		},
	}}
	roster := Roster{
		Names:         []string{"ADAMS, A", "BAKER, B"},
		MinSimilarity: 0.85,
	}
	service := NewService(setup.DB, source, roster, 3, testOptions())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	result, err := service.RunHarvest(ctx)
	require.NoError(t, err)
	require.True(t, result.Complete())
	require.Len(t, result.Records, 3)

	hearing, err := service.Lookup(ctx, "2026-TR-000102")
	require.NoError(t, err)
	require.Equal(t, "102", hearing.CaseID)
	require.Equal(t, "ROE, RICHARD", hearing.PartyName)
	require.Equal(t, "BAKER, B", hearing.Officer)
	require.Equal(t, today, hearing.HearingDate)

	_, err = service.Lookup(ctx, "2026-TR-999999")
	require.ErrorIs(t, err, sql.ErrNoRows)

	run, err := service.LatestRun(ctx)
	require.NoError(t, err)
	require.Equal(t, result.RunID, run.RunID)
	require.EqualValues(t, 3, run.RecordCount)
	require.EqualValues(t, 0, run.RejectionCount)
	require.True(t, run.Complete)
}

func TestServiceHttp(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/hearings/http",
		DbSchema: db.Schema,
	})
	defer cleanup()

	today := timezone.Now().Format(harvest.DefaultDateFormat)
	source := fakeSource{rows: []harvest.RawRecord{
		{
			"case_id": "201", "case_number": "2026-TR-000201",
			"party_name": "DOE, JANE", "hearing_date": today,
		},
	}}
	service := NewService(setup.DB, source, Roster{}, 1, testOptions())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	_, err := service.RunHarvest(ctx)
	require.NoError(t, err)

	mux := http.NewServeMux()
	service.RegisterHandlers(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	res, err := http.Get(server.URL + "/api/hearings/2026-TR-000201")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var hearing hearingResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&hearing))
	require.Equal(t, "201", hearing.CaseID)
	require.Equal(t, "DOE, JANE", hearing.PartyName)

	missing, err := http.Get(server.URL + "/api/hearings/unknown")
	require.NoError(t, err)
	defer missing.Body.Close()
	require.Equal(t, http.StatusNotFound, missing.StatusCode)

	runRes, err := http.Get(server.URL + "/api/runs/latest")
	require.NoError(t, err)
	defer runRes.Body.Close()
	require.Equal(t, http.StatusOK, runRes.StatusCode)

	var run runResponse
	require.NoError(t, json.NewDecoder(runRes.Body).Decode(&run))
	require.EqualValues(t, 1, run.RecordCount)
	require.True(t, run.Complete)
}
