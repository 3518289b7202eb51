package hearings

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"courtharvest-backend/lib/harvest"
	"courtharvest-backend/lib/timezone"
	"courtharvest-backend/services/hearings/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/hearings")

// HearingSchema describes the canonical hearing record produced by the
// portal's result grid.
func HearingSchema() harvest.Schema {
	return harvest.Schema{
		Key: "case_id",
		Fields: []harvest.FieldSpec{
			{Name: "case_number", Type: harvest.FieldString},
			{Name: "party_name", Type: harvest.FieldString, Required: true},
			{Name: "officer", Type: harvest.FieldString},
			{Name: "hearing_date", Type: harvest.FieldDate, Required: true},
			{Name: "hearing_time", Type: harvest.FieldTime},
			{Name: "location", Type: harvest.FieldString},
		},
	}
}

type Service struct {
	db        *sql.DB
	qry       *db.Queries
	harvester *harvest.Harvester
	roster    Roster
	// horizonDays is how far past today each harvest reaches, today
	// included.
	horizonDays int
}

func NewService(
	database *sql.DB,
	source harvest.Source,
	roster Roster,
	horizonDays int,
	opts harvest.Options,
) Service {
	if horizonDays <= 0 {
		horizonDays = 30
	}
	return Service{
		db:          database,
		qry:         db.New(database),
		harvester:   harvest.New(source, HearingSchema(), opts),
		roster:      roster,
		horizonDays: horizonDays,
	}
}

// RunHarvest pulls every hearing scheduled over the configured horizon
// starting today.
func (s Service) RunHarvest(ctx context.Context) (harvest.HarvestResult, error) {
	today := timezone.Now()
	return s.RunHarvestRange(ctx, today, today.AddDate(0, 0, s.horizonDays-1))
}

// RunHarvestRange pulls every hearing scheduled between from and to
// inclusive and appends what came back, run diagnostics included, in
// one transaction. Partial results from a failed or cancelled run are
// still persisted.
func (s Service) RunHarvestRange(ctx context.Context, from, to time.Time) (harvest.HarvestResult, error) {
	ctx, span := tracer.Start(ctx, "RunHarvestRange")
	defer span.End()

	started := timezone.Now()
	query := harvest.LogicalQuery{
		Range:      harvest.NewDateRange(from, to),
		Categories: []harvest.Category{s.roster.Category()},
	}

	result, harvestErr := s.harvester.Harvest(ctx, query)
	span.SetAttributes(
		attribute.String("run_id", result.RunID),
		attribute.Int("records", len(result.Records)),
		attribute.Int("rejections", len(result.Rejections)),
		attribute.Int("failures", len(result.Failures)),
		attribute.Int("incomplete", len(result.Incomplete)),
	)
	for _, failure := range result.Failures {
		slog.WarnContext(ctx, "partition failed",
			"run_id", result.RunID,
			"partition", failure.Partition,
			"err", failure.Err,
		)
	}
	for _, inc := range result.Incomplete {
		slog.WarnContext(ctx, "partition incomplete at date floor",
			"run_id", result.RunID,
			"partition", inc.Partition,
			"retrieved", inc.Retrieved,
			"reported", inc.Reported,
		)
	}

	err := s.persist(ctx, started.Unix(), result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}
	if harvestErr != nil {
		span.RecordError(harvestErr)
		span.SetStatus(codes.Error, harvestErr.Error())
		return result, harvestErr
	}

	slog.InfoContext(ctx, "harvest run finished",
		"run_id", result.RunID,
		"records", len(result.Records),
		"complete", result.Complete(),
	)
	return result, nil
}

func (s Service) persist(ctx context.Context, startedAt int64, result harvest.HarvestResult) error {
	ctx, span := tracer.Start(ctx, "persist")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	finishedAt := timezone.Now().Unix()
	for _, record := range result.Records {
		officer := record.Fields["officer"]
		if officer != "" {
			resolved, matched := s.roster.Resolve(officer)
			if !matched {
				slog.WarnContext(ctx, "officer not on roster",
					"run_id", result.RunID, "officer", officer)
			}
			officer = resolved
		}
		err := txqry.CreateHearing(ctx, db.CreateHearingParams{
			RunID:       result.RunID,
			CaseID:      record.Key,
			CaseNumber:  record.Fields["case_number"],
			PartyName:   record.Fields["party_name"],
			Officer:     officer,
			HearingDate: record.Fields["hearing_date"],
			HearingTime: record.Fields["hearing_time"],
			Location:    record.Fields["location"],
			ScrapedAt:   finishedAt,
		})
		if err != nil {
			return err
		}
	}

	err = txqry.CreateHarvestRun(ctx, db.CreateHarvestRunParams{
		RunID:           result.RunID,
		StartedAt:       startedAt,
		FinishedAt:      finishedAt,
		RecordCount:     int64(len(result.Records)),
		RejectionCount:  int64(len(result.Rejections)),
		PartitionCount:  int64(result.Partitions),
		FailureCount:    int64(len(result.Failures)),
		IncompleteCount: int64(len(result.Incomplete)),
		Complete:        result.Complete(),
	})
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Lookup returns the most recently scraped hearing for a case number.
func (s Service) Lookup(ctx context.Context, caseNumber string) (db.Hearing, error) {
	ctx, span := tracer.Start(ctx, "Lookup")
	defer span.End()
	span.SetAttributes(attribute.String("case_number", caseNumber))

	hearing, err := s.qry.GetLatestHearingByCaseNumber(ctx, caseNumber)
	if err != nil && err != sql.ErrNoRows {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return hearing, err
}

// LatestRun returns diagnostics for the newest recorded harvest run.
func (s Service) LatestRun(ctx context.Context) (db.HarvestRun, error) {
	ctx, span := tracer.Start(ctx, "LatestRun")
	defer span.End()

	run, err := s.qry.GetLatestHarvestRun(ctx)
	if err != nil && err != sql.ErrNoRows {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return run, err
}
