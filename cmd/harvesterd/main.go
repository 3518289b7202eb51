package main

import (
	"context"
	"net/http"
	"time"

	"courtharvest-backend/lib/configutil"
	"courtharvest-backend/lib/scrapers/benchmark"
	"courtharvest-backend/lib/serviceutil"
	"courtharvest-backend/lib/telemetry"
	"courtharvest-backend/services/hearings"
	hearingsdb "courtharvest-backend/services/hearings/db"
)

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	db, err := config.Database.OpenDB(hearingsdb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}

	t, err := telemetry.SetupFromEnv(ctx, "harvesterd")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	client, err := benchmark.NewClient(benchmark.ClientOptions{
		BaseUrl:      config.Portal.BaseUrl,
		UserAgent:    config.Portal.UserAgent,
		CapThreshold: config.Portal.CapThreshold,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize portal client", err)
	}

	service := hearings.NewService(
		db, client, config.Roster,
		config.HorizonDays, config.Harvest.Options(),
	)
	service.StartHarvestDaemon(ctx, time.Duration(config.IntervalHours)*time.Hour)

	port := config.Port
	if port == 0 {
		port = 8444
	}
	mux := http.NewServeMux()
	service.RegisterHandlers(mux)
	go serviceutil.StartHttpServer(port, mux)

	<-ctx.Done()
}
