package commands

import (
	"fmt"
	"os"
	"time"

	"courtharvest-backend/lib/configutil"
	configlibsql "courtharvest-backend/lib/configutil/libsql"
	"courtharvest-backend/lib/harvest"
	"courtharvest-backend/lib/restyutil"
	"courtharvest-backend/lib/scrapers/benchmark"
	"courtharvest-backend/lib/serviceutil"
	"courtharvest-backend/lib/timezone"
	"courtharvest-backend/services/hearings"
	hearingsdb "courtharvest-backend/services/hearings/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

type Config struct {
	Portal struct {
		BaseUrl      string `json:"base_url"`
		UserAgent    string `json:"user_agent"`
		CapThreshold int    `json:"cap_threshold"`
	} `json:"portal"`
	Roster  hearings.Roster `json:"roster"`
	Harvest struct {
		Workers           int     `json:"workers"`
		PageSize          int     `json:"page_size"`
		MaxPages          int     `json:"max_pages"`
		MaxAttempts       uint64  `json:"max_attempts"`
		RequestsPerSecond float64 `json:"requests_per_second"`
		Burst             int     `json:"burst"`
	} `json:"harvest"`
}

func (c Config) options() harvest.Options {
	return harvest.Options{
		Workers:           c.Harvest.Workers,
		PageSize:          c.Harvest.PageSize,
		MaxPages:          c.Harvest.MaxPages,
		MaxAttempts:       c.Harvest.MaxAttempts,
		RequestsPerSecond: c.Harvest.RequestsPerSecond,
		Burst:             c.Harvest.Burst,
	}
}

var (
	harvestFrom *string
	harvestTo   *string
	harvestDb   *string
	dumpHttp    *bool
)

func init() {
	harvestFrom = harvestCmd.Flags().String("from", "", "Start date (2006-01-02), defaults to today.")
	harvestTo = harvestCmd.Flags().String("to", "", "End date (2006-01-02), defaults to --from.")
	harvestDb = harvestCmd.Flags().String("db", "", "Optionally append results to this database file.")
	dumpHttp = harvestCmd.Flags().Bool("dump-http", false, "Dump raw http exchanges to .dev/resty/benchmark.")
	rootCmd.AddCommand(harvestCmd)
}

func parseDay(value string, fallback time.Time) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return time.ParseInLocation("2006-01-02", value, timezone.Location)
}

func createClient(cfg Config) *benchmark.Client {
	opts := benchmark.ClientOptions{
		BaseUrl:      cfg.Portal.BaseUrl,
		UserAgent:    cfg.Portal.UserAgent,
		CapThreshold: cfg.Portal.CapThreshold,
	}
	if *dumpHttp {
		opts.InstrumentOutput = restyutil.NewFilesystemOutput(".dev/resty/benchmark")
	}
	client, err := benchmark.NewClient(opts)
	if err != nil {
		serviceutil.Fatal("failed to initialize portal client", err)
	}
	return client
}

var harvestCmd = &cobra.Command{
	Use:   "harvest [--from <date>] [--to <date>] [--db <path/to/output.db>]",
	Short: "Harvests every hearing in a date range and prints the result.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadConfig[Config]("config.json5")
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		from, err := parseDay(*harvestFrom, timezone.Midnight(timezone.Now()))
		if err != nil {
			serviceutil.Fatal("failed to parse --from", err)
		}
		to, err := parseDay(*harvestTo, from)
		if err != nil {
			serviceutil.Fatal("failed to parse --to", err)
		}

		client := createClient(cfg)

		var result harvest.HarvestResult
		t1 := time.Now()
		if *harvestDb != "" {
			out, err := configlibsql.Struct{File: *harvestDb}.OpenDB(hearingsdb.Schema)
			if err != nil {
				serviceutil.Fatal("failed to open db", err)
			}
			defer out.Close()

			service := hearings.NewService(out, client, cfg.Roster, 1, cfg.options())
			result, err = service.RunHarvestRange(cmd.Context(), from, to)
			if err != nil {
				serviceutil.Fatal("harvest failed", err)
			}
		} else {
			query := harvest.LogicalQuery{
				Range:      harvest.NewDateRange(from, to),
				Categories: []harvest.Category{cfg.Roster.Category()},
			}
			harvester := harvest.New(client, hearings.HearingSchema(), cfg.options())
			result, err = harvester.Harvest(cmd.Context(), query)
			if err != nil {
				serviceutil.Fatal("harvest failed", err)
			}
		}
		elapsed := time.Since(t1)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Case", "Party", "Officer", "Date", "Time", "Location"})
		for _, record := range result.Records {
			t.AppendRow(table.Row{
				record.Fields["case_number"],
				record.Fields["party_name"],
				record.Fields["officer"],
				record.Fields["hearing_date"],
				record.Fields["hearing_time"],
				record.Fields["location"],
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()

		fmt.Printf(
			"run %s: %d records, %d rejections, %d partitions, %d failures, %d incomplete in %.1fs\n",
			result.RunID, len(result.Records), len(result.Rejections),
			result.Partitions, len(result.Failures), len(result.Incomplete),
			elapsed.Seconds(),
		)
		if !result.Complete() {
			fmt.Println("warning: harvest is not complete, see diagnostics above")
		}
	},
}
