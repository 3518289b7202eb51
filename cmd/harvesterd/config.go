package main

import (
	"time"

	configlibsql "courtharvest-backend/lib/configutil/libsql"
	"courtharvest-backend/lib/harvest"
	"courtharvest-backend/services/hearings"
)

type PortalConfig struct {
	BaseUrl      string `json:"base_url"`
	UserAgent    string `json:"user_agent"`
	CapThreshold int    `json:"cap_threshold"`
}

type HarvestConfig struct {
	Workers           int     `json:"workers"`
	PageSize          int     `json:"page_size"`
	MaxPages          int     `json:"max_pages"`
	MaxAttempts       uint64  `json:"max_attempts"`
	CallTimeoutSecs   int     `json:"call_timeout_secs"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

func (c HarvestConfig) Options() harvest.Options {
	return harvest.Options{
		Workers:           c.Workers,
		PageSize:          c.PageSize,
		MaxPages:          c.MaxPages,
		MaxAttempts:       c.MaxAttempts,
		CallTimeout:       time.Duration(c.CallTimeoutSecs) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
	}
}

type Config struct {
	Database configlibsql.Struct `json:"database"`
	Portal   PortalConfig        `json:"portal"`
	Harvest  HarvestConfig       `json:"harvest"`
	Roster   hearings.Roster     `json:"roster"`
	// HorizonDays is how far past today each scheduled harvest reaches.
	HorizonDays   int `json:"horizon_days"`
	IntervalHours int `json:"interval_hours"`
	Port          int `json:"port"`
}
