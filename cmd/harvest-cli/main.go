package main

import (
	"context"
	"fmt"
	"os"

	"courtharvest-backend/cmd/harvest-cli/commands"
	"courtharvest-backend/lib/telemetry"
)

func main() {
	// no telemetry.json5 just means the cli runs without exporters
	_, err := telemetry.SetupFromEnv(context.Background(), "harvest-cli")
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "failed to setup telemetry:", err)
		os.Exit(1)
	}
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
