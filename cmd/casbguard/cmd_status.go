package main

// ---------------------------------------------------------------------------
// cmd_status.go: health and counters of a running instance
// ---------------------------------------------------------------------------

import (
	"flag"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

type statusResponse struct {
	Health struct {
		Status       string `json:"status"`
		BusConnected bool   `json:"bus_connected"`
	} `json:"health"`
	Stats struct {
		Events          int `json:"events"`
		EventCapacity   int `json:"event_capacity"`
		ThreatsDetected int `json:"threats_detected"`
		ManagedUsers    int `json:"managed_users"`
		Profiles        int `json:"profiles"`
	} `json:"stats"`
}

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	host := fs.String("host", "", "API host override")
	port := fs.Int("port", 0, "API port override")
	format := fs.String("format", "table", "Output format: table, json")
	fs.Parse(args)

	base := apiBase(envConfig(*configPath), envHost(*host), envPort(*port))

	var status statusResponse
	healthBody, err := apiGet(base + "/health")
	if err != nil {
		errorf("%v", err)
	}
	if err := json.Unmarshal(healthBody, &status.Health); err != nil {
		errorf("decoding health: %v", err)
	}
	statsBody, err := apiGet(base + "/api/stats")
	if err != nil {
		errorf("%v", err)
	}
	if err := json.Unmarshal(statsBody, &status.Stats); err != nil {
		errorf("decoding stats: %v", err)
	}

	if parseFormat(*format) == FormatJSON {
		out, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(out))
		return
	}

	bus := dim("disabled")
	if status.Health.BusConnected {
		bus = green("connected")
	}
	fmt.Fprintf(os.Stdout, "%s %s\n", green("●"), bold(status.Health.Status))
	fmt.Fprintf(os.Stdout, "  %-18s %d / %d\n", "events", status.Stats.Events, status.Stats.EventCapacity)
	fmt.Fprintf(os.Stdout, "  %-18s %d\n", "threats", status.Stats.ThreatsDetected)
	fmt.Fprintf(os.Stdout, "  %-18s %d\n", "users", status.Stats.ManagedUsers)
	fmt.Fprintf(os.Stdout, "  %-18s %d\n", "baseline profiles", status.Stats.Profiles)
	fmt.Fprintf(os.Stdout, "  %-18s %s\n", "bus", bus)
}
