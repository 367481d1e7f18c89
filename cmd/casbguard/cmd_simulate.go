package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/1sec-project/casbguard/internal/core"
)

func cmdSimulate(args []string) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	host := fs.String("host", "", "API host override")
	port := fs.Int("port", 0, "API port override")
	fs.Parse(args)

	base := apiBase(envConfig(*configPath), envHost(*host), envPort(*port))
	body, err := apiPost(base+"/api/simulate-anomaly", nil)
	if err != nil {
		errorf("%v", err)
	}
	var resp struct {
		Message string             `json:"message"`
		Event   core.ActivityEvent `json:"event"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		errorf("decoding response: %v", err)
	}
	fmt.Fprintf(os.Stdout, "%s %s\n", green("✓"), resp.Message)
	fmt.Fprintf(os.Stdout, "  %s logged in from %s\n", resp.Event.User, resp.Event.Detail(core.DetailLocation))
}
