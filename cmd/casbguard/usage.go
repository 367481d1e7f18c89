package main

import (
	"fmt"
	"io"
	"os"
	goruntime "runtime"
	"runtime/debug"
)

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "casbguard v%s", version)
	if commit != "dev" {
		fmt.Fprintf(w, " (%s)", commit[:min(7, len(commit))])
	}
	if buildDate != "unknown" {
		fmt.Fprintf(w, " built %s", buildDate)
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fmt.Fprintf(w, " %s", bi.GoVersion)
	}
	fmt.Fprintf(w, " %s/%s", goruntime.GOOS, goruntime.GOARCH)
	fmt.Fprintln(w)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", bold("casbguard"), dim("v"+version))
	fmt.Fprintf(w, "  Behavioral anomaly detection for cloud application activity\n\n")
	fmt.Fprintf(w, "%s\n\n", bold("USAGE"))
	fmt.Fprintf(w, "  casbguard <command> [flags]\n\n")
	fmt.Fprintf(w, "%s\n\n", bold("COMMANDS"))
	fmt.Fprintf(w, "  %-10s  %s\n", bold("up"), "Start the API server and activity scheduler")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("status"), "Show health and counters of a running instance")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("events"), "List recent activity or submit an event")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("threats"), "List detected threats")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("simulate"), "Inject the demo anomalous login")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("users"), "List managed users")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("config"), "Show, validate, or initialize configuration")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("version"), "Print version and build info")
	fmt.Fprintf(w, "  %-10s  %s\n", bold("help"), "Show help for a command")
	fmt.Fprintf(w, "\n%s\n\n", bold("ENVIRONMENT VARIABLES"))
	fmt.Fprintf(w, "  %-24s  %s\n", "CASBGUARD_CONFIG", "Default config file path")
	fmt.Fprintf(w, "  %-24s  %s\n", "CASBGUARD_HOST", "API host override")
	fmt.Fprintf(w, "  %-24s  %s\n", "CASBGUARD_PORT", "API port override")
	fmt.Fprintf(w, "  %-24s  %s\n", "CASBGUARD_NATS_URL", "External NATS server (enables the bus)")
	fmt.Fprintf(w, "  %-24s  %s\n", "CASBGUARD_KAFKA_BROKERS", "Comma-separated Kafka brokers for threat export")
	fmt.Fprintf(w, "\n  A .env file in the working directory is loaded before flags are parsed.\n\n")
	fmt.Fprintf(w, "%s\n\n", bold("EXAMPLES"))
	fmt.Fprintf(w, "  %s\n", dim("# Start with the demo seed data"))
	fmt.Fprintf(w, "  casbguard up\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# Trigger the anomaly and list threats"))
	fmt.Fprintf(w, "  casbguard simulate && casbguard threats\n\n")
	fmt.Fprintf(w, "  %s\n", dim("# Submit a login from stdin"))
	fmt.Fprintf(w, "  echo '{\"user\":\"alice.jones@example.com\",\"action\":\"Login\",\"details\":{\"location\":\"Paris, France\"}}' | casbguard events submit\n\n")
}

var commandHelp = map[string]string{
	"up": `Usage: casbguard up [flags]

Start the engine, the REST API, and the activity scheduler.

Flags:
  --config <path>     Config file path (default: configs/default.yaml)
  --log-level <lvl>   Log level override: debug, info, warn, error
  --no-seed           Start with empty stores
  --dry-run           Validate config, then exit
`,
	"status": `Usage: casbguard status [flags]

Flags:
  --config, --host, --port   Locate the running instance
  --format <fmt>             table or json
`,
	"events": `Usage: casbguard events [submit] [flags]

Without a subcommand, list events newest first. "submit" reads one event
as JSON from --input or stdin and posts it.

Flags:
  --config, --host, --port   Locate the running instance
  --format <fmt>             table, json, or csv
  --input <file>             Event JSON file for submit (- for stdin)
`,
	"threats": `Usage: casbguard threats [flags]

Flags:
  --config, --host, --port   Locate the running instance
  --format <fmt>             table, json, or csv
  --type <type>              Only show threats of this type
`,
	"simulate": `Usage: casbguard simulate [flags]

Inject the fixed anomalous login and run detection immediately.
`,
	"users": `Usage: casbguard users [flags]

Flags:
  --config, --host, --port   Locate the running instance
  --format <fmt>             table, json, or csv
`,
	"config": `Usage: casbguard config [init] [flags]

Flags:
  --config <path>     Config file path
  --validate          Validate config and exit
  --format <fmt>      yaml or json
  --force             Overwrite an existing file (init)
`,
}

func cmdHelp(cmd string) {
	if text, ok := commandHelp[cmd]; ok {
		fmt.Print(text)
		return
	}
	printUsage(os.Stdout)
}
