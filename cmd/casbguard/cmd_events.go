package main

// ---------------------------------------------------------------------------
// cmd_events.go: list recent activity or submit an event
// ---------------------------------------------------------------------------

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/1sec-project/casbguard/internal/core"
)

func cmdEvents(args []string) {
	submit := len(args) > 0 && args[0] == "submit"
	if submit {
		args = args[1:]
	}

	fs := flag.NewFlagSet("events", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	host := fs.String("host", "", "API host override")
	port := fs.Int("port", 0, "API port override")
	inputFile := fs.String("input", "-", "Read event JSON from file (- for stdin)")
	format := fs.String("format", "table", "Output format: table, json, csv")
	fs.Parse(args)

	base := apiBase(envConfig(*configPath), envHost(*host), envPort(*port))
	if submit {
		submitEvent(base, *inputFile)
		return
	}

	body, err := apiGet(base + "/api/events")
	if err != nil {
		errorf("%v", err)
	}
	var events []core.ActivityEvent
	if err := json.Unmarshal(body, &events); err != nil {
		errorf("decoding events: %v", err)
	}
	if err := renderEvents(os.Stdout, events, parseFormat(*format)); err != nil {
		errorf("writing events: %v", err)
	}
}

func submitEvent(base, inputFile string) {
	var reader io.Reader
	if inputFile == "-" || inputFile == "" {
		if isTTY(os.Stdin) {
			errorf("no input provided: pipe event JSON via stdin or use --input <file>")
		}
		reader = os.Stdin
	} else {
		f, err := os.Open(inputFile)
		if err != nil {
			errorf("opening input file %q: %v", inputFile, err)
		}
		defer f.Close()
		reader = f
	}

	payload, err := io.ReadAll(io.LimitReader(reader, 1<<20))
	if err != nil {
		errorf("reading input: %v", err)
	}
	var event core.ActivityEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		errorf("invalid event JSON: %v", err)
	}
	if err := core.ValidateEvent(event); err != nil {
		errorf("%v", err)
	}

	body, err := apiPost(base+"/api/events", payload)
	if err != nil {
		errorf("%v", err)
	}
	var resp struct {
		Event   core.ActivityEvent `json:"event"`
		Threats []core.Threat      `json:"threats"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		errorf("decoding response: %v", err)
	}
	fmt.Fprintf(os.Stdout, "%s event %s accepted\n", green("✓"), resp.Event.ID)
	for _, t := range resp.Threats {
		fmt.Fprintf(os.Stdout, "%s %s: %s\n", red("!"), t.Type, t.Details)
	}
}

func renderEvents(w io.Writer, events []core.ActivityEvent, format OutputFormat) error {
	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(events, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case FormatCSV:
		return writeCSV(w, []string{"id", "timestamp", "user", "action", "detail"}, eventRows(events))
	}

	if len(events) == 0 {
		fmt.Fprintln(w, dim("no events"))
		return nil
	}
	tbl := NewTable(w, "TIME", "USER", "ACTION", "DETAIL")
	for _, row := range eventRows(events) {
		tbl.AddRow(row[1], row[2], row[3], truncate(row[4], 48))
	}
	tbl.Render()
	return nil
}

func eventRows(events []core.ActivityEvent) [][]string {
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		rows = append(rows, []string{
			ev.ID,
			ev.Timestamp.Format(time.RFC3339),
			ev.User,
			string(ev.Action),
			eventSummary(ev),
		})
	}
	return rows
}

// eventSummary picks the most telling detail for display.
func eventSummary(ev core.ActivityEvent) string {
	switch ev.Action {
	case core.ActionLogin:
		if ip := ev.Detail(core.DetailIP); ip != "" {
			return ev.Detail(core.DetailLocation) + " (" + ip + ")"
		}
		return ev.Detail(core.DetailLocation)
	default:
		if f := ev.Detail(core.DetailFile); f != "" {
			return ev.Detail(core.DetailApp) + ": " + f
		}
		return ev.Detail(core.DetailApp)
	}
}
