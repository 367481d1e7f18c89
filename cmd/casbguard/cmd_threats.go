package main

// ---------------------------------------------------------------------------
// cmd_threats.go: list detected threats
// ---------------------------------------------------------------------------

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/1sec-project/casbguard/internal/core"
)

func cmdThreats(args []string) {
	fs := flag.NewFlagSet("threats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	host := fs.String("host", "", "API host override")
	port := fs.Int("port", 0, "API port override")
	format := fs.String("format", "table", "Output format: table, json, csv")
	typeFilter := fs.String("type", "", "Only show threats of this type")
	fs.Parse(args)

	base := apiBase(envConfig(*configPath), envHost(*host), envPort(*port))
	body, err := apiGet(base + "/api/threats")
	if err != nil {
		errorf("%v", err)
	}
	var threats []core.Threat
	if err := json.Unmarshal(body, &threats); err != nil {
		errorf("decoding threats: %v", err)
	}
	threats = filterThreats(threats, *typeFilter)

	if err := renderThreats(os.Stdout, threats, parseFormat(*format)); err != nil {
		errorf("writing threats: %v", err)
	}
}

// filterThreats keeps threats whose type matches want, ignoring case.
func filterThreats(threats []core.Threat, want string) []core.Threat {
	if want == "" {
		return threats
	}
	out := threats[:0:0]
	for _, t := range threats {
		if strings.EqualFold(string(t.Type), want) {
			out = append(out, t)
		}
	}
	return out
}

func renderThreats(w io.Writer, threats []core.Threat, format OutputFormat) error {
	switch format {
	case FormatJSON:
		out, err := json.MarshalIndent(threats, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case FormatCSV:
		return writeCSV(w, []string{"id", "timestamp", "type", "user", "ip", "status", "details"}, threatRows(threats))
	}

	if len(threats) == 0 {
		fmt.Fprintln(w, dim("no threats detected"))
		return nil
	}
	tbl := NewTable(w, "TIME", "TYPE", "USER", "IP", "STATUS")
	for _, row := range threatRows(threats) {
		tbl.AddRow(row[1], row[2], row[3], row[4], row[5])
	}
	tbl.Render()
	return nil
}

func threatRows(threats []core.Threat) [][]string {
	rows := make([][]string, 0, len(threats))
	for _, t := range threats {
		rows = append(rows, []string{
			t.ID,
			t.Timestamp.Format(time.RFC3339),
			string(t.Type),
			t.User,
			t.IP,
			string(t.Status),
			t.Details,
		})
	}
	return rows
}
