package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/1sec-project/casbguard/internal/core"
)

func cmdUsers(args []string) {
	fs := flag.NewFlagSet("users", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "Config file path")
	host := fs.String("host", "", "API host override")
	port := fs.Int("port", 0, "API port override")
	format := fs.String("format", "table", "Output format: table, json, csv")
	fs.Parse(args)

	base := apiBase(envConfig(*configPath), envHost(*host), envPort(*port))
	body, err := apiGet(base + "/api/users")
	if err != nil {
		errorf("%v", err)
	}
	var users []core.User
	if err := json.Unmarshal(body, &users); err != nil {
		errorf("decoding users: %v", err)
	}

	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{strconv.FormatInt(u.ID, 10), u.Name, u.Email, u.Role, u.Status, u.UsualCountry})
	}
	headers := []string{"ID", "NAME", "EMAIL", "ROLE", "STATUS", "COUNTRY"}

	switch parseFormat(*format) {
	case FormatJSON:
		out, _ := json.MarshalIndent(users, "", "  ")
		fmt.Println(string(out))
	case FormatCSV:
		if err := writeCSV(os.Stdout, headers, rows); err != nil {
			errorf("writing users: %v", err)
		}
	default:
		tbl := NewTable(os.Stdout, headers...)
		for _, r := range rows {
			tbl.AddRow(r...)
		}
		tbl.Render()
	}
}
