package core

import (
	"fmt"
)

// Reload re-reads the config file and applies the settings that can change
// without a restart. It returns a description of each change.
//
// Hot-reloadable: detection.window, detection.default_country.
// Restart required: server, bus, kafka, alerts, logging, event_capacity.
func (e *Engine) Reload() ([]string, error) {
	if e.configPath == "" {
		return nil, fmt.Errorf("no config path set, cannot reload")
	}

	newCfg, err := LoadConfig(e.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if _, errs := newCfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("reloaded config is invalid: %w", errs[0])
	}

	var changes []string

	e.mu.Lock()
	if newCfg.Detection.Window != e.Config.Detection.Window {
		changes = append(changes, fmt.Sprintf("detection.window %d → %d", e.Config.Detection.Window, newCfg.Detection.Window))
		e.Config.Detection.Window = newCfg.Detection.Window
	}
	if newCfg.Detection.DefaultCountry != e.Config.Detection.DefaultCountry {
		changes = append(changes, "detection.default_country → "+newCfg.Detection.DefaultCountry)
		e.Config.Detection.DefaultCountry = newCfg.Detection.DefaultCountry
	}
	e.mu.Unlock()

	if newCfg.Server.Port != e.Config.Server.Port || newCfg.Server.Host != e.Config.Server.Host {
		changes = append(changes, "server address changed (restart required)")
	}
	if newCfg.Detection.EventCapacity != e.Config.Detection.EventCapacity {
		changes = append(changes, "detection.event_capacity changed (restart required)")
	}

	if len(changes) == 0 {
		changes = append(changes, "no changes detected")
	}
	e.Logger.Info().Strs("changes", changes).Str("path", e.configPath).Msg("configuration reloaded")
	return changes, nil
}

// SetConfigPath records where Reload reads from.
func (e *Engine) SetConfigPath(path string) {
	e.configPath = path
}
