package backend

import (
	"fmt"
	"strings"

	"payminder/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:          backendType,
		DataDirectory: appConfig.DataDir,
		Sheets:        appConfig.Sheets,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case ExcelBackend, MemoryBackend:
		if c.DataDirectory == "" {
			return fmt.Errorf("data directory is required for %s backend", c.Type)
		}
	case SheetsBackend:
		if len(c.Sheets) == 0 {
			return fmt.Errorf("at least one sheet is required for sheets backend")
		}
		for i, s := range c.Sheets {
			if s.SpreadsheetID == "" {
				return fmt.Errorf("sheet %d has no spreadsheet ID", i)
			}
			if s.City == "" {
				return fmt.Errorf("sheet %d (%s) has no city", i, s.SpreadsheetID)
			}
		}
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{ExcelBackend, SheetsBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
