package backend

import (
	"fmt"

	"fintrack/internal/config"
)

// FromAppConfig converts the application config to mirror config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	cfg := Config{
		Type:                MirrorType(appConfig.MirrorBackend),
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate validates the mirror configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid mirror type: %q (want one of %v)", c.Type, MirrorTypeStrings())
	}
	if c.Type == SheetsMirror && c.GoogleSpreadsheetID == "" {
		return fmt.Errorf("Google Spreadsheet ID is required for sheets mirror")
	}
	return nil
}

// MirrorTypes returns all valid mirror types
func MirrorTypes() []MirrorType {
	return []MirrorType{SheetsMirror, MemoryMirror}
}

// MirrorTypeStrings returns all valid mirror type strings
func MirrorTypeStrings() []string {
	types := MirrorTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
