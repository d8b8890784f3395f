package database

import "testing"

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		wantVersion string
		wantBase    string
		wantUp      bool
		wantOK      bool
	}{
		{"20260815_120000_initial_schema.up.sql", "20260815_120000", "initial_schema", true, true},
		{"20260815_120000_initial_schema.down.sql", "20260815_120000", "initial_schema", false, true},
		{"20260901_093000_add_index.up.sql", "20260901_093000", "add_index", true, true},
		{"notes.txt", "", "", false, false},
		{"malformed.up.sql", "", "", false, false},
	}

	for _, tt := range tests {
		version, base, up, ok := parseMigrationFilename(tt.name)
		if ok != tt.wantOK {
			t.Errorf("parseMigrationFilename(%q) ok = %v, want %v", tt.name, ok, tt.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if version != tt.wantVersion || base != tt.wantBase || up != tt.wantUp {
			t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.name, version, base, up, tt.wantVersion, tt.wantBase, tt.wantUp)
		}
	}
}
