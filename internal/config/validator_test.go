package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "router.fallback",
		Value:   "sideways",
		Message: "must be one of: remote, fail",
	}

	got := err.Error()
	want := "router.fallback: must be one of: remote, fail (got: sideways)"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := ValidationErrors(nil).Error(); got != "" {
			t.Errorf("Error() = %q, want empty", got)
		}
	})

	t.Run("single", func(t *testing.T) {
		errs := ValidationErrors{{Field: "a", Value: 1, Message: "bad"}}
		if got := errs.Error(); got != "a: bad (got: 1)" {
			t.Errorf("Error() = %q", got)
		}
	})

	t.Run("multiple", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "a", Value: 1, Message: "bad"},
			{Field: "b", Value: 2, Message: "worse"},
		}
		got := errs.Error()
		if !strings.HasPrefix(got, "2 validation errors:") {
			t.Errorf("Error() = %q, want count prefix", got)
		}
		if !strings.Contains(got, "1. a: bad") || !strings.Contains(got, "2. b: worse") {
			t.Errorf("Error() = %q, want numbered entries", got)
		}
	})
}

func TestConfig_Validate_Logging(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{"debug", "debug", false},
		{"info", "info", false},
		{"warn", "warn", false},
		{"error", "error", false},
		{"empty uses default", "", false},
		{"unknown", "verbose", true},
		{"uppercase rejected", "INFO", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Logging.Level = tt.level

			errs := cfg.Validate()
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate() errors = %v, wantErr %v", errs, tt.wantErr)
			}
			if tt.wantErr && errs[0].Field != "logging.level" {
				t.Errorf("Field = %q, want logging.level", errs[0].Field)
			}
		})
	}
}

func TestConfig_Validate_Registry(t *testing.T) {
	tests := []struct {
		name     string
		debounce int
		wantErr  bool
	}{
		{"zero", 0, false},
		{"default", 50, false},
		{"maximum", 10000, false},
		{"negative", -1, true},
		{"too large", 10001, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Registry.DebounceMs = tt.debounce

			errs := cfg.Validate()
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate() errors = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_Router(t *testing.T) {
	tests := []struct {
		name      string
		fallback  string
		hosts     []string
		wantField string
	}{
		{"remote", FallbackRemote, []string{"localhost"}, ""},
		{"fail", FallbackFail, []string{"*.local"}, ""},
		{"no hosts", FallbackRemote, nil, ""},
		{"bad fallback", "drop", nil, "router.fallback"},
		{"empty fallback", "", nil, "router.fallback"},
		{"blank pattern", FallbackRemote, []string{"  "}, "router.local_hosts[0]"},
		{"unclosed class", FallbackRemote, []string{"ok", "[abc"}, "router.local_hosts[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Router.Fallback = tt.fallback
			cfg.Router.LocalHosts = tt.hosts

			errs := cfg.Validate()
			if tt.wantField == "" {
				if len(errs) != 0 {
					t.Errorf("Validate() errors = %v, want none", errs)
				}
				return
			}
			if len(errs) != 1 {
				t.Fatalf("Validate() errors = %v, want exactly one", errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.wantField)
			}
		})
	}
}

func TestConfig_Validate_Metrics(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		addr    string
		wantErr bool
	}{
		{"disabled ignores addr", false, "garbage", false},
		{"host and port", true, "127.0.0.1:9464", false},
		{"port only", true, ":9100", false},
		{"missing port", true, "localhost", true},
		{"empty", true, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Metrics.Enabled = tt.enabled
			cfg.Metrics.Addr = tt.addr

			errs := cfg.Validate()
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate() errors = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_CollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "loud"
	cfg.Registry.DebounceMs = -5
	cfg.Router.Fallback = "drop"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Addr = "nope"

	errs := cfg.Validate()
	if len(errs) != 4 {
		t.Errorf("Validate() returned %d errors, want 4: %v", len(errs), errs)
	}
}
