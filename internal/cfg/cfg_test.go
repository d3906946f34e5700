package cfg

import (
	"flag"
	"math"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		LLMProvider:           ProviderClaude,
		ClaudeAPIKey:          "sk-test-key",
		ClaudeModel:           "claude-sonnet-4-20250514",
		CapabilityTimeoutSecs: 30,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.LLMProvider != ProviderClaude {
		t.Errorf("LLMProvider = %q, want %q", c.LLMProvider, ProviderClaude)
	}
	if c.ClaudeModel != "claude-sonnet-4-20250514" {
		t.Errorf("ClaudeModel = %q, want %q", c.ClaudeModel, "claude-sonnet-4-20250514")
	}
	if c.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("OpenAIModel = %q, want %q", c.OpenAIModel, "gpt-4o-mini")
	}
	if c.CapabilityTimeoutSecs != 30 {
		t.Errorf("CapabilityTimeoutSecs = %d, want 30", c.CapabilityTimeoutSecs)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-llm-provider", "openai",
		"-openai-api-key", "sk-override",
		"-openai-model", "gpt-4o",
		"-capability-timeout-seconds", "10",
		"-page-webhook-url", "https://hooks.slack.example/page",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 120 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 120", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.LLMProvider != ProviderOpenAI {
		t.Errorf("LLMProvider = %q, want %q", c.LLMProvider, ProviderOpenAI)
	}
	if c.OpenAIAPIKey != "sk-override" {
		t.Errorf("OpenAIAPIKey = %q, want %q", c.OpenAIAPIKey, "sk-override")
	}
	if c.OpenAIModel != "gpt-4o" {
		t.Errorf("OpenAIModel = %q, want %q", c.OpenAIModel, "gpt-4o")
	}
	if c.CapabilityTimeoutSecs != 10 {
		t.Errorf("CapabilityTimeoutSecs = %d, want 10", c.CapabilityTimeoutSecs)
	}
	if c.PageWebhookURL != "https://hooks.slack.example/page" {
		t.Errorf("PageWebhookURL = %q, want %q", c.PageWebhookURL, "https://hooks.slack.example/page")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "defaults are valid",
			cfg:     validBase(),
			wantErr: false,
		},
		{
			name: "minimum valid values",
			cfg: Config{
				DrainSeconds: 1, ShutdownBudgetSeconds: 2, APIPort: 1, CapabilityTimeoutSecs: 1,
				LLMProvider: ProviderClaude, ClaudeAPIKey: "k", ClaudeModel: "m",
			},
			wantErr: false,
		},
		{
			name: "maximum valid values",
			cfg: Config{
				DrainSeconds: 299, ShutdownBudgetSeconds: 300, APIPort: 65535, CapabilityTimeoutSecs: 300,
				LLMProvider: ProviderClaude, ClaudeAPIKey: "k", ClaudeModel: "m",
			},
			wantErr: false,
		},
		// DrainSeconds boundaries
		{
			name:      "drain zero",
			cfg:       Config{DrainSeconds: 0, ShutdownBudgetSeconds: 90, APIPort: 8080},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain negative",
			cfg:       Config{DrainSeconds: -1, ShutdownBudgetSeconds: 90, APIPort: 8080},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain above max",
			cfg:       Config{DrainSeconds: 301, ShutdownBudgetSeconds: 302, APIPort: 8080},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		// ShutdownBudgetSeconds boundaries
		{
			name:      "budget zero",
			cfg:       Config{DrainSeconds: 60, ShutdownBudgetSeconds: 0, APIPort: 8080},
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget above max",
			cfg:       Config{DrainSeconds: 60, ShutdownBudgetSeconds: 301, APIPort: 8080},
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		// Cross-field: budget vs drain
		{
			name:      "budget equals drain",
			cfg:       Config{DrainSeconds: 60, ShutdownBudgetSeconds: 60, APIPort: 8080},
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name:      "budget less than drain",
			cfg:       Config{DrainSeconds: 60, ShutdownBudgetSeconds: 30, APIPort: 8080},
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name: "budget is drain plus one",
			cfg: Config{
				DrainSeconds: 60, ShutdownBudgetSeconds: 61, APIPort: 8080, CapabilityTimeoutSecs: 30,
				LLMProvider: ProviderClaude, ClaudeAPIKey: "k", ClaudeModel: "m",
			},
			wantErr: false,
		},
		// APIPort boundaries
		{
			name:      "port zero",
			cfg:       Config{DrainSeconds: 60, ShutdownBudgetSeconds: 90, APIPort: 0},
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "port above max",
			cfg:       Config{DrainSeconds: 60, ShutdownBudgetSeconds: 90, APIPort: 65536},
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		// Capability timeout boundaries
		{
			name: "capability timeout zero",
			cfg: Config{
				DrainSeconds: 60, ShutdownBudgetSeconds: 90, APIPort: 8080, CapabilityTimeoutSecs: 0,
				LLMProvider: ProviderClaude, ClaudeAPIKey: "k", ClaudeModel: "m",
			},
			wantErr:   true,
			errSubstr: []string{"CAPABILITY_TIMEOUT_SECONDS"},
		},
		{
			name: "capability timeout above max",
			cfg: Config{
				DrainSeconds: 60, ShutdownBudgetSeconds: 90, APIPort: 8080, CapabilityTimeoutSecs: 301,
				LLMProvider: ProviderClaude, ClaudeAPIKey: "k", ClaudeModel: "m",
			},
			wantErr:   true,
			errSubstr: []string{"CAPABILITY_TIMEOUT_SECONDS"},
		},
		// Provider selection
		{
			name: "claude without key",
			cfg: Config{
				DrainSeconds: 60, ShutdownBudgetSeconds: 90, APIPort: 8080, CapabilityTimeoutSecs: 30,
				LLMProvider: ProviderClaude, ClaudeAPIKey: "", ClaudeModel: "m",
			},
			wantErr:   true,
			errSubstr: []string{"CLAUDE_API_KEY"},
		},
		{
			name: "claude without model",
			cfg: Config{
				DrainSeconds: 60, ShutdownBudgetSeconds: 90, APIPort: 8080, CapabilityTimeoutSecs: 30,
				LLMProvider: ProviderClaude, ClaudeAPIKey: "k", ClaudeModel: "",
			},
			wantErr:   true,
			errSubstr: []string{"CLAUDE_MODEL"},
		},
		{
			name: "openai without key",
			cfg: Config{
				DrainSeconds: 60, ShutdownBudgetSeconds: 90, APIPort: 8080, CapabilityTimeoutSecs: 30,
				LLMProvider: ProviderOpenAI, OpenAIAPIKey: "", OpenAIModel: "m",
			},
			wantErr:   true,
			errSubstr: []string{"OPENAI_API_KEY"},
		},
		{
			name: "openai valid",
			cfg: Config{
				DrainSeconds: 60, ShutdownBudgetSeconds: 90, APIPort: 8080, CapabilityTimeoutSecs: 30,
				LLMProvider: ProviderOpenAI, OpenAIAPIKey: "k", OpenAIModel: "m",
			},
			wantErr: false,
		},
		{
			name: "unknown provider",
			cfg: Config{
				DrainSeconds: 60, ShutdownBudgetSeconds: 90, APIPort: 8080, CapabilityTimeoutSecs: 30,
				LLMProvider: "gemini", ClaudeAPIKey: "k", ClaudeModel: "m",
			},
			wantErr:   true,
			errSubstr: []string{"LLM_PROVIDER"},
		},
		// Error accumulation: all fields invalid
		{
			name:      "all fields invalid",
			cfg:       Config{DrainSeconds: 0, ShutdownBudgetSeconds: 0, APIPort: 0},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT", "CAPABILITY_TIMEOUT_SECONDS", "LLM_PROVIDER"},
		},
		// Extreme values
		{
			name:      "extreme negative values",
			cfg:       Config{DrainSeconds: math.MinInt32, ShutdownBudgetSeconds: math.MinInt32, APIPort: math.MinInt32},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func FuzzValidate(f *testing.F) {
	// Seeds: defaults, boundaries, extremes
	seeds := []struct {
		drain, budget, port, capTimeout int
		provider, key, model            string
	}{
		{60, 90, 8080, 30, "claude", "sk-test", "claude-sonnet"},
		{1, 2, 1, 1, "claude", "k", "m"},
		{299, 300, 65535, 300, "openai", "k", "m"},
		{0, 0, 0, 0, "", "", ""},
		{-1, -1, -1, -1, "", "", ""},
		{301, 302, 65536, 301, "gemini", "", ""},
		{150, 100, 8080, 30, "claude", "k", "m"},
		{math.MinInt32, math.MinInt32, math.MinInt32, math.MinInt32, "", "", ""},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, math.MaxInt32, "", "", ""},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.capTimeout, s.provider, s.key, s.model)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port, capTimeout int, provider, key, model string) {
		c := Config{
			DrainSeconds:          drain,
			ShutdownBudgetSeconds: budget,
			APIPort:               port,
			CapabilityTimeoutSecs: capTimeout,
			LLMProvider:           provider,
			ClaudeAPIKey:          key,
			ClaudeModel:           model,
			OpenAIAPIKey:          key,
			OpenAIModel:           model,
		}
		err := c.Validate()

		drainOK := drain >= 1 && drain <= 300
		budgetOK := budget >= 1 && budget <= 300
		portOK := port >= 1 && port <= 65535
		crossOK := budget > drain
		capOK := capTimeout >= 1 && capTimeout <= 300
		providerOK := (provider == ProviderClaude || provider == ProviderOpenAI) && key != "" && model != ""

		allValid := drainOK && budgetOK && portOK && crossOK && capOK && providerOK

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}
