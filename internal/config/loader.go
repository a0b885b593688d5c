package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames holds the provider names [Validate] recognises, per
// provider kind. Unknown names only warn so third-party OpenAI-compatible
// endpoints keep working.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq"},
	"stt": {"whisperapi"},
}

// Load reads and validates the YAML configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes and validates YAML from r. Unknown fields are
// rejected so typos in config files surface at startup instead of silently
// falling back to defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every hard configuration problem as one joined error.
// Soft issues (unknown provider names, disabled endpoints) only log
// warnings.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	for _, fb := range cfg.Providers.LLMFallbacks {
		validateProviderName("llm", fb.Name)
		if cfg.Providers.LLM.Name == "" {
			errs = append(errs, errors.New("providers.llm_fallbacks requires a primary providers.llm"))
			break
		}
	}
	for _, fb := range cfg.Providers.STTFallbacks {
		validateProviderName("stt", fb.Name)
		if cfg.Providers.STT.Name == "" {
			errs = append(errs, errors.New("providers.stt_fallbacks requires a primary providers.stt"))
			break
		}
	}

	// Endpoint availability warnings
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; the LLM-assisted parse endpoint will be disabled")
	}
	if cfg.Providers.STT.Name == "" {
		slog.Warn("no STT provider configured; the transcription endpoint will be disabled")
	}

	// Catalog store is mandatory: there is nothing to match without it.
	if cfg.Catalog.PostgresDSN == "" {
		errs = append(errs, errors.New("catalog.postgres_dsn is required"))
	}

	// Matcher thresholds. Zero means default; set values must be sane.
	m := cfg.Matcher
	if m.AcceptFloor < 0 || m.AcceptFloor > 1 {
		errs = append(errs, fmt.Errorf("matcher.accept_floor %.2f is out of range [0, 1]", m.AcceptFloor))
	}
	if m.CandidateFloor < 0 || m.CandidateFloor > 1 {
		errs = append(errs, fmt.Errorf("matcher.candidate_floor %.2f is out of range [0, 1]", m.CandidateFloor))
	}
	if m.Margin < 0 || m.Margin > 1 {
		errs = append(errs, fmt.Errorf("matcher.margin %.2f is out of range [0, 1]", m.Margin))
	}
	if m.FuzzyThreshold < 0 || m.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("matcher.fuzzy_threshold %.2f is out of range [0, 1]", m.FuzzyThreshold))
	}
	if m.MaxOptions < 0 {
		errs = append(errs, fmt.Errorf("matcher.max_options %d must not be negative", m.MaxOptions))
	}
	if m.AcceptFloor != 0 && m.CandidateFloor != 0 && m.AcceptFloor < m.CandidateFloor {
		errs = append(errs, fmt.Errorf("matcher.accept_floor %.2f is below matcher.candidate_floor %.2f", m.AcceptFloor, m.CandidateFloor))
	}

	// Brand rules file existence is checked at load time by the brand
	// package; here only an obviously wrong value is caught.
	if cfg.Brand.RulesFile != "" {
		if _, err := os.Stat(cfg.Brand.RulesFile); err != nil {
			errs = append(errs, fmt.Errorf("brand.rules_file %q: %w", cfg.Brand.RulesFile, err))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, possibly a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
