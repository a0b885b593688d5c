package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestFallbackGroupUsesPrimary(t *testing.T) {
	fg := NewFallbackGroup("openai", "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("ollama", "ollama")

	var used string
	err := fg.Execute(func(name string) error {
		used = name
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if used != "openai" {
		t.Fatalf("used backend %q, want openai", used)
	}
}

func TestFallbackGroupFailsOver(t *testing.T) {
	fg := NewFallbackGroup("openai", "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("ollama", "ollama")

	var used string
	err := fg.Execute(func(name string) error {
		if name == "openai" {
			return errBackendDown
		}
		used = name
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if used != "ollama" {
		t.Fatalf("used backend %q, want ollama", used)
	}
}

func TestFallbackGroupAllFail(t *testing.T) {
	fg := NewFallbackGroup("openai", "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("ollama", "ollama")

	err := fg.Execute(func(string) error { return errBackendDown })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("Execute() error = %v, want ErrAllFailed", err)
	}
}

func TestFallbackGroupSkipsOpenBreaker(t *testing.T) {
	fg := NewFallbackGroup("openai", "openai", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
		},
	})
	fg.AddFallback("ollama", "ollama")

	// Trip the primary's breaker.
	for range 2 {
		_ = fg.Execute(func(name string) error {
			if name == "openai" {
				return errBackendDown
			}
			return nil
		})
	}

	var used string
	err := fg.Execute(func(name string) error {
		used = name
		return nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if used != "ollama" {
		t.Fatalf("used backend %q, want ollama while openai breaker is open", used)
	}
}

func TestExecuteWithResult(t *testing.T) {
	fg := NewFallbackGroup(1, "first", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("second", 2)

	got, err := ExecuteWithResult(fg, func(v int) (string, error) {
		if v == 1 {
			return "primary result", nil
		}
		return "fallback result", nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult() error = %v", err)
	}
	if got != "primary result" {
		t.Fatalf("result = %q, want %q", got, "primary result")
	}
}

func TestExecuteWithResultFailsOver(t *testing.T) {
	fg := NewFallbackGroup(1, "first", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fg.AddFallback("second", 2)

	got, err := ExecuteWithResult(fg, func(v int) (string, error) {
		if v == 1 {
			return "", errBackendDown
		}
		return "fallback result", nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult() error = %v", err)
	}
	if got != "fallback result" {
		t.Fatalf("result = %q, want %q", got, "fallback result")
	}
}

func TestExecuteWithResultAllFail(t *testing.T) {
	fg := NewFallbackGroup(1, "first", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	_, err := ExecuteWithResult(fg, func(int) (string, error) {
		return "", errBackendDown
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("ExecuteWithResult() error = %v, want ErrAllFailed", err)
	}
}
