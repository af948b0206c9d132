package resilience

import (
	"github.com/sells-group/lead-generator/internal/config"
)

// FromScrapeConfig builds the page-fetch retry policy: up to MaxRetries
// attempts, waiting RetryDelay * 2^attempt between them with no jitter.
// Only rate limiting and network failures are retried.
func FromScrapeConfig(cfg config.ScrapeConfig) RetryConfig {
	return RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   cfg.RetryDelay,
		Multiplier:  2.0,
		Retryable: func(err error) bool {
			return IsRateLimited(err) || IsNetworkError(err)
		},
	}
}

// FromCircuitConfig converts config values to a CircuitBreakerConfig.
func FromCircuitConfig(cfg config.CircuitConfig) CircuitBreakerConfig {
	out := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold > 0 {
		out.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.ResetTimeout > 0 {
		out.ResetTimeout = cfg.ResetTimeout
	}
	return out
}
