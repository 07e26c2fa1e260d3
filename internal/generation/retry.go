package generation

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry defaults
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = time.Second
)

// RetryPolicy bounds the rate-limit retry loop. MaxAttempts counts the first
// call, so 3 means at most two retries.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// DefaultRetryPolicy returns 3 attempts starting at a one second delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts, InitialDelay: DefaultInitialDelay}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	return p
}

// Delay is the sleep before retrying after failed attempt number attempt
// (starting at 1): InitialDelay * 2^(attempt-1).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.normalized()
	if attempt < 1 {
		attempt = 1
	}
	return p.InitialDelay << (attempt - 1)
}

// Backoff returns a fresh go-retry backoff implementing the policy. Backoffs
// are stateful, so every call site needs its own.
func (p RetryPolicy) Backoff() retry.Backoff {
	p = p.normalized()
	return retry.WithMaxRetries(uint64(p.MaxAttempts-1), retry.NewExponential(p.InitialDelay))
}

// rateLimitPattern matches the ways vendors report throttling, apart from
// the bare word "rate" which hasRateWord handles.
var rateLimitPattern = regexp.MustCompile(`(?i)429|quota|too many requests|resource[ _]exhausted`)

// rateWordPrefixes are the endings that make "rate" part of an unrelated
// word such as "generate" or "operate".
var rateWordPrefixes = []string{"gene", "ope", "sepa", "accu", "mode", "integ", "ite", "mig", "corpo"}

// hasRateWord reports whether msg contains "rate" anywhere outside the words
// covered by rateWordPrefixes.
func hasRateWord(msg string) bool {
	lower := strings.ToLower(msg)
	for i := 0; ; {
		j := strings.Index(lower[i:], "rate")
		if j < 0 {
			return false
		}
		at := i + j
		excluded := false
		for _, p := range rateWordPrefixes {
			if strings.HasSuffix(lower[:at], p) {
				excluded = true
				break
			}
		}
		if !excluded {
			return true
		}
		i = at + len("rate")
	}
}

// IsRateLimited reports whether err looks like a vendor rate-limit or quota
// error. Vendors phrase these differently, so the check is on the message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := err.Error()
	return rateLimitPattern.MatchString(msg) || hasRateWord(msg)
}
