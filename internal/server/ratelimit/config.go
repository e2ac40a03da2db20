// Defines rate limit tiers and routing rules.

package ratelimit

import (
	"net/http"
	"time"
)

// Tier is a named limiter applied to a class of requests.
type Tier struct {
	Name    string
	Limiter *Limiter
}

// Config holds the limiters for writes and reads, both keyed by client IP.
// A nil tier disables limiting for its class.
type Config struct {
	Write *Tier
	Read  *Tier
}

// NewConfig creates limiters for the given per-minute rates. A rate of 0
// disables the tier. Bursts are a sixth of the rate, so a client may spend
// ten seconds worth of requests at once.
func NewConfig(writePerMin, readPerMin int) *Config {
	return &Config{
		Write: newTier("write", writePerMin),
		Read:  newTier("read", readPerMin),
	}
}

func newTier(name string, perMin int) *Tier {
	if perMin <= 0 {
		return nil
	}
	return &Tier{Name: name, Limiter: NewLimiter(perMin, time.Minute, max(perMin/6, 1))}
}

// Match returns the tier for a request, or nil if it is not limited.
func (c *Config) Match(method, path string) *Tier {
	if c == nil || path == "/api/health" {
		return nil
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return c.Write
	case http.MethodGet, http.MethodHead:
		return c.Read
	default:
		return nil
	}
}

// Close stops all limiter cleanup goroutines.
func (c *Config) Close() {
	if c == nil {
		return
	}
	for _, t := range []*Tier{c.Write, c.Read} {
		if t != nil {
			t.Limiter.Close()
		}
	}
}
