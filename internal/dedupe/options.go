package dedupe

import (
	"fmt"
	"time"
)

// Options toggles which signals the scorer considers.
type Options struct {
	EnablePhoneMatch       bool `json:"enable_phone_match"`
	EnableEmailMatch       bool `json:"enable_email_match"`
	EnableNameAddressMatch bool `json:"enable_name_address_match"`
	StrictMode             bool `json:"strict_mode"`
}

// DefaultOptions enables every signal with strict mode off.
func DefaultOptions() Options {
	return Options{
		EnablePhoneMatch:       true,
		EnableEmailMatch:       true,
		EnableNameAddressMatch: true,
	}
}

// Policy holds the weights, gates and thresholds used for scoring.
type Policy struct {
	PhoneWeight     float64       `json:"phone_weight"`
	EmailWeight     float64       `json:"email_weight"`
	NameWeight      float64       `json:"name_weight"`
	AddressWeight   float64       `json:"address_weight"`
	NameGate        float64       `json:"name_gate"`
	AddressGate     float64       `json:"address_gate"`
	Threshold       float64       `json:"threshold"`
	StrictThreshold float64       `json:"strict_threshold"`
	RecencyWindow   time.Duration `json:"recency_window"`
}

// DefaultPolicy returns the stock scoring policy.
func DefaultPolicy() Policy {
	return Policy{
		PhoneWeight:     0.4,
		EmailWeight:     0.3,
		NameWeight:      0.2,
		AddressWeight:   0.1,
		NameGate:        0.8,
		AddressGate:     0.7,
		Threshold:       0.4,
		StrictThreshold: 0.6,
		RecencyWindow:   30 * 24 * time.Hour,
	}
}

// ThresholdFor returns the duplicate threshold that applies under opts.
func (p Policy) ThresholdFor(opts Options) float64 {
	if opts.StrictMode {
		return p.StrictThreshold
	}
	return p.Threshold
}

// Validate checks every ratio lies in [0,1] and the recency window is positive.
func (p Policy) Validate() error {
	ratios := []struct {
		name  string
		value float64
	}{
		{"phone weight", p.PhoneWeight},
		{"email weight", p.EmailWeight},
		{"name weight", p.NameWeight},
		{"address weight", p.AddressWeight},
		{"name gate", p.NameGate},
		{"address gate", p.AddressGate},
		{"threshold", p.Threshold},
		{"strict threshold", p.StrictThreshold},
	}
	for _, r := range ratios {
		if r.value < 0 || r.value > 1 {
			return fmt.Errorf("dedupe: %s %.3f out of range [0,1]", r.name, r.value)
		}
	}
	if p.RecencyWindow <= 0 {
		return fmt.Errorf("dedupe: recency window must be positive")
	}
	return nil
}
