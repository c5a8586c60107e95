package biomech

import (
	"fmt"
	"strings"
)

// Tier is the analysis depth. Higher tiers do more work per frame.
type Tier int

const (
	TierMinimal Tier = iota
	TierLow
	TierMedium
	TierHigh
)

var tierNames = [...]string{"MINIMAL", "LOW", "MEDIUM", "HIGH"}

func (t Tier) String() string {
	if t < TierMinimal || t > TierHigh {
		return fmt.Sprintf("Tier(%d)", int(t))
	}
	return tierNames[t]
}

// Valid reports whether t is one of the four defined tiers.
func (t Tier) Valid() bool { return t >= TierMinimal && t <= TierHigh }

// StepDown returns the next cheaper tier; MINIMAL stays MINIMAL.
func (t Tier) StepDown() Tier {
	if t <= TierMinimal {
		return TierMinimal
	}
	return t - 1
}

// StepUp returns the next richer tier; HIGH stays HIGH.
func (t Tier) StepUp() Tier {
	if t >= TierHigh {
		return TierHigh
	}
	return t + 1
}

// ParseTier parses a tier name, ignoring case.
func ParseTier(s string) (Tier, error) {
	for i, n := range tierNames {
		if strings.EqualFold(strings.TrimSpace(s), n) {
			return Tier(i), nil
		}
	}
	return TierHigh, fmt.Errorf("unknown quality tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tier %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
