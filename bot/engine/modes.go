package engine

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Traffic modes shipped with the bot. The value is the probability that a generated address is malicious-looking.
const (
	ModeBenignOnly = "benign_only"
	ModeLow        = "low"
	ModeMedium     = "medium"
	ModeHigh       = "high"
	ModeAttackOnly = "attack_only"
)

// ModeTable maps a traffic mode name to its malicious probability in [0,1].
type ModeTable map[string]float64

// DefaultModes returns a fresh copy of the built-in mode table.
func DefaultModes() ModeTable {
	return ModeTable{
		ModeBenignOnly: 0.0,
		ModeLow:        0.1,
		ModeMedium:     0.3,
		ModeHigh:       0.6,
		ModeAttackOnly: 1.0,
	}
}

// With returns a copy of t with overrides applied. Names are matched case-insensitively.
func (t ModeTable) With(overrides map[string]float64) ModeTable {
	merged := make(ModeTable, len(t)+len(overrides))
	maps.Copy(merged, t)

	for name, p := range overrides {
		merged[strings.ToLower(name)] = p
	}

	return merged
}

// Probability returns the malicious probability of mode.
func (t ModeTable) Probability(mode string) (float64, error) {
	p, ok := t[strings.ToLower(mode)]
	if !ok {
		return 0, &UnknownModeError{Mode: mode, Known: t.Names()}
	}

	return p, nil
}

// Names returns the sorted mode names.
func (t ModeTable) Names() []string {
	return slices.Sorted(maps.Keys(t))
}

// UnknownModeError is returned for a traffic mode without an entry in the mode table.
type UnknownModeError struct {
	Mode  string
	Known []string
}

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("unknown traffic mode %q (known: %s)", e.Mode, strings.Join(e.Known, ", "))
}
