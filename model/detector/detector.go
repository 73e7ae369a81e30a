// Copyright (C) 2024 Christian Rößner
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// Package detector implements the heuristic rules that decide whether an address looks malicious.
package detector

import (
	"strings"

	"github.com/AnkitShukla-arch/ddos-simulation/definitions"
)

// Rules configures the heuristics. An address is malicious if any rule matches.
type Rules struct {
	// Prefixes match the beginning of the address.
	Prefixes []string `mapstructure:"prefixes"`

	// Substrings match anywhere in the address.
	Substrings []string `mapstructure:"substrings"`

	// MaxLength flags addresses longer than this many bytes. Zero disables the rule.
	MaxLength int `mapstructure:"max_length" validate:"gte=0"`
}

// DefaultRules flags private and documentation ranges, compressed IPv6 notation and overly long input.
func DefaultRules() Rules {
	return Rules{
		Prefixes:   []string{"10.", "192.168.", "203.0.113."},
		Substrings: []string{"::"},
		MaxLength:  30,
	}
}

// Reasons reported by Match.
const (
	ReasonNone      = "none"
	ReasonPrefix    = "prefix"
	ReasonSubstring = "substring"
	ReasonLength    = "length"
)

// Verdict is the classification result returned to clients.
type Verdict struct {
	IP        string `json:"ip"`
	Malicious bool   `json:"malicious"`
	Action    string `json:"action"`

	// Reason names the matched rule; it is not part of the response.
	Reason string `json:"-"`
}

// Detector applies Rules. It is immutable and safe for concurrent use.
type Detector struct {
	rules Rules
}

func New(rules Rules) *Detector {
	return &Detector{rules: rules}
}

// Match reports whether ip is malicious and which rule matched first.
func (d *Detector) Match(ip string) (bool, string) {
	for _, p := range d.rules.Prefixes {
		if p != "" && strings.HasPrefix(ip, p) {
			return true, ReasonPrefix
		}
	}

	for _, s := range d.rules.Substrings {
		if s != "" && strings.Contains(ip, s) {
			return true, ReasonSubstring
		}
	}

	if d.rules.MaxLength > 0 && len(ip) > d.rules.MaxLength {
		return true, ReasonLength
	}

	return false, ReasonNone
}

// Classify returns the verdict for ip.
func (d *Detector) Classify(ip string) Verdict {
	malicious, reason := d.Match(ip)

	v := Verdict{IP: ip, Malicious: malicious, Action: definitions.ActionAllow, Reason: reason}
	if malicious {
		v.Action = definitions.ActionBlock
	}

	return v
}
