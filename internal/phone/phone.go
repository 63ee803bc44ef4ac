package phone

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Policy canonicalizes and validates phone numbers for one dialing plan.
// Implementations are pure: no I/O, deterministic, safe for concurrent use.
type Policy interface {
	// Name identifies the policy in configuration
	Name() string
	// Normalize strips separators and expands the national trunk prefix
	// into canonical international form
	Normalize(raw string) string
	// Validate reports whether a canonical number is acceptable
	Validate(canonical string) bool
	// FormatHint is the user-facing message for rejected numbers
	FormatHint() string
}

// israeliMobileRegex matches +972 followed by a mobile second-stage prefix
// and a 7-digit subscriber number
var israeliMobileRegex = regexp.MustCompile(`^\+972(50|52|53|54|55|58)\d{7}$`)

type israeliMobile struct{}

// IsraeliMobile enforces the Israeli mobile dialing plan
var IsraeliMobile Policy = israeliMobile{}

func (israeliMobile) Name() string { return "il" }

func (israeliMobile) Normalize(raw string) string {
	p := stripSeparators(raw)
	if strings.HasPrefix(p, "0") {
		return "+972" + p[1:]
	}
	if !strings.HasPrefix(p, "+") {
		return "+972" + p
	}
	return p
}

func (israeliMobile) Validate(canonical string) bool {
	return israeliMobileRegex.MatchString(canonical)
}

func (israeliMobile) FormatHint() string {
	return "invalid Israeli mobile number, use the +972501234567 format"
}

type generic struct{}

// Generic accepts any number carrying an explicit country code. It is
// deliberately more permissive than the locale policies: multi-country
// deployments cannot assume a single dialing plan, so only the leading +
// is required.
var Generic Policy = generic{}

func (generic) Name() string { return "generic" }

func (generic) Normalize(raw string) string {
	return stripSeparators(raw)
}

func (generic) Validate(canonical string) bool {
	return strings.HasPrefix(canonical, "+")
}

func (generic) FormatHint() string {
	return "phone must start with + and the country code (e.g. +33612345678)"
}

// PolicyByName resolves a configured policy name
func PolicyByName(name string) (Policy, error) {
	switch name {
	case IsraeliMobile.Name():
		return IsraeliMobile, nil
	case Generic.Name():
		return Generic, nil
	default:
		return nil, fmt.Errorf("unknown phone policy: %q", name)
	}
}

// stripSeparators removes the whitespace and hyphens callers commonly type
func stripSeparators(raw string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
}

// SMSLocale picks the delivery language for a canonical number based on its
// region, falling back to English when the number cannot be parsed.
func SMSLocale(canonical string) string {
	num, err := phonenumbers.Parse(canonical, "")
	if err != nil {
		return "en"
	}
	switch phonenumbers.GetRegionCodeForNumber(num) {
	case "IL":
		return "he"
	case "FR":
		return "fr"
	case "BR":
		return "pt"
	default:
		return "en"
	}
}
