package domain

import "strings"

// Fingerprint is a derived device descriptor attached to a session at creation.
// It is compared, never mutated, on subsequent logins from the same principal.
type Fingerprint struct {
	AgentClass  string
	Platform    string
	Mobile      bool
	ScreenClass string
	Locale      string
	Timezone    string
}

// FingerprintComparison is the outcome of matching two device fingerprints.
type FingerprintComparison string

const (
	FingerprintMatch        FingerprintComparison = "match"
	FingerprintPartialMatch FingerprintComparison = "partial_match"
	FingerprintMismatch     FingerprintComparison = "mismatch"
)

// NormalizeFingerprint canonicalizes a raw descriptor so comparisons are stable
// across logins (case, surrounding whitespace).
func NormalizeFingerprint(fp Fingerprint) Fingerprint {
	return Fingerprint{
		AgentClass:  strings.ToLower(strings.TrimSpace(fp.AgentClass)),
		Platform:    strings.ToLower(strings.TrimSpace(fp.Platform)),
		Mobile:      fp.Mobile,
		ScreenClass: strings.ToLower(strings.TrimSpace(fp.ScreenClass)),
		Locale:      strings.ToLower(strings.TrimSpace(fp.Locale)),
		Timezone:    strings.TrimSpace(fp.Timezone),
	}
}

// Compare matches a stored fingerprint against an incoming one. The identity
// fields (agent class, platform, mobile) must all agree for a full match; if any
// of them differ the result is a mismatch. Environment fields (screen class,
// locale, timezone) downgrade a full match to a partial one. A mismatch never
// blocks login by itself; callers surface it as an anomaly signal.
func (f Fingerprint) Compare(incoming Fingerprint) FingerprintComparison {
	stored := NormalizeFingerprint(f)
	in := NormalizeFingerprint(incoming)

	if stored.AgentClass != in.AgentClass || stored.Platform != in.Platform || stored.Mobile != in.Mobile {
		return FingerprintMismatch
	}

	if stored.ScreenClass != in.ScreenClass || stored.Locale != in.Locale || stored.Timezone != in.Timezone {
		return FingerprintPartialMatch
	}

	return FingerprintMatch
}

// IsZero reports whether the fingerprint carries no information.
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}
