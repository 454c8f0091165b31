package diff

import "strings"

// severityVocabulary maps every severity word the oracle is known to emit to
// its canonical value. Keys are lower-case.
var severityVocabulary = map[string]Severity{
	"info":     SeverityInfo,
	"minor":    SeverityInfo,
	"low":      SeverityInfo,
	"none":     SeverityInfo,
	"warning":  SeverityWarning,
	"moderate": SeverityWarning,
	"medium":   SeverityWarning,
	"critical": SeverityCritical,
	"high":     SeverityCritical,
	"fatal":    SeverityCritical,
	"severe":   SeverityCritical,
}

// DefaultSeverity is used for any severity word missing from the table.
const DefaultSeverity = SeverityWarning

// DefaultChangeType is used for an unrecognised change type.
const DefaultChangeType = ChangeFactual

// DefaultChangeLevel is used for an unrecognised summary level.
const DefaultChangeLevel = LevelModerate

// NormalizeSeverity maps raw to a canonical Severity, ignoring case and
// surrounding whitespace. Unknown values map to DefaultSeverity.
func NormalizeSeverity(raw string) Severity {
	if s, ok := severityVocabulary[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return DefaultSeverity
}

// NormalizeChangeType upper-cases raw and maps unknown values to
// DefaultChangeType.
func NormalizeChangeType(raw string) ChangeType {
	switch t := ChangeType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case ChangeFactual, ChangeTone, ChangeOmission, ChangeAddition, ChangeFormatting:
		return t
	}
	return DefaultChangeType
}

// NormalizeChangeLevel upper-cases raw and maps unknown values to
// DefaultChangeLevel.
func NormalizeChangeLevel(raw string) ChangeLevel {
	l := ChangeLevel(strings.ToUpper(strings.TrimSpace(raw)))
	if l.Rank() < 0 {
		return DefaultChangeLevel
	}
	return l
}
