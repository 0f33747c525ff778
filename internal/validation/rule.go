// Package validation checks untrusted input against declarative rules and
// returns the input with the rules' coercions applied.
//
// Rules are immutable values. Every modifier returns a copy, so a base schema
// can be shared between goroutines and derived per call without leaking
// state between callers.
package validation

import (
	"regexp"
)

type kind int

const (
	kindAny kind = iota
	kindString
	kindEmail
	kindNumber
	kindBoolean
	kindDate
	kindObjectID
	kindArray
	kindObject
)

type presence int

const (
	presenceOptional presence = iota
	presenceRequired
	presenceForbidden
)

type stringCheck struct {
	ok      func(string) bool
	message string
}

// Rule describes one value. Build rules with the constructors below and
// chain modifiers; each modifier returns a new Rule.
type Rule struct {
	kind       kind
	presence   presence
	nullable   bool
	allowEmpty bool
	trim       bool
	lowercase  bool
	integer    bool
	unique     bool
	min        *float64
	max        *float64
	pattern    *regexp.Regexp
	patternMsg string
	oneOf      []string
	checks     []stringCheck
	items      *Rule
	keys       Fields
}

// Fields maps field names to rules and validates a JSON object.
type Fields map[string]Rule

func Any() Rule      { return Rule{kind: kindAny} }
func String() Rule   { return Rule{kind: kindString} }
func Email() Rule    { return Rule{kind: kindEmail, trim: true} }
func Number() Rule   { return Rule{kind: kindNumber} }
func Boolean() Rule  { return Rule{kind: kindBoolean} }
func Date() Rule     { return Rule{kind: kindDate} }
func ObjectID() Rule { return Rule{kind: kindObjectID} }

func Array(items Rule) Rule {
	return Rule{kind: kindArray, items: &items}
}

func Object(keys Fields) Rule {
	return Rule{kind: kindObject, keys: keys}
}

func (r Rule) Required() Rule {
	r.presence = presenceRequired
	return r
}

func (r Rule) Forbidden() Rule {
	r.presence = presenceForbidden
	return r
}

func (r Rule) Optional() Rule {
	r.presence = presenceOptional
	return r
}

// Nullable accepts an explicit JSON null.
func (r Rule) Nullable() Rule {
	r.nullable = true
	return r
}

func (r Rule) AllowEmpty() Rule {
	r.allowEmpty = true
	return r
}

func (r Rule) Trim() Rule {
	r.trim = true
	return r
}

func (r Rule) Lowercase() Rule {
	r.lowercase = true
	return r
}

func (r Rule) Integer() Rule {
	r.integer = true
	return r
}

// Unique drops repeated array items, keeping the first occurrence.
func (r Rule) Unique() Rule {
	r.unique = true
	return r
}

// Min bounds string length, array length, or numeric value depending on kind.
func (r Rule) Min(n float64) Rule {
	r.min = &n
	return r
}

func (r Rule) Max(n float64) Rule {
	r.max = &n
	return r
}

func (r Rule) Pattern(re *regexp.Regexp, message string) Rule {
	r.pattern = re
	r.patternMsg = message
	return r
}

func (r Rule) OneOf(values ...string) Rule {
	r.oneOf = append([]string(nil), values...)
	return r
}

// Check adds a string predicate; message follows the quoted field label.
func (r Rule) Check(ok func(string) bool, message string) Rule {
	checks := make([]stringCheck, 0, len(r.checks)+1)
	checks = append(checks, r.checks...)
	r.checks = append(checks, stringCheck{ok: ok, message: message})
	return r
}

func (r Rule) Keys(keys Fields) Rule {
	r.keys = keys
	return r
}

// Options carry the per-call adjustments of a Fields schema.
type Options struct {
	Required     []string
	Forbidden    []string
	AllowUnknown bool
}

// derive builds a fresh Fields for one call; f itself is never written.
func (f Fields) derive(opts Options) Fields {
	out := make(Fields, len(f)+len(opts.Required)+len(opts.Forbidden))
	for key, rule := range f {
		out[key] = rule
	}
	for _, key := range opts.Required {
		rule, ok := out[key]
		if !ok {
			rule = Any()
		}
		out[key] = rule.Required()
	}
	for _, key := range opts.Forbidden {
		rule, ok := out[key]
		if !ok {
			rule = Any()
		}
		out[key] = rule.Forbidden()
	}
	return out
}
