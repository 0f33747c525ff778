package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"postura/api/internal/apperr"
)

// Schema is either a single Rule or a Fields mapping.
type Schema interface {
	validateRoot(input any, opts Options) (any, error)
}

var emailChecker = validator.New()

// Validate checks input against schema and returns the normalized value.
// The first failing field produces an apperr validation error.
func Validate(input any, schema Schema, opts Options) (any, error) {
	return schema.validateRoot(input, opts)
}

// ValidateMap is Validate for object schemas.
func ValidateMap(input map[string]any, fields Fields, opts Options) (map[string]any, error) {
	out, err := fields.validateRoot(input, opts)
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

// Decode copies a normalized map into a typed struct using its json tags.
func Decode(normalized any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  out,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := decoder.Decode(normalized); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}

func (r Rule) validateRoot(input any, opts Options) (any, error) {
	out, _, err := r.apply("value", input, true, opts.AllowUnknown)
	return out, err
}

func (f Fields) validateRoot(input any, opts Options) (any, error) {
	return validateObject("", f.derive(opts), input, opts.AllowUnknown)
}

func fail(label, format string, args ...any) error {
	return apperr.Validation(fmt.Sprintf("%q ", label) + fmt.Sprintf(format, args...))
}

func join(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func validateObject(label string, fields Fields, input any, allowUnknown bool) (any, error) {
	obj, ok := input.(map[string]any)
	if !ok {
		if label == "" {
			label = "value"
		}
		return nil, fail(label, "must be an object")
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(obj))
	for _, key := range keys {
		value, present := obj[key]
		normalized, keep, err := fields[key].apply(join(label, key), value, present, allowUnknown)
		if err != nil {
			return nil, err
		}
		if keep {
			out[key] = normalized
		}
	}

	if !allowUnknown {
		unknown := make([]string, 0)
		for key := range obj {
			if _, ok := fields[key]; !ok {
				unknown = append(unknown, key)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return nil, fail(join(label, unknown[0]), "is not allowed")
		}
	} else {
		for key, value := range obj {
			if _, ok := fields[key]; !ok {
				out[key] = value
			}
		}
	}
	return out, nil
}

// apply validates one value. keep reports whether the value belongs in the
// normalized output (absent optional fields are left out).
func (r Rule) apply(label string, value any, present bool, allowUnknown bool) (any, bool, error) {
	switch r.presence {
	case presenceForbidden:
		if present {
			return nil, false, fail(label, "is not allowed")
		}
		return nil, false, nil
	case presenceRequired:
		if !present {
			return nil, false, fail(label, "is required")
		}
	default:
		if !present {
			return nil, false, nil
		}
	}

	if value == nil {
		if r.nullable || r.kind == kindAny {
			return nil, true, nil
		}
		return nil, false, fail(label, "must not be null")
	}

	var (
		out any
		err error
	)
	switch r.kind {
	case kindString:
		out, err = r.applyString(label, value)
	case kindEmail:
		out, err = r.applyEmail(label, value)
	case kindNumber:
		out, err = r.applyNumber(label, value)
	case kindBoolean:
		out, err = applyBoolean(label, value)
	case kindDate:
		out, err = applyDate(label, value)
	case kindObjectID:
		out, err = applyObjectID(label, value)
	case kindArray:
		out, err = r.applyArray(label, value, allowUnknown)
	case kindObject:
		if r.keys == nil {
			if _, ok := value.(map[string]any); !ok {
				return nil, false, fail(label, "must be an object")
			}
			out = value
			break
		}
		out, err = validateObject(label, r.keys, value, allowUnknown)
	default:
		out = value
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (r Rule) applyString(label string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fail(label, "must be a string")
	}
	if r.trim {
		s = strings.TrimSpace(s)
	}
	if r.lowercase {
		s = strings.ToLower(s)
	}
	if s == "" {
		if r.allowEmpty {
			return s, nil
		}
		return "", fail(label, "is not allowed to be empty")
	}

	length := float64(utf8.RuneCountInString(s))
	if r.min != nil && length < *r.min {
		return "", fail(label, "length must be at least %d characters long", int(*r.min))
	}
	if r.max != nil && length > *r.max {
		return "", fail(label, "length must be less than or equal to %d characters long", int(*r.max))
	}
	if r.pattern != nil && !r.pattern.MatchString(s) {
		if r.patternMsg != "" {
			return "", fail(label, "%s", r.patternMsg)
		}
		return "", fail(label, "fails to match the required pattern")
	}
	if len(r.oneOf) > 0 {
		matched := false
		for _, allowed := range r.oneOf {
			if s == allowed {
				matched = true
				break
			}
		}
		if !matched {
			return "", fail(label, "must be one of [%s]", strings.Join(r.oneOf, ", "))
		}
	}
	for _, check := range r.checks {
		if !check.ok(s) {
			return "", fail(label, "%s", check.message)
		}
	}
	return s, nil
}

func (r Rule) applyEmail(label string, value any) (string, error) {
	s, err := r.applyString(label, value)
	if err != nil {
		return "", err
	}
	if emailChecker.Var(s, "email") != nil {
		return "", fail(label, "must be a valid email")
	}
	return s, nil
}

func (r Rule) applyNumber(label string, value any) (any, error) {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return nil, fail(label, "must be a number")
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fail(label, "must be a number")
		}
		n = parsed
	default:
		return nil, fail(label, "must be a number")
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, fail(label, "must be a number")
	}
	if r.integer && n != math.Trunc(n) {
		return nil, fail(label, "must be an integer")
	}
	if r.min != nil && n < *r.min {
		return nil, fail(label, "must be greater than or equal to %s", formatNumber(*r.min))
	}
	if r.max != nil && n > *r.max {
		return nil, fail(label, "must be less than or equal to %s", formatNumber(*r.max))
	}
	if r.integer {
		return int(n), nil
	}
	return n, nil
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func applyBoolean(label string, value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, fail(label, "must be a boolean")
}

func applyDate(label string, value any) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		s := strings.TrimSpace(v)
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC(), nil
		}
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t.UTC(), nil
		}
	case float64:
		return time.UnixMilli(int64(v)).UTC(), nil
	}
	return time.Time{}, fail(label, "must be a valid date")
}

func applyObjectID(label string, value any) (primitive.ObjectID, error) {
	switch v := value.(type) {
	case primitive.ObjectID:
		return v, nil
	case string:
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(v))
		if err == nil {
			return id, nil
		}
	}
	return primitive.NilObjectID, fail(label, "must be a valid id")
}

func (r Rule) applyArray(label string, value any, allowUnknown bool) (any, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, fail(label, "must be an array")
	}

	out := make([]any, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		itemLabel := fmt.Sprintf("%s[%d]", label, i)
		normalized := item
		if r.items != nil {
			rule := r.items.Optional()
			var err error
			normalized, _, err = rule.apply(itemLabel, item, true, allowUnknown)
			if err != nil {
				return nil, err
			}
		}
		if r.unique {
			key := uniqueKey(normalized)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, normalized)
	}

	if r.min != nil && float64(len(out)) < *r.min {
		return nil, fail(label, "must contain at least %d items", int(*r.min))
	}
	if r.max != nil && float64(len(out)) > *r.max {
		return nil, fail(label, "must contain less than or equal to %d items", int(*r.max))
	}
	return out, nil
}

func uniqueKey(v any) string {
	if id, ok := v.(primitive.ObjectID); ok {
		return id.Hex()
	}
	return fmt.Sprintf("%T:%v", v, v)
}
