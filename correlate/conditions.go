package correlate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"argus/core"
	"argus/util"
)

// predicate is one pure operator implementation. value is always non-nil
// by the time a predicate runs; MatchCondition handles absence.
type predicate func(value, filter interface{}) bool

// operatorPredicates is the closed dispatch table for rule condition
// operators. Unknown operators fail closed.
var operatorPredicates = map[core.ConditionOperator]predicate{
	core.OpEquals: func(value, filter interface{}) bool {
		return strings.EqualFold(asString(value), asString(filter))
	},
	core.OpContains: func(value, filter interface{}) bool {
		return strings.Contains(strings.ToLower(asString(value)), strings.ToLower(asString(filter)))
	},
	core.OpGt: func(value, filter interface{}) bool {
		v, f, ok := asNumbers(value, filter)
		return ok && v > f
	},
	core.OpLt: func(value, filter interface{}) bool {
		v, f, ok := asNumbers(value, filter)
		return ok && v < f
	},
	core.OpGte: func(value, filter interface{}) bool {
		v, f, ok := asNumbers(value, filter)
		return ok && v >= f
	},
	core.OpLte: func(value, filter interface{}) bool {
		v, f, ok := asNumbers(value, filter)
		return ok && v <= f
	},
	core.OpIn: func(value, filter interface{}) bool {
		needle := strings.ToLower(asString(value))
		for _, member := range strings.Split(asString(filter), ",") {
			if strings.ToLower(strings.TrimSpace(member)) == needle {
				return true
			}
		}
		return false
	},
	core.OpRegex: func(value, filter interface{}) bool {
		// Invalid patterns fail closed, never panic.
		return util.MatchCaseInsensitive(asString(filter), asString(value))
	},
}

// MatchCondition evaluates a single operator against a field value.
// Absent (nil) values fail every operator except exists, which reports
// presence.
func MatchCondition(value interface{}, op core.ConditionOperator, filter interface{}) bool {
	if op == core.OpExists {
		return value != nil
	}
	if value == nil {
		return false
	}
	p, ok := operatorPredicates[op]
	if !ok {
		return false
	}
	return p(value, filter)
}

// GetNestedValue resolves a dot path ("details.auth.attempts") in a nested
// map, returning nil at the first missing segment.
func GetNestedValue(obj map[string]interface{}, path string) interface{} {
	var current interface{} = obj
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
	}
	return current
}

// eventFieldValue resolves a condition field path against a security
// event. Top-level names address the event struct; everything else is
// resolved inside the details payload.
func eventFieldValue(event *core.SecurityEvent, path string) interface{} {
	head, rest, nested := strings.Cut(path, ".")

	switch head {
	case "id":
		return nonEmpty(event.ID)
	case "created_date":
		return event.CreatedDate.Format(time.RFC3339)
	case "event_type":
		return nonEmpty(event.EventType)
	case "severity":
		return nonEmpty(string(event.Severity))
	case "ip_address":
		return nonEmpty(event.IPAddress)
	case "user_email":
		return nonEmpty(event.UserEmail)
	case "message":
		return nonEmpty(event.Message)
	case "details":
		if event.Details == nil {
			return nil
		}
		if !nested {
			return event.Details
		}
		return GetNestedValue(event.Details, rest)
	default:
		if event.Details == nil {
			return nil
		}
		return GetNestedValue(event.Details, path)
	}
}

// nonEmpty maps empty strings to nil so absent optional fields behave as
// missing rather than matching empty-string comparisons.
func nonEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asNumbers(value, filter interface{}) (float64, float64, bool) {
	v, okV := asFloat(value)
	f, okF := asFloat(filter)
	return v, f, okV && okF
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
