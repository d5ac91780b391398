package correlate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"argus/core"
)

func TestMatchConditionOperators(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		op     core.ConditionOperator
		filter interface{}
		want   bool
	}{
		{"equals case-insensitive", "Failed_Login", core.OpEquals, "failed_login", true},
		{"equals mismatch", "failed_login", core.OpEquals, "success", false},
		{"contains", "multiple failed login attempts", core.OpContains, "Failed Login", true},
		{"contains mismatch", "port scan", core.OpContains, "login", false},
		{"gt numeric", 7, core.OpGt, 5, true},
		{"gt numeric string", "10", core.OpGt, "9", true},
		{"gt non-numeric", "abc", core.OpGt, 5, false},
		{"lt", 3.5, core.OpLt, 4, true},
		{"gte equal", 5, core.OpGte, 5, true},
		{"lte above", 6, core.OpLte, 5, false},
		{"in member", "ssh", core.OpIn, "rdp, ssh, vnc", true},
		{"in non-member", "http", core.OpIn, "rdp, ssh", false},
		{"regex match", "admin@corp.example", core.OpRegex, `^admin@`, true},
		{"regex no match", "user@corp.example", core.OpRegex, `^admin@`, false},
		{"regex invalid pattern fails closed", "anything", core.OpRegex, `([a-`, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchCondition(tc.value, tc.op, tc.filter))
		})
	}
}

func TestMatchConditionExists(t *testing.T) {
	assert.True(t, MatchCondition("present", core.OpExists, nil))
	assert.True(t, MatchCondition(0, core.OpExists, nil))
	assert.False(t, MatchCondition(nil, core.OpExists, nil))
}

func TestMatchConditionNilValue(t *testing.T) {
	for _, op := range []core.ConditionOperator{
		core.OpEquals, core.OpContains, core.OpGt, core.OpLt,
		core.OpGte, core.OpLte, core.OpIn, core.OpRegex,
	} {
		assert.False(t, MatchCondition(nil, op, "x"), "operator %s must fail on absent value", op)
	}
}

func TestMatchConditionUnknownOperatorFailsClosed(t *testing.T) {
	assert.False(t, MatchCondition("value", core.ConditionOperator("between"), "a,b"))
}

func TestGetNestedValue(t *testing.T) {
	obj := map[string]interface{}{
		"auth": map[string]interface{}{
			"attempts": 7,
			"method":   "password",
		},
	}

	assert.Equal(t, 7, GetNestedValue(obj, "auth.attempts"))
	assert.Equal(t, "password", GetNestedValue(obj, "auth.method"))
	assert.Nil(t, GetNestedValue(obj, "auth.missing"))
	assert.Nil(t, GetNestedValue(obj, "missing.path"))
	assert.Nil(t, GetNestedValue(obj, "auth.method.deeper"))
}

func TestEventFieldValue(t *testing.T) {
	event := &core.SecurityEvent{
		ID:        "ev-1",
		EventType: "failed_login",
		Severity:  core.SeverityHigh,
		IPAddress: "10.0.0.5",
		Message:   "failed login for admin",
		Details: map[string]interface{}{
			"attempts": 3,
			"geo":      map[string]interface{}{"country": "RO"},
		},
		CreatedDate: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, "failed_login", eventFieldValue(event, "event_type"))
	assert.Equal(t, "high", eventFieldValue(event, "severity"))
	assert.Equal(t, "10.0.0.5", eventFieldValue(event, "ip_address"))
	assert.Equal(t, 3, eventFieldValue(event, "details.attempts"))
	assert.Equal(t, "RO", eventFieldValue(event, "details.geo.country"))
	assert.Equal(t, 3, eventFieldValue(event, "attempts"), "bare paths fall through to details")
	assert.Nil(t, eventFieldValue(event, "user_email"), "empty optional fields read as absent")
	assert.Nil(t, eventFieldValue(event, "details.nope"))
}
