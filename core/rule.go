package core

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Correlation key types supported by rules.
const (
	CorrelationKeyIP   = "ip_address"
	CorrelationKeyUser = "user_email"
)

// Default rule parameters applied when fields are unset.
const (
	DefaultRulePriority      = 50
	DefaultTimeWindowMinutes = 15
	DefaultOutputSeverity    = SeverityHigh
)

// ConditionOperator is the closed set of operators a rule condition may use.
type ConditionOperator string

const (
	OpEquals   ConditionOperator = "equals"
	OpContains ConditionOperator = "contains"
	OpGt       ConditionOperator = "gt"
	OpLt       ConditionOperator = "lt"
	OpGte      ConditionOperator = "gte"
	OpLte      ConditionOperator = "lte"
	OpIn       ConditionOperator = "in"
	OpRegex    ConditionOperator = "regex"
	OpExists   ConditionOperator = "exists"
)

// AllConditionOperators lists every valid operator, for validation.
var AllConditionOperators = []ConditionOperator{
	OpEquals, OpContains, OpGt, OpLt, OpGte, OpLte, OpIn, OpRegex, OpExists,
}

// IsValid checks if the operator is a member of the closed set.
func (o ConditionOperator) IsValid() bool {
	for _, valid := range AllConditionOperators {
		if o == valid {
			return true
		}
	}
	return false
}

// RuleCondition filters the candidate event set for one correlation key.
// Conditions compose as a narrowing pipeline: each condition filters the
// output of the previous one, not the raw candidate set.
type RuleCondition struct {
	Source   string            `json:"source" bson:"source" validate:"required" yaml:"source"`
	Field    string            `json:"field" bson:"field" validate:"required" yaml:"field"`
	Operator ConditionOperator `json:"operator" bson:"operator" validate:"required" yaml:"operator"`
	Value    interface{}       `json:"value,omitempty" bson:"value,omitempty" yaml:"value"`
	Required bool              `json:"required" bson:"required" yaml:"required"`
}

// RuleThreshold sets minimum-count and minimum-unique-value requirements.
type RuleThreshold struct {
	Count       int    `json:"count,omitempty" bson:"count,omitempty" validate:"gte=0" yaml:"count"`
	UniqueField string `json:"unique_field,omitempty" bson:"unique_field,omitempty" yaml:"unique_field"`
	UniqueCount int    `json:"unique_count,omitempty" bson:"unique_count,omitempty" validate:"gte=0" yaml:"unique_count"`
}

// SequenceStep is one ordered stage of a sequence rule. A step matches the
// first subsequent event whose type contains EventType (case-insensitive),
// whose severity is at least SeverityMin, and whose gap from the previous
// matched step does not exceed MaxGapMinutes.
type SequenceStep struct {
	EventType     string   `json:"event_type,omitempty" bson:"event_type,omitempty" yaml:"event_type"`
	SeverityMin   Severity `json:"severity_min,omitempty" bson:"severity_min,omitempty" yaml:"severity_min"`
	MaxGapMinutes float64  `json:"max_gap_minutes,omitempty" bson:"max_gap_minutes,omitempty" validate:"gte=0" yaml:"max_gap_minutes"`
}

// PatternTypeSequence marks a rule as an ordered sequence detection.
const PatternTypeSequence = "sequence"

// CorrelationRule is a configurable detection rule evaluated per
// correlation key over a bounded window of recent events.
type CorrelationRule struct {
	ID              string          `json:"id" bson:"_id" yaml:"id"`
	Name            string          `json:"name" bson:"name" validate:"required" yaml:"name"`
	Description     string          `json:"description,omitempty" bson:"description,omitempty" yaml:"description"`
	Enabled         bool            `json:"enabled" bson:"enabled" yaml:"enabled"`
	Priority        int             `json:"priority" bson:"priority" yaml:"priority"`
	CorrelationKeys []string        `json:"correlation_keys,omitempty" bson:"correlation_keys,omitempty" validate:"dive,oneof=ip_address user_email" yaml:"correlation_keys"`
	TimeWindowMin   int             `json:"time_window_minutes,omitempty" bson:"time_window_minutes,omitempty" validate:"gte=0" yaml:"time_window_minutes"`
	Conditions      []RuleCondition `json:"conditions,omitempty" bson:"conditions,omitempty" validate:"dive" yaml:"conditions"`
	Threshold       *RuleThreshold  `json:"threshold,omitempty" bson:"threshold,omitempty" yaml:"threshold"`
	PatternType     string          `json:"pattern_type,omitempty" bson:"pattern_type,omitempty" validate:"omitempty,oneof=sequence" yaml:"pattern_type"`
	Sequence        []SequenceStep  `json:"sequence,omitempty" bson:"sequence,omitempty" validate:"dive" yaml:"sequence"`
	OutputSeverity  Severity        `json:"output_severity,omitempty" bson:"output_severity,omitempty" validate:"omitempty,oneof=info low medium high critical" yaml:"output_severity"`
	MitreTechniques []string        `json:"mitre_techniques,omitempty" bson:"mitre_techniques,omitempty" yaml:"mitre_techniques"`
	TriggerCount    int64           `json:"trigger_count" bson:"trigger_count" yaml:"trigger_count"`
	LastTriggered   time.Time       `json:"last_triggered,omitempty" bson:"last_triggered,omitempty" yaml:"last_triggered"`
}

// EffectivePriority returns the rule priority, defaulting when unset.
// Lower priority evaluates first.
func (r *CorrelationRule) EffectivePriority() int {
	if r.Priority == 0 {
		return DefaultRulePriority
	}
	return r.Priority
}

// EffectiveTimeWindow returns the rule's sliding time window.
func (r *CorrelationRule) EffectiveTimeWindow() time.Duration {
	minutes := r.TimeWindowMin
	if minutes <= 0 {
		minutes = DefaultTimeWindowMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// EffectiveKeys returns the declared correlation keys, defaulting to
// ip_address when the rule declares none.
func (r *CorrelationRule) EffectiveKeys() []string {
	if len(r.CorrelationKeys) == 0 {
		return []string{CorrelationKeyIP}
	}
	return r.CorrelationKeys
}

// EffectiveOutputSeverity returns the configured output severity or the default.
func (r *CorrelationRule) EffectiveOutputSeverity() Severity {
	if r.OutputSeverity == "" {
		return DefaultOutputSeverity
	}
	return r.OutputSeverity
}

// IsSequence reports whether the rule performs ordered sequence detection.
func (r *CorrelationRule) IsSequence() bool {
	return r.PatternType == PatternTypeSequence && len(r.Sequence) > 0
}

var ruleValidator = validator.New()

// Validate checks rule structure before evaluation. Invalid rules are
// skipped by the engine rather than failing the run.
func (r *CorrelationRule) Validate() error {
	if err := ruleValidator.Struct(r); err != nil {
		return fmt.Errorf("invalid correlation rule %q: %w", r.ID, err)
	}
	for i, c := range r.Conditions {
		if !c.Operator.IsValid() {
			return fmt.Errorf("invalid correlation rule %q: condition %d has unknown operator %q", r.ID, i, c.Operator)
		}
	}
	return nil
}
