package forms

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
)

// RuleResult is the outcome of evaluating a single validation rule.
type RuleResult struct {
	OK      bool
	Message string
}

// CustomRule implements a named escape-hatch validator referenced by a custom rule's
// parameter.
type CustomRule func(value any) (bool, string)

// Evaluator interprets declarative validation rules. It has no side effects and never
// panics; a malformed or unrecognized rule fails closed rather than silently passing.
type Evaluator struct {
	custom map[string]CustomRule
}

// NewEvaluator builds an evaluator with no custom rules registered.
func NewEvaluator() *Evaluator {
	return &Evaluator{custom: make(map[string]CustomRule)}
}

// RegisterCustom makes a named validator available to rules of kind "custom".
func (e *Evaluator) RegisterCustom(name string, rule CustomRule) {
	e.custom[name] = rule
}

// Evaluate applies one rule to one value. Missing or empty values always pass length and
// pattern rules; required-ness is checked separately by the submission validator.
func (e *Evaluator) Evaluate(rule domain.ValidationRule, value any) RuleResult {
	switch rule.Kind {
	case domain.RuleMinLength:
		return e.evaluateMinLength(rule, value)
	case domain.RuleMaxLength:
		return e.evaluateMaxLength(rule, value)
	case domain.RulePattern:
		return e.evaluatePattern(rule, value)
	case domain.RuleRange:
		return e.evaluateRange(rule, value)
	case domain.RuleCustom:
		return e.evaluateCustom(rule, value)
	default:
		return RuleResult{OK: false, Message: fmt.Sprintf("unknown validation rule kind %q", rule.Kind)}
	}
}

func (e *Evaluator) evaluateMinLength(rule domain.ValidationRule, value any) RuleResult {
	if IsEmpty(value) {
		return RuleResult{OK: true}
	}
	min, err := strconv.Atoi(strings.TrimSpace(rule.Param))
	if err != nil {
		return RuleResult{OK: false, Message: fmt.Sprintf("invalid minLength parameter %q", rule.Param)}
	}
	if valueLength(value) < min {
		return RuleResult{OK: false, Message: ruleMessage(rule, fmt.Sprintf("must be at least %d characters", min))}
	}
	return RuleResult{OK: true}
}

func (e *Evaluator) evaluateMaxLength(rule domain.ValidationRule, value any) RuleResult {
	if IsEmpty(value) {
		return RuleResult{OK: true}
	}
	max, err := strconv.Atoi(strings.TrimSpace(rule.Param))
	if err != nil {
		return RuleResult{OK: false, Message: fmt.Sprintf("invalid maxLength parameter %q", rule.Param)}
	}
	if valueLength(value) > max {
		return RuleResult{OK: false, Message: ruleMessage(rule, fmt.Sprintf("must be at most %d characters", max))}
	}
	return RuleResult{OK: true}
}

// evaluatePattern requires the whole trimmed value to match, so email/phone style rules
// cannot pass on a partial match.
func (e *Evaluator) evaluatePattern(rule domain.ValidationRule, value any) RuleResult {
	if IsEmpty(value) {
		return RuleResult{OK: true}
	}
	re, err := regexp.Compile(`\A(?:` + rule.Param + `)\z`)
	if err != nil {
		return RuleResult{OK: false, Message: fmt.Sprintf("invalid pattern parameter %q", rule.Param)}
	}
	if !re.MatchString(strings.TrimSpace(coerceString(value))) {
		return RuleResult{OK: false, Message: ruleMessage(rule, "invalid format")}
	}
	return RuleResult{OK: true}
}

// evaluateRange parses the parameter as "min,max"; either bound may be omitted.
func (e *Evaluator) evaluateRange(rule domain.ValidationRule, value any) RuleResult {
	if IsEmpty(value) {
		return RuleResult{OK: true}
	}
	parts := strings.SplitN(rule.Param, ",", 2)
	if len(parts) != 2 {
		return RuleResult{OK: false, Message: fmt.Sprintf("invalid range parameter %q", rule.Param)}
	}
	num, ok := numericValue(value)
	if !ok {
		return RuleResult{OK: false, Message: ruleMessage(rule, "must be a number")}
	}
	if bound := strings.TrimSpace(parts[0]); bound != "" {
		min, err := strconv.ParseFloat(bound, 64)
		if err != nil {
			return RuleResult{OK: false, Message: fmt.Sprintf("invalid range parameter %q", rule.Param)}
		}
		if num < min {
			return RuleResult{OK: false, Message: ruleMessage(rule, fmt.Sprintf("must be at least %v", min))}
		}
	}
	if bound := strings.TrimSpace(parts[1]); bound != "" {
		max, err := strconv.ParseFloat(bound, 64)
		if err != nil {
			return RuleResult{OK: false, Message: fmt.Sprintf("invalid range parameter %q", rule.Param)}
		}
		if num > max {
			return RuleResult{OK: false, Message: ruleMessage(rule, fmt.Sprintf("must be at most %v", max))}
		}
	}
	return RuleResult{OK: true}
}

func (e *Evaluator) evaluateCustom(rule domain.ValidationRule, value any) RuleResult {
	custom, ok := e.custom[rule.Param]
	if !ok {
		return RuleResult{OK: false, Message: fmt.Sprintf("unknown custom validator %q", rule.Param)}
	}
	passed, message := custom(value)
	if passed {
		return RuleResult{OK: true}
	}
	return RuleResult{OK: false, Message: ruleMessage(rule, message)}
}

func ruleMessage(rule domain.ValidationRule, fallback string) string {
	if strings.TrimSpace(rule.Message) != "" {
		return rule.Message
	}
	return fallback
}
