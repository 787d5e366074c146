package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/support-desk/internal/domain"
)

func TestEvaluateMinLength(t *testing.T) {
	eval := NewEvaluator()
	rule := domain.ValidationRule{Kind: domain.RuleMinLength, Param: "5"}

	assert.False(t, eval.Evaluate(rule, "abc").OK)
	assert.True(t, eval.Evaluate(rule, "abcde").OK)
	// Empty values pass; required-ness is a separate check.
	assert.True(t, eval.Evaluate(rule, "").OK)
	assert.True(t, eval.Evaluate(rule, nil).OK)
	assert.True(t, eval.Evaluate(rule, "   ").OK)
}

func TestEvaluateMaxLength(t *testing.T) {
	eval := NewEvaluator()
	rule := domain.ValidationRule{Kind: domain.RuleMaxLength, Param: "3"}

	assert.True(t, eval.Evaluate(rule, "abc").OK)
	assert.False(t, eval.Evaluate(rule, "abcd").OK)
}

func TestEvaluateLengthCountsRunes(t *testing.T) {
	eval := NewEvaluator()
	rule := domain.ValidationRule{Kind: domain.RuleMaxLength, Param: "5"}

	// 5 runes but 6 bytes; byte counting would reject it.
	assert.True(t, eval.Evaluate(rule, "héllo").OK)
}

func TestEvaluateMalformedLengthParamFailsClosed(t *testing.T) {
	eval := NewEvaluator()
	rule := domain.ValidationRule{Kind: domain.RuleMinLength, Param: "five"}

	result := eval.Evaluate(rule, "abcdef")
	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "minLength")
}

func TestEvaluatePatternIsAnchored(t *testing.T) {
	eval := NewEvaluator()
	rule := domain.ValidationRule{Kind: domain.RulePattern, Param: `[A-Z]{2}-\d{4,6}`}

	assert.True(t, eval.Evaluate(rule, "AB-12345").OK)
	// A substring match must not pass.
	assert.False(t, eval.Evaluate(rule, "xxAB-12345yy").OK)
	assert.False(t, eval.Evaluate(rule, "ab-12345").OK)
	// Leading and trailing whitespace is trimmed before matching.
	assert.True(t, eval.Evaluate(rule, "  AB-12345  ").OK)
}

func TestEvaluatePatternInvalidRegexFailsClosed(t *testing.T) {
	eval := NewEvaluator()
	rule := domain.ValidationRule{Kind: domain.RulePattern, Param: `[unclosed`}

	assert.False(t, eval.Evaluate(rule, "anything").OK)
}

func TestEvaluateRange(t *testing.T) {
	eval := NewEvaluator()
	rule := domain.ValidationRule{Kind: domain.RuleRange, Param: "-10,50"}

	assert.True(t, eval.Evaluate(rule, float64(21)).OK)
	assert.True(t, eval.Evaluate(rule, "-10").OK)
	assert.True(t, eval.Evaluate(rule, 50).OK)
	assert.False(t, eval.Evaluate(rule, float64(-11)).OK)
	assert.False(t, eval.Evaluate(rule, "51").OK)
	assert.False(t, eval.Evaluate(rule, "not a number").OK)
}

func TestEvaluateRangeOpenBounds(t *testing.T) {
	eval := NewEvaluator()

	minOnly := domain.ValidationRule{Kind: domain.RuleRange, Param: "0,"}
	assert.True(t, eval.Evaluate(minOnly, 1000000).OK)
	assert.False(t, eval.Evaluate(minOnly, -1).OK)

	maxOnly := domain.ValidationRule{Kind: domain.RuleRange, Param: ",100"}
	assert.True(t, eval.Evaluate(maxOnly, -1000).OK)
	assert.False(t, eval.Evaluate(maxOnly, 101).OK)
}

func TestEvaluateRangeMalformedParamFailsClosed(t *testing.T) {
	eval := NewEvaluator()
	rule := domain.ValidationRule{Kind: domain.RuleRange, Param: "10"}

	assert.False(t, eval.Evaluate(rule, 15).OK)
}

func TestEvaluateCustom(t *testing.T) {
	eval := NewEvaluator()
	eval.RegisterCustom("even", func(value any) (bool, string) {
		num, ok := numericValue(value)
		if !ok || int(num)%2 != 0 {
			return false, "must be even"
		}
		return true, ""
	})

	rule := domain.ValidationRule{Kind: domain.RuleCustom, Param: "even"}
	assert.True(t, eval.Evaluate(rule, 4).OK)

	result := eval.Evaluate(rule, 5)
	assert.False(t, result.OK)
	assert.Equal(t, "must be even", result.Message)
}

func TestEvaluateUnknownCustomValidatorFailsClosed(t *testing.T) {
	eval := NewEvaluator()
	rule := domain.ValidationRule{Kind: domain.RuleCustom, Param: "never-registered"}

	result := eval.Evaluate(rule, "value")
	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "never-registered")
}

func TestEvaluateUnknownRuleKindFailsClosed(t *testing.T) {
	eval := NewEvaluator()
	rule := domain.ValidationRule{Kind: "shoutsAtYou", Param: ""}

	result := eval.Evaluate(rule, "value")
	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "shoutsAtYou")
}

func TestEvaluateCustomMessageOverridesDefault(t *testing.T) {
	eval := NewEvaluator()
	rule := domain.ValidationRule{
		Kind:    domain.RuleMinLength,
		Param:   "50",
		Message: "please describe the leak in at least 50 characters",
	}

	result := eval.Evaluate(rule, "small drip under sink")
	assert.False(t, result.OK)
	assert.Equal(t, "please describe the leak in at least 50 characters", result.Message)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty("   "))
	assert.True(t, IsEmpty([]string{}))
	assert.True(t, IsEmpty([]any{}))
	assert.False(t, IsEmpty("x"))
	assert.False(t, IsEmpty([]string{"a"}))
	assert.False(t, IsEmpty(0))
	assert.False(t, IsEmpty(false))
}
