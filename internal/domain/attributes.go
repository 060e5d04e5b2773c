package domain

import (
	"math"
	"regexp"
	"strconv"
)

const DefaultAttributeValue = 0.5

type PersonaAttributes struct {
	Talkativeness float64
	ReplyRate     float64
}

var (
	talkativenessPatterns = []*regexp.Regexp{
		regexp.MustCompile(`活跃度\s*[(（]talkativeness[)）]\s*[:：]\s*([0-9.]+)`),
		regexp.MustCompile(`(?i)talkativeness[)）]?\s*[:：]\s*([0-9.]+)`),
	}
	replyRatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`回复率\s*[(（]reply_rate[)）]\s*[:：]\s*([0-9.]+)`),
		regexp.MustCompile(`(?i)reply_rate[)）]?\s*[:：]\s*([0-9.]+)`),
	}
)

// ParseAttributes extracts the labeled numeric fields of a persona profile.
// A missing field or a capture that is not a finite number yields
// DefaultAttributeValue; values outside [0,1] are clamped.
func ParseAttributes(profile string) PersonaAttributes {
	return PersonaAttributes{
		Talkativeness: extractField(profile, talkativenessPatterns),
		ReplyRate:     extractField(profile, replyRatePatterns),
	}
}

func extractField(profile string, patterns []*regexp.Regexp) float64 {
	if profile == "" {
		return DefaultAttributeValue
	}

	for _, pattern := range patterns {
		match := pattern.FindStringSubmatch(profile)
		if match == nil {
			continue
		}
		value, err := strconv.ParseFloat(match[1], 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			return DefaultAttributeValue
		}
		return clampUnit(value)
	}

	return DefaultAttributeValue
}

func clampUnit(value float64) float64 {
	switch {
	case value < 0:
		return 0
	case value > 1:
		return 1
	default:
		return value
	}
}
