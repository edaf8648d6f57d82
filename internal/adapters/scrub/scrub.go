package scrub

import (
	"regexp"
)

// RegexScrubber removes customer PII from free text before it leaves the
// process. Unlike the log sanitizer, the placeholders here are typed so
// the model can still reason about what kind of value was removed.
type RegexScrubber struct {
	rules []rule
}

type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// NewRegexScrubber creates a scrubber with the default PII rules.
func NewRegexScrubber() *RegexScrubber {
	return &RegexScrubber{rules: defaultRules()}
}

func defaultRules() []rule {
	specs := []struct {
		pattern     string
		placeholder string
	}{
		// Email addresses
		{`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, "[EMAIL]"},
		// Credit-card-shaped digit runs, before the phone rule so the
		// longer digit pattern wins.
		{`\b(?:\d[ -]?){13,16}\b`, "[CARD]"},
		// US social security numbers
		{`\b\d{3}-\d{2}-\d{4}\b`, "[SSN]"},
		// IBAN-shaped account numbers
		{`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`, "[ACCOUNT]"},
		// IPv4 addresses
		{`\b(?:\d{1,3}\.){3}\d{1,3}\b`, "[IP]"},
		// Phone numbers last: the pattern is broad enough to swallow the
		// digit runs the rules above classify more precisely.
		{`\+?\d[\d\s().-]{7,}\d`, "[PHONE]"},
	}

	rules := make([]rule, 0, len(specs))
	for _, s := range specs {
		rules = append(rules, rule{
			pattern:     regexp.MustCompile(s.pattern),
			placeholder: s.placeholder,
		})
	}
	return rules
}

// Scrub replaces every PII match with its typed placeholder.
func (s *RegexScrubber) Scrub(text string) string {
	result := text
	for _, r := range s.rules {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// AddRule appends a custom pattern with its placeholder.
func (s *RegexScrubber) AddRule(pattern, placeholder string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.rules = append(s.rules, rule{pattern: re, placeholder: placeholder})
	return nil
}
