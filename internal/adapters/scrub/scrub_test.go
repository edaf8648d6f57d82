package scrub

import (
	"strings"
	"testing"
)

func TestRegexScrubber_Scrub(t *testing.T) {
	s := NewRegexScrubber()

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "email",
			input: "Contact me at jane.doe@example.com please",
			want:  "Contact me at [EMAIL] please",
		},
		{
			name:  "phone",
			input: "Call +1 (555) 010-1234 tomorrow",
			want:  "Call [PHONE] tomorrow",
		},
		{
			name:  "card number",
			input: "My card 4111 1111 1111 1111 was declined",
			want:  "My card [CARD] was declined",
		},
		{
			name:  "ssn",
			input: "SSN is 123-45-6789 on file",
			want:  "SSN is [SSN] on file",
		},
		{
			name:  "ip address",
			input: "Login attempt from 203.0.113.7 blocked",
			want:  "Login attempt from [IP] blocked",
		},
		{
			name:  "iban",
			input: "Refund to DE89370400440532013000 pending",
			want:  "Refund to [ACCOUNT] pending",
		},
		{
			name:  "clean text untouched",
			input: "The export button is greyed out since the update.",
			want:  "The export button is greyed out since the update.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.Scrub(tc.input); got != tc.want {
				t.Errorf("Scrub(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestRegexScrubber_MultipleMatches(t *testing.T) {
	s := NewRegexScrubber()

	got := s.Scrub("Mail a@b.io or c@d.io")
	if strings.Contains(got, "@") {
		t.Errorf("emails survived: %s", got)
	}
	if strings.Count(got, "[EMAIL]") != 2 {
		t.Errorf("want both emails replaced: %s", got)
	}
}

func TestRegexScrubber_AddRule(t *testing.T) {
	s := NewRegexScrubber()
	if err := s.AddRule(`ORD-\d{6}`, "[ORDER]"); err != nil {
		t.Fatalf("AddRule() error = %v", err)
	}

	if got := s.Scrub("Order ORD-123456 is stuck"); got != "Order [ORDER] is stuck" {
		t.Errorf("Scrub() = %q", got)
	}

	if err := s.AddRule(`([`, "x"); err == nil {
		t.Error("invalid pattern should error")
	}
}
