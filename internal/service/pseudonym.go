package service

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ticketlens/ticketlens/internal/core"
)

// Pseudonymizer builds a per-request bidirectional mapping between real
// identifiers and anonymous tokens. One instance lives for exactly one
// request and is never persisted or shared across tenants.
type Pseudonymizer struct {
	mu       sync.Mutex
	forward  map[string]string // real -> token
	backward map[string]string // token -> real
	counter  int
	scrubber core.Scrubber
}

// NewPseudonymizer creates a fresh pseudonymizer. The scrubber handles
// free-text PII beyond known identifiers and may be nil.
func NewPseudonymizer(scrubber core.Scrubber) *Pseudonymizer {
	return &Pseudonymizer{
		forward:  make(map[string]string),
		backward: make(map[string]string),
		scrubber: scrubber,
	}
}

// TokenFor returns the token for a real identifier, creating one on first
// sight. Tokens are stable for the lifetime of the request.
func (p *Pseudonymizer) TokenFor(real string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if token, ok := p.forward[real]; ok {
		return token
	}

	p.counter++
	token := fmt.Sprintf("Agent_%d", p.counter)
	p.forward[real] = token
	p.backward[token] = real
	return token
}

// RealFor resolves a token back to the real identifier. The model may echo
// a token it invented; unknown tokens resolve to a placeholder, never an
// error.
func (p *Pseudonymizer) RealFor(token string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if real, ok := p.backward[token]; ok {
		return real
	}
	return fmt.Sprintf("Unknown (%s)", token)
}

// Len returns the number of mapped identifiers.
func (p *Pseudonymizer) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.forward)
}

// ScrubText replaces all known real identifiers with their tokens and then
// runs the content scrubber over the result. Call TokenFor for every real
// identifier before scrubbing free text.
func (p *Pseudonymizer) ScrubText(text string) string {
	p.mu.Lock()
	text = replaceAllKeys(text, p.forward)
	p.mu.Unlock()

	if p.scrubber != nil {
		text = p.scrubber.Scrub(text)
	}
	return text
}

// RestoreText replaces tokens in model output with the real identifiers.
func (p *Pseudonymizer) RestoreText(text string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return replaceAllKeys(text, p.backward)
}

// replaceAllKeys substitutes every map key in the text with its value,
// longest keys first so that Agent_10 is never clobbered by Agent_1.
func replaceAllKeys(text string, mapping map[string]string) string {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, k := range keys {
		text = strings.ReplaceAll(text, k, mapping[k])
	}
	return text
}

// RestorePayload walks a decoded payload and restores tokens in every
// string value, including nested maps and slices.
func (p *Pseudonymizer) RestorePayload(payload map[string]interface{}) map[string]interface{} {
	if payload == nil {
		return nil
	}
	restored := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		restored[k] = p.restoreValue(v)
	}
	return restored
}

func (p *Pseudonymizer) restoreValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return p.RestoreText(val)
	case map[string]interface{}:
		return p.RestorePayload(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = p.restoreValue(item)
		}
		return out
	default:
		return v
	}
}

// ScrubRecord returns a copy of the record safe to send externally: the
// assignee replaced with a token and all free-text fields scrubbed.
func (p *Pseudonymizer) ScrubRecord(r core.Record) core.Record {
	out := r
	if r.AssignedTo != "" {
		out.AssignedTo = p.TokenFor(r.AssignedTo)
	}
	out.Subject = p.ScrubText(r.Subject)
	out.Description = p.ScrubText(r.Description)
	if len(r.Conversation) > 0 {
		out.Conversation = make([]core.ConversationTurn, len(r.Conversation))
		for i, turn := range r.Conversation {
			out.Conversation[i] = core.ConversationTurn{
				Sender:  turn.Sender,
				Message: p.ScrubText(turn.Message),
			}
		}
	}
	return out
}
