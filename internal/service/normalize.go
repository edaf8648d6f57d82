package service

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ticketlens/ticketlens/internal/core"
)

// ResponseShape is the detected structure of a raw backend response.
type ResponseShape int

const (
	// ShapeUnknown means the response matched no known envelope.
	ShapeUnknown ResponseShape = iota
	// ShapeObject is a direct JSON object payload.
	ShapeObject
	// ShapeArray is a direct JSON array payload.
	ShapeArray
	// ShapeMessageEnvelope wraps the payload text inside a message/content
	// envelope, the way chat-completion backends respond.
	ShapeMessageEnvelope
)

// String returns the shape name.
func (s ResponseShape) String() string {
	switch s {
	case ShapeObject:
		return "object"
	case ShapeArray:
		return "array"
	case ShapeMessageEnvelope:
		return "message_envelope"
	default:
		return "unknown"
	}
}

// Payload is the normalized structured output of a model call. Exactly one
// of Object or Array is populated depending on the requested shape.
type Payload struct {
	Shape  ResponseShape
	Object map[string]interface{}
	Array  []map[string]interface{}
}

// Normalizer turns heterogeneous raw responses into structured payloads.
// It is deterministic and side-effect-free.
type Normalizer struct{}

// NewNormalizer creates a normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// messageEnvelope mirrors the chat-completion wrappers observed in the
// wild: either choices[].message.content or a top-level content list of
// typed segments.
type messageEnvelope struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Content json.RawMessage `json:"content"`
	Message *struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

type contentSegment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// DetectShape classifies a raw response body without fully decoding it.
func DetectShape(body []byte) ResponseShape {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ShapeUnknown
	}
	switch trimmed[0] {
	case '[':
		return ShapeArray
	case '{':
		var env messageEnvelope
		if err := json.Unmarshal([]byte(trimmed), &env); err == nil {
			if len(env.Choices) > 0 || env.Message != nil || len(env.Content) > 0 {
				return ShapeMessageEnvelope
			}
		}
		return ShapeObject
	default:
		return ShapeUnknown
	}
}

// Normalize extracts a structured payload of the expected shape from a raw
// response, applying the JSON repair pipeline when a direct parse fails.
func (n *Normalizer) Normalize(raw *core.RawResponse, want core.OutputShape) (*Payload, error) {
	text := n.candidateText(raw)
	if strings.TrimSpace(text) == "" {
		return nil, core.ErrUnparseable("empty response body", string(raw.Body))
	}

	text = stripCodeFence(text)

	payload, err := parseAs(text, want)
	if err == nil {
		return payload, nil
	}

	repaired := RepairJSON(text)
	payload, err = parseAs(repaired, want)
	if err == nil {
		return payload, nil
	}

	uerr := core.ErrUnparseable("response did not match expected shape "+string(want), text)
	uerr.WithDetail("repaired", core.Truncate(repaired, 500))
	return nil, uerr
}

// candidateText picks the text to parse: an adapter-extracted segment if
// present, the first text segment of a message envelope, or the raw body.
func (n *Normalizer) candidateText(raw *core.RawResponse) string {
	if raw.Text != "" {
		return raw.Text
	}

	body := raw.Body
	if DetectShape(body) != ShapeMessageEnvelope {
		return string(body)
	}

	var env messageEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return string(body)
	}

	if len(env.Choices) > 0 && env.Choices[0].Message.Content != "" {
		return env.Choices[0].Message.Content
	}

	content := env.Content
	if env.Message != nil && len(env.Message.Content) > 0 {
		content = env.Message.Content
	}
	if len(content) > 0 {
		// Content may be a plain string or a list of typed segments.
		var s string
		if err := json.Unmarshal(content, &s); err == nil {
			return s
		}
		var segments []contentSegment
		if err := json.Unmarshal(content, &segments); err == nil {
			for _, seg := range segments {
				if seg.Type == "" || seg.Type == "text" {
					if seg.Text != "" {
						return seg.Text
					}
				}
			}
		}
	}

	return string(body)
}

// parseAs decodes text into the expected shape. A payload that parses but
// has the wrong element types (e.g. an array of strings) is rejected.
func parseAs(text string, want core.OutputShape) (*Payload, error) {
	trimmed := strings.TrimSpace(text)

	switch want {
	case core.ShapeFragmentArray:
		var arr []map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &arr); err != nil {
			return nil, err
		}
		return &Payload{Shape: ShapeArray, Array: arr}, nil
	default:
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
			return nil, err
		}
		return &Payload{Shape: ShapeObject, Object: obj}, nil
	}
}

// Fragments decodes an array payload into analysis fragments. Elements
// without a usable numeric id are rejected.
func (p *Payload) Fragments() ([]core.AnalysisFragment, error) {
	if p.Shape != ShapeArray {
		return nil, core.ErrUnparseable("expected an array payload, got "+p.Shape.String(), "")
	}

	buf, err := json.Marshal(p.Array)
	if err != nil {
		return nil, core.ErrUnparseable("re-encoding payload failed", "").WithCause(err)
	}

	var fragments []core.AnalysisFragment
	if err := json.Unmarshal(buf, &fragments); err != nil {
		return nil, core.ErrUnparseable("payload elements are not fragments", string(buf)).WithCause(err)
	}

	for i, f := range fragments {
		if f.RecordID == 0 {
			return nil, core.ErrUnparseable("fragment missing record id", "").WithDetail("index", i)
		}
	}
	return fragments, nil
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

var (
	trailingCommaRe  = regexp.MustCompile(`,\s*([}\]])`)
	adjacentObjectRe = regexp.MustCompile(`}\s*{`)
)

// RepairJSON applies the named repair steps once each, in fixed order:
// strip trailing commas, join adjacent objects missing a separator, then
// close a truncated array at the last complete object boundary.
func RepairJSON(text string) string {
	repaired := stripTrailingCommas(text)
	repaired = joinAdjacentObjects(repaired)
	repaired = closeTruncatedArray(repaired)
	return repaired
}

// stripTrailingCommas removes commas that directly precede a closing
// bracket or brace.
func stripTrailingCommas(text string) string {
	return trailingCommaRe.ReplaceAllString(text, "$1")
}

// joinAdjacentObjects inserts the missing comma between two adjacent
// object literals.
func joinAdjacentObjects(text string) string {
	return adjacentObjectRe.ReplaceAllString(text, "},{")
}

// closeTruncatedArray closes an open array at the last complete object
// boundary when the text was cut off mid-object. Text that is not an
// unterminated array is returned unchanged.
func closeTruncatedArray(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "[") || strings.HasSuffix(trimmed, "]") {
		return text
	}

	last := strings.LastIndex(trimmed, "}")
	if last < 0 {
		return text
	}

	return trimmed[:last+1] + "]"
}
