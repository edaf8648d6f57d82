package service

import (
	"testing"

	"github.com/ticketlens/ticketlens/internal/core"
)

func TestNormalize_DirectArray(t *testing.T) {
	n := NewNormalizer()
	raw := &core.RawResponse{Body: []byte(`[{"id": 1, "sentiment": "negative"}]`)}

	payload, err := n.Normalize(raw, core.ShapeFragmentArray)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if payload.Shape != ShapeArray {
		t.Errorf("Shape = %v, want array", payload.Shape)
	}
	if len(payload.Array) != 1 {
		t.Fatalf("len(Array) = %d, want 1", len(payload.Array))
	}
	if payload.Array[0]["sentiment"] != "negative" {
		t.Errorf("sentiment = %v, want negative", payload.Array[0]["sentiment"])
	}
}

func TestNormalize_DirectObject(t *testing.T) {
	n := NewNormalizer()
	raw := &core.RawResponse{Body: []byte(`{"findings": {"theme": "billing"}, "confidence": 0.8}`)}

	payload, err := n.Normalize(raw, core.ShapeObject)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if payload.Shape != ShapeObject {
		t.Errorf("Shape = %v, want object", payload.Shape)
	}
	if payload.Object["confidence"] != 0.8 {
		t.Errorf("confidence = %v, want 0.8", payload.Object["confidence"])
	}
}

func TestNormalize_CodeFence(t *testing.T) {
	n := NewNormalizer()
	raw := &core.RawResponse{Body: []byte("```json\n[{\"id\": 7}]\n```")}

	payload, err := n.Normalize(raw, core.ShapeFragmentArray)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(payload.Array) != 1 {
		t.Errorf("len(Array) = %d, want 1", len(payload.Array))
	}
}

func TestNormalize_ChatCompletionEnvelope(t *testing.T) {
	n := NewNormalizer()
	body := `{"choices": [{"message": {"content": "[{\"id\": 3, \"category\": \"refund\"}]"}}]}`
	raw := &core.RawResponse{Body: []byte(body)}

	payload, err := n.Normalize(raw, core.ShapeFragmentArray)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(payload.Array) != 1 || payload.Array[0]["category"] != "refund" {
		t.Errorf("unexpected payload %+v", payload.Array)
	}
}

func TestNormalize_SegmentedContentEnvelope(t *testing.T) {
	n := NewNormalizer()
	body := `{"content": [{"type": "text", "text": "{\"findings\": {}}"}]}`
	raw := &core.RawResponse{Body: []byte(body)}

	payload, err := n.Normalize(raw, core.ShapeObject)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if _, ok := payload.Object["findings"]; !ok {
		t.Errorf("expected findings key, got %+v", payload.Object)
	}
}

func TestNormalize_PrefersAdapterText(t *testing.T) {
	n := NewNormalizer()
	raw := &core.RawResponse{
		Body: []byte(`{"not": "parsed"}`),
		Text: `[{"id": 12}]`,
	}

	payload, err := n.Normalize(raw, core.ShapeFragmentArray)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(payload.Array) != 1 {
		t.Errorf("len(Array) = %d, want 1", len(payload.Array))
	}
}

func TestNormalize_RepairsTrailingComma(t *testing.T) {
	n := NewNormalizer()
	raw := &core.RawResponse{Body: []byte(`[{"id": 1, "risk": "high",}, {"id": 2},]`)}

	payload, err := n.Normalize(raw, core.ShapeFragmentArray)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(payload.Array) != 2 {
		t.Errorf("len(Array) = %d, want 2", len(payload.Array))
	}
}

func TestNormalize_RepairsAdjacentObjects(t *testing.T) {
	n := NewNormalizer()
	raw := &core.RawResponse{Body: []byte(`[{"id": 1} {"id": 2}]`)}

	payload, err := n.Normalize(raw, core.ShapeFragmentArray)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if len(payload.Array) != 2 {
		t.Errorf("len(Array) = %d, want 2", len(payload.Array))
	}
}

func TestNormalize_RepairsTruncatedArray(t *testing.T) {
	n := NewNormalizer()
	raw := &core.RawResponse{Body: []byte(`[{"id": 1}, {"id": 2}, {"id": 3, "summ`)}

	payload, err := n.Normalize(raw, core.ShapeFragmentArray)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	// The partial third element is discarded at the last complete boundary.
	if len(payload.Array) != 2 {
		t.Errorf("len(Array) = %d, want 2", len(payload.Array))
	}
}

func TestNormalize_UnrepairableIsUnparseable(t *testing.T) {
	n := NewNormalizer()
	raw := &core.RawResponse{Body: []byte(`this is not json at all`)}

	_, err := n.Normalize(raw, core.ShapeFragmentArray)
	if !core.IsCategory(err, core.ErrCatUnparseable) {
		t.Fatalf("expected unparseable error, got %v", err)
	}
}

func TestNormalize_WrongShapeAfterRepairIsUnparseable(t *testing.T) {
	n := NewNormalizer()
	// Repairs fine but yields an object where an array was requested.
	raw := &core.RawResponse{Body: []byte(`{"id": 1,}`)}

	_, err := n.Normalize(raw, core.ShapeFragmentArray)
	if !core.IsCategory(err, core.ErrCatUnparseable) {
		t.Fatalf("expected unparseable error, got %v", err)
	}
}

func TestNormalize_EmptyBody(t *testing.T) {
	n := NewNormalizer()
	raw := &core.RawResponse{Body: []byte("   ")}

	_, err := n.Normalize(raw, core.ShapeFragmentArray)
	if !core.IsCategory(err, core.ErrCatUnparseable) {
		t.Fatalf("expected unparseable error, got %v", err)
	}
}

func TestRepairJSON_StepsInOrder(t *testing.T) {
	in := `[{"a": 1,} {"b": 2,}, {"c`
	got := RepairJSON(in)
	want := `[{"a": 1},{"b": 2}]`
	if got != want {
		t.Errorf("RepairJSON() = %q, want %q", got, want)
	}
}

func TestDetectShape(t *testing.T) {
	cases := []struct {
		name string
		body string
		want ResponseShape
	}{
		{"array", `[{"id": 1}]`, ShapeArray},
		{"object", `{"findings": {}}`, ShapeObject},
		{"choices envelope", `{"choices": [{"message": {"content": "x"}}]}`, ShapeMessageEnvelope},
		{"content envelope", `{"content": [{"type": "text", "text": "x"}]}`, ShapeMessageEnvelope},
		{"empty", "", ShapeUnknown},
		{"prose", "hello", ShapeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectShape([]byte(tc.body)); got != tc.want {
				t.Errorf("DetectShape(%q) = %v, want %v", tc.body, got, tc.want)
			}
		})
	}
}

func TestPayload_Fragments(t *testing.T) {
	p := &Payload{
		Shape: ShapeArray,
		Array: []map[string]interface{}{
			{"id": float64(1), "sentiment": "negative", "score": 0.9},
			{"id": float64(2), "category": "billing"},
		},
	}

	fragments, err := p.Fragments()
	if err != nil {
		t.Fatalf("Fragments() error = %v", err)
	}
	if len(fragments) != 2 {
		t.Fatalf("len(fragments) = %d, want 2", len(fragments))
	}
	if fragments[0].RecordID != 1 || fragments[0].Sentiment != "negative" {
		t.Errorf("unexpected fragment %+v", fragments[0])
	}
}

func TestPayload_Fragments_MissingID(t *testing.T) {
	p := &Payload{
		Shape: ShapeArray,
		Array: []map[string]interface{}{{"sentiment": "positive"}},
	}

	if _, err := p.Fragments(); !core.IsCategory(err, core.ErrCatUnparseable) {
		t.Fatalf("expected unparseable error, got %v", err)
	}
}
