package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ticketlens/ticketlens/internal/core"
)

func TestLoadRecordsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.json")
	content := `[{"id":1,"tenant":"acme","subject":"login broken","status":"open"},
	{"id":2,"tenant":"acme","subject":"refund pending","status":"closed"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	records, err := loadRecordsFile(path)
	if err != nil {
		t.Fatalf("loadRecordsFile: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].ID != 1 || records[1].Subject != "refund pending" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestLoadRecordsFile_Missing(t *testing.T) {
	if _, err := loadRecordsFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRecordsFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not an array"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := loadRecordsFile(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestWriteResult_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	records := []core.Record{{ID: 7, Tenant: "acme", Subject: "slow dashboard"}}

	if err := writeResult(path, records); err != nil {
		t.Fatalf("writeResult: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var got []core.Record
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(got) != 1 || got[0].ID != 7 {
		t.Errorf("round trip = %+v", got)
	}
}
