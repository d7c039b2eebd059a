package quota_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"podpress/internal/quota"
)

func TestFileStoreReadsHistoricalLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage_data.json")
	legacy := `{"2024-05-01": {"total": 2, "ips": {"127.0.0.1": 2}}}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}

	store, err := quota.OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	ctx := context.Background()
	day, err := store.Load(ctx, "2024-05-01")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if day.Total != 2 || day.Clients["127.0.0.1"] != 2 {
		t.Fatalf("unexpected day %+v", day)
	}

	if _, ok, err := store.Increment(ctx, "2024-05-01", "10.0.0.1", 5); err != nil || !ok {
		t.Fatalf("Increment: ok=%v err=%v", ok, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var decoded map[string]struct {
		Total int            `json:"total"`
		IPs   map[string]int `json:"ips"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode file: %v", err)
	}
	record := decoded["2024-05-01"]
	if record.Total != 3 || record.IPs["10.0.0.1"] != 1 || record.IPs["127.0.0.1"] != 2 {
		t.Fatalf("unexpected persisted record %+v", record)
	}
}

func TestFileStoreRefusalLeavesFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage_data.json")
	store, err := quota.OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	ctx := context.Background()
	if _, ok, err := store.Increment(ctx, "2024-05-01", "c", 1); err != nil || !ok {
		t.Fatalf("first increment: ok=%v err=%v", ok, err)
	}
	before, _ := os.ReadFile(path)
	if _, ok, err := store.Increment(ctx, "2024-05-01", "c", 1); err != nil || ok {
		t.Fatalf("second increment should be refused: ok=%v err=%v", ok, err)
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Fatalf("refusal rewrote the file:\n%s\n%s", before, after)
	}
}
