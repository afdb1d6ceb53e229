package session

import (
	"testing"

	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/types"
)

func TestFileStoreRoundTrip(t *testing.T) {
	s := NewFileStore(t.TempDir())

	if _, ok, err := s.Get("missing"); ok || err != nil {
		t.Errorf("fresh store: ok=%v err=%v, want absent without error", ok, err)
	}

	if err := s.Set("key", "value"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok, err := s.Get("key")
	if err != nil || !ok || v != "value" {
		t.Errorf("Get = (%q, %v, %v), want (\"value\", true, nil)", v, ok, err)
	}

	if err := s.Remove("key"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok, _ := s.Get("key"); ok {
		t.Error("key still present after Remove")
	}

	// Removing an absent key is not an error.
	if err := s.Remove("key"); err != nil {
		t.Errorf("Remove of absent key: %v", err)
	}
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	if err := s.Set("../escape", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, ok, err := s.Get("../escape")
	if err != nil || !ok || v != "v" {
		t.Errorf("sanitized key round trip failed: (%q, %v, %v)", v, ok, err)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	s := NewMemStore()

	if _, ok, err := LoadRecord(s); ok || err != nil {
		t.Errorf("empty store: ok=%v err=%v", ok, err)
	}

	rec := types.SessionRecord{
		Result:    types.CountResult{Positive: 11, Negative: 6, Total: 17},
		ImageB64:  "aGVsbG8=",
		ImageName: "slide.png",
		MIMEType:  "image/png",
	}
	if err := SaveRecord(s, rec); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}

	loaded, ok, err := LoadRecord(s)
	if err != nil || !ok {
		t.Fatalf("LoadRecord = (%v, %v)", ok, err)
	}
	if *loaded != rec {
		t.Errorf("loaded %+v, want %+v", *loaded, rec)
	}

	if err := ClearRecord(s); err != nil {
		t.Fatalf("ClearRecord failed: %v", err)
	}
	if _, ok, _ := LoadRecord(s); ok {
		t.Error("record still present after clear")
	}
}

func TestLoadRecordCorrupt(t *testing.T) {
	s := NewMemStore()
	if err := s.Set(RecordKey, "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := LoadRecord(s); ok || err == nil {
		t.Errorf("corrupt record: ok=%v err=%v, want absent with error", ok, err)
	}
}
