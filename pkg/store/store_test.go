package store

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	m := NewMemory()

	// Absent key
	if _, ok, err := m.Get("missing"); err != nil || ok {
		t.Errorf("Get(missing) = ok=%v err=%v, want absent", ok, err)
	}

	// Put then get
	if err := m.Put("k", []byte("v1")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok, err := m.Get("k")
	if err != nil || !ok {
		t.Fatalf("Get(k) = ok=%v err=%v, want present", ok, err)
	}
	if !bytes.Equal(got, []byte("v1")) {
		t.Errorf("Get(k) = %q, want %q", got, "v1")
	}

	// Overwrite
	if err := m.Put("k", []byte("v2")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, _, _ = m.Get("k")
	if !bytes.Equal(got, []byte("v2")) {
		t.Errorf("Get(k) after overwrite = %q, want %q", got, "v2")
	}

	// Returned slice must be a copy
	got[0] = 'x'
	again, _, _ := m.Get("k")
	if !bytes.Equal(again, []byte("v2")) {
		t.Error("Get() must return a copy, not the stored slice")
	}

	// Delete, including an absent key
	if err := m.Delete("k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := m.Get("k"); ok {
		t.Error("Get(k) after delete should be absent")
	}
	if err := m.Delete("k"); err != nil {
		t.Errorf("Delete() of absent key error = %v, want nil", err)
	}
}

func TestBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	b, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt() error = %v", err)
	}

	if err := b.Put("pin_hash", []byte("abc123")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok, err := b.Get("pin_hash")
	if err != nil || !ok {
		t.Fatalf("Get() = ok=%v err=%v, want present", ok, err)
	}
	if !bytes.Equal(got, []byte("abc123")) {
		t.Errorf("Get() = %q, want %q", got, "abc123")
	}

	// Values survive reopen
	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	b, err = OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt() reopen error = %v", err)
	}
	defer b.Close()

	got, ok, err = b.Get("pin_hash")
	if err != nil || !ok {
		t.Fatalf("Get() after reopen = ok=%v err=%v, want present", ok, err)
	}
	if !bytes.Equal(got, []byte("abc123")) {
		t.Errorf("Get() after reopen = %q, want %q", got, "abc123")
	}

	if err := b.Delete("pin_hash"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := b.Get("pin_hash"); ok {
		t.Error("Get() after delete should be absent")
	}
}
