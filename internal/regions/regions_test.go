package regions

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
kadikoy:
  name: Kadikoy
  emergency_phone: "112"
  police_dept: Kadikoy District Police
  email: kadikoy@police.example
besiktas:
  name: Besiktas
  emergency_phone: "112"
  police_dept: Besiktas District Police
  email: besiktas@police.example
`

func TestParseAndLookup(t *testing.T) {
	dir, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	region, ok := dir.Lookup("kadikoy")
	if !ok {
		t.Fatal("Lookup(kadikoy) = not found")
	}
	if region.Name != "Kadikoy" || region.EmergencyPhone != "112" {
		t.Fatalf("unexpected region: %+v", region)
	}

	if _, ok := dir.Lookup("atlantis"); ok {
		t.Fatal("Lookup(atlantis) found a region")
	}
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	dir, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if _, ok := dir.Lookup("  KADIKOY "); !ok {
		t.Fatal("Lookup ignored case/space normalisation")
	}
}

func TestIDsSorted(t *testing.T) {
	dir, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	ids := dir.IDs()
	if len(ids) != 2 || ids[0] != "besiktas" || ids[1] != "kadikoy" {
		t.Fatalf("IDs = %v, want [besiktas kadikoy]", ids)
	}
}

func TestParseRejectsEmptyAndMalformed(t *testing.T) {
	if _, err := Parse([]byte("")); err == nil {
		t.Fatal("Parse accepted empty document")
	}
	if _, err := Parse([]byte(":-not yaml::")); err == nil {
		t.Fatal("Parse accepted malformed yaml")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	dir, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if _, ok := dir.Lookup("besiktas"); !ok {
		t.Fatal("Lookup(besiktas) = not found after Load")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load accepted a missing file")
	}
}
