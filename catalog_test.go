package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCatalogCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "equivalence.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing catalog fixture: %v", err)
	}
	return path
}

func TestLoadEquivalenceCatalog(t *testing.T) {
	path := writeCatalogCSV(t, `Column,Label,Index
categorization_tier_1,INFRAESTRUCTURA,3
categorization_tier_1,SEGURETAT,1
serviceci,CI001,7
`)

	catalog, err := LoadEquivalenceCatalog(path)
	if err != nil {
		t.Fatalf("LoadEquivalenceCatalog failed: %v", err)
	}
	if catalog.Len() != 3 {
		t.Fatalf("expected 3 mappings, got %d", catalog.Len())
	}

	index, ok := catalog.Lookup("categorization_tier_1", "INFRAESTRUCTURA")
	if !ok || index != 3 {
		t.Fatalf("expected (categorization_tier_1, INFRAESTRUCTURA) -> 3, got %d ok=%t", index, ok)
	}
	if _, ok := catalog.Lookup("categorization_tier_1", "NO SUCH LABEL"); ok {
		t.Fatal("expected lookup miss for unknown label")
	}
	if _, ok := catalog.Lookup("other_column", "INFRAESTRUCTURA"); ok {
		t.Fatal("expected lookup miss for wrong column")
	}
}

func TestLoadEquivalenceCatalogDuplicateLastWins(t *testing.T) {
	path := writeCatalogCSV(t, `Column,Label,Index
ASORG,IT,2
ASORG,IT,9
`)

	catalog, err := LoadEquivalenceCatalog(path)
	if err != nil {
		t.Fatalf("LoadEquivalenceCatalog failed: %v", err)
	}
	index, ok := catalog.Lookup("ASORG", "IT")
	if !ok || index != 9 {
		t.Fatalf("expected last duplicate row to win with index 9, got %d ok=%t", index, ok)
	}
}

func TestLoadEquivalenceCatalogSkipsMalformedRows(t *testing.T) {
	path := writeCatalogCSV(t, `Column,Label,Index
good_column,GOOD,1
bad_column,BAD,not-a-number
short_row
float_column,FLOATY,4.0
`)

	catalog, err := LoadEquivalenceCatalog(path)
	if err != nil {
		t.Fatalf("LoadEquivalenceCatalog failed: %v", err)
	}
	if catalog.Len() != 2 {
		t.Fatalf("expected 2 mappings after skipping malformed rows, got %d", catalog.Len())
	}
	if index, ok := catalog.Lookup("float_column", "FLOATY"); !ok || index != 4 {
		t.Fatalf("expected float-formatted index to parse as 4, got %d ok=%t", index, ok)
	}
}

func TestLoadEquivalenceCatalogMissingFile(t *testing.T) {
	_, err := LoadEquivalenceCatalog(filepath.Join(t.TempDir(), "does-not-exist.csv"))
	if err == nil {
		t.Fatal("expected error for missing catalog file")
	}
}

func TestLoadEquivalenceCatalogBadHeader(t *testing.T) {
	path := writeCatalogCSV(t, `Foo,Bar,Baz
a,b,1
`)
	_, err := LoadEquivalenceCatalog(path)
	if err == nil || !strings.Contains(err.Error(), "header") {
		t.Fatalf("expected header error, got %v", err)
	}
}
