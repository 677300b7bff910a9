package universe

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeUniverse(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "symbols.txt")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write universe file: %v", err)
	}
	return path
}

func TestLoadParsesAndDeduplicates(t *testing.T) {
	path := writeUniverse(t, "aapl\n# comment line\n\n  TSLA  \nAAPL\nnvda\n")

	symbols, err := Load(path)
	if err != nil {
		t.Fatalf("load universe: %v", err)
	}
	want := []string{"AAPL", "TSLA", "NVDA"}
	if !reflect.DeepEqual(symbols, want) {
		t.Fatalf("expected %v, got %v", want, symbols)
	}
}

func TestLoadRejectsEmptyUniverse(t *testing.T) {
	path := writeUniverse(t, "# only comments\n\n")

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for empty universe")
	}
}

func TestNextBatchWrapsAround(t *testing.T) {
	rotator := NewRotator([]string{"A", "B", "C"})

	batches := [][]string{
		rotator.NextBatch(2),
		rotator.NextBatch(2),
		rotator.NextBatch(2),
	}
	want := [][]string{{"A", "B"}, {"C", "A"}, {"B", "C"}}
	if !reflect.DeepEqual(batches, want) {
		t.Fatalf("expected %v, got %v", want, batches)
	}
}

func TestNextBatchLargerThanUniverseRepeatsSymbols(t *testing.T) {
	rotator := NewRotator([]string{"A", "B"})

	batch := rotator.NextBatch(5)
	want := []string{"A", "B", "A", "B", "A"}
	if !reflect.DeepEqual(batch, want) {
		t.Fatalf("expected %v, got %v", want, batch)
	}
}

func TestNextBatchNeverSkipsASymbol(t *testing.T) {
	symbols := []string{"A", "B", "C", "D", "E"}
	rotator := NewRotator(symbols)

	counts := make(map[string]int)
	for i := 0; i < 5; i++ {
		for _, s := range rotator.NextBatch(3) {
			counts[s]++
		}
	}
	for _, s := range symbols {
		if counts[s] != 3 {
			t.Fatalf("expected %s to appear 3 times over 15 draws, got %d", s, counts[s])
		}
	}
}
