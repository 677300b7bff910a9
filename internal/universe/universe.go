// Package universe loads the symbol list and hands out round-robin batches.
package universe

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Load reads one symbol per line, trims and uppercases it, skips blanks and
// #-comments, and drops duplicates while keeping first-seen order.
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open universe file: %w", err)
	}
	defer file.Close()

	seen := make(map[string]bool)
	var symbols []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sym := strings.ToUpper(line)
		if seen[sym] {
			continue
		}
		seen[sym] = true
		symbols = append(symbols, sym)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("universe file %s contains no symbols", path)
	}
	return symbols, nil
}

// Rotator yields fixed-size windows over the universe, wrapping past the end
// via a modulo index. With fewer symbols than the batch size, symbols repeat
// within a batch; that follows from cyclic iteration and is deliberate.
// Not safe for concurrent use; the scan loop is single-threaded.
type Rotator struct {
	symbols []string
	next    int
}

func NewRotator(symbols []string) *Rotator {
	return &Rotator{symbols: symbols}
}

func (r *Rotator) NextBatch(n int) []string {
	if len(r.symbols) == 0 || n <= 0 {
		return nil
	}
	batch := make([]string, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, r.symbols[r.next])
		r.next = (r.next + 1) % len(r.symbols)
	}
	return batch
}
