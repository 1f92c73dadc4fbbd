package sluggen

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

// errReader fails every read.
type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("entropy unavailable") }

func TestAlphabet(t *testing.T) {
	if len(Alphabet) != 62 {
		t.Fatalf("Alphabet length = %d, want 62", len(Alphabet))
	}

	seen := make(map[rune]bool)
	for _, c := range Alphabet {
		if seen[c] {
			t.Errorf("Alphabet contains duplicate character %c", c)
		}
		seen[c] = true
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			t.Errorf("Alphabet contains non-alphanumeric character %c", c)
		}
	}
}

func TestBase62Generator_Generate(t *testing.T) {
	t.Run("generates slug of requested length", func(t *testing.T) {
		gen := NewBase62()

		for _, length := range []int{1, 6, 7, 32, 100} {
			slug, err := gen.Generate(length)
			if err != nil {
				t.Fatalf("Generate(%d) unexpected error: %v", length, err)
			}
			if len(slug) != length {
				t.Errorf("Generate(%d) returned length %d", length, len(slug))
			}
			for i, c := range slug {
				if !strings.ContainsRune(Alphabet, c) {
					t.Errorf("Generate(%d) produced invalid character %c at %d", length, c, i)
				}
			}
		}
	})

	t.Run("is deterministic for a fixed random source", func(t *testing.T) {
		src := []byte{0, 1, 25, 26, 51, 52, 61}

		gen := NewBase62(WithRandom(bytes.NewReader(src)))
		slug, err := gen.Generate(len(src))
		if err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}
		if want := "abzAZ09"; slug != want {
			t.Errorf("Generate() = %q, want %q", slug, want)
		}
	})

	t.Run("rejects biased bytes", func(t *testing.T) {
		// 248..255 would skew the distribution toward the first symbols.
		src := []byte{248, 255, 250, 0, 249, 1, 2, 3, 4, 5}

		gen := NewBase62(WithRandom(bytes.NewReader(src)))
		slug, err := gen.Generate(6)
		if err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}
		if want := "abcdef"; slug != want {
			t.Errorf("Generate() = %q, want %q", slug, want)
		}
	})

	t.Run("wraps random source failures", func(t *testing.T) {
		gen := NewBase62(WithRandom(errReader{}))

		if _, err := gen.Generate(6); err == nil {
			t.Fatal("Generate() expected error, got nil")
		}
	})

	t.Run("short random source is an error", func(t *testing.T) {
		gen := NewBase62(WithRandom(bytes.NewReader([]byte{1, 2})))

		if _, err := gen.Generate(6); err == nil {
			t.Fatal("Generate() expected error, got nil")
		}
	})

	t.Run("nil random source keeps the default", func(t *testing.T) {
		gen := NewBase62(WithRandom(nil))

		if _, err := gen.Generate(6); err != nil {
			t.Fatalf("Generate() unexpected error: %v", err)
		}
	})

	t.Run("returns error for non-positive length", func(t *testing.T) {
		gen := NewBase62()

		for _, length := range []int{0, -1} {
			_, err := gen.Generate(length)
			if err == nil {
				t.Fatalf("Generate(%d) expected error, got nil", length)
			}
			if err.Error() != "length must be positive" {
				t.Errorf("error message = %q", err.Error())
			}
		}
	})

	t.Run("concurrent generation is safe", func(t *testing.T) {
		gen := NewBase62()
		const goroutines = 20
		const iterations = 100

		var wg sync.WaitGroup
		errs := make(chan error, goroutines*iterations)

		for range goroutines {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range iterations {
					if _, err := gen.Generate(6); err != nil {
						errs <- err
						return
					}
				}
			}()
		}

		wg.Wait()
		close(errs)

		for err := range errs {
			t.Errorf("concurrent Generate() error: %v", err)
		}
	})

	t.Run("every symbol is reachable", func(t *testing.T) {
		gen := NewBase62()
		seen := make(map[rune]bool)

		for range 200 {
			slug, err := gen.Generate(32)
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}
			for _, c := range slug {
				seen[c] = true
			}
		}

		if len(seen) != len(Alphabet) {
			t.Errorf("saw %d distinct symbols, want %d", len(seen), len(Alphabet))
		}
	})
}

func BenchmarkBase62Generator_Generate(b *testing.B) {
	gen := NewBase62()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := gen.Generate(6); err != nil {
			b.Fatalf("Generate() error: %v", err)
		}
	}
}
