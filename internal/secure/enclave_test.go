package secure

import (
	"errors"
	"strings"
	"testing"
)

func TestSealReveal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{name: "password", payload: "my-secret-password"},
		{name: "empty payload", payload: ""},
		{name: "json payload", payload: `{"type":"service_account","private_key":"-----BEGIN-----"}`},
		{name: "binary-ish payload", payload: "\x00\xff\x10 "},
		{name: "large payload", payload: strings.Repeat("x", 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := Seal(tt.payload)
			defer s.Destroy()

			got, err := s.Reveal()
			if err != nil {
				t.Fatalf("Reveal() error = %v", err)
			}
			if got != tt.payload {
				t.Errorf("Reveal() returned %d bytes, want %d", len(got), len(tt.payload))
			}
		})
	}
}

func TestSealed_MultipleReveals(t *testing.T) {
	t.Parallel()

	s := Seal("test-secret")
	defer s.Destroy()

	for i := 0; i < 3; i++ {
		got, err := s.Reveal()
		if err != nil {
			t.Fatalf("Reveal() iteration %d error = %v", i, err)
		}
		if got != "test-secret" {
			t.Errorf("Reveal() iteration %d: got different data", i)
		}
	}
}

func TestSealed_Equal(t *testing.T) {
	t.Parallel()

	s := Seal("abc")
	defer s.Destroy()

	if ok, err := s.Equal("abc"); err != nil || !ok {
		t.Errorf("Equal(same) = %v, %v", ok, err)
	}
	if ok, err := s.Equal("abd"); err != nil || ok {
		t.Errorf("Equal(different) = %v, %v", ok, err)
	}

	empty := Seal("")
	if ok, _ := empty.Equal(""); !ok {
		t.Error("empty payload should equal empty candidate")
	}
	if ok, _ := empty.Equal("x"); ok {
		t.Error("empty payload should not equal non-empty candidate")
	}
}

func TestSealed_Destroy(t *testing.T) {
	t.Parallel()

	s := Seal("secret-to-destroy")

	s.Destroy()
	// idempotent
	s.Destroy()

	if _, err := s.Reveal(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Reveal() after Destroy error = %v, want ErrDestroyed", err)
	}
	if _, err := s.Equal("secret-to-destroy"); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Equal() after Destroy error = %v, want ErrDestroyed", err)
	}
}

func TestSealed_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	s := Seal("concurrent-secret")
	defer s.Destroy()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- true }()

			got, err := s.Reveal()
			if err != nil {
				t.Errorf("Reveal() error = %v", err)
				return
			}
			if got != "concurrent-secret" {
				t.Error("Data mismatch in concurrent access")
			}
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func BenchmarkSealed(b *testing.B) {
	b.Run("Seal", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			Seal("benchmark-secret-data").Destroy()
		}
	})

	b.Run("Reveal", func(b *testing.B) {
		s := Seal("benchmark-secret-data")
		defer s.Destroy()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = s.Reveal()
		}
	})
}
