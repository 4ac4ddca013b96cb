package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrDestroyed is returned when revealing a payload after Destroy.
var ErrDestroyed = errors.New("sealed payload has been destroyed")

// Sealed holds one secret payload encrypted in memory.
//
// The plaintext only exists inside a memguard.LockedBuffer for the duration
// of Reveal. memguard refuses to create zero-length enclaves, so an empty
// payload is tracked with a flag instead.
type Sealed struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	empty     bool
	destroyed bool
}

// Seal encrypts payload into a new enclave. The byte copy handed to memguard
// is wiped once the enclave holds it.
func Seal(payload string) *Sealed {
	if payload == "" {
		return &Sealed{empty: true}
	}
	return &Sealed{enclave: memguard.NewEnclave([]byte(payload))}
}

// Reveal decrypts the payload.
func (s *Sealed) Reveal() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return "", ErrDestroyed
	}
	if s.empty {
		return "", nil
	}

	locked, err := s.enclave.Open()
	if err != nil {
		return "", err
	}
	defer locked.Destroy()

	return string(locked.Bytes()), nil
}

// Equal reports whether the sealed payload equals candidate without handing
// the plaintext to the caller.
func (s *Sealed) Equal(candidate string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return false, ErrDestroyed
	}
	if s.empty {
		return candidate == "", nil
	}

	locked, err := s.enclave.Open()
	if err != nil {
		return false, err
	}
	defer locked.Destroy()

	return locked.EqualTo([]byte(candidate)), nil
}

// Destroy drops the enclave. Idempotent; Reveal fails afterwards.
//
// The ciphertext is left to the garbage collector. Call Purge at process
// exit to wipe memguard's key material.
func (s *Sealed) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enclave = nil
	s.destroyed = true
}

// Purge wipes all memguard-managed memory. Sealed values are unusable
// afterwards.
func Purge() {
	memguard.Purge()
}
