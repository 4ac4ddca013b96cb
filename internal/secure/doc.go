// Package secure keeps secret payloads encrypted while they sit in process
// memory.
//
// It wraps github.com/awnumar/memguard. Each payload is sealed in its own
// enclave (XSalsa20Poly1305 with a process-wide key held in guarded, mlocked
// pages) and only decrypted into a locked buffer while it is being read:
//
//	s := secure.Seal(payload)
//	defer s.Destroy()
//
//	plain, err := s.Reveal()
//
// The in-memory secret store uses this so that payloads do not appear in
// plaintext in core dumps or swap. Call Purge before the process exits.
//
// This does not protect against an attacker who can read the memory of the
// running process while a payload is revealed.
package secure
