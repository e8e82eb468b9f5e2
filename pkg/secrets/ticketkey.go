package secrets

import (
	"fmt"
	"os"
)

// TicketKeyLength is the exact file size of one session ticket key:
// 16-byte name, 16-byte AES key, 16-byte HMAC key.
const TicketKeyLength = 48

// TicketKey is one TLS session ticket key. Fixed-size value type so key
// material never ends up in growable buffers; call Zero when done.
type TicketKey struct {
	Name    [16]byte
	AESKey  [16]byte
	HMACKey [16]byte
}

// Zero wipes the key material in place.
func (k *TicketKey) Zero() {
	for i := range k.Name {
		k.Name[i] = 0
	}
	for i := range k.AESKey {
		k.AESKey[i] = 0
	}
	for i := range k.HMACKey {
		k.HMACKey[i] = 0
	}
}

// SessionKey returns the 32-byte form consumed by
// crypto/tls.Config.SetSessionTicketKeys: AES key followed by HMAC key.
func (k *TicketKey) SessionKey() [32]byte {
	var out [32]byte
	copy(out[:16], k.AESKey[:])
	copy(out[16:], k.HMACKey[:])
	return out
}

// TicketKeys holds the rotation set, first key active.
type TicketKeys struct {
	Keys []TicketKey
}

// Zero wipes all keys.
func (t *TicketKeys) Zero() {
	for i := range t.Keys {
		t.Keys[i].Zero()
	}
}

// SessionKeys returns all keys in SetSessionTicketKeys form.
func (t *TicketKeys) SessionKeys() [][32]byte {
	out := make([][32]byte, len(t.Keys))
	for i := range t.Keys {
		out[i] = t.Keys[i].SessionKey()
	}
	return out
}

// checkKeyFilePerm refuses key files readable or writable by group or
// other. The owner must retain at least one permission bit.
func checkKeyFilePerm(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	perm := info.Mode().Perm()
	if perm&0o700 == 0 || perm&0o077 != 0 {
		return fmt.Errorf("ticket key file %s has insecure permissions %o, want owner-only access", path, perm)
	}
	return nil
}

// ReadTicketKeyFiles loads session ticket keys from files. Every file
// must pass the permission check and contain at least TicketKeyLength
// bytes; any failure aborts the whole load so a partially rotated key set
// is never used.
func ReadTicketKeyFiles(files []string) (*TicketKeys, error) {
	keys := make([]TicketKey, len(files))
	for i, file := range files {
		if err := checkKeyFilePerm(file); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("ticket key file %s: %v", file, err)
		}
		if len(data) < TicketKeyLength {
			zero(data)
			return nil, fmt.Errorf("ticket key file %s: want to read %d bytes but read %d bytes",
				file, TicketKeyLength, len(data))
		}
		key := &keys[i]
		copy(key.Name[:], data[:16])
		copy(key.AESKey[:], data[16:32])
		copy(key.HMACKey[:], data[32:48])
		zero(data)
	}
	return &TicketKeys{Keys: keys}, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
