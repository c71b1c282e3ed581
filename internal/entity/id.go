package entity

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Storage ids are random and never leave the process raw: the external
// form is "<prefix>_<id><check>" where check is an xxhash check word
// making encoded ids self-verifying without a storage round trip.

const checkLen = 8

// NewID generates a raw storage id.
func NewID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

func checksum(prefix, id string) string {
	sum := xxhash.Sum64String(prefix + ":" + id)

	var buf [8]byte
	for i := range buf {
		buf[i] = byte(sum >> (8 * i))
	}

	return hex.EncodeToString(buf[:])[:checkLen]
}

// EncodeID converts a raw storage id to its opaque external form.
func EncodeID(prefix, id string) string {
	return fmt.Sprintf("%s_%s%s", prefix, id, checksum(prefix, id))
}

// DecodeID converts an external id back to the raw storage id,
// verifying the prefix and the check word.
func DecodeID(prefix, encoded string) (string, error) {
	rest, ok := strings.CutPrefix(encoded, prefix+"_")
	if !ok {
		return "", fmt.Errorf("entity: malformed %s id %q", prefix, encoded)
	}

	if len(rest) <= checkLen {
		return "", fmt.Errorf("entity: malformed %s id %q", prefix, encoded)
	}

	id := rest[:len(rest)-checkLen]
	if checksum(prefix, id) != rest[len(rest)-checkLen:] {
		return "", fmt.Errorf("entity: malformed %s id %q", prefix, encoded)
	}

	return id, nil
}
