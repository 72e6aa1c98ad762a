package platform

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const nameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const nameLength = 10

// NewID returns a uuid string. Backup records and schedules use these
// as their primary identifier.
func NewID() string {
	return uuid.New().String()
}

// NewName returns a prefixed short random name, e.g. "rp-x7k2m9q4ab".
// Used where an identifier ends up in logs and filenames often enough
// that a full uuid is unwieldy.
func NewName(prefix string) string {
	b := make([]byte, nameLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = nameAlphabet[b[i]%byte(len(nameAlphabet))]
	}
	return prefix + string(b)
}
