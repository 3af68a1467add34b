// Package id generates time-sortable identifiers for ledger records.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	// Seed from crypto/rand; ulid.Monotonic keeps IDs minted within the same
	// millisecond lexicographically increasing.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID string.
//
// ULIDs sort by generation time, so order and trade IDs sort the same way
// they were created, in memory and in the journal tables alike.
func New() string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), mono)
	if err != nil {
		// Monotonic entropy overflowed within one millisecond.
		panic(err)
	}
	return id.String()
}

// Prefixed returns "<prefix>-<ULID>", e.g. "ORD-01HV...".
func Prefixed(prefix string) string {
	return prefix + "-" + New()
}

// Time extracts the creation time encoded in a ULID or prefixed ULID.
func Time(s string) (time.Time, error) {
	if len(s) > ulid.EncodedSize {
		s = s[len(s)-ulid.EncodedSize:]
	}
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
