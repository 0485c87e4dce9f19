package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
)

// Word lists are fixed: changing them would re-derive a different ID for the
// same machine and force every paired mobile to re-pair.
var adjectives = []string{
	"amber", "bold", "brave", "bright", "calm", "clever", "cosmic", "crisp",
	"eager", "fancy", "fleet", "gentle", "golden", "happy", "humble", "keen",
	"lively", "lucky", "mellow", "noble", "proud", "quick", "quiet", "rapid",
	"royal", "silent", "smooth", "solid", "stellar", "swift", "vivid", "wise",
}

var nouns = []string{
	"badger", "bear", "comet", "condor", "coral", "crane", "delta", "eagle",
	"falcon", "ferret", "fox", "gecko", "harbor", "hawk", "heron", "lynx",
	"maple", "meadow", "orca", "otter", "owl", "panda", "pine", "raven",
	"reef", "river", "salmon", "sparrow", "summit", "tiger", "walrus", "wolf",
}

// fingerprintWidth — hex prefix of the machine fingerprint used as the seed.
const fingerprintWidth = 12

var machineIDPaths = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

// readFingerprint returns a stable hardware fingerprint for this machine,
// or "" when none is available.
func readFingerprint() string {
	for _, p := range machineIDPaths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		id := strings.TrimSpace(string(b))
		if id != "" {
			return id
		}
	}
	return ""
}

// deriveID maps a fingerprint to a memorable device id like "swift-tiger-42".
// The same fingerprint always yields the same id.
func deriveID(fingerprint string) (string, bool) {
	fp := strings.TrimSpace(fingerprint)
	if len(fp) < fingerprintWidth {
		return "", false
	}
	seed, err := strconv.ParseUint(fp[:fingerprintWidth], 16, 64)
	if err != nil {
		return "", false
	}
	adj := adjectives[seed%uint64(len(adjectives))]
	seed /= uint64(len(adjectives))
	noun := nouns[seed%uint64(len(nouns))]
	seed /= uint64(len(nouns))
	return fmt.Sprintf("%s-%s-%02d", adj, noun, seed%100), true
}

// randomID picks from the same word lists using crypto/rand.
func randomID() string {
	pick := func(n int) int {
		v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
		if err != nil {
			return 0
		}
		return int(v.Int64())
	}
	return fmt.Sprintf("%s-%s-%02d", adjectives[pick(len(adjectives))], nouns[pick(len(nouns))], pick(100))
}
