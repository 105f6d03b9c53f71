package capability

import (
	"crypto/md5" //nolint:gosec // fingerprint for dedup, not security
	"encoding/hex"
	"sort"
	"strings"
)

// ComputeSignature builds the canonical, order-independent fingerprint of
// a combination's capability multiset.
//
// Devices contribute sorted "type:room" tokens, services contribute sorted
// bare type tokens. Two combinations with the same multiset of (type, room)
// pairs produce the same signature regardless of which concrete device
// instance fills each slot.
func ComputeSignature(devices []DeviceCapability, services []ServiceCapability) string {
	tokens := make([]string, 0, len(devices)+len(services))
	for _, d := range devices {
		tokens = append(tokens, string(d.Type)+":"+d.Room)
	}
	for _, s := range services {
		tokens = append(tokens, string(s.Type))
	}
	sort.Strings(tokens)

	sum := md5.Sum([]byte(strings.Join(tokens, "|"))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
