package module

import (
	"fmt"

	"github.com/iliyamo/live-request-queue/internal/repository"
)

// ValidateReorder checks that payload is exactly a permutation of the
// current active id set: same cardinality, same membership, no duplicates.
// Any mismatch is a queue_mismatch domain error and the caller must not
// change any state.
func ValidateReorder(active, payload []uint64) error {
	if len(payload) != len(active) {
		return repository.QueueMismatch(fmt.Sprintf("expected %d request ids, got %d", len(active), len(payload)))
	}
	current := make(map[uint64]bool, len(active))
	for _, id := range active {
		current[id] = true
	}
	seen := make(map[uint64]bool, len(payload))
	for _, id := range payload {
		if seen[id] {
			return repository.QueueMismatch(fmt.Sprintf("request %d appears twice in the payload", id))
		}
		seen[id] = true
		if !current[id] {
			return repository.QueueMismatch(fmt.Sprintf("request %d is not part of the active queue", id))
		}
	}
	return nil
}
