package gateway

import (
	"fmt"
	"hash/fnv"

	"github.com/fluxgate-io/fluxgate/internal/models"
)

// keyNamespace tags ingress-derived keys so they never collide with keys
// minted by other producers sharing the idempotency store.
const keyNamespace = "ingress"

// IdempotencyKey derives a 32-bit FNV-1a hash over the input's canonical
// serialization plus its resolved identity. Identical submissions from the
// same identity always map to the same key.
func IdempotencyKey(input *models.RawInput) string {
	h := fnv.New32a()
	h.Write([]byte(keyNamespace))
	h.Write([]byte{':'})
	h.Write([]byte(input.CanonicalString()))
	h.Write([]byte{'|'})
	h.Write([]byte(input.Identity()))
	return fmt.Sprintf("%s:%08x", keyNamespace, h.Sum32())
}
