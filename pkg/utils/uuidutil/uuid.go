package uuidutil

import (
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

var escaper = strings.NewReplacer("9", "99", "-", "90", "_", "91")

// ShortUUID renders a uuid as a compact url-safe string, suitable for
// broker client identifiers.
func ShortUUID() string {
	id := uuid.New()
	return escaper.Replace(base64.RawURLEncoding.EncodeToString(id[:]))
}
