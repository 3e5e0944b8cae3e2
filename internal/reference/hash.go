package reference

import (
	"fmt"
	"strings"

	"github.com/minio/highwayhash"
)

var hashKey = []byte("lab-report-reference-index-v1-32")

// Hash fingerprints reference content so unchanged files are not re-embedded.
func Hash(data []byte) (uint64, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0, err
	}
	if _, err := h.Write(data); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// DocumentID keeps only the ASCII characters of name. Names made only of
// non-ASCII characters get a stable lab_<n> id.
func DocumentID(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	if id := b.String(); id != "" {
		return id
	}
	h, _ := Hash([]byte(name))
	return fmt.Sprintf("lab_%d", h%10000)
}
