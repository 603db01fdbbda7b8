package ingest

import (
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewCollectionID returns "user_<unix millis>_<8 random chars>". The random
// part keeps uploads within the same millisecond apart.
func NewCollectionID(now time.Time) (string, error) {
	suffix, err := gonanoid.Generate(idAlphabet, 8)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return fmt.Sprintf("user_%d_%s", now.UnixMilli(), suffix), nil
}
