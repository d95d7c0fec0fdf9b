package translation

import (
	"encoding/base64"
	"fmt"
)

// EncodeURN derives the job urn from an uploaded object id: unpadded
// URL-safe base64 of the id bytes.
func EncodeURN(objectID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(objectID))
}

// DecodeURN returns the object id an urn was derived from.
func DecodeURN(urn string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(urn)
	if err != nil {
		return "", fmt.Errorf("decode urn: %w", err)
	}
	return string(b), nil
}
