package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// CacheKey hashes the parts into a fixed-length key. Parts are length
// prefixed so ("ab", "c") and ("a", "bc") never collide.
func CacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s|", len(p), p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ResolveWithin joins rel onto root and fails when the result would leave root
func ResolveWithin(root, rel string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("no root configured")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	full := filepath.Join(absRoot, filepath.FromSlash(rel))
	back, err := filepath.Rel(absRoot, full)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes %s", rel, root)
	}
	return full, nil
}
