// Package textutil provides small text helpers shared by the retrieval
// pipeline.
package textutil

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// HashString returns the hex MD5 of s. Used for deterministic document ids.
func HashString(s string) string {
	hash := md5.Sum([]byte(s))
	return hex.EncodeToString(hash[:])
}

// TruncateString truncates s to at most maxLen Unicode characters.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// CosineSimilarity computes the cosine similarity of two vectors in [-1, 1].
// Mismatched lengths or zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var collectionNameRegex = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SanitizeIdentifier maps an arbitrary owner identifier onto the character
// set accepted by collection names. Deterministic for a given input.
func SanitizeIdentifier(s string) string {
	s = collectionNameRegex.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
