// Package meta derives publication metadata (reading time, slugs, content
// fingerprints) from rendered markdown documents.
package meta

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// wordsPerMinute is the fixed reading speed used for read-time estimation.
const wordsPerMinute = 200

var (
	codeBlockRegex  = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRegex = regexp.MustCompile("`[^`]*`")
	imageRegex      = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRegex       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	markupRegex     = regexp.MustCompile(`[#*_~>-]+`)
	slugInvalid     = regexp.MustCompile(`[^a-z0-9]+`)
)

// CountWords counts prose words in markdown, ignoring code blocks, link
// targets, images and formatting characters.
func CountWords(markdown string) int {
	text := codeBlockRegex.ReplaceAllString(markdown, " ")
	text = inlineCodeRegex.ReplaceAllString(text, " ")
	text = imageRegex.ReplaceAllString(text, " ")
	text = linkRegex.ReplaceAllString(text, "$1")
	text = markupRegex.ReplaceAllString(text, " ")
	return len(strings.Fields(text))
}

// ReadTime estimates reading time in whole minutes for the given markdown.
// The result is rounded up and never less than one minute.
func ReadTime(markdown string) int {
	words := CountWords(markdown)
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// Slugify converts an arbitrary name into a URL- and tag-safe slug.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugInvalid.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// Fingerprint returns a stable content hash for a rendered document so
// callers can detect unchanged output across generation runs.
func Fingerprint(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}
