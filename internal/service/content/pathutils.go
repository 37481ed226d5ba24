package content

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

// pathutils.go - pure object key construction.
//
// Keys are built from hierarchy names joined with a single ASCII "/". Names
// may themselves contain slashes, so every component is sanitised first.

// fractionSlash replaces path separators inside a single key component.
const fractionSlash = "\u2044"

// archiveStampLayout is the minute-resolution suffix of archived keys.
const archiveStampLayout = "200601021504"

var pagePrefixPattern = regexp.MustCompile(`^(\d{3})_`)

// SanitizeSegment replaces "/" and "\" with U+2044 so a name stays one segment.
//
// Examples:
//   - SanitizeSegment("A/B") → "A⁄B"
//   - SanitizeSegment(`C:\x`) → "C:⁄x"
func SanitizeSegment(name string) string {
	name = strings.ReplaceAll(name, "/", fractionSlash)
	return strings.ReplaceAll(name, `\`, fractionSlash)
}

// JoinKey sanitises each component and joins them with "/".
func JoinKey(segments ...string) string {
	clean := make([]string, len(segments))
	for i, s := range segments {
		clean[i] = SanitizeSegment(s)
	}
	return strings.Join(clean, "/")
}

// splitKey returns the directory (without trailing slash) and final filename.
func splitKey(key string) (dir, file string) {
	i := strings.LastIndex(key, "/")
	if i < 0 {
		return "", key
	}
	return key[:i], key[i+1:]
}

// PendingKey inserts "pending/" before the final filename.
//
// Example:
//   - PendingKey("Ch/Cat/001_Intro/001_01.mp4") → "Ch/Cat/001_Intro/pending/001_01.mp4"
func PendingKey(key string) string {
	dir, file := splitKey(key)
	if dir == "" {
		return "pending/" + file
	}
	return dir + "/pending/" + file
}

// ArchivedKey inserts "archived/" before the final filename and stamps the
// filename with t in loc, before the extension.
//
// Example:
//   - ArchivedKey("Ch/Cat/001_Intro.png", 2025-01-15 12:34) → "Ch/Cat/archived/001_Intro_202501151234.png"
func ArchivedKey(key string, t time.Time, loc *time.Location) string {
	dir, file := splitKey(key)
	name := ArchivedFilename(file, t, loc)
	if dir == "" {
		return "archived/" + name
	}
	return dir + "/archived/" + name
}

// ArchivedFilename returns filename with the archive stamp before its extension.
func ArchivedFilename(filename string, t time.Time, loc *time.Location) string {
	ext := path.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	return fmt.Sprintf("%s_%s%s", stem, t.In(loc).Format(archiveStampLayout), ext)
}

// Basename strips the last extension from a name.
//
// Example:
//   - Basename("001_Intro.png") → "001_Intro"
func Basename(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// Extension returns the lower-cased extension of a filename including the dot.
func Extension(filename string) string {
	return strings.ToLower(path.Ext(filename))
}

// PagePrefix returns the three-digit prefix of a page name, or false when the
// name does not follow the NNN_ convention.
func PagePrefix(name string) (string, bool) {
	m := pagePrefixPattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// AdditionalFilename builds {prefix}_{NN}{ext}.
//
// Example:
//   - AdditionalFilename("001", 1, ".mp4") → "001_01.mp4"
func AdditionalFilename(prefix string, number int, ext string) string {
	return fmt.Sprintf("%s_%02d%s", prefix, number, ext)
}

// ReprefixAdditional swaps the prefix of an additional filename, keeping its
// number and extension.
func ReprefixAdditional(filename, prefix string) string {
	if _, ok := PagePrefix(filename); !ok {
		return filename
	}
	return prefix + filename[3:]
}

// fallbackKey is used when an entity's parent chain cannot be resolved.
func fallbackKey(id int64, filename string) string {
	return fmt.Sprintf("files/%d/%s", id, SanitizeSegment(filename))
}
