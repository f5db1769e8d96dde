package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const filenamePrefix = "timeex-report-"

// DedupPrefixLen is how many leading characters of an archive filename
// identify its cycle.
const DedupPrefixLen = 30

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	unsafeChars   = regexp.MustCompile(`[^a-zA-Z0-9-]`)
)

// Slug turns a cycle name into a filename fragment: whitespace runs become
// a hyphen and anything outside [A-Za-z0-9-] is dropped.
func Slug(name string) string {
	return unsafeChars.ReplaceAllString(whitespaceRun.ReplaceAllString(name, "-"), "")
}

// DownloadFilename is the name of a user-requested report export.
func DownloadFilename(cycleName string) string {
	return filenamePrefix + Slug(cycleName) + ".csv"
}

// ArchiveFilename is the name of an archived report written at t.
func ArchiveFilename(cycleName string, t time.Time) string {
	return fmt.Sprintf("%s%s-%d.csv", filenamePrefix, Slug(cycleName), t.UnixMilli())
}

// DedupPrefix returns the leading part of archive filenames for cycleName.
// Distinct cycles can share a prefix once the slug is long enough to be cut.
func DedupPrefix(cycleName string) string {
	p := filenamePrefix + Slug(cycleName) + "-"
	if len(p) > DedupPrefixLen {
		p = p[:DedupPrefixLen]
	}
	return p
}

// HasDedupPrefix reports whether filename was written for a cycle with the
// given prefix.
func HasDedupPrefix(filename, prefix string) bool {
	return strings.HasPrefix(filename, prefix)
}
