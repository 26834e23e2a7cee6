package logistics

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MaxFilenameRunes caps the length of a sanitised file name.
const MaxFilenameRunes = 160

var (
	unsafeNameRe = regexp.MustCompile(`[^\p{L}\p{N}_\-. ]+`)
	nameSpaceRe  = regexp.MustCompile(`\s+`)
)

// SafeFilename collapses whitespace, replaces every run of characters other
// than letters, digits, '_', '-', '.' and space with '_' and truncates to
// MaxFilenameRunes. An empty result becomes "file_<unix seconds>".
func SafeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = nameSpaceRe.ReplaceAllString(name, " ")
	name = unsafeNameRe.ReplaceAllString(name, "_")
	if r := []rune(name); len(r) > MaxFilenameRunes {
		name = string(r[:MaxFilenameRunes])
	}
	if name == "" {
		return fmt.Sprintf("file_%d", time.Now().Unix())
	}
	return name
}
