// Package address maps source documents to stable output locations.
package address

import (
	"fmt"
	"path"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// PrefixLen is the number of hex characters of the directory hash used as subdirectory.
const PrefixLen = 6

// DirHash returns the short hash naming the output subdirectory for files in dir.
func DirHash(dir string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(dir))[:PrefixLen]
}

// OutputPath maps a slash-separated source path, relative to its root, to the
// page path relative to the output directory. Files in different source
// directories never share a subdirectory, so equal base names do not collide.
func OutputPath(rel string) string {
	rel = path.Clean(strings.ReplaceAll(rel, "\\", "/"))
	dir := path.Dir(rel)
	if dir == "." {
		dir = ""
	}
	base := path.Base(rel)
	stem := strings.TrimSuffix(base, path.Ext(base))
	return path.Join(DirHash(dir), stem+".html")
}

// URL returns the site-relative URL of the page for rel. Pages live one level
// below the top-level static assets.
func URL(rel string) string {
	return "../" + OutputPath(rel)
}
