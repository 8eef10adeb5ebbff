package utils

import (
	"path"
	"strings"
)

// SafeFilename strips any directory components a client put in an upload
// name. Both separators are treated as path separators. Empty results become "unknown".
func SafeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(strings.TrimSpace(name))
	if base == "." || base == "/" || base == ".." || base == "" {
		return "unknown"
	}
	return base
}
