package textutil

import (
	"path/filepath"
	"strings"
)

// fileNameReplacer replaces characters that would split or break a storage
// key.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"#", "",
	"%", "",
)

// SanitizeFileName returns the base name of name with unsafe characters
// replaced and runs of whitespace collapsed to one dash. It returns fallback
// when nothing usable remains.
func SanitizeFileName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Join(strings.Fields(fileNameReplacer.Replace(name)), "-")
	name = strings.Trim(name, ".-")
	if name == "" {
		return fallback
	}
	return name
}
