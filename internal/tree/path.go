package tree

import (
	"strings"

	"github.com/tidwall/gjson"
)

// gjson treats these as path syntax; a backslash makes them literal.
const pathMeta = `\*?|#@!=<>%[]{}(),:"`

// GetPath resolves an object path in an encoded JSON document.
// The empty path returns the whole document.
func GetPath(doc []byte, path string) gjson.Result {
	if path == "" {
		return gjson.ParseBytes(doc)
	}
	return gjson.GetBytes(doc, escapePath(path))
}

func escapePath(path string) string {
	var b strings.Builder
	b.Grow(len(path))
	for i, seg := range strings.Split(path, ".") {
		if i > 0 {
			b.WriteByte('.')
		}
		for _, r := range seg {
			if strings.ContainsRune(pathMeta, r) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
