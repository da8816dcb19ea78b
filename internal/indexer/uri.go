package indexer

import (
	"net/url"
	"path/filepath"
	"strings"
)

// CanonicalURI normalises an absolute or relative path, or a file:// URL,
// to a file:// URL over the cleaned absolute path
func CanonicalURI(s string) string {
	if strings.HasPrefix(s, "file://") {
		if u, err := url.Parse(s); err == nil {
			return PathToURI(filepath.FromSlash(u.Path))
		}
	}
	return PathToURI(s)
}

// PathToURI converts a file system path to a file:// URL
func PathToURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}

	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

// URIToPath converts a file:// URL back to a file system path.
// Anything that is not a file URL is returned unchanged.
func URIToPath(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return uri
	}
	return filepath.FromSlash(u.Path)
}
