// Package media resolves local media handles into remote references by uploading them to a blob store.
package media

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// Ref is an uploaded object: its blob key and the URL it resolves to.
type Ref struct {
	Key string
	URL string
}

// IsRemoteRef reports whether ref is a resolved http(s) reference that is safe to persist.
func IsRemoteRef(ref string) bool {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// localPath turns a local handle (plain path or file:// URI) into a filesystem path.
func localPath(handle string) string {
	if u, err := url.Parse(handle); err == nil && u.Scheme == "file" {
		return filepath.FromSlash(u.Path)
	}
	return handle
}

// objectKey builds the blob key from the handle's trailing path segment.
func objectKey(prefix, handle string) string {
	segment := filepath.Base(localPath(handle))
	if prefix == "" {
		return segment
	}
	return path.Join(prefix, segment)
}
