// Package archive defines the blob store used to retain raw provider
// payloads for offline inspection. Implementations live in subpackages;
// archiving is always best-effort and never fails a fetch.
package archive

import "context"

// BlobStore writes raw artifacts and returns a URI for the stored object.
type BlobStore interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Noop discards everything. It is the default when no archive backend is
// configured.
type Noop struct{}

// Put drops the payload and returns an empty URI.
func (Noop) Put(_ context.Context, _ string, _ string, _ []byte) (string, error) {
	return "", nil
}
