package ports

import "context"

// Port: stores binary proof-of-delivery payloads.
type FileStore interface {
	// Save writes data under name and returns a reference usable in remark text.
	Save(ctx context.Context, name string, data []byte) (string, error)
	// Delete removes a file previously returned by Save.
	Delete(ctx context.Context, ref string) error
}
