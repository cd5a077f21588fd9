package domain

import "context"

// FileStore abstracts raw file byte storage. The default implementation
// stores BLOBs in the SQL database; S3-compatible storage is used when a
// bucket is configured.
type FileStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
