package domain

import "context"

// ReaderPort loads check configs by name
type ReaderPort interface {
	Load(ctx context.Context, name string) (CheckConfig, error)
}

// ManagerPort is the full config CRUD surface
type ManagerPort interface {
	ReaderPort
	List(ctx context.Context) ([]string, error)
	// Raw returns the stored JSON text without decoding
	Raw(ctx context.Context, name string) (string, error)
	Save(ctx context.Context, name string, cfg CheckConfig) error
	Delete(ctx context.Context, name string) error
}
