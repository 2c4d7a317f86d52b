package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"

	"antifakenews/internal/config"
)

// Persister stores one delta blob under a fixed namespace. Load returns
// (nil, nil) when nothing has been stored yet.
type Persister interface {
	Load(ctx context.Context) (*Delta, error)
	Save(ctx context.Context, d *Delta) error
}

// NewPersister builds the persister selected by the storage config.
func NewPersister(cfg config.StorageConfig) (Persister, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return NewFilePersister(cfg.Dir, cfg.Namespace), nil
	case config.BackendRedis:
		return NewRedisPersister(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Namespace), nil
	case config.BackendMemory:
		return NewMemoryPersister(), nil
	}

	return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.Backend)
}

// FilePersister keeps the delta as a JSON file in a directory.
type FilePersister struct {
	path string
}

// NewFilePersister creates a file persister writing <dir>/<namespace>.json.
// Characters that are unsafe in file names are replaced in the namespace.
func NewFilePersister(dir, namespace string) *FilePersister {
	return &FilePersister{path: filepath.Join(dir, fileName(namespace))}
}

func fileName(namespace string) string {
	replacer := strings.NewReplacer(":", "_", "/", "_", "\\", "_", " ", "_")

	return replacer.Replace(namespace) + ".json"
}

// Path returns the file the delta is stored in.
func (p *FilePersister) Path() string {
	return p.path
}

// Load implements Persister.
func (p *FilePersister) Load(_ context.Context) (*Delta, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read delta: %w", err)
	}

	return DecodeDelta(data)
}

// Save implements Persister. The file is replaced atomically.
func (p *FilePersister) Save(_ context.Context, d *Delta) error {
	data, err := EncodeDelta(d)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write delta: %w", err)
	}

	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("failed to replace delta: %w", err)
	}

	return nil
}

// RedisPersister keeps the delta as a JSON string under the namespace key.
type RedisPersister struct {
	client *redis.Client
	key    string
}

// NewRedisPersister connects lazily to the redis server described by opts.
func NewRedisPersister(opts *redis.Options, namespace string) *RedisPersister {
	return NewRedisPersisterWithClient(redis.NewClient(opts), namespace)
}

// NewRedisPersisterWithClient uses an existing redis client.
func NewRedisPersisterWithClient(client *redis.Client, namespace string) *RedisPersister {
	return &RedisPersister{client: client, key: namespace}
}

// Ping checks that the server is reachable.
func (p *RedisPersister) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Load implements Persister.
func (p *RedisPersister) Load(ctx context.Context) (*Delta, error) {
	data, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read delta from redis: %w", err)
	}

	return DecodeDelta(data)
}

// Save implements Persister. The key never expires.
func (p *RedisPersister) Save(ctx context.Context, d *Delta) error {
	data, err := EncodeDelta(d)
	if err != nil {
		return err
	}

	if err := p.client.Set(ctx, p.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write delta to redis: %w", err)
	}

	return nil
}

// Delete removes the stored delta.
func (p *RedisPersister) Delete(ctx context.Context) error {
	return p.client.Del(ctx, p.key).Err()
}

// Close releases the redis connection pool.
func (p *RedisPersister) Close() error {
	return p.client.Close()
}

// MemoryPersister keeps the encoded delta in process memory.
type MemoryPersister struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryPersister creates an empty in-memory persister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

// Load implements Persister.
func (p *MemoryPersister) Load(_ context.Context) (*Delta, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.data == nil {
		return nil, nil
	}

	return DecodeDelta(p.data)
}

// Save implements Persister.
func (p *MemoryPersister) Save(_ context.Context, d *Delta) error {
	data, err := EncodeDelta(d)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.data = data
	p.saves++

	return nil
}

// Raw returns the stored bytes. It is nil until the first save.
func (p *MemoryPersister) Raw() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.data
}

// SetRaw replaces the stored bytes, for loading hand-written or broken data.
func (p *MemoryPersister) SetRaw(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.data = data
}

// Saves returns how many times Save has succeeded.
func (p *MemoryPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.saves
}
