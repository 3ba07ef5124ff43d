// Package redis implements core.AssetRepository on Redis. Each asset is a
// JSON string value, insertion order is a list and file payloads live under
// their own keys.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/hupe1980/assetflow/artifact"
	"github.com/hupe1980/assetflow/core"
)

// DefaultPrefix namespaces every key written by the repository.
const DefaultPrefix = "assetflow:assets"

// Config describes the connection parameters.
type Config struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Store is a Redis-backed asset repository.
type Store struct {
	client *redis.Client
	keys   keys
	opts   artifact.Options
}

// New connects to Redis and verifies the connection with PING.
func New(cfg Config, optFns ...func(o *artifact.Options)) (*Store, error) {
	if cfg.Address == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewFromClient(client, cfg.Prefix, optFns...), nil
}

// NewFromClient wraps an existing client. An empty prefix uses DefaultPrefix.
func NewFromClient(client *redis.Client, prefix string, optFns ...func(o *artifact.Options)) *Store {
	opts := artifact.DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{client: client, keys: newKeys(prefix), opts: opts}
}

// Close closes the underlying client.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Create stores a new asset under a fresh server id.
func (s *Store) Create(ctx context.Context, in core.AssetInput) (core.Asset, error) {
	if err := artifact.ValidateInput(in); err != nil {
		return core.Asset{}, err
	}
	a := artifact.NewRecord(s.opts.IDGenerator(), in, s.opts.Clock())
	data, err := encodeAsset(a)
	if err != nil {
		return core.Asset{}, err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.asset(a.ID), data, 0)
		pipe.RPush(ctx, s.keys.index(), a.ID)
		return nil
	})
	if err != nil {
		return core.Asset{}, fmt.Errorf("redis create asset: %w", err)
	}
	return a, nil
}

// Update replaces the stored fields of id with in.
func (s *Store) Update(ctx context.Context, id string, in core.AssetInput) (core.Asset, error) {
	if err := artifact.ValidateInput(in); err != nil {
		return core.Asset{}, err
	}
	var next core.Asset
	key := s.keys.asset(id)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		next = artifact.UpdateRecord(cur, in, s.opts.Clock())
		data, err := encodeAsset(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return core.Asset{}, wrap("update asset", err)
	}
	return next, nil
}

// Delete removes the asset and its file payload.
func (s *Store) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.keys.asset(id))
		pipe.Del(ctx, s.keys.file(id))
		pipe.LRem(ctx, s.keys.index(), 0, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete asset: %w", err)
	}
	if del.Val() == 0 {
		return artifact.NotFound(id)
	}
	return nil
}

// List returns stored assets in insertion order.
func (s *Store) List(ctx context.Context, dataType core.DataType) ([]core.Asset, error) {
	ids, err := s.client.LRange(ctx, s.keys.index(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list assets: %w", err)
	}
	out := []core.Asset{}
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.keys.asset(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list assets: %w", err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		a, err := decodeAsset([]byte(raw))
		if err != nil {
			return nil, err
		}
		if artifact.Matches(a, dataType) {
			out = append(out, a)
		}
	}
	return out, nil
}

// Upload stores file as a FILE asset together with its bytes.
func (s *Store) Upload(ctx context.Context, file core.FileUpload) (core.Asset, error) {
	if strings.TrimSpace(file.Name) == "" {
		file.Name = file.FileName
	}
	a := artifact.FileRecord(s.opts.IDGenerator(), file, s.opts.Clock())
	if err := artifact.ValidateInput(core.InputFromAsset(a)); err != nil {
		return core.Asset{}, err
	}
	data, err := encodeAsset(a)
	if err != nil {
		return core.Asset{}, err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.asset(a.ID), data, 0)
		pipe.Set(ctx, s.keys.file(a.ID), file.Data, 0)
		pipe.RPush(ctx, s.keys.index(), a.ID)
		return nil
	})
	if err != nil {
		return core.Asset{}, fmt.Errorf("redis upload asset: %w", err)
	}
	return a, nil
}

// Download returns the stored file bytes of id.
func (s *Store) Download(ctx context.Context, id string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.keys.file(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		if _, getErr := s.get(ctx, s.client, id); getErr != nil {
			return nil, wrap("download asset", getErr)
		}
		return nil, artifact.ErrNoFile
	}
	if err != nil {
		return nil, fmt.Errorf("redis download asset: %w", err)
	}
	return data, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) get(ctx context.Context, c getter, id string) (core.Asset, error) {
	raw, err := c.Get(ctx, s.keys.asset(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.Asset{}, artifact.NotFound(id)
	}
	if err != nil {
		return core.Asset{}, err
	}
	return decodeAsset(raw)
}

// wrap keeps domain errors intact and annotates transport errors.
func wrap(op string, err error) error {
	var ce *core.Error
	if errors.As(err, &ce) {
		return err
	}
	return fmt.Errorf("redis %s: %w", op, err)
}

type keys struct {
	prefix string
}

func newKeys(prefix string) keys {
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return keys{prefix: prefix}
}

func (k keys) asset(id string) string { return k.prefix + ":asset:" + id }
func (k keys) file(id string) string  { return k.prefix + ":file:" + id }
func (k keys) index() string          { return k.prefix + ":index" }

// encodeAsset serializes the repository view of a. Local persistence
// bookkeeping is never stored remotely.
func encodeAsset(a core.Asset) ([]byte, error) {
	a.Persistence = core.Persistence{}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode asset %s: %w", a.ID, err)
	}
	return b, nil
}

func decodeAsset(raw []byte) (core.Asset, error) {
	var a core.Asset
	if err := json.Unmarshal(raw, &a); err != nil {
		return core.Asset{}, fmt.Errorf("decode asset: %w", err)
	}
	a.Persistence = core.Persistence{}
	return a, nil
}
