package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/woozymasta/geojsonkit/internal/manifest"
)

// maxTxRetries bounds optimistic transactions that lose a WATCH race.
const maxTxRetries = 10

// RedisStore implements Store on Redis. Each record is a JSON document under
// "<prefix>:doc:<ref>"; "<prefix>:refs" is a sorted set keeping upload order.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis builds a store on a new client. No connection is made until the
// first command; Migrate pings the server.
func NewRedis(addr, password string, db int, prefix string) *RedisStore {
	return NewRedisWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}), prefix)
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "geojson"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) refsKey() string { return s.prefix + ":refs" }
func (s *RedisStore) docKey(ref string) string { return s.prefix + ":doc:" + ref }

func (s *RedisStore) Migrate(ctx context.Context) error {
	return eris.Wrap(s.client.Ping(ctx).Err(), "redis: ping")
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// ReplaceManifest drops every record and writes entries in one MULTI/EXEC,
// watching the refs set so a concurrent replace forces a retry.
func (s *RedisStore) ReplaceManifest(ctx context.Context, entries []manifest.Entry) error {
	now := time.Now().UTC()
	docs := make([][]byte, len(entries))
	for i, e := range entries {
		data, err := json.Marshal(Record{Ref: e.Ref, BatchIDs: e.BatchIDs, UpdatedAt: now})
		if err != nil {
			return eris.Wrap(err, "redis: marshal record")
		}
		docs[i] = data
	}

	err := s.retryTx(ctx, func(tx *redis.Tx) error {
		_, stale, err := s.staleKeys(ctx, tx)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, stale...)
			for i, e := range entries {
				pipe.Set(ctx, s.docKey(e.Ref), docs[i], 0)
				pipe.ZAddNX(ctx, s.refsKey(), redis.Z{Score: float64(i), Member: e.Ref})
			}
			return nil
		})
		return err
	})
	return eris.Wrap(err, "redis: replace manifest")
}

func (s *RedisStore) AttachGeoJSON(ctx context.Context, ref string, doc json.RawMessage) error {
	key := s.docKey(ref)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		rec, err := s.load(ctx, tx, ref)
		if err != nil {
			return err
		}
		rec.GeoJSON = doc
		rec.UpdatedAt = time.Now().UTC()

		data, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrap(err, "redis: marshal record")
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, ErrNotFound) {
		return err
	}
	return eris.Wrapf(err, "redis: attach geojson %s", ref)
}

func (s *RedisStore) Get(ctx context.Context, ref string) (*Record, error) {
	return s.load(ctx, s.client, ref)
}

func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	refs, err := s.client.ZRange(ctx, s.refsKey(), 0, -1).Result()
	if err != nil {
		return nil, eris.Wrap(err, "redis: list refs")
	}
	if len(refs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = s.docKey(ref)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, eris.Wrap(err, "redis: load records")
	}

	records := make([]Record, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, eris.Wrapf(err, "redis: unmarshal record %s", refs[i])
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *RedisStore) ListUnmapped(ctx context.Context) ([]string, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var refs []string
	for i := range records {
		if !records[i].HasGeoJSON() {
			refs = append(refs, records[i].Ref)
		}
	}
	return refs, nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.refsKey()).Result()
	return int(n), eris.Wrap(err, "redis: count refs")
}

func (s *RedisStore) DeleteAll(ctx context.Context) ([]string, error) {
	var refs []string

	err := s.retryTx(ctx, func(tx *redis.Tx) error {
		var keys []string
		var err error
		refs, keys, err = s.staleKeys(ctx, tx)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, keys...)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, eris.Wrap(err, "redis: delete records")
	}
	return refs, nil
}

// staleKeys returns the stored refs along with the refs set key and every
// document key it points at.
func (s *RedisStore) staleKeys(ctx context.Context, tx *redis.Tx) ([]string, []string, error) {
	refs, err := tx.ZRange(ctx, s.refsKey(), 0, -1).Result()
	if err != nil {
		return nil, nil, eris.Wrap(err, "redis: list refs")
	}

	keys := make([]string, 0, len(refs)+1)
	for _, ref := range refs {
		keys = append(keys, s.docKey(ref))
	}
	return refs, append(keys, s.refsKey()), nil
}

// retryTx runs fn under WATCH on the refs set, retrying when another client
// changed it before EXEC.
func (s *RedisStore) retryTx(ctx context.Context, fn func(*redis.Tx) error) error {
	var err error
	for i := 0; i < maxTxRetries; i++ {
		err = s.client.Watch(ctx, fn, s.refsKey())
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func (s *RedisStore) load(ctx context.Context, c redis.Cmdable, ref string) (*Record, error) {
	data, err := c.Get(ctx, s.docKey(ref)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, eris.Wrapf(ErrNotFound, "ref %s", ref)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "redis: get %s", ref)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, eris.Wrapf(err, "redis: unmarshal record %s", ref)
	}
	return &rec, nil
}
