package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/readersync/internal/common"
	"github.com/dmitrijs2005/readersync/internal/groups"
	"github.com/dmitrijs2005/readersync/internal/logging"
	"github.com/dmitrijs2005/readersync/internal/models"
	"github.com/dmitrijs2005/readersync/internal/timex"
)

const (
	redisKeyPrefix     = "readersync:group:"
	redisChannelPrefix = "readersync:changes:"
)

// RedisTransport keeps each group as one JSON string. Pushes are
// check-and-set under WATCH and announce themselves on a per-group channel.
type RedisTransport struct {
	rdb     *redis.Client
	timeout time.Duration
	logger  logging.Logger
	now     func() int64
}

func NewRedis(ctx context.Context, addr string, timeout time.Duration, l logging.Logger) (*RedisTransport, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, wrap("redis", "connect", fmt.Errorf("%w: %w", common.ErrUnavailable, err))
	}
	return NewRedisWithClient(rdb, timeout, l), nil
}

func NewRedisWithClient(rdb *redis.Client, timeout time.Duration, l logging.Logger) *RedisTransport {
	return &RedisTransport{rdb: rdb, timeout: timeout, logger: l.With("module", "transport.redis"), now: timex.NowMillis}
}

func redisKey(code string) string     { return redisKeyPrefix + code }
func redisChannel(code string) string { return redisChannelPrefix + code }

func (t *RedisTransport) Name() string { return "redis" }
func (t *RedisTransport) Remote() bool { return true }

func (t *RedisTransport) GroupExists(ctx context.Context, code string) (bool, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	n, err := t.rdb.Exists(ctx, redisKey(code)).Result()
	if err != nil {
		return false, wrap(t.Name(), "exists", unavailable(err))
	}
	return n > 0, nil
}

func (t *RedisTransport) CreateGroup(ctx context.Context, code, deviceID string) error {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	b, err := json.Marshal(models.NewGroupRecord(code, deviceID, t.now()))
	if err != nil {
		return wrap(t.Name(), "create", err)
	}
	ok, err := t.rdb.SetNX(ctx, redisKey(code), b, 0).Result()
	if err != nil {
		return wrap(t.Name(), "create", unavailable(err))
	}
	if !ok {
		return wrap(t.Name(), "create", common.ErrGroupExists)
	}
	return nil
}

func (t *RedisTransport) FetchGroup(ctx context.Context, code string) (*Snapshot, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	raw, err := t.rdb.Get(ctx, redisKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Snapshot{DeviceCount: 1}, nil
	}
	if err != nil {
		return nil, wrap(t.Name(), "fetch", unavailable(err))
	}

	rec := t.decode(ctx, code, raw)
	snap := &Snapshot{Revision: groups.FormatRevision(revisionOf(rec)), DeviceCount: rec.DeviceCount()}
	if rec == nil || len(rec.Data) == 0 {
		return snap, nil
	}
	env, err := rec.Envelope()
	if err != nil {
		t.logger.Warn(ctx, "stored envelope unusable, treating as empty", "code", code, "error", err)
		return snap, nil
	}
	snap.Envelope = env
	return snap, nil
}

func (t *RedisTransport) PutGroup(ctx context.Context, code string, env *models.Envelope, revision string) (*PutResult, error) {
	ctx, cancel := withTimeout(ctx, t.timeout)
	defer cancel()

	data, err := env.Encode()
	if err != nil {
		return nil, wrap(t.Name(), "put", err)
	}
	key := redisKey(code)
	var result *PutResult

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		now := t.now()

		var rec *models.GroupRecord
		switch {
		case errors.Is(err, redis.Nil):
			if revision != "" {
				return common.ErrRevisionConflict
			}
		case err != nil:
			return unavailable(err)
		default:
			if revision == "" {
				return common.ErrRevisionConflict
			}
			rec = t.decode(ctx, code, raw)
			if groups.FormatRevision(revisionOf(rec)) != revision {
				return common.ErrRevisionConflict
			}
		}

		if rec == nil {
			rec = models.NewGroupRecord(code, env.DeviceID, now)
			if revision != "" {
				// replaces an unreadable record, which counts as revision 0
				rec.Revision = 1
			}
		} else {
			rec.Revision++
			rec.Touch(env.DeviceID, now)
		}
		rec.Data = data
		rec.UpdatedAt = now

		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, 0)
			pipe.Publish(ctx, redisChannel(code), env.DeviceID)
			return nil
		})
		if err != nil {
			return err
		}
		result = &PutResult{Revision: groups.FormatRevision(rec.Revision), DeviceCount: rec.DeviceCount()}
		return nil
	}

	err = t.rdb.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, redis.TxFailedErr):
		return nil, wrap(t.Name(), "put", common.ErrRevisionConflict)
	case errors.Is(err, common.ErrRevisionConflict), errors.Is(err, common.ErrUnavailable):
		return nil, wrap(t.Name(), "put", err)
	default:
		return nil, wrap(t.Name(), "put", unavailable(err))
	}
}

// Changes reports pushes made to the group by other devices. The channel
// closes when ctx is done.
func (t *RedisTransport) Changes(ctx context.Context, code, self string) <-chan string {
	sub := t.rdb.Subscribe(ctx, redisChannel(code))
	out := make(chan string)

	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				if msg.Payload == self {
					continue
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func (t *RedisTransport) Close() error {
	return t.rdb.Close()
}

// decode parses a stored record. A record that does not parse is logged and
// treated as revision 0 with no data, so the next push replaces it.
func (t *RedisTransport) decode(ctx context.Context, code string, raw []byte) *models.GroupRecord {
	var rec models.GroupRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.logger.Warn(ctx, "group record unusable, treating as empty", "code", code, "error", err)
		return nil
	}
	return &rec
}

func revisionOf(rec *models.GroupRecord) int64 {
	if rec == nil {
		return 0
	}
	return rec.Revision
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", common.ErrUnavailable, err)
}
