// Package publish pushes ranked recommendations to an online store where a
// serving layer can read them.
package publish

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/YuminosukeSato/movielens/pkg/errors"
	"github.com/YuminosukeSato/movielens/pkg/log"
)

// Publisher stores a ranked list of movie ids.
type Publisher interface {
	Publish(ctx context.Context, ranked []int64) error
	Close() error
}

// RedisConfig configures a RedisPublisher.
type RedisConfig struct {
	Addr string
	DB   int
	// Key is the sorted set that receives the ranking.
	Key string
	// TTL expires the key. Zero keeps it forever.
	TTL time.Duration
}

// RedisPublisher writes the ranking to a Redis sorted set. The best item
// gets the highest score so ZREVRANGE returns the ranking in order.
type RedisPublisher struct {
	client redis.Cmdable
	closer func() error
	key    string
	ttl    time.Duration
	logger log.Logger
}

// NewRedisPublisher connects to cfg.Addr and pings the server.
func NewRedisPublisher(ctx context.Context, cfg RedisConfig) (*RedisPublisher, error) {
	if cfg.Key == "" {
		return nil, errors.NewValidationError("publish.key", "is required", cfg.Key)
	}
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "connect to redis at %s", cfg.Addr)
	}
	p := newRedisPublisher(client, cfg.Key, cfg.TTL)
	p.closer = client.Close
	return p, nil
}

func newRedisPublisher(client redis.Cmdable, key string, ttl time.Duration) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: log.GetLoggerWithName("publish"),
	}
}

// Publish replaces the sorted set with ranked. The delete, the insert and
// the expiry run in one MULTI/EXEC transaction, so readers see either the
// previous ranking or the new one.
func (p *RedisPublisher) Publish(ctx context.Context, ranked []int64) error {
	members := make([]redis.Z, len(ranked))
	for i, id := range ranked {
		members[i] = redis.Z{
			Score:  float64(len(ranked) - i),
			Member: strconv.FormatInt(id, 10),
		}
	}

	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, p.key)
		if len(members) == 0 {
			return nil
		}
		pipe.ZAdd(ctx, p.key, members...)
		if p.ttl > 0 {
			pipe.Expire(ctx, p.key, p.ttl)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "publish %s", p.key)
	}

	if len(ranked) == 0 {
		p.logger.Warn("nothing to publish", log.OperationKey, log.OperationPublish, "redis.key", p.key)
		return nil
	}
	p.logger.Info("recommendations published",
		log.OperationKey, log.OperationPublish,
		"redis.key", p.key,
		log.SamplesKey, len(ranked),
	)
	return nil
}

// Close releases the connection.
func (p *RedisPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

var _ Publisher = (*RedisPublisher)(nil)
