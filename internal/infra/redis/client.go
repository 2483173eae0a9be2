package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// callbackKey is the ZSET holding deferred callbacks, scored by due unix time.
const callbackKey = "vaultflow:callbacks"

// memberSep joins the op, unique id and argument into one ZSET member. The
// unique id keeps two callbacks with identical op and argument distinct.
const memberSep = "|"

// Client wraps Redis operations for the deferred-callback queue.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Callback is one claimed deferred invocation.
type Callback struct {
	Op  string
	Arg string
	Due time.Time
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// PushCallback arranges a deferred invocation at the given due time. Fire and
// forget: the queue guarantees at-or-after delivery, never exact timing.
func (c *Client) PushCallback(ctx context.Context, due time.Time, op, arg string) error {
	if strings.Contains(op, memberSep) {
		return fmt.Errorf("invalid op %q: contains reserved separator", op)
	}
	member := strings.Join([]string{op, uuid.NewString(), arg}, memberSep)

	err := c.rdb.ZAdd(ctx, callbackKey, redis.Z{
		Score:  float64(due.Unix()),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("zadd failed: %w", err)
	}
	return nil
}

// PopDue claims up to limit callbacks whose due time has passed. A callback
// is owned by the caller only when its ZRem removes the member, so two
// dispatchers never claim the same one.
func (c *Client) PopDue(ctx context.Context, now time.Time, limit int64) ([]Callback, error) {
	members, err := c.rdb.ZRangeByScoreWithScores(ctx, callbackKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.Unix()),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrangebyscore failed: %w", err)
	}

	var claimed []Callback
	for _, z := range members {
		member, ok := z.Member.(string)
		if !ok {
			return claimed, fmt.Errorf("unexpected member type %T", z.Member)
		}
		removed, err := c.rdb.ZRem(ctx, callbackKey, member).Result()
		if err != nil {
			return claimed, fmt.Errorf("zrem failed: %w", err)
		}
		if removed == 0 {
			continue // lost the claim to another dispatcher
		}

		cb, err := parseMember(member)
		if err != nil {
			return claimed, err
		}
		cb.Due = time.Unix(int64(z.Score), 0)
		claimed = append(claimed, cb)
	}
	return claimed, nil
}

// HasPending reports whether any callback for the given op is queued,
// regardless of due time. Members carry the op as their first segment, so a
// prefix match finds them without draining the set.
func (c *Client) HasPending(ctx context.Context, op string) (bool, error) {
	match := op + memberSep + "*"
	var cursor uint64
	for {
		members, next, err := c.rdb.ZScan(ctx, callbackKey, cursor, match, 64).Result()
		if err != nil {
			return false, fmt.Errorf("zscan failed: %w", err)
		}
		if len(members) > 0 {
			return true, nil
		}
		if next == 0 {
			return false, nil
		}
		cursor = next
	}
}

// PendingCount returns the number of queued callbacks.
func (c *Client) PendingCount(ctx context.Context) (int64, error) {
	count, err := c.rdb.ZCard(ctx, callbackKey).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return count, nil
}

func parseMember(member string) (Callback, error) {
	parts := strings.SplitN(member, memberSep, 3)
	if len(parts) != 3 {
		return Callback{}, fmt.Errorf("malformed callback member %q", member)
	}
	return Callback{Op: parts[0], Arg: parts[2]}, nil
}
