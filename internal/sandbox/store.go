package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/boardgame-console/pkg/ruledoc"
)

// ErrNotFound is returned when no document is stored under a rule_id.
var ErrNotFound = errors.New("rules not found")

// documentTTL bounds how long an abandoned game lingers.
const documentTTL = 24 * time.Hour

// Store persists sandbox game documents and round history.
type Store interface {
	Ping(ctx context.Context) error
	SaveRules(ctx context.Context, ruleID string, doc *ruledoc.Node) error
	LoadRules(ctx context.Context, ruleID string) (*ruledoc.Node, error)
	ResetHistory(ctx context.Context, ruleID, role string) error
	AppendHistory(ctx context.Context, ruleID, role string, entry *ruledoc.Node) error
	History(ctx context.Context, ruleID, role string) ([]*ruledoc.Node, error)
}

// RedisStore implements Store on Redis. Documents are JSON strings under
// rules:<rule_id>; history is a list under history:<rule_id>:<role>.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore accepts either a redis:// URL or a bare host:port.
func NewRedisStore(redisURL string, logger *slog.Logger) (*RedisStore, error) {
	opt := &redis.Options{Addr: redisURL}
	if strings.Contains(redisURL, "://") {
		var err error
		opt, err = redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
	}
	return &RedisStore{
		client: redis.NewClient(opt),
		logger: logger,
	}, nil
}

func rulesKey(ruleID string) string { return "rules:" + ruleID }

func historyKey(ruleID, role string) string {
	return fmt.Sprintf("history:%s:%s", ruleID, role)
}

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStore) WaitForConnection(ctx context.Context, attempts int, delay time.Duration) error {
	for i := 0; i < attempts; i++ {
		err := r.Ping(ctx)
		if err == nil {
			r.logger.Info("Redis connection established")
			return nil
		}
		r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("redis did not become available after %d attempts", attempts)
}

func (r *RedisStore) SaveRules(ctx context.Context, ruleID string, doc *ruledoc.Node) error {
	data, err := doc.MarshalJSON()
	if err != nil {
		r.logger.Error("Failed to marshal rules", "rule_id", ruleID, "error", err)
		return fmt.Errorf("failed to marshal rules: %w", err)
	}
	if err := r.client.Set(ctx, rulesKey(ruleID), data, documentTTL).Err(); err != nil {
		r.logger.Error("Failed to save rules", "rule_id", ruleID, "error", err)
		return fmt.Errorf("failed to save rules: %w", err)
	}
	return nil
}

func (r *RedisStore) LoadRules(ctx context.Context, ruleID string) (*ruledoc.Node, error) {
	data, err := r.client.Get(ctx, rulesKey(ruleID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ruleID)
		}
		r.logger.Error("Failed to load rules", "rule_id", ruleID, "error", err)
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	doc, err := ruledoc.ParseJSON(data)
	if err != nil {
		r.logger.Error("Failed to unmarshal rules", "rule_id", ruleID, "error", err)
		return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
	}
	return doc, nil
}

func (r *RedisStore) ResetHistory(ctx context.Context, ruleID, role string) error {
	if err := r.client.Del(ctx, historyKey(ruleID, role)).Err(); err != nil {
		return fmt.Errorf("failed to reset history: %w", err)
	}
	return nil
}

func (r *RedisStore) AppendHistory(ctx context.Context, ruleID, role string, entry *ruledoc.Node) error {
	data, err := entry.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	key := historyKey(ruleID, role)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, documentTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to append history", "rule_id", ruleID, "player_role", role, "error", err)
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (r *RedisStore) History(ctx context.Context, ruleID, role string) ([]*ruledoc.Node, error) {
	items, err := r.client.LRange(ctx, historyKey(ruleID, role), 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	history := make([]*ruledoc.Node, 0, len(items))
	for i, item := range items {
		n, err := ruledoc.ParseJSON([]byte(item))
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal history entry %d: %w", i, err)
		}
		history = append(history, n)
	}
	return history, nil
}
