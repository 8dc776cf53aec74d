package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ragline/orchestrator/internal/circuitbreaker"
	"github.com/ragline/orchestrator/internal/modes"
)

// RunRecord is one completed query run in a session's history.
type RunRecord struct {
	Query     string     `json:"query"`
	Response  string     `json:"response"`
	Mode      modes.Mode `json:"mode"`
	Timestamp time.Time  `json:"timestamp"`
}

// Config holds session store configuration
type Config struct {
	RedisAddr  string        `mapstructure:"redis_addr"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxHistory int           `mapstructure:"max_history"`
}

// Manager keeps per-session chat history in Redis lists, newest first.
type Manager struct {
	client     *circuitbreaker.RedisWrapper
	logger     *zap.Logger
	ttl        time.Duration
	maxHistory int
}

// NewManager connects to Redis and verifies the connection.
func NewManager(cfg Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	client := circuitbreaker.NewRedisWrapper(redisClient, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newManager(client, cfg, logger), nil
}

// NewManagerWithClient builds a manager over an existing wrapped client,
// used in tests.
func NewManagerWithClient(client *circuitbreaker.RedisWrapper, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return newManager(client, cfg, logger)
}

func newManager(client *circuitbreaker.RedisWrapper, cfg Config, logger *zap.Logger) *Manager {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	maxHistory := cfg.MaxHistory
	if maxHistory == 0 {
		maxHistory = 50
	}
	return &Manager{client: client, logger: logger, ttl: ttl, maxHistory: maxHistory}
}

func historyKey(sessionID string) string {
	return "ragline:session:" + sessionID + ":history"
}

// AppendRun records a completed run at the head of the session's history and
// trims the list to the configured size.
func (m *Manager) AppendRun(ctx context.Context, sessionID string, rec RunRecord) error {
	if sessionID == "" {
		return nil
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	key := historyKey(sessionID)
	if err := m.client.LPush(ctx, key, b).Err(); err != nil {
		return fmt.Errorf("append session history: %w", err)
	}
	if err := m.client.LTrim(ctx, key, 0, int64(m.maxHistory-1)).Err(); err != nil {
		m.logger.Warn("session history trim failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
	if err := m.client.Expire(ctx, key, m.ttl).Err(); err != nil {
		m.logger.Warn("session history expire failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
	return nil
}

// History returns up to limit records, most recent first.
func (m *Manager) History(ctx context.Context, sessionID string, limit int) ([]RunRecord, error) {
	if sessionID == "" {
		return nil, nil
	}
	if limit <= 0 || limit > m.maxHistory {
		limit = m.maxHistory
	}

	raw, err := m.client.LRange(ctx, historyKey(sessionID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read session history: %w", err)
	}

	out := make([]RunRecord, 0, len(raw))
	for _, s := range raw {
		var rec RunRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			m.logger.Warn("skipping unreadable history entry",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Clear removes a session's history.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	return m.client.Del(ctx, historyKey(sessionID)).Err()
}

// Close releases the Redis connection.
func (m *Manager) Close() error { return m.client.Close() }
