package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"resume-stream-go/internal/config"
	"resume-stream-go/internal/constants"
	"resume-stream-go/internal/progress"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key is not found in Redis.
// It wraps the underlying redis.Nil error for abstraction.
var ErrNotFound = redis.Nil

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter creates a new Redis client connection
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		// 连接池设置
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		// 超时设置
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,

		// 重试设置
		MaxRetries:      cfg.MaxRetries,
		MinRetryBackoff: time.Duration(cfg.MinRetryBackoffMS) * time.Millisecond,
		MaxRetryBackoff: time.Duration(cfg.MaxRetryBackoffMS) * time.Millisecond,

		// 连接生命周期
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute,
	}

	client := redis.NewClient(opt)

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// GetMD5ExpireDuration 返回配置的MD5去重记录过期时间
func (r *Redis) GetMD5ExpireDuration() time.Duration {
	days := r.config.MD5RecordExpireDays
	if days <= 0 {
		days = 365
	}
	return time.Duration(days) * 24 * time.Hour
}

// SaveProgress 将某次提交的进度快照写入Redis，带TTL
// 覆盖写，前端轮询时总是读到最新快照
func (r *Redis) SaveProgress(ctx context.Context, submissionUUID string, state *progress.State, ttl time.Duration) error {
	if submissionUUID == "" {
		return fmt.Errorf("submissionUUID不能为空")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("序列化进度状态失败: %w", err)
	}
	key := fmt.Sprintf(constants.KeyResumeProgress, submissionUUID)
	if err := r.Client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("写入进度快照失败: %w", err)
	}
	return nil
}

// GetProgress 读取某次提交的进度快照
// 快照不存在(从未写入或已过期)时返回ErrNotFound
func (r *Redis) GetProgress(ctx context.Context, submissionUUID string) (*progress.State, error) {
	key := fmt.Sprintf(constants.KeyResumeProgress, submissionUUID)
	data, err := r.Client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("读取进度快照失败: %w", err)
	}
	var state progress.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("反序列化进度状态失败: %w", err)
	}
	return &state, nil
}

// DeleteProgress 删除进度快照
func (r *Redis) DeleteProgress(ctx context.Context, submissionUUID string) error {
	key := fmt.Sprintf(constants.KeyResumeProgress, submissionUUID)
	return r.Client.Del(ctx, key).Err()
}

// CheckAndAddFileMD5 原子地检查并登记文件MD5
// 返回true表示该MD5首次出现，false表示重复上传
func (r *Redis) CheckAndAddFileMD5(ctx context.Context, md5Hex string) (bool, error) {
	if md5Hex == "" {
		return false, fmt.Errorf("MD5不能为空")
	}
	added, err := r.Client.SAdd(ctx, constants.KeyFileMD5Set, md5Hex).Result()
	if err != nil {
		return false, fmt.Errorf("登记文件MD5失败: %w", err)
	}
	return added > 0, nil
}

// RemoveFileMD5 从去重集合移除MD5，用于处理失败后的回滚
func (r *Redis) RemoveFileMD5(ctx context.Context, md5Hex string) error {
	return r.Client.SRem(ctx, constants.KeyFileMD5Set, md5Hex).Err()
}

// SetMD5ToSubmissionUUID 记录MD5到提交UUID的映射，用于重复上传时回指首次提交
func (r *Redis) SetMD5ToSubmissionUUID(ctx context.Context, md5Hex, submissionUUID string) error {
	key := fmt.Sprintf(constants.KeyFileMD5ToSubmissionUUID, md5Hex)
	return r.Client.Set(ctx, key, submissionUUID, r.GetMD5ExpireDuration()).Err()
}

// GetSubmissionUUIDByMD5 按MD5查询首次提交的UUID
func (r *Redis) GetSubmissionUUIDByMD5(ctx context.Context, md5Hex string) (string, error) {
	key := fmt.Sprintf(constants.KeyFileMD5ToSubmissionUUID, md5Hex)
	val, err := r.Client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("查询MD5映射失败: %w", err)
	}
	return val, nil
}
