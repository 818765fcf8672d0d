// Package outbox 发件箱模式的消息中继
// 轮询outbox_messages表，把待发布的消息推到RabbitMQ。
// 行级锁用SKIP LOCKED，多实例部署时互不阻塞。
package outbox

import (
	"context"
	"log"
	"time"

	"resume-stream-go/internal/config"
	"resume-stream-go/internal/storage"
	"resume-stream-go/internal/storage/models"
	"resume-stream-go/internal/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPollingInterval = 5 * time.Second
	defaultBatchSize       = 10
	defaultMaxRetries      = 3
)

// MessageRelay 轮询发件箱表并把消息发布到消息队列
type MessageRelay struct {
	db              *gorm.DB
	publisher       *storage.RabbitMQ
	logger          *log.Logger
	pollingInterval time.Duration
	batchSize       int
	maxRetries      int
	done            chan struct{}
	tracer          trace.Tracer
}

// NewMessageRelay 创建消息中继
// 轮询间隔取RabbitMQ配置的retry_interval(失败消息在下次轮询时重发)，
// 重试上限取max_retries
func NewMessageRelay(db *gorm.DB, publisher *storage.RabbitMQ, logger *log.Logger, cfg *config.RabbitMQConfig) *MessageRelay {
	interval := defaultPollingInterval
	maxRetries := defaultMaxRetries
	if cfg != nil {
		interval = config.GetDuration(cfg.RetryInterval, defaultPollingInterval)
		if cfg.MaxRetries > 0 {
			maxRetries = cfg.MaxRetries
		}
	}
	return &MessageRelay{
		db:              db,
		publisher:       publisher,
		logger:          logger,
		pollingInterval: interval,
		batchSize:       defaultBatchSize,
		maxRetries:      maxRetries,
		done:            make(chan struct{}),
		tracer:          otel.Tracer("resume-stream-go/outbox"),
	}
}

// Start 启动后台轮询
func (r *MessageRelay) Start() {
	r.logger.Println("消息中继启动")
	ticker := time.NewTicker(r.pollingInterval)

	go func() {
		for {
			select {
			case <-r.done:
				ticker.Stop()
				r.logger.Println("消息中继已停止")
				return
			case <-ticker.C:
				if err := r.processPendingMessages(context.Background()); err != nil {
					r.logger.Printf("处理待发布消息失败: %v", err)
				}
			}
		}
	}()
}

// Stop 停止中继
func (r *MessageRelay) Stop() {
	close(r.done)
}

// processPendingMessages 取一批待发布消息并逐条发布
// 整批在一个事务内完成，状态更新失败时整批回滚，下次轮询重新拾取
func (r *MessageRelay) processPendingMessages(ctx context.Context) error {
	var messages []models.OutboxMessage

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback()

	// SKIP LOCKED跳过其他实例正在处理的行
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", models.OutboxStatusPending).
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		r.logger.Printf("查询待发布消息失败: %v", err)
		return err
	}

	if len(messages) == 0 {
		return tx.Commit().Error
	}

	// 空轮询不产生span
	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(
			attribute.Int("messaging.batch.message_count", len(messages)),
		),
	)
	defer span.End()

	for _, msg := range messages {
		err := r.publisher.PublishMessage(
			ctx,
			msg.TargetExchange,
			msg.TargetRoutingKey,
			[]byte(msg.Payload),
			true,
		)
		if err != nil {
			tracing.RecordErrorWithInfo(span, err, tracing.ErrorTypeRabbitMQ,
				attribute.Int64("messaging.message.id", int64(msg.ID)),
				attribute.String("messaging.rabbitmq.routing_key", msg.TargetRoutingKey),
			)
			r.logger.Printf("发布消息失败 ID=%d (submission=%s): %v, 重试次数 %d",
				msg.ID, msg.SubmissionUUID, err, msg.RetryCount+1)
			msg.RetryCount++
			msg.ErrorMessage = err.Error()
			if msg.RetryCount >= r.maxRetries {
				msg.Status = models.OutboxStatusFailed
			}
		} else {
			msg.Status = models.OutboxStatusSent
			now := time.Now()
			msg.ProcessedAt = &now
			msg.ErrorMessage = ""
		}

		if err := tx.Save(&msg).Error; err != nil {
			r.logger.Printf("更新发件箱消息状态失败 ID=%d: %v", msg.ID, err)
			return err
		}
	}

	return tx.Commit().Error
}
