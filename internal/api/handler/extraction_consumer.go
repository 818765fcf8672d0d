package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"resume-stream-go/internal/constants"
	"resume-stream-go/internal/logger"
	"resume-stream-go/internal/progress"
	"resume-stream-go/internal/session"
	"resume-stream-go/internal/storage"
	"resume-stream-go/internal/storage/models"
	"resume-stream-go/internal/tracing"
)

// resultRoutingKey 提取结果消息的路由键，供下游(通知、统计)订阅
const resultRoutingKey = "resume.extracted"

// StartExtractionConsumer 启动提取消费者
// 按配置的worker数注册多个消费者并行取消息，每条消息驱动一次完整的
// 流式提取会话；ctx取消时所有消费者退出
func (h *ResumeHandler) StartExtractionConsumer(ctx context.Context) error {
	workers := h.cfg.RabbitMQ.ConsumerWorkers
	if workers <= 0 {
		workers = 1
	}

	logger.Info().
		Str("exchange", h.cfg.RabbitMQ.ResumeEventsExchange).
		Str("queue", h.cfg.RabbitMQ.ExtractionQueue).
		Int("prefetch", h.cfg.RabbitMQ.PrefetchCount).
		Int("workers", workers).
		Msg("提取消费者就绪")

	if err := h.storage.RabbitMQ.SetupResumeTopology(); err != nil {
		return fmt.Errorf("声明RabbitMQ拓扑失败: %w", err)
	}

	handleDelivery := func(data []byte) bool {
		var message storage.ResumeUploadedMessage
		if err := json.Unmarshal(data, &message); err != nil {
			logger.Error().Err(err).Msg("解析上传消息失败")
			// 消息体损坏，重新入队也无法恢复
			return true
		}

		if err := h.processSubmission(ctx, message); err != nil {
			logger.Error().
				Err(err).
				Str("submission_uuid", message.SubmissionUUID).
				Msg("处理提交失败")
			// 传输层故障可重试，拒绝并重新入队
			return false
		}
		return true
	}

	for i := 0; i < workers; i++ {
		if err := h.storage.RabbitMQ.StartConsumer(ctx, h.cfg.RabbitMQ.ExtractionQueue, h.cfg.RabbitMQ.PrefetchCount, handleDelivery); err != nil {
			return fmt.Errorf("启动消费者失败 (worker %d): %w", i+1, err)
		}
	}
	return nil
}

// processSubmission 驱动一次提取会话并持久化结果
// 返回error表示传输层故障(可重试)；上游报告的业务失败会落库为FAILED
// 终态并返回nil，不再重试
func (h *ResumeHandler) processSubmission(ctx context.Context, message storage.ResumeUploadedMessage) error {
	startTime := time.Now()
	submissionUUID := message.SubmissionUUID

	if err := h.storage.MySQL.UpdateSubmissionStatus(ctx, submissionUUID, constants.StatusExtracting, ""); err != nil {
		logger.Warn().Err(err).Str("submission_uuid", submissionUUID).Msg("更新状态为EXTRACTING失败")
	}

	// 1. 从MinIO下载原始文件
	fileBytes, err := h.storage.MinIO.GetResumeFile(ctx, message.OriginalFilePathOSS)
	if err != nil {
		h.markTransportError(ctx, message, err)
		return fmt.Errorf("从MinIO获取简历文件失败: %w", err)
	}

	// 2. 创建会话，进度回调把每个快照写入Redis供前端轮询
	ttl := time.Duration(h.cfg.Session.ProgressTTLMinutes) * time.Minute
	sess := session.NewStreamSession(
		h.cfg.Extractor.BaseURL,
		session.WithEndpointPath(h.cfg.Extractor.EndpointPath),
		session.WithFieldName(h.cfg.Extractor.FieldName),
		session.WithHTTPTimeout(time.Duration(h.cfg.Extractor.TimeoutSeconds)*time.Second),
		session.WithReadBufferSize(h.cfg.Session.ReadBufferSize),
		session.WithCostEstimator(progress.NewCostEstimator(h.cfg.Pricing.CharsPerToken, h.cfg.Pricing.PricePerKiloToken)),
		session.WithLogger(log.New(io.Discard, "", 0)),
		session.WithProgressCallback(func(state *progress.State) {
			if err := h.storage.Redis.SaveProgress(ctx, submissionUUID, state, ttl); err != nil {
				logger.Warn().Err(err).Str("submission_uuid", submissionUUID).Msg("写入进度快照失败")
			}
		}),
	)

	// 3. 执行会话
	result, err := sess.Process(ctx, bytes.NewReader(fileBytes), message.OriginalFilename)
	if err != nil {
		h.markTransportError(ctx, message, err)
		return fmt.Errorf("提取会话传输故障: %w", err)
	}

	durationMS := time.Since(startTime).Milliseconds()

	// 确保终态快照落入Redis
	if err := h.storage.Redis.SaveProgress(ctx, submissionUUID, result.State, ttl); err != nil {
		logger.Warn().Err(err).Str("submission_uuid", submissionUUID).Msg("写入终态进度快照失败")
	}

	// 4. 上游报告失败: 落库终态，不重试；回滚去重登记允许重新上传同一文件
	if result.State.Failed {
		if err := h.storage.MySQL.UpdateSubmissionStatus(ctx, submissionUUID, constants.StatusFailed, result.State.ErrorMessage); err != nil {
			logger.Error().Err(err).Str("submission_uuid", submissionUUID).Msg("更新状态为FAILED失败")
		}
		h.rollbackDedup(ctx, message)
		h.publishResult(ctx, storage.ExtractionResultMessage{
			SubmissionUUID:   submissionUUID,
			ProcessingStatus: constants.StatusFailed,
			Error:            result.State.ErrorMessage,
			ProcessingTime:   durationMS,
		})
		logger.Info().
			Str("submission_uuid", submissionUUID).
			Str("error", result.State.ErrorMessage).
			Msg("上游报告提取失败")
		return nil
	}

	// 5. 持久化规范化文档
	documentJSON, err := json.Marshal(result.Document)
	if err != nil {
		h.markTransportError(ctx, message, err)
		return fmt.Errorf("序列化简历文档失败: %w", err)
	}

	documentPath, err := h.storage.MinIO.UploadDocumentJSON(ctx, submissionUUID, documentJSON)
	if err != nil {
		h.markTransportError(ctx, message, err)
		return fmt.Errorf("上传文档到MinIO失败: %w", err)
	}

	detectedJSON, _ := models.SliceToJSON(result.State.DetectedSections)
	completedJSON, _ := models.SliceToJSON(result.State.CompletedSections)

	extracted := &models.ExtractedResume{
		SubmissionUUID:        submissionUUID,
		CandidateName:         result.Document.Name,
		CandidateTitle:        result.Document.Title,
		RequisitionNumber:     result.Document.RequisitionNumber,
		DocumentJSON:          documentJSON,
		DetectedSectionsJSON:  detectedJSON,
		CompletedSectionsJSON: completedJSON,
		CostEstimate:          result.State.CostEstimate,
		ExtractionDurationMS:  durationMS,
	}
	if err := h.storage.MySQL.SaveExtractedResume(ctx, extracted); err != nil {
		h.markTransportError(ctx, message, err)
		return fmt.Errorf("保存提取结果失败: %w", err)
	}
	if err := h.storage.MySQL.UpdateSubmissionDocumentPath(ctx, submissionUUID, documentPath); err != nil {
		logger.Warn().Err(err).Str("submission_uuid", submissionUUID).Msg("更新文档路径失败")
	}
	if err := h.storage.MySQL.UpdateSubmissionStatus(ctx, submissionUUID, constants.StatusCompleted, ""); err != nil {
		logger.Error().Err(err).Str("submission_uuid", submissionUUID).Msg("更新状态为COMPLETED失败")
	}

	h.publishResult(ctx, storage.ExtractionResultMessage{
		SubmissionUUID:    submissionUUID,
		ProcessingStatus:  constants.StatusCompleted,
		DocumentPathOSS:   documentPath,
		CostEstimate:      result.State.CostEstimate,
		CompletedSections: len(result.State.CompletedSections),
		ProcessingTime:    durationMS,
	})

	logger.Info().
		Str("submission_uuid", submissionUUID).
		Str("candidate", tracing.MaskPII(result.Document.Name)).
		Float64("cost_estimate", result.State.CostEstimate).
		Int64("duration_ms", durationMS).
		Msg("提取会话完成")
	return nil
}

// markTransportError 传输层故障时落库状态并回滚MD5去重登记
// 回滚让同一文件的重新上传不会被去重逻辑拦截
func (h *ResumeHandler) markTransportError(ctx context.Context, message storage.ResumeUploadedMessage, cause error) {
	if err := h.storage.MySQL.UpdateSubmissionStatus(ctx, message.SubmissionUUID, constants.StatusTransportError, cause.Error()); err != nil {
		logger.Error().Err(err).Str("submission_uuid", message.SubmissionUUID).Msg("更新状态为TRANSPORT_ERROR失败")
	}
	h.rollbackDedup(ctx, message)
}

// rollbackDedup 把文件MD5从去重集合移除
// 提交进入失败终态后调用，保证重新上传同一文件不会被拦截
func (h *ResumeHandler) rollbackDedup(ctx context.Context, message storage.ResumeUploadedMessage) {
	if message.RawFileMD5 == "" {
		return
	}
	if err := h.storage.Redis.RemoveFileMD5(ctx, message.RawFileMD5); err != nil {
		logger.Warn().
			Err(err).
			Str("submission_uuid", message.SubmissionUUID).
			Msg("回滚MD5去重登记失败")
	}
}

// publishResult 发布提取结果消息，失败只记录日志
func (h *ResumeHandler) publishResult(ctx context.Context, message storage.ExtractionResultMessage) {
	err := h.storage.RabbitMQ.PublishJSON(
		ctx,
		h.cfg.RabbitMQ.ResumeEventsExchange,
		resultRoutingKey,
		message,
		true,
	)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("submission_uuid", message.SubmissionUUID).
			Msg("发布提取结果消息失败")
	}
}
