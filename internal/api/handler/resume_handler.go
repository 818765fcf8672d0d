package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"resume-stream-go/internal/config"
	"resume-stream-go/internal/constants"
	"resume-stream-go/internal/logger"
	"resume-stream-go/internal/progress"
	"resume-stream-go/internal/storage"
	"resume-stream-go/internal/storage/models"
	"resume-stream-go/internal/types"

	"github.com/gofrs/uuid/v5"
)

// ResumeHandler 简历处理器，协调上传入库与提取会话的流转
type ResumeHandler struct {
	cfg     *config.Config
	storage *storage.Storage
}

// NewResumeHandler 创建简历处理器
func NewResumeHandler(cfg *config.Config, storage *storage.Storage) *ResumeHandler {
	return &ResumeHandler{
		cfg:     cfg,
		storage: storage,
	}
}

// ResumeUploadResponse 简历上传响应
type ResumeUploadResponse struct {
	SubmissionUUID string `json:"submission_uuid"`
	Status         string `json:"status"`
}

// ProgressResponse 进度查询响应
type ProgressResponse struct {
	SubmissionUUID string          `json:"submission_uuid"`
	Status         string          `json:"status"`
	Progress       *progress.State `json:"progress,omitempty"`
}

// DocumentResponse 文档查询响应
type DocumentResponse struct {
	SubmissionUUID string                `json:"submission_uuid"`
	Document       *types.ResumeDocument `json:"document"`
	CostEstimate   float64               `json:"cost_estimate"`
}

// HandleResumeUpload 处理简历上传请求
// 流式写入MinIO并同时计算MD5去重，入库后发布消息交给提取工作协程
func (h *ResumeHandler) HandleResumeUpload(ctx context.Context, reader io.Reader, fileSize int64,
	filename string, sourceChannel string) (*ResumeUploadResponse, error) {

	// 1. 生成UUIDv7，时间有序便于按提交时间范围扫描
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成UUIDv7失败: %w", err)
	}
	submissionUUID := uuidV7.String()

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".pdf"
	}

	// 2. 流式上传到MinIO，同时计算文件MD5
	originalObjectKey, fileMD5Hex, err := h.storage.MinIO.UploadResumeFile(ctx, submissionUUID, ext, reader, fileSize)
	if err != nil {
		return nil, fmt.Errorf("上传简历到MinIO失败: %w", err)
	}

	// 3. MD5去重：重复上传直接回指首次提交，并清理刚写入的对象
	firstSeen, err := h.storage.Redis.CheckAndAddFileMD5(ctx, fileMD5Hex)
	if err != nil {
		logger.Error().Err(err).Str("md5", fileMD5Hex).Msg("查询Redis文件MD5去重集合失败")
		return nil, fmt.Errorf("检查文件MD5重复性失败: %w", err)
	}
	if !firstSeen {
		if err := h.storage.MinIO.DeleteResumeFile(ctx, originalObjectKey); err != nil {
			logger.Warn().Err(err).Str("object_key", originalObjectKey).Msg("清理重复上传的对象失败")
		}
		existingUUID, err := h.storage.Redis.GetSubmissionUUIDByMD5(ctx, fileMD5Hex)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			logger.Warn().Err(err).Str("md5", fileMD5Hex).Msg("查询MD5映射失败")
		}
		logger.Info().
			Str("md5", fileMD5Hex).
			Str("filename", filename).
			Str("existing_uuid", existingUUID).
			Msg("检测到重复的文件MD5，跳过处理")
		return &ResumeUploadResponse{
			SubmissionUUID: existingUUID,
			Status:         "DUPLICATE_FILE_SKIPPED",
		}, nil
	}
	if err := h.storage.Redis.SetMD5ToSubmissionUUID(ctx, fileMD5Hex, submissionUUID); err != nil {
		// 映射写失败不影响主流程，只是重复上传时拿不到首次UUID
		logger.Warn().Err(err).Str("md5", fileMD5Hex).Msg("记录MD5到UUID映射失败")
	}

	// 4. 同一事务写入提交记录与发件箱消息
	// 消息由中继服务异步发布，入库成功即保证最终会进入队列
	submission := &models.ResumeSubmission{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: time.Now(),
		SourceChannel:       sourceChannel,
		OriginalFilename:    filename,
		OriginalFilePathOSS: originalObjectKey,
		RawFileMD5:          fileMD5Hex,
		ProcessingStatus:    constants.StatusPendingExtraction,
	}
	message := storage.ResumeUploadedMessage{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: submission.SubmissionTimestamp,
		SourceChannel:       sourceChannel,
		OriginalFilename:    filename,
		OriginalFilePathOSS: originalObjectKey,
		RawFileMD5:          fileMD5Hex,
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("序列化上传消息失败: %w", err)
	}
	outboxMsg := &models.OutboxMessage{
		SubmissionUUID:   submissionUUID,
		EventType:        "resume.uploaded",
		Payload:          string(payload),
		TargetExchange:   h.cfg.RabbitMQ.ResumeEventsExchange,
		TargetRoutingKey: h.cfg.RabbitMQ.UploadedRoutingKey,
		Status:           models.OutboxStatusPending,
	}
	if err := h.storage.MySQL.CreateSubmissionWithOutbox(ctx, submission, outboxMsg); err != nil {
		return nil, fmt.Errorf("写入提交记录失败: %w", err)
	}

	return &ResumeUploadResponse{
		SubmissionUUID: submissionUUID,
		Status:         "SUBMITTED_FOR_EXTRACTION",
	}, nil
}

// GetProgress 查询某次提交的进度
// 优先读Redis中的实时快照，快照过期后回退到MySQL中的终态
func (h *ResumeHandler) GetProgress(ctx context.Context, submissionUUID string) (*ProgressResponse, error) {
	submission, err := h.storage.MySQL.GetSubmission(ctx, submissionUUID)
	if err != nil {
		return nil, err
	}

	resp := &ProgressResponse{
		SubmissionUUID: submissionUUID,
		Status:         submission.ProcessingStatus,
	}

	state, err := h.storage.Redis.GetProgress(ctx, submissionUUID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn().Err(err).Str("submission_uuid", submissionUUID).Msg("读取进度快照失败")
		}
		return resp, nil
	}
	resp.Progress = state
	return resp, nil
}

// GetDocument 查询规范化后的简历文档
func (h *ResumeHandler) GetDocument(ctx context.Context, submissionUUID string) (*DocumentResponse, error) {
	extracted, err := h.storage.MySQL.GetExtractedResume(ctx, submissionUUID)
	if err != nil {
		return nil, err
	}

	var document types.ResumeDocument
	if err := json.Unmarshal(extracted.DocumentJSON, &document); err != nil {
		return nil, fmt.Errorf("反序列化简历文档失败: %w", err)
	}

	return &DocumentResponse{
		SubmissionUUID: submissionUUID,
		Document:       &document,
		CostEstimate:   extracted.CostEstimate,
	}, nil
}
