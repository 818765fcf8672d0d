package storage

import "time"

// ResumeUploadedMessage 简历上传消息
// 上传接口写入MinIO和MySQL后发布，由提取工作协程消费
type ResumeUploadedMessage struct {
	SubmissionUUID      string    `json:"submission_uuid"`          // 提交UUID，主键
	SubmissionTimestamp time.Time `json:"submission_timestamp"`     // 提交时间戳
	SourceChannel       string    `json:"source_channel,omitempty"` // 来源渠道
	OriginalFilename    string    `json:"original_filename"`        // 原始文件名
	OriginalFilePathOSS string    `json:"original_file_path_oss"`   // MinIO中的对象路径
	RawFileMD5          string    `json:"raw_file_md5,omitempty"`   // 原始文件MD5，用于失败时回滚去重集合
}

// ExtractionResultMessage 提取结果消息
// 工作协程在会话结束后发布，供下游(通知、统计)订阅
type ExtractionResultMessage struct {
	SubmissionUUID    string  `json:"submission_uuid"`             // 提交UUID
	ProcessingStatus  string  `json:"processing_status"`           // 终态: COMPLETED / FAILED / TRANSPORT_ERROR
	DocumentPathOSS   string  `json:"document_path_oss,omitempty"` // 规范化文档在MinIO中的路径
	CostEstimate      float64 `json:"cost_estimate,omitempty"`     // 成本估算(美元)
	CompletedSections int     `json:"completed_sections"`          // 完成章节数
	Error             string  `json:"error,omitempty"`             // 错误信息
	ProcessingTime    int64   `json:"processing_time,omitempty"`   // 处理耗时(毫秒)
}
