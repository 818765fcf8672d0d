package constants

// 提交处理状态
const (
	// StatusPendingExtraction 已入库等待提取
	StatusPendingExtraction = "PENDING_EXTRACTION"
	// StatusExtracting 提取会话进行中
	StatusExtracting = "EXTRACTING"
	// StatusCompleted 提取并清洗完成
	StatusCompleted = "COMPLETED"
	// StatusFailed 上游报告失败
	StatusFailed = "FAILED"
	// StatusTransportError 传输层故障，可重试
	StatusTransportError = "TRANSPORT_ERROR"
)
