package types

import "encoding/json"

// EventType 表示流事件的类型判别值
type EventType string

const (
	// EventConnection 连接建立事件
	EventConnection EventType = "connection"
	// EventProgress 进度更新事件
	EventProgress EventType = "progress"
	// EventSectionsDetected 检测到简历章节列表事件
	EventSectionsDetected EventType = "sections_detected"
	// EventSectionProcessing 章节处理中事件
	EventSectionProcessing EventType = "section_processing"
	// EventSectionSkip 章节跳过事件
	EventSectionSkip EventType = "section_skip"
	// EventSectionComplete 章节处理完成事件
	EventSectionComplete EventType = "section_complete"
	// EventFinalData 终态事件，携带完整的简历JSON数据
	EventFinalData EventType = "final_data"
	// EventError 上游处理错误事件
	EventError EventType = "error"
	// EventUnknown 未识别的事件类型，下游按无操作处理
	// 上游生成器还会发出 processing_strategy / full_resume_complete / complete
	// 等提示性事件，统一落入此类
	EventUnknown EventType = "unknown"
)

// StreamEvent 表示从一个帧中解析出的类型化事件
// 各字段是否有效取决于Type，缺失字段保持零值
type StreamEvent struct {
	Type EventType `json:"type"`

	// Progress 进度百分比 (0-100)，指针用于区分"缺失"与"0"
	Progress *int `json:"progress,omitempty"`

	// Message 面向用户的进度消息
	Message string `json:"message,omitempty"`

	// Section 当前章节名 (section_processing/section_skip/section_complete)
	Section string `json:"section,omitempty"`

	// Sections 检测到的章节名列表 (sections_detected)
	Sections []string `json:"sections,omitempty"`

	// Data 任意JSON负载; section_complete携带章节数据,
	// final_data携带完整简历数据
	Data json.RawMessage `json:"data,omitempty"`

	// Timestamp 上游附带的时间戳，仅透传
	Timestamp string `json:"timestamp,omitempty"`
}

// HasData 判断事件是否携带非空的JSON负载
func (e *StreamEvent) HasData() bool {
	return len(e.Data) > 0 && string(e.Data) != "null"
}
