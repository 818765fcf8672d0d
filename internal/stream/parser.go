package stream

import (
	"encoding/json"
	"io"
	"log"
	"strings"

	"resume-stream-go/internal/types"
)

// dataPrefix SSE数据行的字段标记，冒号后必须带一个空格
const dataPrefix = "data: "

// doneSentinel 上游在最后一个事件后发出的结束哨兵
const doneSentinel = "[DONE]"

// EventParser 将帧解析为类型化的流事件
// 解析失败一律静默跳过: 该信道上的keep-alive噪声和注释行是预期输入，
// 不构成错误
type EventParser struct {
	logger *log.Logger
}

// NewEventParser 创建事件解析器
func NewEventParser(logger *log.Logger) *EventParser {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &EventParser{logger: logger}
}

// Parse 解析一个帧，返回事件和是否有效
// 不以"data: "开头的帧(注释、心跳)与"[DONE]"哨兵返回(nil, false)；
// JSON解析失败同样丢弃，不向上传播
func (p *EventParser) Parse(frame Frame) (*types.StreamEvent, bool) {
	text := string(frame)
	if !strings.HasPrefix(text, dataPrefix) {
		return nil, false
	}

	payload := strings.TrimPrefix(text, dataPrefix)
	if strings.TrimSpace(payload) == doneSentinel {
		return nil, false
	}

	var event types.StreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		p.logger.Printf("丢弃无法解析的帧 (长度 %d): %v", len(payload), err)
		return nil, false
	}

	if !knownEventType(event.Type) {
		event.Type = types.EventUnknown
	}
	return &event, true
}

// knownEventType 判断类型判别值是否在已知事件集合内
func knownEventType(t types.EventType) bool {
	switch t {
	case types.EventConnection,
		types.EventProgress,
		types.EventSectionsDetected,
		types.EventSectionProcessing,
		types.EventSectionSkip,
		types.EventSectionComplete,
		types.EventFinalData,
		types.EventError:
		return true
	}
	return false
}
