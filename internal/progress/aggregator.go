package progress

import (
	"fmt"
	"io"
	"log"

	"resume-stream-go/internal/sanitize"
	"resume-stream-go/internal/types"
)

// 各事件类型在progress字段缺失时的默认百分比
const (
	percentSectionsDetected  = 40
	percentSectionProcessing = 50
	percentSectionComplete   = 70
	percentFinal             = 100
)

// 固定的用户可见消息
const (
	// MessageConnected 连接建立后的固定提示
	MessageConnected = "已连接到简历解析服务"
	// MessageCompleted 终态事件的固定提示
	MessageCompleted = "简历解析完成"
	// DefaultErrorMessage 上游error事件未携带消息时的兜底文案
	DefaultErrorMessage = "简历处理失败"
)

// certificationsSection 特例规则涉及的章节名:
// 证书章节被跳过时仍计入已完成列表(界面上按完成展示)。
// 这是仅针对certifications的具名业务规则，不要推广到其他章节。
const certificationsSection = "certifications"

// Aggregator 进度聚合器
// 将有序的事件流折叠进State。折叠不可交换: CompletedSections只追加、
// DetectedSections整体替换，事件乱序会改变可观测结果，因此传输层必须
// 保序，聚合也必须逐事件串行执行。
type Aggregator struct {
	sanitizer *sanitize.Sanitizer
	estimator *CostEstimator
	logger    *log.Logger
}

// NewAggregator 创建进度聚合器
func NewAggregator(sanitizer *sanitize.Sanitizer, estimator *CostEstimator, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if estimator == nil {
		estimator = NewCostEstimator(0, 0)
	}
	return &Aggregator{
		sanitizer: sanitizer,
		estimator: estimator,
		logger:    logger,
	}
}

// Apply 将一个事件折叠进状态
// 返回值仅在终态事件(final_data)时非nil，为清洗后的简历文档；
// error事件不返回Go错误，通过state.Failed/ErrorMessage向调用方暴露
func (a *Aggregator) Apply(event *types.StreamEvent, state *State) *types.ResumeDocument {
	if event == nil || state == nil {
		return nil
	}

	switch event.Type {
	case types.EventConnection:
		state.Message = MessageConnected

	case types.EventProgress:
		if event.Progress != nil {
			state.Percent = *event.Progress
		}
		if event.Message != "" {
			state.Message = event.Message
		}

	case types.EventSectionsDetected:
		// 整体替换而非合并
		state.DetectedSections = append([]string{}, event.Sections...)
		if event.Message != "" {
			state.Message = event.Message
		}
		state.Percent = percentOrDefault(event.Progress, percentSectionsDetected)

	case types.EventSectionProcessing:
		if event.Message != "" {
			state.Message = event.Message
		}
		state.Percent = percentOrDefault(event.Progress, percentSectionProcessing)

	case types.EventSectionSkip:
		state.Message = fmt.Sprintf("跳过章节 %s: %s", event.Section, event.Message)
		if event.Section == certificationsSection {
			state.CompletedSections = append(state.CompletedSections, event.Section)
		}

	case types.EventSectionComplete:
		state.CompletedSections = append(state.CompletedSections, event.Section)
		if event.Message != "" {
			state.Message = event.Message
		}
		state.Percent = percentOrDefault(event.Progress, percentSectionComplete)
		state.CostEstimate += a.estimator.EstimateCost(event.Data)

	case types.EventFinalData:
		state.Percent = percentFinal
		state.Message = MessageCompleted
		state.Completed = true
		if event.HasData() {
			return a.sanitizer.SanitizeJSON(event.Data)
		}

	case types.EventError:
		state.Failed = true
		if event.Message != "" {
			state.ErrorMessage = event.Message
		} else {
			state.ErrorMessage = DefaultErrorMessage
		}
		state.Message = state.ErrorMessage

	case types.EventUnknown:
		// 无操作
	}

	return nil
}

// percentOrDefault progress字段缺失时使用默认百分比
func percentOrDefault(p *int, def int) int {
	if p != nil {
		return *p
	}
	return def
}
