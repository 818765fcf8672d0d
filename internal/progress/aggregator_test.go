package progress

import (
	"encoding/json"
	"strings"
	"testing"

	"resume-stream-go/internal/sanitize"
	"resume-stream-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAggregator() *Aggregator {
	return NewAggregator(sanitize.NewSanitizer(nil), NewCostEstimator(0, 0), nil)
}

func intPtr(v int) *int {
	return &v
}

func TestAggregatorConnection(t *testing.T) {
	a := newTestAggregator()
	state := NewState()

	doc := a.Apply(&types.StreamEvent{Type: types.EventConnection}, state)
	assert.Nil(t, doc)
	assert.Equal(t, MessageConnected, state.Message)
	assert.Equal(t, 0, state.Percent)
}

func TestAggregatorProgressEvent(t *testing.T) {
	a := newTestAggregator()
	state := NewState()

	a.Apply(&types.StreamEvent{Type: types.EventProgress, Progress: intPtr(25), Message: "解析中"}, state)
	assert.Equal(t, 25, state.Percent)
	assert.Equal(t, "解析中", state.Message)

	// progress缺失时保留当前百分比
	a.Apply(&types.StreamEvent{Type: types.EventProgress, Message: "继续"}, state)
	assert.Equal(t, 25, state.Percent)
	assert.Equal(t, "继续", state.Message)
}

func TestAggregatorSectionsDetectedReplaces(t *testing.T) {
	a := newTestAggregator()
	state := NewState()

	a.Apply(&types.StreamEvent{
		Type:     types.EventSectionsDetected,
		Sections: []string{"summary", "education"},
	}, state)
	assert.Equal(t, []string{"summary", "education"}, state.DetectedSections)
	assert.Equal(t, 40, state.Percent)

	// 第二次整体替换而非合并
	a.Apply(&types.StreamEvent{
		Type:     types.EventSectionsDetected,
		Sections: []string{"certifications"},
		Progress: intPtr(45),
	}, state)
	assert.Equal(t, []string{"certifications"}, state.DetectedSections)
	assert.Equal(t, 45, state.Percent)
}

func TestAggregatorDefaultPercents(t *testing.T) {
	a := newTestAggregator()
	state := NewState()

	a.Apply(&types.StreamEvent{Type: types.EventSectionProcessing, Section: "summary"}, state)
	assert.Equal(t, 50, state.Percent)

	a.Apply(&types.StreamEvent{Type: types.EventSectionComplete, Section: "summary"}, state)
	assert.Equal(t, 70, state.Percent)

	a.Apply(&types.StreamEvent{Type: types.EventFinalData}, state)
	assert.Equal(t, 100, state.Percent)
}

func TestAggregatorCertificationsSkipCountsAsComplete(t *testing.T) {
	a := newTestAggregator()
	state := NewState()

	a.Apply(&types.StreamEvent{
		Type:    types.EventSectionSkip,
		Section: "certifications",
		Message: "no entries found",
	}, state)
	assert.Equal(t, []string{"certifications"}, state.CompletedSections)
	assert.Contains(t, state.Message, "certifications")
	assert.Contains(t, state.Message, "no entries found")

	// 其他章节被跳过不计入完成
	a.Apply(&types.StreamEvent{
		Type:    types.EventSectionSkip,
		Section: "education",
		Message: "empty",
	}, state)
	assert.Equal(t, []string{"certifications"}, state.CompletedSections)
}

func TestAggregatorOrderSensitivity(t *testing.T) {
	a := newTestAggregator()

	events := []*types.StreamEvent{
		{Type: types.EventSectionComplete, Section: "education"},
		{Type: types.EventSectionSkip, Section: "certifications", Message: "none"},
	}

	// 正序
	forward := NewState()
	for _, e := range events {
		a.Apply(e, forward)
	}
	assert.Equal(t, []string{"education", "certifications"}, forward.CompletedSections)

	// 逆序折叠得到不同的完成序列，折叠不可交换
	backward := NewState()
	for i := len(events) - 1; i >= 0; i-- {
		a.Apply(events[i], backward)
	}
	assert.Equal(t, []string{"certifications", "education"}, backward.CompletedSections)
}

func TestAggregatorCostAccumulation(t *testing.T) {
	a := newTestAggregator()
	state := NewState()

	// 400 + 800 + 1200 字符的负载按默认参数逐段累加
	for _, size := range []int{400, 800, 1200} {
		payload := json.RawMessage(`"` + strings.Repeat("x", size-2) + `"`)
		require.Len(t, payload, size)
		a.Apply(&types.StreamEvent{
			Type:    types.EventSectionComplete,
			Section: "summary",
			Data:    payload,
		}, state)
	}

	// (400+800+1200)/4 * 0.0006/1000 = 0.00036
	assert.InDelta(t, 0.00036, state.CostEstimate, 1e-12)
}

func TestAggregatorFinalDataWithDocument(t *testing.T) {
	a := newTestAggregator()
	state := NewState()

	doc := a.Apply(&types.StreamEvent{
		Type: types.EventFinalData,
		Data: json.RawMessage(`{"name": "A. Lee", "title": "Engineer"}`),
	}, state)

	require.NotNil(t, doc)
	assert.Equal(t, "A. Lee", doc.Name)
	assert.True(t, state.Completed)
	assert.Equal(t, MessageCompleted, state.Message)
	assert.Equal(t, 100, state.Percent)
}

func TestAggregatorFinalDataWithoutPayload(t *testing.T) {
	a := newTestAggregator()
	state := NewState()

	doc := a.Apply(&types.StreamEvent{Type: types.EventFinalData}, state)
	assert.Nil(t, doc)
	assert.True(t, state.Completed)

	// data为null等同于缺失
	doc = a.Apply(&types.StreamEvent{
		Type: types.EventFinalData,
		Data: json.RawMessage(`null`),
	}, state)
	assert.Nil(t, doc)
}

func TestAggregatorErrorEvent(t *testing.T) {
	a := newTestAggregator()
	state := NewState()

	doc := a.Apply(&types.StreamEvent{Type: types.EventError, Message: "模型超时"}, state)
	assert.Nil(t, doc)
	assert.True(t, state.Failed)
	assert.Equal(t, "模型超时", state.ErrorMessage)
	assert.Equal(t, "模型超时", state.Message)
}

func TestAggregatorErrorEventDefaultMessage(t *testing.T) {
	a := newTestAggregator()
	state := NewState()

	a.Apply(&types.StreamEvent{Type: types.EventError}, state)
	assert.True(t, state.Failed)
	assert.Equal(t, DefaultErrorMessage, state.ErrorMessage)
}

func TestAggregatorUnknownEventNoop(t *testing.T) {
	a := newTestAggregator()
	state := NewState()
	state.Percent = 33
	state.Message = "前一条消息"

	a.Apply(&types.StreamEvent{Type: types.EventUnknown, Message: "ignored"}, state)
	assert.Equal(t, 33, state.Percent)
	assert.Equal(t, "前一条消息", state.Message)
}

func TestCostEstimatorDefaults(t *testing.T) {
	c := NewCostEstimator(0, 0)

	assert.Zero(t, c.EstimateCost(nil))
	assert.Zero(t, c.EstimateCost(json.RawMessage{}))

	payload := json.RawMessage(strings.Repeat("a", 4000))
	// 4000/4 = 1000 tokens, 1000 * 0.0006/1000 = 0.0006
	assert.InDelta(t, 0.0006, c.EstimateCost(payload), 1e-12)
}

func TestCostEstimatorCustomRates(t *testing.T) {
	c := NewCostEstimator(2, 0.001)

	payload := json.RawMessage(strings.Repeat("a", 2000))
	// 2000/2 = 1000 tokens, 1000 * 0.001/1000 = 0.001
	assert.InDelta(t, 0.001, c.EstimateCost(payload), 1e-12)
}
