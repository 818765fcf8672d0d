package progress

import "time"

// State 一次处理会话的进度聚合状态
// 只由Aggregator的折叠操作修改，归属于唯一的活跃会话，无并发访问。
// 可直接JSON序列化后写入Redis供查询接口读取。
type State struct {
	// Percent 进度百分比 (0-100)，约定单调不减但不强制
	Percent int `json:"percent"`

	// Message 最新的用户可见消息，后到覆盖先到
	Message string `json:"message"`

	// DetectedSections 检测到的章节名列表，整体替换式更新
	DetectedSections []string `json:"detected_sections"`

	// CompletedSections 已完成章节序列，只追加，允许重复
	CompletedSections []string `json:"completed_sections"`

	// CostEstimate 运行中的成本估算(美元)，只增不减
	CostEstimate float64 `json:"cost_estimate"`

	// StartedAt 会话开始时间，只设置一次
	StartedAt time.Time `json:"started_at"`

	// Failed 上游是否以error事件结束
	Failed bool `json:"failed"`

	// ErrorMessage 上游错误消息，仅Failed时有效
	ErrorMessage string `json:"error_message,omitempty"`

	// Completed 是否已收到终态事件
	Completed bool `json:"completed"`
}

// NewState 创建初始进度状态并记录开始时间
func NewState() *State {
	return &State{
		DetectedSections:  []string{},
		CompletedSections: []string{},
		StartedAt:         time.Now(),
	}
}
