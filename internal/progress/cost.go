package progress

import "encoding/json"

// 成本估算参数默认值
// 这是一个刻意粗略的启发式估算(4字符约等于1个token，乘以固定的每千
// 输出token单价)，仅用于界面展示，不具备计费精度
const (
	// DefaultCharsPerToken 每个token折算的字符数
	DefaultCharsPerToken = 4.0
	// DefaultPricePerKiloToken 每1000输出token的单价(美元)
	DefaultPricePerKiloToken = 0.0006
)

// CostEstimator 基于负载长度的token成本估算器
type CostEstimator struct {
	charsPerToken     float64
	pricePerKiloToken float64
}

// NewCostEstimator 创建成本估算器，非正参数回退到默认值
func NewCostEstimator(charsPerToken, pricePerKiloToken float64) *CostEstimator {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	if pricePerKiloToken <= 0 {
		pricePerKiloToken = DefaultPricePerKiloToken
	}
	return &CostEstimator{
		charsPerToken:     charsPerToken,
		pricePerKiloToken: pricePerKiloToken,
	}
}

// EstimateCost 估算一段JSON负载对应的输出成本(美元)
// 公式: 序列化长度(字符) / charsPerToken * pricePerKiloToken / 1000
func (c *CostEstimator) EstimateCost(payload json.RawMessage) float64 {
	if len(payload) == 0 {
		return 0
	}
	tokens := float64(len(payload)) / c.charsPerToken
	return tokens * c.pricePerKiloToken / 1000
}
