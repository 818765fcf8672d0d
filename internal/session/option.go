package session

import (
	"log"
	"time"

	"resume-stream-go/internal/progress"
)

// Option 定义StreamSession的配置选项函数
type Option func(*StreamSession)

// WithHTTPTimeout 配置HTTP客户端超时时间
// 覆盖整个流式响应的读取，长简历需要给足余量
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(s *StreamSession) {
		s.client.Timeout = timeout
	}
}

// WithEndpointPath 配置提取服务的流式处理路径
func WithEndpointPath(path string) Option {
	return func(s *StreamSession) {
		s.endpointPath = path
	}
}

// WithFieldName 配置multipart表单中文件字段的名称
func WithFieldName(name string) Option {
	return func(s *StreamSession) {
		s.fieldName = name
	}
}

// WithLogger 配置自定义日志记录器
func WithLogger(logger *log.Logger) Option {
	return func(s *StreamSession) {
		s.logger = logger
	}
}

// WithProgressCallback 配置进度回调
// 每折叠一个事件后以最新状态快照调用，回调内不要做耗时操作，
// 它运行在拉取循环内，会拖慢对下一个块的消费
func WithProgressCallback(fn func(*progress.State)) Option {
	return func(s *StreamSession) {
		s.onProgress = fn
	}
}

// WithCostEstimator 配置成本估算器(默认使用内置单价)
func WithCostEstimator(estimator *progress.CostEstimator) Option {
	return func(s *StreamSession) {
		s.estimator = estimator
	}
}

// WithReadBufferSize 配置单次读取的块大小(字节)
func WithReadBufferSize(size int) Option {
	return func(s *StreamSession) {
		if size > 0 {
			s.readBufferSize = size
		}
	}
}
