// Package session 驱动一次端到端的简历提取会话:
// 上传文件 -> 拉取SSE响应流 -> 帧重组 -> 事件解析 -> 进度折叠 ->
// 终态数据清洗。整个会话单线程协作式运行，唯一的挂起点是等待下一个
// 字节块，保证事件严格按到达顺序折叠。
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resume-stream-go/internal/progress"
	"resume-stream-go/internal/sanitize"
	"resume-stream-go/internal/stream"
	"resume-stream-go/internal/tracing"
	"resume-stream-go/internal/types"
)

// 会话默认参数
const (
	defaultEndpointPath   = "/api/stream-resume-processing"
	defaultFieldName      = "file"
	defaultTimeout        = 5 * time.Minute
	defaultReadBufferSize = 4096
)

var sessionTracer = otel.Tracer("resume-stream-go/session")

// Result 一次会话的最终产出
// 不变式: Document与State.Failed恰好一个成立。要么拿到规范化文档，
// 要么拿到明确的错误消息，调用方不会观测到无结论的半更新状态
type Result struct {
	// Document 清洗后的简历文档，上游以error事件结束时为nil
	Document *types.ResumeDocument

	// State 会话结束时的最终进度状态
	State *progress.State
}

// StreamSession 一次流式提取会话的编排器
// 不可复用: 每次Process调用对应一个独立的解码缓冲与进度状态
type StreamSession struct {
	baseURL        string
	endpointPath   string
	fieldName      string
	client         *http.Client
	readBufferSize int
	logger         *log.Logger
	onProgress     func(*progress.State)
	estimator      *progress.CostEstimator
}

// NewStreamSession 创建会话编排器
// baseURL是提取服务地址，例如 http://localhost:8000
func NewStreamSession(baseURL string, options ...Option) *StreamSession {
	s := &StreamSession{
		baseURL:        baseURL,
		endpointPath:   defaultEndpointPath,
		fieldName:      defaultFieldName,
		client:         &http.Client{Timeout: defaultTimeout},
		readBufferSize: defaultReadBufferSize,
		logger:         log.New(os.Stderr, "[StreamSession] ", log.LstdFlags),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Process 执行一次完整会话
// 传输层故障(非2xx状态码、响应体读取失败、上下文取消)返回error，
// 此时不保留任何半成品状态；上游以error事件结束不算传输故障，
// 通过Result.State.Failed暴露
func (s *StreamSession) Process(ctx context.Context, file io.Reader, filename string) (*Result, error) {
	ctx, span := sessionTracer.Start(ctx, "session.Process")
	defer span.End()

	// 会话ID用于把日志和span关联到同一次提取
	sessionID := uuid.NewString()
	span.SetAttributes(
		attribute.String("resume.filename", filename),
		attribute.String("resume.session_id", sessionID),
	)

	startTime := time.Now()
	s.logger.Printf("开始提取会话 %s: %s", sessionID, filename)

	resp, err := s.upload(ctx, file, filename)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeHTTP)
		return nil, err
	}
	defer resp.Body.Close()

	result, err := s.consume(ctx, resp.Body)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeStream)
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("resume.failed", result.State.Failed),
		attribute.Float64("resume.cost_estimate", result.State.CostEstimate),
		attribute.String("resume.final_message", tracing.SafeProgressMessage(result.State.Message)),
	)
	s.logger.Printf("会话结束: %s (用时 %.2f秒, 完成章节 %d 个)",
		filename, time.Since(startTime).Seconds(), len(result.State.CompletedSections))
	return result, nil
}

// upload 以multipart表单上传文件并返回流式响应
func (s *StreamSession) upload(ctx context.Context, file io.Reader, filename string) (*http.Response, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile(s.fieldName, filename)
	if err != nil {
		return nil, fmt.Errorf("构造multipart表单失败: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("写入文件内容失败: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("关闭multipart写入器失败: %w", err)
	}

	url := s.baseURL + s.endpointPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求提取服务失败 (%s): %w", url, err)
	}

	// 任何非2xx状态都在解码开始前终止会话
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close()
		return nil, fmt.Errorf("提取服务返回错误状态码: %d", resp.StatusCode)
	}
	return resp, nil
}

// consume 拉取循环: 逐块读取响应体并同步折叠
// 在读取下一个块之前当前块已完全处理完毕，消费速率自然匹配生产速率
func (s *StreamSession) consume(ctx context.Context, body io.Reader) (*Result, error) {
	decoder := stream.NewFrameDecoder()
	parser := stream.NewEventParser(s.logger)
	sanitizer := sanitize.NewSanitizer(s.logger)
	aggregator := progress.NewAggregator(sanitizer, s.estimator, s.logger)
	state := progress.NewState()

	var document *types.ResumeDocument
	buf := make([]byte, s.readBufferSize)

	for {
		// 取消时停止读取并丢弃解码缓冲，不做flush
		if err := ctx.Err(); err != nil {
			decoder.Reset()
			return nil, fmt.Errorf("会话被取消: %w", err)
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			for _, frame := range decoder.Feed(buf[:n]) {
				document = s.applyFrame(parser, aggregator, frame, state, document)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			decoder.Reset()
			return nil, fmt.Errorf("读取响应流失败: %w", readErr)
		}
	}

	// 流结束，处理可能残留的尾帧
	if frame, ok := decoder.Flush(); ok {
		document = s.applyFrame(parser, aggregator, frame, state, document)
	}

	// 上游在终态事件(final_data或error)之前关闭了流，
	// 会话没有结论，按传输故障处理
	if !state.Completed && !state.Failed {
		return nil, fmt.Errorf("响应流在终态事件前结束")
	}

	// 终态事件未携带数据时仍保证输出结构完整的文档
	if state.Completed && !state.Failed && document == nil {
		document = types.DefaultResumeDocument()
	}
	if state.Failed {
		document = nil
	}
	return &Result{Document: document, State: state}, nil
}

// applyFrame 解析并折叠单个帧，返回迄今为止的终态文档
func (s *StreamSession) applyFrame(parser *stream.EventParser, aggregator *progress.Aggregator, frame stream.Frame, state *progress.State, document *types.ResumeDocument) *types.ResumeDocument {
	event, ok := parser.Parse(frame)
	if !ok {
		return document
	}
	if doc := aggregator.Apply(event, state); doc != nil {
		document = doc
	}
	if s.onProgress != nil {
		s.onProgress(state)
	}
	return document
}
