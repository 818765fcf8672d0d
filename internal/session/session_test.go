package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resume-stream-go/internal/progress"
	"resume-stream-go/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sseServer 构造一个按帧推送SSE响应的测试服务
func sseServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseMultipartForm(10<<20))
		_, _, err := r.FormFile("file")
		require.NoError(t, err, "请求必须携带multipart文件字段")

		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		for _, frame := range frames {
			fmt.Fprintf(w, "%s\n\n", frame)
			flusher.Flush()
		}
	}))
}

func TestSessionHappyPath(t *testing.T) {
	server := sseServer(t, []string{
		`data: {"type":"connection","message":"connected"}`,
		`data: {"type":"sections_detected","sections":["summary","education","certifications"]}`,
		`data: {"type":"section_processing","section":"summary","message":"处理summary"}`,
		`data: {"type":"section_complete","section":"summary","data":{"text":"ten years of Go"}}`,
		`data: {"type":"section_complete","section":"education","data":{"degrees":["BSc"]}}`,
		`data: {"type":"section_skip","section":"certifications","message":"no entries"}`,
		`data: {"type":"final_data","data":{"name":"A. Lee","title":"Engineer","education":[{"degree":"BSc"}]}}`,
		`data: [DONE]`,
	})
	defer server.Close()

	sess := NewStreamSession(server.URL)
	result, err := sess.Process(context.Background(), strings.NewReader("%PDF-1.4 fake"), "resume.pdf")
	require.NoError(t, err)

	require.NotNil(t, result.Document)
	assert.Equal(t, "A. Lee", result.Document.Name)
	assert.Equal(t, "Engineer", result.Document.Title)
	require.Len(t, result.Document.Education, 1)
	assert.True(t, result.Document.Education[0].WasAwarded)

	assert.True(t, result.State.Completed)
	assert.False(t, result.State.Failed)
	assert.Equal(t, 100, result.State.Percent)
	assert.Equal(t, []string{"summary", "education", "certifications"}, result.State.DetectedSections)
	// 证书章节被跳过但计入完成
	assert.Equal(t, []string{"summary", "education", "certifications"}, result.State.CompletedSections)
	assert.Greater(t, result.State.CostEstimate, 0.0)
}

func TestSessionUpstreamError(t *testing.T) {
	server := sseServer(t, []string{
		`data: {"type":"connection"}`,
		`data: {"type":"error","message":"模型超时"}`,
	})
	defer server.Close()

	sess := NewStreamSession(server.URL)
	result, err := sess.Process(context.Background(), strings.NewReader("x"), "resume.pdf")
	require.NoError(t, err)

	// 上游业务失败: 无文档，错误通过State暴露
	assert.Nil(t, result.Document)
	assert.True(t, result.State.Failed)
	assert.Equal(t, "模型超时", result.State.ErrorMessage)
}

func TestSessionMalformedFrameSandwich(t *testing.T) {
	server := sseServer(t, []string{
		`data: {"type":"connection"}`,
		`data: {{{{garbage`,
		`: keep-alive comment`,
		`data: {"type":"final_data","data":{"name":"A. Lee"}}`,
	})
	defer server.Close()

	sess := NewStreamSession(server.URL)
	result, err := sess.Process(context.Background(), strings.NewReader("x"), "resume.pdf")
	require.NoError(t, err)

	// 夹在中间的坏帧被静默丢弃，不影响前后帧
	require.NotNil(t, result.Document)
	assert.Equal(t, "A. Lee", result.Document.Name)
}

func TestSessionFinalDataWithoutPayload(t *testing.T) {
	server := sseServer(t, []string{
		`data: {"type":"final_data"}`,
	})
	defer server.Close()

	sess := NewStreamSession(server.URL)
	result, err := sess.Process(context.Background(), strings.NewReader("x"), "resume.pdf")
	require.NoError(t, err)

	// 终态未携带数据仍返回结构完整的默认文档
	assert.Equal(t, types.DefaultResumeDocument(), result.Document)
	assert.True(t, result.State.Completed)
}

func TestSessionTrailingFrameWithoutSeparator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		// 最后一帧没有以"\n\n"收尾，流结束时由Flush兜底
		fmt.Fprint(w, "data: {\"type\":\"connection\"}\n\ndata: {\"type\":\"final_data\",\"data\":{\"name\":\"A. Lee\"}}")
	}))
	defer server.Close()

	sess := NewStreamSession(server.URL)
	result, err := sess.Process(context.Background(), strings.NewReader("x"), "resume.pdf")
	require.NoError(t, err)
	require.NotNil(t, result.Document)
	assert.Equal(t, "A. Lee", result.Document.Name)
}

func TestSessionTruncatedStream(t *testing.T) {
	// 上游在终态事件前关闭了流(如提取服务中途崩溃)
	server := sseServer(t, []string{
		`data: {"type":"connection"}`,
		`data: {"type":"progress","progress":30,"message":"解析中"}`,
	})
	defer server.Close()

	sess := NewStreamSession(server.URL)
	result, err := sess.Process(context.Background(), strings.NewReader("x"), "resume.pdf")

	// 没有结论的会话按传输故障处理，调用方不会拿到nil文档加非失败状态
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "终态事件前结束")
}

func TestSessionNon2xxStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	sess := NewStreamSession(server.URL)
	result, err := sess.Process(context.Background(), strings.NewReader("x"), "resume.pdf")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "500")
}

func TestSessionUnreachableServer(t *testing.T) {
	sess := NewStreamSession("http://127.0.0.1:1", WithHTTPTimeout(2*time.Second))
	result, err := sess.Process(context.Background(), strings.NewReader("x"), "resume.pdf")
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestSessionCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"type\":\"connection\"}\n\n")
		flusher.Flush()
		<-release // 挂住响应直到测试结束
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	sess := NewStreamSession(server.URL)

	done := make(chan struct{})
	var result *Result
	var err error
	go func() {
		result, err = sess.Process(ctx, strings.NewReader("x"), "resume.pdf")
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("取消后会话未及时返回")
	}

	require.Error(t, err)
	assert.Nil(t, result)
}

func TestSessionProgressCallback(t *testing.T) {
	server := sseServer(t, []string{
		`data: {"type":"connection"}`,
		`data: {"type":"progress","progress":30,"message":"解析中"}`,
		`data: {"type":"final_data","data":{"name":"A. Lee"}}`,
	})
	defer server.Close()

	var snapshots []int
	sess := NewStreamSession(server.URL,
		WithProgressCallback(func(state *progress.State) {
			snapshots = append(snapshots, state.Percent)
		}),
	)
	_, err := sess.Process(context.Background(), strings.NewReader("x"), "resume.pdf")
	require.NoError(t, err)

	// 每个有效事件后回调一次: connection(0), progress(30), final(100)
	assert.Equal(t, []int{0, 30, 100}, snapshots)
}

func TestSessionSmallReadBuffer(t *testing.T) {
	server := sseServer(t, []string{
		`data: {"type":"sections_detected","sections":["summary"]}`,
		`data: {"type":"final_data","data":{"name":"简历 候选人"}}`,
	})
	defer server.Close()

	// 1字节缓冲强制所有帧跨块重组，包括多字节字符
	sess := NewStreamSession(server.URL, WithReadBufferSize(1))
	result, err := sess.Process(context.Background(), strings.NewReader("x"), "resume.pdf")
	require.NoError(t, err)
	require.NotNil(t, result.Document)
	assert.Equal(t, "简历 候选人", result.Document.Name)
}
