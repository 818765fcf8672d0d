package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resume-stream-go/internal/progress"
	"resume-stream-go/internal/session"

	"github.com/spf13/pflag"
)

// streamcli 一次性提取工具: 上传单个简历文件，把进度打到stderr，
// 把规范化后的文档JSON打到stdout(或指定文件)，适合调试与脚本化调用
func main() {
	var (
		baseURL     string
		endpoint    string
		fieldName   string
		timeoutSecs int
		outputPath  string
		verbose     bool
	)
	pflag.StringVarP(&baseURL, "base-url", "u", "http://localhost:8000", "提取服务地址")
	pflag.StringVar(&endpoint, "endpoint", "/api/stream-resume-processing", "流式处理路径")
	pflag.StringVar(&fieldName, "field", "file", "multipart文件字段名")
	pflag.IntVarP(&timeoutSecs, "timeout", "t", 300, "整个会话的超时(秒)")
	pflag.StringVarP(&outputPath, "output", "o", "", "文档输出路径，空则写stdout")
	pflag.BoolVarP(&verbose, "verbose", "v", false, "打印会话内部日志")
	pflag.Parse()

	args := pflag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "用法: streamcli [flags] <简历文件>")
		pflag.PrintDefaults()
		os.Exit(2)
	}
	filePath := args[0]

	file, err := os.Open(filePath)
	if err != nil {
		log.Fatalf("打开文件失败: %v", err)
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	// Ctrl-C中断会话
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	options := []session.Option{
		session.WithEndpointPath(endpoint),
		session.WithFieldName(fieldName),
		session.WithHTTPTimeout(time.Duration(timeoutSecs) * time.Second),
		session.WithProgressCallback(func(state *progress.State) {
			fmt.Fprintf(os.Stderr, "\r[%3d%%] %s", state.Percent, state.Message)
		}),
	}
	if verbose {
		options = append(options, session.WithLogger(log.New(os.Stderr, "[streamcli] ", log.LstdFlags)))
	}

	sess := session.NewStreamSession(baseURL, options...)
	result, err := sess.Process(ctx, file, filePath)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatalf("会话失败: %v", err)
	}

	if result.State.Failed {
		log.Fatalf("上游报告提取失败: %s", result.State.ErrorMessage)
	}

	data, err := json.MarshalIndent(result.Document, "", "  ")
	if err != nil {
		log.Fatalf("序列化文档失败: %v", err)
	}

	if outputPath == "" {
		fmt.Println(string(data))
	} else {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			log.Fatalf("写入输出文件失败: %v", err)
		}
		fmt.Fprintf(os.Stderr, "文档已写入: %s\n", outputPath)
	}

	fmt.Fprintf(os.Stderr, "完成章节 %d 个, 成本估算 $%.6f\n",
		len(result.State.CompletedSections), result.State.CostEstimate)
}
