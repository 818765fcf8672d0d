package router

import (
	"context"
	"errors"

	"resume-stream-go/internal/api/handler"
	"resume-stream-go/internal/config"
	"resume-stream-go/internal/ratelimit"
	"resume-stream-go/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

// RegisterRoutes 注册 API 路由
// api_key非空时对业务接口启用API Key鉴权，健康检查不受保护；
// upload_rate_per_minute大于0时对上传接口启用令牌桶限流
func RegisterRoutes(h *server.Hertz, resumeHandler *handler.ResumeHandler, serverCfg *config.ServerConfig) {
	h.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	api := h.Group("/api/v1")
	if serverCfg.APIKey != "" {
		apiKey := serverCfg.APIKey
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:X-API-Key", ""),
			keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
				return key == apiKey, nil
			}),
		))
	}

	upload := api.Group("/resume")
	if serverCfg.UploadRatePerMinute > 0 {
		bucket := ratelimit.NewTokenBucket(serverCfg.UploadRatePerMinute, 0)
		upload.Use(func(c context.Context, ctx *app.RequestContext) {
			if !bucket.Allow() {
				ctx.AbortWithStatusJSON(consts.StatusTooManyRequests, utils.H{"error": "请求过于频繁，请稍后重试"})
				return
			}
			ctx.Next(c)
		})
	}

	upload.POST("/upload", func(c context.Context, ctx *app.RequestContext) {
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "文件未找到"})
			return
		}

		// 获取来源渠道
		sourceChannel := ctx.PostForm("source_channel")
		if sourceChannel == "" {
			sourceChannel = "web_upload" // 默认值
		}

		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "打开文件失败"})
			return
		}
		defer file.Close()

		resp, err := resumeHandler.HandleResumeUpload(
			c,
			file,
			fileHeader.Size,
			fileHeader.Filename,
			sourceChannel,
		)
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}

		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/resume/:uuid/progress", func(c context.Context, ctx *app.RequestContext) {
		submissionUUID := ctx.Param("uuid")
		resp, err := resumeHandler.GetProgress(c, submissionUUID)
		if err != nil {
			if errors.Is(err, storage.ErrSubmissionNotFound) {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "提交记录不存在"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/resume/:uuid/document", func(c context.Context, ctx *app.RequestContext) {
		submissionUUID := ctx.Param("uuid")
		resp, err := resumeHandler.GetDocument(c, submissionUUID)
		if err != nil {
			if errors.Is(err, storage.ErrSubmissionNotFound) {
				ctx.JSON(consts.StatusNotFound, utils.H{"error": "提取结果不存在"})
				return
			}
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": err.Error()})
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})
}
