// Package router 提供 HTTP 路由配置
package router

import (
	"memora-api/internal/interfaces/http/handler"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	askHandler *handler.AskHandler,
	momentHandler *handler.MomentHandler,
	fileHandler *handler.FileHandler,
) {
	// 问答
	askGroup := v1.Group("/ask")
	{
		askGroup.POST("", askHandler.Ask)
		askGroup.GET("/history", askHandler.History)
	}

	// 时刻建档
	moments := v1.Group("/moments")
	{
		moments.POST("", momentHandler.CreateMoment)
		moments.POST("/:mid/files", momentHandler.AttachFiles)
	}

	// 文件检索
	files := v1.Group("/files")
	{
		files.GET("/search", fileHandler.Search)
		files.GET("/stats", fileHandler.Stats)
	}
}
