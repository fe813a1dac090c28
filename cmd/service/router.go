package service

import (
	"github.com/gin-gonic/gin"

	"github.com/coursebrain/coursebrain/app/core"
	"github.com/coursebrain/coursebrain/app/response"
	"github.com/coursebrain/coursebrain/cmd/service/handler"
	"github.com/coursebrain/coursebrain/cmd/service/middleware"
	"github.com/coursebrain/coursebrain/pkg/metrics"
)

func serve(core *core.Core) {
	httpSrv := &handler.HttpSrv{
		Core:   core,
		Engine: core.HttpEngine(),
	}
	setupHttpRouter(httpSrv)

	core.HttpEngine().Run(core.Cfg().Addr)
}

func GetIPLimitBuilder(appCore *core.Core) middleware.LimiterFunc {
	return func(key string, opts ...core.LimitOption) gin.HandlerFunc {
		return middleware.UseLimit(appCore, key, func(c *gin.Context) string {
			return key + ":" + c.ClientIP()
		}, opts...)
	}
}

func setupHttpRouter(s *handler.HttpSrv) {
	ipLimit := GetIPLimitBuilder(s.Core)

	s.Engine.Use(middleware.I18n(), response.NewResponse())
	s.Engine.Use(middleware.Cors, middleware.Recover, middleware.Observe(s.Core))

	s.Engine.GET("/metrics", metrics.DefaultExportHandler())

	apiV1 := s.Engine.Group("/api/v1")
	{
		content := apiV1.Group("/content")
		{
			content.POST("", ipLimit("ingest"), s.IngestContent)
			content.GET("/list", s.ListContents)
			content.GET("/:contentid", s.GetContent)
			content.GET("/:contentid/status", s.GetContentStatus)
			content.GET("/:contentid/chunks", s.ListContentChunks)
			content.PUT("/:contentid", s.UpdateContent)
			content.DELETE("/:contentid", s.DeleteContent)
			content.POST("/:contentid/reprocess", ipLimit("reprocess"), s.ReprocessContent)
			content.POST("/:contentid/version", ipLimit("ingest"), s.CreateContentVersion)
		}
	}
}
