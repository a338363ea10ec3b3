// Package router 提供 HTTP 路由配置
package router

import (
	"path/filepath"

	"storyforge-api/internal/config"
	"storyforge-api/internal/infrastructure/storage"
	"storyforge-api/internal/interfaces/http/handler"
	"storyforge-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Health  *handler.HealthHandler
	Project *handler.ProjectHandler
	Asset   *handler.AssetHandler
	Script  *handler.ScriptHandler
	Scene   *handler.SceneHandler
	Export  *handler.ExportHandler
}

// Options 可选的基础设施，未启用 Redis 时为 nil
type Options struct {
	Limiter     middleware.RateLimiter
	Invalidator middleware.ProjectInvalidator
	// StaticRoot 本地存储根目录，为空时不挂载静态文件
	StaticRoot string
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
	opts     Options
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers, opts Options) *Router {
	// 设置 Gin 模式
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine:   engine,
		cfg:      cfg,
		handlers: handlers,
		opts:     opts,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// setupMiddleware 配置中间件
func (r *Router) setupMiddleware() {
	// 基础中间件
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	// CORS 中间件
	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	// 健康检查与指标端点不追踪、不计数
	skip := []string{"/health", "/health/ready", "/health/live", r.metricsPath()}

	// 追踪中间件
	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name, skip...))
		r.engine.Use(middleware.TraceContext())
	}

	// 指标中间件
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics(skip...))
	}
}

func (r *Router) metricsPath() string {
	if path := r.cfg.Observability.Metrics.Path; path != "" {
		return path
	}
	return "/metrics"
}

// setupRoutes 配置路由
func (r *Router) setupRoutes() {
	h := r.handlers
	r.engine.NoRoute(handler.RouteNotFound)

	// 系统端点
	r.engine.GET("/health", h.Health.Health)
	r.engine.GET("/health/ready", h.Health.Ready)
	r.engine.GET("/health/live", h.Health.Live)

	// Prometheus 指标端点
	if r.cfg.Observability.Metrics.Enabled {
		r.engine.GET(r.metricsPath(), gin.WrapH(promhttp.Handler()))
	}

	// 生成的图片与导出文件
	if r.opts.StaticRoot != "" {
		r.engine.Static("/generated", filepath.Join(r.opts.StaticRoot, "generated"))
		r.engine.Static("/"+storage.DirExports, filepath.Join(r.opts.StaticRoot, storage.DirExports))
	}

	rl := r.cfg.Security.RateLimit
	v1 := r.engine.Group("/api/v1")
	v1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           rl.Enabled,
		RequestsPerSecond: rl.RequestsPerSecond,
		Burst:             rl.Burst,
	}, r.opts.Limiter))

	// 项目管理
	v1.GET("/projects", h.Project.ListProjects)
	v1.POST("/projects", h.Project.CreateProject)

	project := v1.Group("/projects/:pid")
	project.Use(middleware.ProjectContext())
	project.Use(middleware.InvalidateProjectCache(r.opts.Invalidator))
	{
		project.GET("", h.Project.GetProject)
		project.PATCH("", h.Project.UpdateProject)
		project.DELETE("", h.Project.DeleteProject)
		project.GET("/stats", h.Project.GetProjectStats)
	}

	perMinute := rl.GeneratePerMinute
	if !rl.Enabled {
		perMinute = 0
	}
	generate := middleware.GenerateRateLimit(perMinute, r.opts.Limiter)

	// 资产
	assets := project.Group("/assets")
	{
		assets.GET("", h.Asset.ListAssets)
		assets.POST("", h.Asset.CreateAsset)
		assets.GET("/:aid", h.Asset.GetAsset)
		assets.PATCH("/:aid", h.Asset.UpdateAsset)
		assets.DELETE("/:aid", h.Asset.DeleteAsset)
		assets.POST("/:aid/lock", h.Asset.LockAsset)
		assets.POST("/:aid/generate", generate, h.Asset.GenerateAsset)
		assets.GET("/:aid/variants", h.Asset.ListVariants)
		assets.POST("/:aid/variants", h.Asset.SelectVariant)
	}

	// 剧本
	scripts := project.Group("/scripts")
	{
		scripts.GET("", h.Script.ListScripts)
		scripts.POST("", h.Script.CreateScript)
		scripts.GET("/:sid", h.Script.GetScript)
		scripts.PATCH("/:sid", h.Script.UpdateScript)
		scripts.DELETE("/:sid", h.Script.DeleteScript)
		scripts.POST("/:sid/compile", h.Script.CompileScript)
	}

	// 场景
	scenes := project.Group("/scenes")
	{
		scenes.GET("", h.Scene.ListScenes)
		scenes.POST("", h.Scene.CreateScene)
		scenes.GET("/:scid", h.Scene.GetScene)
		scenes.PATCH("/:scid", h.Scene.UpdateScene)
		scenes.DELETE("/:scid", h.Scene.DeleteScene)
		scenes.PUT("/:scid/assets", h.Scene.SetSceneAssets)
		scenes.POST("/:scid/render", generate, h.Scene.RenderScene)
	}

	// 导出
	exports := project.Group("/exports")
	{
		exports.GET("", h.Export.ListExports)
		exports.POST("", h.Export.CreateExport)
		exports.GET("/:eid", h.Export.GetExport)
	}
}
