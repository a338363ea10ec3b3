package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storyforge-api/pkg/logger"
)

// TraceIDHeader 响应中回传的 trace ID
const TraceIDHeader = "X-Trace-ID"

// span 属性
const (
	attrProjectID = attribute.Key("storyforge.project_id")
	attrRequestID = attribute.Key("storyforge.request_id")
)

// Trace otelgin 链路追踪，skipPaths 中的路由（健康检查、指标）不产生 span
func Trace(serviceName string, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return otelgin.Middleware(serviceName,
		otelgin.WithGinFilter(func(c *gin.Context) bool {
			_, ok := skip[c.FullPath()]
			return !ok
		}),
		otelgin.WithSpanNameFormatter(spanName),
	)
}

// spanName "POST /api/v1/projects/:pid/scenes/:scid/render"
func spanName(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	return c.Request.Method + " " + route
}

// TraceContext 把 trace/span ID 写入日志上下文，并给 span 标注项目与请求 ID
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		sc := span.SpanContext()
		if !sc.IsValid() {
			c.Next()
			return
		}

		traceID := sc.TraceID().String()
		c.Set("trace_id", traceID)

		ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
		ctx = logger.WithContext(ctx, logger.SpanIDKey, sc.SpanID().String())
		c.Request = c.Request.WithContext(ctx)
		c.Header(TraceIDHeader, traceID)

		if rid := c.GetString("request_id"); rid != "" {
			span.SetAttributes(attrRequestID.String(rid))
		}
		if pid := c.Param("pid"); pid != "" {
			span.SetAttributes(attrProjectID.String(pid))
		}

		c.Next()
	}
}
