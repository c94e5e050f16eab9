package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/optionpricing/pkg/config"
	"github.com/wyfcoding/optionpricing/pkg/logger"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
	"github.com/wyfcoding/optionpricing/pkg/ratelimit"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGinLoggingMiddlewarePropagatesIDs(t *testing.T) {
	r := gin.New()
	r.Use(GinLoggingMiddleware())

	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen, _ = c.Request.Context().Value(logger.TraceIDKey).(string)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderTraceID, "upstream-trace")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "upstream-trace", seen)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestGinRecoveryMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(GinRecoveryMiddleware())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestGinCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(GinCORSMiddleware())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/x", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGinMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	m := metrics.New("test")
	r := gin.New()
	r.Use(GinMetricsMiddleware(m))
	r.GET("/chain/:symbol", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, sym := range []string{"AAPL", "MSFT"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/chain/"+sym, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/chain/:symbol", "200")))
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, QPS: 0.001, Burst: 1}
	r := gin.New()
	r.Use(RateLimitMiddleware(ratelimit.NewLocalRateLimiter(0), cfg))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/x", nil))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/x", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: false, QPS: 0.001, Burst: 1}
	r := gin.New()
	r.Use(RateLimitMiddleware(ratelimit.NewLocalRateLimiter(0), cfg))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

var unaryInfo = &grpc.UnaryServerInfo{FullMethod: "/optionpricing.v1.PricingService/PriceOption"}

func TestGRPCRecoveryInterceptor(t *testing.T) {
	resp, err := GRPCRecoveryInterceptor()(context.Background(), nil, unaryInfo,
		func(ctx context.Context, req any) (any, error) { panic("boom") })

	assert.Nil(t, resp)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestGRPCLoggingInterceptorReadsMetadataTraceID(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-trace-id", "md-trace"))

	var seen string
	_, err := GRPCLoggingInterceptor()(ctx, nil, unaryInfo, func(ctx context.Context, req any) (any, error) {
		seen, _ = ctx.Value(logger.TraceIDKey).(string)
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "md-trace", seen)
}

func TestGRPCRateLimitInterceptor(t *testing.T) {
	icpt := GRPCRateLimitInterceptor(ratelimit.NewLocalRateLimiter(0), config.RateLimitConfig{Enabled: true, QPS: 0.001, Burst: 1})
	handler := func(ctx context.Context, req any) (any, error) { return "ok", nil }

	_, err := icpt(context.Background(), nil, unaryInfo, handler)
	require.NoError(t, err)

	_, err = icpt(context.Background(), nil, unaryInfo, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestGRPCMetricsInterceptor(t *testing.T) {
	m := metrics.New("test")
	_, _ = GRPCMetricsInterceptor(m)(context.Background(), nil, unaryInfo, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.InvalidArgument, "bad")
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GRPCRequestsTotal.WithLabelValues(unaryInfo.FullMethod, "InvalidArgument")))
}
