package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure"
	"github.com/wyfcoding/optionpricing/pkg/grpcclient"
	"github.com/wyfcoding/optionpricing/pkg/metrics"
	"github.com/wyfcoding/optionpricing/pkg/middleware"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestClient(t *testing.T) *PricingServiceClient {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	opts := application.DefaultOptions()
	svc := application.NewPricingService(
		application.NewPricingCommandService(nil, nil, nil, node, nil, opts),
		application.NewPricingQueryService(nil, nil, infrastructure.NewStaticChainProvider(nil), nil, nil, opts),
	)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		middleware.GRPCRecoveryInterceptor(),
		middleware.GRPCLoggingInterceptor(),
		middleware.GRPCMetricsInterceptor(metrics.New("pricing")),
	))
	NewServer(srv, svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpcclient.NewClient(
		grpcclient.ClientConfig{Target: "passthrough:///bufnet", RequestTimeout: 5},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewPricingServiceClient(conn)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestPriceOptionOverGRPC(t *testing.T) {
	c := newTestClient(t)

	out, err := c.Call(context.Background(), "PriceOption", mustStruct(t, map[string]any{
		"option_type":      "put",
		"underlying_price": 100.0,
		"strike_price":     100.0,
		"time_to_expiry":   1.0,
		"risk_free_rate":   0.05,
		"volatility":       0.2,
	}))
	require.NoError(t, err)

	fields := out.GetFields()
	assert.InDelta(t, 10.450583572186, fields["call_price"].GetNumberValue(), 1e-6)
	assert.InDelta(t, 5.573526022257, fields["price"].GetNumberValue(), 1e-6)
	assert.Equal(t, "PUT", fields["option_type"].GetStringValue())
}

func TestGenerateSurfaceOverGRPC(t *testing.T) {
	c := newTestClient(t)

	out, err := c.Call(context.Background(), "GenerateSurface", mustStruct(t, map[string]any{
		"min_spot": 80.0, "max_spot": 120.0, "min_vol": 0.1, "max_vol": 0.3,
		"strike_price": 100.0, "time_to_expiry": 1.0, "risk_free_rate": 0.08, "samples": 4.0,
	}))
	require.NoError(t, err)

	fields := out.GetFields()
	assert.Equal(t, 4.0, fields["samples"].GetNumberValue())
	calls := fields["calls"].GetListValue().GetValues()
	require.Len(t, calls, 4)
	assert.Len(t, calls[0].GetListValue().GetValues(), 4)
	assert.InDelta(t, 0.293658857699, calls[0].GetListValue().GetValues()[0].GetNumberValue(), 1e-6)
}

func TestEvaluatePayoffOverGRPC(t *testing.T) {
	c := newTestClient(t)

	out, err := c.Call(context.Background(), "EvaluatePayoff", mustStruct(t, map[string]any{
		"strategy":     "short_put",
		"strike_price": 100.0,
		"premium":      4.0,
		"spots":        []any{90.0, 110.0},
	}))
	require.NoError(t, err)

	payoffs := out.GetFields()["payoffs"].GetListValue().GetValues()
	require.Len(t, payoffs, 2)
	assert.Equal(t, -6.0, payoffs[0].GetNumberValue())
	assert.Equal(t, 4.0, payoffs[1].GetNumberValue())
}

func TestErrorCodesOverGRPC(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Call(ctx, "PriceOption", mustStruct(t, map[string]any{
		"underlying_price": 0.0, "strike_price": 100.0, "time_to_expiry": 1.0, "volatility": 0.2,
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = c.Call(ctx, "FetchOptionChain", mustStruct(t, map[string]any{"symbol": "NOPE"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = c.Call(ctx, "GetLatestResult", mustStruct(t, map[string]any{"symbol": "AAPL"}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = c.Call(ctx, "Missing", mustStruct(t, map[string]any{}))
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestFetchOptionChainOverGRPC(t *testing.T) {
	c := newTestClient(t)

	out, err := c.Call(context.Background(), "FetchOptionChain", mustStruct(t, map[string]any{"symbol": "spy"}))
	require.NoError(t, err)
	assert.Equal(t, "SPY", out.GetFields()["symbol"].GetStringValue())
	assert.Len(t, out.GetFields()["expirations"].GetStructValue().GetFields(), 3)
}
