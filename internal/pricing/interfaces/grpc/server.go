package grpc

import (
	"context"

	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName 服务全名，请求与响应均为 google.protobuf.Struct
const ServiceName = "optionpricing.v1.PricingService"

// PricingServiceServer 定价 gRPC 服务
type PricingServiceServer interface {
	PriceOption(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GenerateSurface(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PayoffProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluatePayoff(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FetchOptionChain(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetLatestResult(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(PricingServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// PricingServiceDesc 服务描述
var PricingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PricingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PriceOption", Handler: unaryHandler("PriceOption", PricingServiceServer.PriceOption)},
		{MethodName: "GenerateSurface", Handler: unaryHandler("GenerateSurface", PricingServiceServer.GenerateSurface)},
		{MethodName: "PayoffProfile", Handler: unaryHandler("PayoffProfile", PricingServiceServer.PayoffProfile)},
		{MethodName: "EvaluatePayoff", Handler: unaryHandler("EvaluatePayoff", PricingServiceServer.EvaluatePayoff)},
		{MethodName: "FetchOptionChain", Handler: unaryHandler("FetchOptionChain", PricingServiceServer.FetchOptionChain)},
		{MethodName: "GetLatestResult", Handler: unaryHandler("GetLatestResult", PricingServiceServer.GetLatestResult)},
		{MethodName: "GetHistory", Handler: unaryHandler("GetHistory", PricingServiceServer.GetHistory)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "optionpricing/v1/pricing.proto",
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler(method string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	name := fullMethod(method)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(PricingServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: name}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(PricingServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// NewServer 创建处理器并注册到 gRPC 服务器
func NewServer(s *grpc.Server, svc *application.PricingService) *GRPCHandler {
	h := NewGRPCHandler(svc)
	s.RegisterService(&PricingServiceDesc, h)
	return h
}

// PricingServiceClient 定价服务客户端
type PricingServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPricingServiceClient 创建客户端
func NewPricingServiceClient(cc grpc.ClientConnInterface) *PricingServiceClient {
	return &PricingServiceClient{cc: cc}
}

// Call 调用 method，method 为不带服务名的方法名
func (c *PricingServiceClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
