package codec

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region service-interfaces
// InferenceService is implemented by servers of preintel.v1.Inference.
type InferenceService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
	Search(ctx context.Context, query string, topK int, threshold float32) ([]SearchResult, error)
}

// GuardrailService is implemented by servers of preintel.v1.Guardrail.
type GuardrailService interface {
	Check(ctx context.Context, pre, post string) (CheckResult, error)
}

// UnimplementedInference can be embedded to serve only part of
// InferenceService.
type UnimplementedInference struct{}

func (UnimplementedInference) Embed(context.Context, string) ([]float32, error) {
	return nil, status.Error(codes.Unimplemented, "method Embed not implemented")
}

func (UnimplementedInference) Generate(context.Context, GenerateRequest) (GenerateResult, error) {
	return GenerateResult{}, status.Error(codes.Unimplemented, "method Generate not implemented")
}

func (UnimplementedInference) Search(context.Context, string, int, float32) ([]SearchResult, error) {
	return nil, status.Error(codes.Unimplemented, "method Search not implemented")
}

// #endregion service-interfaces

// #region handlers
type structHandler func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func unary(service, method string, pick func(srv any) structHandler) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			h := pick(srv)
			if interceptor == nil {
				return h(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return h(ctx, req.(*structpb.Struct))
			})
		},
	}
}

func inferenceHandler(name string) func(srv any) structHandler {
	return func(srv any) structHandler {
		svc := srv.(InferenceService)
		switch name {
		case "Embed":
			return func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				vec, err := svc.Embed(ctx, decodeEmbedRequest(req))
				if err != nil {
					return nil, err
				}
				return encodeEmbedResponse(vec), nil
			}
		case "Generate":
			return func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				res, err := svc.Generate(ctx, decodeGenerateRequest(req))
				if err != nil {
					return nil, err
				}
				return encodeGenerateResponse(res)
			}
		default:
			return func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				q, k, th := decodeSearchRequest(req)
				res, err := svc.Search(ctx, q, k, th)
				if err != nil {
					return nil, err
				}
				return encodeSearchResponse(res), nil
			}
		}
	}
}

func guardrailHandler(srv any) structHandler {
	svc := srv.(GuardrailService)
	return func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
		pre, post := decodeCheckRequest(req)
		res, err := svc.Check(ctx, pre, post)
		if err != nil {
			return nil, err
		}
		return encodeCheckResponse(res), nil
	}
}

// #endregion handlers

// #region service-descs
var inferenceDesc = grpc.ServiceDesc{
	ServiceName: inferenceService,
	HandlerType: (*InferenceService)(nil),
	Methods: []grpc.MethodDesc{
		unary(inferenceService, "Embed", inferenceHandler("Embed")),
		unary(inferenceService, "Generate", inferenceHandler("Generate")),
		unary(inferenceService, "Search", inferenceHandler("Search")),
	},
	Metadata: "preintel/v1/inference.proto",
}

var guardrailDesc = grpc.ServiceDesc{
	ServiceName: guardrailService,
	HandlerType: (*GuardrailService)(nil),
	Methods: []grpc.MethodDesc{
		unary(guardrailService, "Check", guardrailHandler),
	},
	Metadata: "preintel/v1/guardrail.proto",
}

// RegisterInference registers svc with s.
func RegisterInference(s grpc.ServiceRegistrar, svc InferenceService) {
	s.RegisterService(&inferenceDesc, svc)
}

// RegisterGuardrail registers svc with s.
func RegisterGuardrail(s grpc.ServiceRegistrar, svc GuardrailService) {
	s.RegisterService(&guardrailDesc, svc)
}

// #endregion service-descs
