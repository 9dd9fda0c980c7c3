// Package api provides the gRPC MatchService.
//
// Messages are google.protobuf.Struct, so no generated code is needed:
//
//	Evaluate      {rules | rule_set, subject, detailed?}   -> Result
//	EvaluateBatch {rules | rule_set, subjects, detailed?}  -> {results: [Result]}
//	Result        {matched, error?, conditions?: [{description, passed, error?}]}
//
// "rules" is a rule document given as an object or as JSON text; "rule_set"
// names a catalog entry. Evaluation errors are reported per subject inside the
// result. Only request-level problems become gRPC status errors.
package api

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/condmatch/internal/core/catalog"
	"github.com/solatis/condmatch/internal/core/config"
	"github.com/solatis/condmatch/internal/rules"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "condmatch.v1.MatchService"

const (
	evaluateMethod      = "/" + ServiceName + "/Evaluate"
	evaluateBatchMethod = "/" + ServiceName + "/EvaluateBatch"
)

// MatchServiceServer is the server API for MatchService.
type MatchServiceServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EvaluateBatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes MatchService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
		{MethodName: "EvaluateBatch", Handler: evaluateBatchHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "condmatch/v1/match.proto",
}

// RegisterMatchServiceServer registers srv on s.
func RegisterMatchServiceServer(s grpc.ServiceRegistrar, srv MatchServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func evaluateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchServiceServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: evaluateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MatchServiceServer).Evaluate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func evaluateBatchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchServiceServer).EvaluateBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: evaluateBatchMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MatchServiceServer).EvaluateBatch(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// MatchServiceClient is the client API for MatchService.
type MatchServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewMatchServiceClient wraps a connection.
func NewMatchServiceClient(cc grpc.ClientConnInterface) *MatchServiceClient {
	return &MatchServiceClient{cc: cc}
}

// Evaluate calls MatchService.Evaluate.
func (c *MatchServiceClient) Evaluate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, evaluateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// EvaluateBatch calls MatchService.EvaluateBatch.
func (c *MatchServiceClient) EvaluateBatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, evaluateBatchMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// MatchService implements MatchServiceServer.
// Thin orchestration layer delegating to the rules and catalog packages.
type MatchService struct {
	engine       *rules.Engine
	catalog      *catalog.Catalog
	maxBatchSize int
	workers      int
	logger       *zap.Logger
}

// NewMatchService creates the service. cat may be nil, in which case requests
// naming a rule_set fail with FAILED_PRECONDITION.
func NewMatchService(cfg *config.Config, engine *rules.Engine, cat *catalog.Catalog, logger *zap.Logger) (*MatchService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &MatchService{
		engine:       engine,
		catalog:      cat,
		maxBatchSize: cfg.Server.MaxBatchSize,
		workers:      cfg.Engine.Workers,
		logger:       logger,
	}, nil
}
