package grpc

import (
	"context"

	"github.com/dmitrijs2005/itemsapi/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	identityServiceName = "itemsapi.v1.IdentityService"
	whoAmIMethod        = "/" + identityServiceName + "/WhoAmI"
)

// identityServer reports the caller established by accessTokenInterceptor.
type identityServer interface {
	WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error)
}

type identityService struct{}

func (identityService) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no identity")
	}
	return structpb.NewStruct(map[string]any{
		"id":        float64(identity.ID),
		"username":  identity.Username,
		"email":     identity.Email,
		"role":      identity.Role,
		"is_active": identity.IsActive,
	})
}

func whoAmIHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(identityServer).WhoAmI(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: whoAmIMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(identityServer).WhoAmI(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

var identityServiceDesc = grpc.ServiceDesc{
	ServiceName: identityServiceName,
	HandlerType: (*identityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "WhoAmI", Handler: whoAmIHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "itemsapi/v1/identity.proto",
}
