package paneov1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified name of the control service.
const ServiceName = "paneo.v1.Control"

// ControlServer is the server API for the control service.
type ControlServer interface {
	Roots(context.Context, *RootsRequest) (*RootsResponse, error)
	List(context.Context, *ListRequest) (*ListResponse, error)
	StartCopy(context.Context, *CopyRequest) (*StartCopyResponse, error)
	CopyStatus(context.Context, *JobRequest) (*Job, error)
	CancelCopy(context.Context, *JobRequest) (*CancelCopyResponse, error)
	ListJobs(context.Context, *ListJobsRequest) (*ListJobsResponse, error)
	Copy(context.Context, *CopyRequest) (*CopyResponse, error)
	Move(context.Context, *MoveRequest) (*MoveResponse, error)
	Status(context.Context, *StatusRequest) (*DaemonStatus, error)
	Shutdown(context.Context, *ShutdownRequest) (*ShutdownResponse, error)
}

// UnimplementedControlServer answers every call with codes.Unimplemented.
// Embed it to stay compatible with methods added later.
type UnimplementedControlServer struct{}

func (UnimplementedControlServer) Roots(context.Context, *RootsRequest) (*RootsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Roots not implemented")
}
func (UnimplementedControlServer) List(context.Context, *ListRequest) (*ListResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method List not implemented")
}
func (UnimplementedControlServer) StartCopy(context.Context, *CopyRequest) (*StartCopyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method StartCopy not implemented")
}
func (UnimplementedControlServer) CopyStatus(context.Context, *JobRequest) (*Job, error) {
	return nil, status.Error(codes.Unimplemented, "method CopyStatus not implemented")
}
func (UnimplementedControlServer) CancelCopy(context.Context, *JobRequest) (*CancelCopyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CancelCopy not implemented")
}
func (UnimplementedControlServer) ListJobs(context.Context, *ListJobsRequest) (*ListJobsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListJobs not implemented")
}
func (UnimplementedControlServer) Copy(context.Context, *CopyRequest) (*CopyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Copy not implemented")
}
func (UnimplementedControlServer) Move(context.Context, *MoveRequest) (*MoveResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Move not implemented")
}
func (UnimplementedControlServer) Status(context.Context, *StatusRequest) (*DaemonStatus, error) {
	return nil, status.Error(codes.Unimplemented, "method Status not implemented")
}
func (UnimplementedControlServer) Shutdown(context.Context, *ShutdownRequest) (*ShutdownResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Shutdown not implemented")
}

// ControlServiceDesc describes the control service for grpc.Server.
var ControlServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Roots", ControlServer.Roots),
		unary("List", ControlServer.List),
		unary("StartCopy", ControlServer.StartCopy),
		unary("CopyStatus", ControlServer.CopyStatus),
		unary("CancelCopy", ControlServer.CancelCopy),
		unary("ListJobs", ControlServer.ListJobs),
		unary("Copy", ControlServer.Copy),
		unary("Move", ControlServer.Move),
		unary("Status", ControlServer.Status),
		unary("Shutdown", ControlServer.Shutdown),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "paneo/v1/control",
}

// RegisterControlServer registers srv with s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ControlServiceDesc, srv)
}

func unary[Req, Resp any](method string, call func(ControlServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ControlServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ControlServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// ControlClient is the client API for the control service.
type ControlClient interface {
	Roots(ctx context.Context, in *RootsRequest, opts ...grpc.CallOption) (*RootsResponse, error)
	List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error)
	StartCopy(ctx context.Context, in *CopyRequest, opts ...grpc.CallOption) (*StartCopyResponse, error)
	CopyStatus(ctx context.Context, in *JobRequest, opts ...grpc.CallOption) (*Job, error)
	CancelCopy(ctx context.Context, in *JobRequest, opts ...grpc.CallOption) (*CancelCopyResponse, error)
	ListJobs(ctx context.Context, in *ListJobsRequest, opts ...grpc.CallOption) (*ListJobsResponse, error)
	Copy(ctx context.Context, in *CopyRequest, opts ...grpc.CallOption) (*CopyResponse, error)
	Move(ctx context.Context, in *MoveRequest, opts ...grpc.CallOption) (*MoveResponse, error)
	Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*DaemonStatus, error)
	Shutdown(ctx context.Context, in *ShutdownRequest, opts ...grpc.CallOption) (*ShutdownResponse, error)
}

type controlClient struct {
	cc grpc.ClientConnInterface
}

// NewControlClient returns a client that sends every call with the JSON codec.
func NewControlClient(cc grpc.ClientConnInterface) ControlClient {
	return &controlClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controlClient) Roots(ctx context.Context, in *RootsRequest, opts ...grpc.CallOption) (*RootsResponse, error) {
	return invoke[RootsResponse](ctx, c.cc, "Roots", in, opts)
}

func (c *controlClient) List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListResponse](ctx, c.cc, "List", in, opts)
}

func (c *controlClient) StartCopy(ctx context.Context, in *CopyRequest, opts ...grpc.CallOption) (*StartCopyResponse, error) {
	return invoke[StartCopyResponse](ctx, c.cc, "StartCopy", in, opts)
}

func (c *controlClient) CopyStatus(ctx context.Context, in *JobRequest, opts ...grpc.CallOption) (*Job, error) {
	return invoke[Job](ctx, c.cc, "CopyStatus", in, opts)
}

func (c *controlClient) CancelCopy(ctx context.Context, in *JobRequest, opts ...grpc.CallOption) (*CancelCopyResponse, error) {
	return invoke[CancelCopyResponse](ctx, c.cc, "CancelCopy", in, opts)
}

func (c *controlClient) ListJobs(ctx context.Context, in *ListJobsRequest, opts ...grpc.CallOption) (*ListJobsResponse, error) {
	return invoke[ListJobsResponse](ctx, c.cc, "ListJobs", in, opts)
}

func (c *controlClient) Copy(ctx context.Context, in *CopyRequest, opts ...grpc.CallOption) (*CopyResponse, error) {
	return invoke[CopyResponse](ctx, c.cc, "Copy", in, opts)
}

func (c *controlClient) Move(ctx context.Context, in *MoveRequest, opts ...grpc.CallOption) (*MoveResponse, error) {
	return invoke[MoveResponse](ctx, c.cc, "Move", in, opts)
}

func (c *controlClient) Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*DaemonStatus, error) {
	return invoke[DaemonStatus](ctx, c.cc, "Status", in, opts)
}

func (c *controlClient) Shutdown(ctx context.Context, in *ShutdownRequest, opts ...grpc.CallOption) (*ShutdownResponse, error) {
	return invoke[ShutdownResponse](ctx, c.cc, "Shutdown", in, opts)
}
