package dedupev1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "dedupe.v1.DedupeDaemon"

// Full method names.
const (
	DedupeDaemon_StartScan_FullMethodName       = "/" + ServiceName + "/StartScan"
	DedupeDaemon_RequestStop_FullMethodName     = "/" + ServiceName + "/RequestStop"
	DedupeDaemon_GetSnapshot_FullMethodName     = "/" + ServiceName + "/GetSnapshot"
	DedupeDaemon_DeleteGroup_FullMethodName     = "/" + ServiceName + "/DeleteGroup"
	DedupeDaemon_DeleteSelected_FullMethodName  = "/" + ServiceName + "/DeleteSelected"
	DedupeDaemon_ClearState_FullMethodName      = "/" + ServiceName + "/ClearState"
	DedupeDaemon_PruneResolved_FullMethodName   = "/" + ServiceName + "/PruneResolved"
	DedupeDaemon_WatchJob_FullMethodName        = "/" + ServiceName + "/WatchJob"
	DedupeDaemon_GetDaemonStatus_FullMethodName = "/" + ServiceName + "/GetDaemonStatus"
	DedupeDaemon_Shutdown_FullMethodName        = "/" + ServiceName + "/Shutdown"
)

// DedupeDaemonClient is the client API for the DedupeDaemon service.
type DedupeDaemonClient interface {
	StartScan(ctx context.Context, in *StartScanRequest, opts ...grpc.CallOption) (*StartScanResponse, error)
	RequestStop(ctx context.Context, in *RequestStopRequest, opts ...grpc.CallOption) (*RequestStopResponse, error)
	GetSnapshot(ctx context.Context, in *GetSnapshotRequest, opts ...grpc.CallOption) (*GetSnapshotResponse, error)
	DeleteGroup(ctx context.Context, in *DeleteGroupRequest, opts ...grpc.CallOption) (*DeleteResponse, error)
	DeleteSelected(ctx context.Context, in *DeleteSelectedRequest, opts ...grpc.CallOption) (*DeleteResponse, error)
	ClearState(ctx context.Context, in *ClearStateRequest, opts ...grpc.CallOption) (*ClearStateResponse, error)
	PruneResolved(ctx context.Context, in *PruneResolvedRequest, opts ...grpc.CallOption) (*PruneResolvedResponse, error)
	WatchJob(ctx context.Context, in *WatchJobRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[JobEvent], error)
	GetDaemonStatus(ctx context.Context, in *GetDaemonStatusRequest, opts ...grpc.CallOption) (*DaemonStatus, error)
	Shutdown(ctx context.Context, in *ShutdownRequest, opts ...grpc.CallOption) (*ShutdownResponse, error)
}

type dedupeDaemonClient struct {
	cc grpc.ClientConnInterface
}

// NewDedupeDaemonClient returns a client that sends every call with the
// JSON content subtype.
func NewDedupeDaemonClient(cc grpc.ClientConnInterface) DedupeDaemonClient {
	return &dedupeDaemonClient{cc}
}

func callOptions(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *dedupeDaemonClient) StartScan(ctx context.Context, in *StartScanRequest, opts ...grpc.CallOption) (*StartScanResponse, error) {
	out := new(StartScanResponse)
	if err := c.cc.Invoke(ctx, DedupeDaemon_StartScan_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dedupeDaemonClient) RequestStop(ctx context.Context, in *RequestStopRequest, opts ...grpc.CallOption) (*RequestStopResponse, error) {
	out := new(RequestStopResponse)
	if err := c.cc.Invoke(ctx, DedupeDaemon_RequestStop_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dedupeDaemonClient) GetSnapshot(ctx context.Context, in *GetSnapshotRequest, opts ...grpc.CallOption) (*GetSnapshotResponse, error) {
	out := new(GetSnapshotResponse)
	if err := c.cc.Invoke(ctx, DedupeDaemon_GetSnapshot_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dedupeDaemonClient) DeleteGroup(ctx context.Context, in *DeleteGroupRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	out := new(DeleteResponse)
	if err := c.cc.Invoke(ctx, DedupeDaemon_DeleteGroup_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dedupeDaemonClient) DeleteSelected(ctx context.Context, in *DeleteSelectedRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	out := new(DeleteResponse)
	if err := c.cc.Invoke(ctx, DedupeDaemon_DeleteSelected_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dedupeDaemonClient) ClearState(ctx context.Context, in *ClearStateRequest, opts ...grpc.CallOption) (*ClearStateResponse, error) {
	out := new(ClearStateResponse)
	if err := c.cc.Invoke(ctx, DedupeDaemon_ClearState_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dedupeDaemonClient) PruneResolved(ctx context.Context, in *PruneResolvedRequest, opts ...grpc.CallOption) (*PruneResolvedResponse, error) {
	out := new(PruneResolvedResponse)
	if err := c.cc.Invoke(ctx, DedupeDaemon_PruneResolved_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dedupeDaemonClient) WatchJob(ctx context.Context, in *WatchJobRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[JobEvent], error) {
	stream, err := c.cc.NewStream(ctx, &DedupeDaemon_ServiceDesc.Streams[0], DedupeDaemon_WatchJob_FullMethodName, callOptions(opts)...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchJobRequest, JobEvent]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *dedupeDaemonClient) GetDaemonStatus(ctx context.Context, in *GetDaemonStatusRequest, opts ...grpc.CallOption) (*DaemonStatus, error) {
	out := new(DaemonStatus)
	if err := c.cc.Invoke(ctx, DedupeDaemon_GetDaemonStatus_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *dedupeDaemonClient) Shutdown(ctx context.Context, in *ShutdownRequest, opts ...grpc.CallOption) (*ShutdownResponse, error) {
	out := new(ShutdownResponse)
	if err := c.cc.Invoke(ctx, DedupeDaemon_Shutdown_FullMethodName, in, out, callOptions(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

// DedupeDaemonServer is the server API for the DedupeDaemon service.
// Implementations must embed UnimplementedDedupeDaemonServer.
type DedupeDaemonServer interface {
	StartScan(context.Context, *StartScanRequest) (*StartScanResponse, error)
	RequestStop(context.Context, *RequestStopRequest) (*RequestStopResponse, error)
	GetSnapshot(context.Context, *GetSnapshotRequest) (*GetSnapshotResponse, error)
	DeleteGroup(context.Context, *DeleteGroupRequest) (*DeleteResponse, error)
	DeleteSelected(context.Context, *DeleteSelectedRequest) (*DeleteResponse, error)
	ClearState(context.Context, *ClearStateRequest) (*ClearStateResponse, error)
	PruneResolved(context.Context, *PruneResolvedRequest) (*PruneResolvedResponse, error)
	WatchJob(*WatchJobRequest, grpc.ServerStreamingServer[JobEvent]) error
	GetDaemonStatus(context.Context, *GetDaemonStatusRequest) (*DaemonStatus, error)
	Shutdown(context.Context, *ShutdownRequest) (*ShutdownResponse, error)
	mustEmbedUnimplementedDedupeDaemonServer()
}

// UnimplementedDedupeDaemonServer returns Unimplemented for every method.
type UnimplementedDedupeDaemonServer struct{}

func (UnimplementedDedupeDaemonServer) StartScan(context.Context, *StartScanRequest) (*StartScanResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method StartScan not implemented")
}
func (UnimplementedDedupeDaemonServer) RequestStop(context.Context, *RequestStopRequest) (*RequestStopResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RequestStop not implemented")
}
func (UnimplementedDedupeDaemonServer) GetSnapshot(context.Context, *GetSnapshotRequest) (*GetSnapshotResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSnapshot not implemented")
}
func (UnimplementedDedupeDaemonServer) DeleteGroup(context.Context, *DeleteGroupRequest) (*DeleteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteGroup not implemented")
}
func (UnimplementedDedupeDaemonServer) DeleteSelected(context.Context, *DeleteSelectedRequest) (*DeleteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteSelected not implemented")
}
func (UnimplementedDedupeDaemonServer) ClearState(context.Context, *ClearStateRequest) (*ClearStateResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ClearState not implemented")
}
func (UnimplementedDedupeDaemonServer) PruneResolved(context.Context, *PruneResolvedRequest) (*PruneResolvedResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method PruneResolved not implemented")
}
func (UnimplementedDedupeDaemonServer) WatchJob(*WatchJobRequest, grpc.ServerStreamingServer[JobEvent]) error {
	return status.Error(codes.Unimplemented, "method WatchJob not implemented")
}
func (UnimplementedDedupeDaemonServer) GetDaemonStatus(context.Context, *GetDaemonStatusRequest) (*DaemonStatus, error) {
	return nil, status.Error(codes.Unimplemented, "method GetDaemonStatus not implemented")
}
func (UnimplementedDedupeDaemonServer) Shutdown(context.Context, *ShutdownRequest) (*ShutdownResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Shutdown not implemented")
}
func (UnimplementedDedupeDaemonServer) mustEmbedUnimplementedDedupeDaemonServer() {}

// RegisterDedupeDaemonServer registers srv with s.
func RegisterDedupeDaemonServer(s grpc.ServiceRegistrar, srv DedupeDaemonServer) {
	s.RegisterService(&DedupeDaemon_ServiceDesc, srv)
}

// unary builds the handler for a request/response method.
func unary[Req, Resp any](method string, call func(DedupeDaemonServer, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DedupeDaemonServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DedupeDaemonServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchJobHandler(srv any, stream grpc.ServerStream) error {
	m := new(WatchJobRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(DedupeDaemonServer).WatchJob(m, &grpc.GenericServerStream[WatchJobRequest, JobEvent]{ServerStream: stream})
}

// DedupeDaemon_ServiceDesc is the grpc.ServiceDesc for the DedupeDaemon
// service.
var DedupeDaemon_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DedupeDaemonServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartScan", Handler: unary(DedupeDaemon_StartScan_FullMethodName, DedupeDaemonServer.StartScan)},
		{MethodName: "RequestStop", Handler: unary(DedupeDaemon_RequestStop_FullMethodName, DedupeDaemonServer.RequestStop)},
		{MethodName: "GetSnapshot", Handler: unary(DedupeDaemon_GetSnapshot_FullMethodName, DedupeDaemonServer.GetSnapshot)},
		{MethodName: "DeleteGroup", Handler: unary(DedupeDaemon_DeleteGroup_FullMethodName, DedupeDaemonServer.DeleteGroup)},
		{MethodName: "DeleteSelected", Handler: unary(DedupeDaemon_DeleteSelected_FullMethodName, DedupeDaemonServer.DeleteSelected)},
		{MethodName: "ClearState", Handler: unary(DedupeDaemon_ClearState_FullMethodName, DedupeDaemonServer.ClearState)},
		{MethodName: "PruneResolved", Handler: unary(DedupeDaemon_PruneResolved_FullMethodName, DedupeDaemonServer.PruneResolved)},
		{MethodName: "GetDaemonStatus", Handler: unary(DedupeDaemon_GetDaemonStatus_FullMethodName, DedupeDaemonServer.GetDaemonStatus)},
		{MethodName: "Shutdown", Handler: unary(DedupeDaemon_Shutdown_FullMethodName, DedupeDaemonServer.Shutdown)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchJob",
			Handler:       watchJobHandler,
			ServerStreams: true,
		},
	},
}
