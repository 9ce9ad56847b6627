// Package rpc exposes the coordinator over gRPC. Messages are the
// pkg/models wire types encoded with a JSON codec, so the service is
// declared by hand rather than generated.
package rpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/athulya-anil/axon-render/pkg/models"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "axonrender.v1.Coordinator"

// GetTaskRequest names one task.
type GetTaskRequest struct {
	TaskID string `json:"task_id"`
}

// CoordinatorServer is the server API for the Coordinator service.
type CoordinatorServer interface {
	RegisterWorker(context.Context, *models.RegisterWorkerRequest) (*models.Worker, error)
	UpdateWorker(context.Context, *models.UpdateWorkerRequest) (*models.Worker, error)
	ListWorkers(context.Context, *models.Empty) (*models.ListWorkersResponse, error)
	SubmitTask(context.Context, *models.SubmitTaskRequest) (*models.SubmitTaskResponse, error)
	PollForTask(context.Context, *models.PollTaskRequest) (*models.PollTaskResponse, error)
	UpdateTask(context.Context, *models.TaskUpdate) (*models.Ack, error)
	ListTasks(context.Context, *models.Empty) (*models.ListTasksResponse, error)
	GetTask(context.Context, *GetTaskRequest) (*models.Task, error)
}

// ServiceDesc describes the Coordinator service for grpc.Server.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CoordinatorServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("RegisterWorker", CoordinatorServer.RegisterWorker),
		unary("UpdateWorker", CoordinatorServer.UpdateWorker),
		unary("ListWorkers", CoordinatorServer.ListWorkers),
		unary("SubmitTask", CoordinatorServer.SubmitTask),
		unary("PollForTask", CoordinatorServer.PollForTask),
		unary("UpdateTask", CoordinatorServer.UpdateTask),
		unary("ListTasks", CoordinatorServer.ListTasks),
		unary("GetTask", CoordinatorServer.GetTask),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "axonrender/v1/coordinator",
}

// RegisterCoordinatorServer registers srv on s.
func RegisterCoordinatorServer(s grpc.ServiceRegistrar, srv CoordinatorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(CoordinatorServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CoordinatorServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CoordinatorServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
