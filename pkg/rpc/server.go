package rpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/athulya-anil/axon-render/pkg/models"
	"github.com/athulya-anil/axon-render/pkg/scheduler"
)

// Server adapts a Scheduler to CoordinatorServer.
type Server struct {
	scheduler *scheduler.Scheduler
}

var _ CoordinatorServer = (*Server)(nil)

// NewServer creates a gRPC adapter for s.
func NewServer(s *scheduler.Scheduler) *Server {
	return &Server{scheduler: s}
}

func (s *Server) RegisterWorker(_ context.Context, req *models.RegisterWorkerRequest) (*models.Worker, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "worker id is required")
	}
	return s.scheduler.RegisterWorker(*req), nil
}

func (s *Server) UpdateWorker(_ context.Context, req *models.UpdateWorkerRequest) (*models.Worker, error) {
	w, err := s.scheduler.UpdateWorker(*req)
	if err != nil {
		return nil, toStatus(err)
	}
	return w, nil
}

func (s *Server) ListWorkers(context.Context, *models.Empty) (*models.ListWorkersResponse, error) {
	workers := s.scheduler.ListWorkers()
	return &models.ListWorkersResponse{Count: len(workers), Workers: workers}, nil
}

func (s *Server) SubmitTask(_ context.Context, req *models.SubmitTaskRequest) (*models.SubmitTaskResponse, error) {
	if req.SourcePath == "" {
		return nil, status.Error(codes.InvalidArgument, "source path is required")
	}
	task, err := s.scheduler.SubmitTask(*req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &models.SubmitTaskResponse{TaskID: task.ID, AssignedWorker: task.AssignedWorker}, nil
}

func (s *Server) PollForTask(_ context.Context, req *models.PollTaskRequest) (*models.PollTaskResponse, error) {
	task, _ := s.scheduler.PollForTask(req.WorkerID)
	return &models.PollTaskResponse{Task: task}, nil
}

func (s *Server) UpdateTask(_ context.Context, req *models.TaskUpdate) (*models.Ack, error) {
	if err := s.scheduler.UpdateTask(*req); err != nil {
		return nil, toStatus(err)
	}
	return &models.Ack{OK: true}, nil
}

func (s *Server) ListTasks(context.Context, *models.Empty) (*models.ListTasksResponse, error) {
	tasks := s.scheduler.ListTasks()
	return &models.ListTasksResponse{Count: len(tasks), Tasks: tasks}, nil
}

func (s *Server) GetTask(_ context.Context, req *GetTaskRequest) (*models.Task, error) {
	task, err := s.scheduler.GetTask(req.TaskID)
	if err != nil {
		return nil, toStatus(err)
	}
	return task, nil
}

// toStatus maps scheduler sentinels to gRPC codes. The message starts with
// the wire code so clients can recover the sentinel.
func toStatus(err error) error {
	code := scheduler.ErrorCode(err)
	switch {
	case scheduler.IsNotFound(err):
		return status.Errorf(codes.NotFound, "%s: %v", code, err)
	case code != "":
		return status.Errorf(codes.InvalidArgument, "%s: %v", code, err)
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// LoggingInterceptor logs failed calls at warn level and the rest at debug.
func LoggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		elapsed := time.Since(start)

		if err != nil {
			logger.Warn("rpc failed",
				slog.String("method", info.FullMethod),
				slog.String("code", status.Code(err).String()),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Debug("rpc completed",
				slog.String("method", info.FullMethod),
				slog.Duration("elapsed", elapsed),
			)
		}
		return resp, err
	}
}
