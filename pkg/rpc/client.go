package rpc

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/athulya-anil/axon-render/pkg/models"
	"github.com/athulya-anil/axon-render/pkg/scheduler"
)

// Client calls the Coordinator service. Its methods mirror the REST
// client so either can drive a worker agent.
type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

// Dial connects to a coordinator at addr without transport security.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}
	conn, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connect to coordinator %s: %w", addr, err)
	}
	return &Client{cc: conn, conn: conn}, nil
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close releases the connection opened by Dial.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) RegisterWorker(ctx context.Context, req models.RegisterWorkerRequest) (*models.Worker, error) {
	out := new(models.Worker)
	if err := c.invoke(ctx, "RegisterWorker", &req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateWorker(ctx context.Context, req models.UpdateWorkerRequest) (*models.Worker, error) {
	out := new(models.Worker)
	if err := c.invoke(ctx, "UpdateWorker", &req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListWorkers(ctx context.Context) ([]*models.Worker, error) {
	out := new(models.ListWorkersResponse)
	if err := c.invoke(ctx, "ListWorkers", &models.Empty{}, out); err != nil {
		return nil, err
	}
	return out.Workers, nil
}

func (c *Client) SubmitTask(ctx context.Context, req models.SubmitTaskRequest) (*models.SubmitTaskResponse, error) {
	out := new(models.SubmitTaskResponse)
	if err := c.invoke(ctx, "SubmitTask", &req, out); err != nil {
		return nil, err
	}
	return out, nil
}

// PollForTask returns nil, nil when nothing is queued for the worker.
func (c *Client) PollForTask(ctx context.Context, workerID string) (*models.Task, error) {
	out := new(models.PollTaskResponse)
	if err := c.invoke(ctx, "PollForTask", &models.PollTaskRequest{WorkerID: workerID}, out); err != nil {
		return nil, err
	}
	return out.Task, nil
}

func (c *Client) UpdateTask(ctx context.Context, update models.TaskUpdate) error {
	return c.invoke(ctx, "UpdateTask", &update, new(models.Ack))
}

func (c *Client) ListTasks(ctx context.Context) ([]*models.Task, error) {
	out := new(models.ListTasksResponse)
	if err := c.invoke(ctx, "ListTasks", &models.Empty{}, out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

func (c *Client) GetTask(ctx context.Context, taskID string) (*models.Task, error) {
	out := new(models.Task)
	if err := c.invoke(ctx, "GetTask", &GetTaskRequest{TaskID: taskID}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	err := c.cc.Invoke(ctx, fullMethod(method), in, out, grpc.CallContentSubtype(CodecName))
	if err != nil {
		return fromStatus(method, err)
	}
	return nil
}

// fromStatus recovers the scheduler sentinel from a status message written
// by toStatus.
func fromStatus(method string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%s: %w", method, err)
	}
	code, _, _ := strings.Cut(st.Message(), ":")
	if sentinel := scheduler.ErrorFromCode(code); sentinel != nil {
		return fmt.Errorf("%s: %w", method, sentinel)
	}
	return fmt.Errorf("%s: %w", method, err)
}
