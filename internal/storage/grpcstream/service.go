package grpcstream

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the live measurement service.
// Its single server-streaming method, Live, takes google.protobuf.Empty and
// streams one google.protobuf.Struct per accepted measurement.
const ServiceName = "funkthermometer.v1.Measurements"

const liveMethod = "/" + ServiceName + "/Live"

type liveServer interface {
	live(req *emptypb.Empty, stream grpc.ServerStream) error
}

func liveHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(emptypb.Empty)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(liveServer).live(req, stream)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*liveServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Live",
			Handler:       liveHandler,
			ServerStreams: true,
		},
	},
	Metadata: "funkthermometer/v1/measurements.proto",
}

// LiveClient receives the live measurement stream.
type LiveClient struct {
	stream grpc.ClientStream
}

// NewLiveClient subscribes to the live stream on cc. The subscription ends
// when ctx is cancelled.
func NewLiveClient(ctx context.Context, cc grpc.ClientConnInterface) (*LiveClient, error) {
	stream, err := cc.NewStream(ctx, &serviceDesc.Streams[0], liveMethod)
	if err != nil {
		return nil, fmt.Errorf("could not open live stream: %w", err)
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, fmt.Errorf("could not send live request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fmt.Errorf("could not send live request: %w", err)
	}
	return &LiveClient{stream: stream}, nil
}

// Recv blocks until the next measurement arrives.
func (c *LiveClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := c.stream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
