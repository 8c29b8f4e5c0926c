package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "booking.v1.BookingService"

const (
	MethodCreateReservation     = "CreateReservation"
	MethodGetReservation        = "GetReservation"
	MethodListReservations      = "ListReservations"
	MethodRequestCancellation   = "RequestCancellation"
	MethodCancelReservation     = "CancelReservation"
	MethodCheckOverlap          = "CheckOverlap"
	MethodRegisterInstrument    = "RegisterInstrument"
	MethodListInstruments       = "ListInstruments"
	MethodSetPrimaryInstrument  = "SetPrimaryInstrument"
	MethodDeleteInstrument      = "DeleteInstrument"
	MethodSubmitPayment         = "SubmitPayment"
	MethodGetPayment            = "GetPayment"
	MethodListPayments          = "ListPayments"
	MethodListPaymentLogs       = "ListPaymentLogs"
	MethodListMemberPaymentLogs = "ListMemberPaymentLogs"
	MethodTransitionPayment     = "TransitionPayment"
)

// BookingServiceHandler is the server side of booking.v1.BookingService.
// Requests and responses are google.protobuf.Struct documents keyed by the
// snake_case field names used across the HTTP API.
type BookingServiceHandler interface {
	CreateReservation(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error)
	GetReservation(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error)
	ListReservations(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error)
	RequestCancellation(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error)
	CancelReservation(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error)
	CheckOverlap(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error)
	RegisterInstrument(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error)
	ListInstruments(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error)
	SetPrimaryInstrument(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error)
	DeleteInstrument(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error)
	SubmitPayment(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error)
	GetPayment(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error)
	ListPayments(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error)
	ListPaymentLogs(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error)
	ListMemberPaymentLogs(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error)
	TransitionPayment(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error)
}

type handlerMethod func(BookingServiceHandler, context.Context, *structpb.Struct) (*structpb.Struct, error)

// ServiceDesc describes booking.v1.BookingService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServiceHandler)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodCreateReservation, BookingServiceHandler.CreateReservation),
		unaryMethod(MethodGetReservation, BookingServiceHandler.GetReservation),
		unaryMethod(MethodListReservations, BookingServiceHandler.ListReservations),
		unaryMethod(MethodRequestCancellation, BookingServiceHandler.RequestCancellation),
		unaryMethod(MethodCancelReservation, BookingServiceHandler.CancelReservation),
		unaryMethod(MethodCheckOverlap, BookingServiceHandler.CheckOverlap),
		unaryMethod(MethodRegisterInstrument, BookingServiceHandler.RegisterInstrument),
		unaryMethod(MethodListInstruments, BookingServiceHandler.ListInstruments),
		unaryMethod(MethodSetPrimaryInstrument, BookingServiceHandler.SetPrimaryInstrument),
		unaryMethod(MethodDeleteInstrument, BookingServiceHandler.DeleteInstrument),
		unaryMethod(MethodSubmitPayment, BookingServiceHandler.SubmitPayment),
		unaryMethod(MethodGetPayment, BookingServiceHandler.GetPayment),
		unaryMethod(MethodListPayments, BookingServiceHandler.ListPayments),
		unaryMethod(MethodListPaymentLogs, BookingServiceHandler.ListPaymentLogs),
		unaryMethod(MethodListMemberPaymentLogs, BookingServiceHandler.ListMemberPaymentLogs),
		unaryMethod(MethodTransitionPayment, BookingServiceHandler.TransitionPayment),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "booking/v1/booking.proto",
}

// RegisterBookingServiceServer registers handler on registrar.
func RegisterBookingServiceServer(registrar grpc.ServiceRegistrar, handler BookingServiceHandler) {
	registrar.RegisterService(&ServiceDesc, handler)
}

func unaryMethod(name string, method handlerMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(server any, ctx context.Context, decode func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			request := new(structpb.Struct)
			if err := decode(request); err != nil {
				return nil, err
			}
			handler := server.(BookingServiceHandler)
			if interceptor == nil {
				return method(handler, ctx, request)
			}
			info := &grpc.UnaryServerInfo{Server: server, FullMethod: fullMethod}
			return interceptor(ctx, request, info, func(ctx context.Context, request any) (any, error) {
				return method(handler, ctx, request.(*structpb.Struct))
			})
		},
	}
}

// Client calls booking.v1.BookingService.
type Client struct {
	connection grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(connection grpc.ClientConnInterface) *Client {
	return &Client{connection: connection}
}

// Call invokes method with request and returns the response document.
func (client *Client) Call(ctx context.Context, method string, request map[string]any, options ...grpc.CallOption) (*structpb.Struct, error) {
	message, err := structpb.NewStruct(request)
	if err != nil {
		return nil, err
	}
	response := new(structpb.Struct)
	if err := client.connection.Invoke(ctx, "/"+ServiceName+"/"+method, message, response, options...); err != nil {
		return nil, err
	}
	return response, nil
}
