package grpcserver

import (
	"context"
	"encoding/json"

	"github.com/MarkoPoloResearchLab/booking/internal/apierror"
	"github.com/MarkoPoloResearchLab/booking/internal/wire"
	"github.com/MarkoPoloResearchLab/booking/pkg/booking"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const errorMalformedRequest = "malformed_request"

type memberScoped struct {
	MemberID string `json:"member_id"`
}

type reservationScoped struct {
	MemberID      string `json:"member_id"`
	ReservationID string `json:"reservation_id"`
	Reason        string `json:"reason"`
}

type instrumentScoped struct {
	MemberID     string `json:"member_id"`
	InstrumentID string `json:"instrument_id"`
	Kind         string `json:"kind"`
}

type paymentScoped struct {
	MemberID  string `json:"member_id"`
	PaymentID string `json:"payment_id"`
}

type createReservationRequest struct {
	memberScoped
	wire.ReservationInput
}

type registerInstrumentRequest struct {
	memberScoped
	wire.InstrumentInput
}

type submitPaymentRequest struct {
	memberScoped
	wire.PaymentInput
}

type listReservationsRequest struct {
	memberScoped
	wire.ReservationListInput
}

type listPaymentsRequest struct {
	memberScoped
	wire.PaymentListInput
}

type transitionPaymentRequest struct {
	PaymentID string `json:"payment_id"`
	Actor     string `json:"actor"`
	wire.TransitionInput
}

type reservationsResponse struct {
	Reservations []wire.ReservationView `json:"reservations"`
}

type paymentsResponse struct {
	Payments []wire.PaymentView `json:"payments"`
}

type instrumentsResponse struct {
	Instruments []wire.InstrumentView `json:"instruments"`
}

type paymentLogsResponse struct {
	Logs []wire.PaymentLogView `json:"logs"`
}

// BookingServiceServer exposes the booking service over gRPC. Callers are
// trusted backends and name the acting member in each request.
type BookingServiceServer struct {
	bookingService *booking.Service
}

// NewBookingServiceServer constructs a gRPC server for the booking service.
func NewBookingServiceServer(bookingService *booking.Service) *BookingServiceServer {
	return &BookingServiceServer{bookingService: bookingService}
}

func (server *BookingServiceServer) CreateReservation(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	var input createReservationRequest
	if err := decodeRequest(request, &input); err != nil {
		return nil, err
	}
	memberID, err := booking.NewMemberID(input.MemberID)
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	reservationRequest, err := input.ReservationInput.Request(memberID)
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	reservation, operationError := server.bookingService.CreateReservation(ctx, reservationRequest)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return encodeResponse(wire.NewReservationView(reservation))
}

func (server *BookingServiceServer) GetReservation(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	memberID, reservationID, _, err := decodeReservationScoped(request)
	if err != nil {
		return nil, err
	}
	reservation, operationError := server.bookingService.GetReservation(ctx, reservationID, memberID)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return encodeResponse(wire.NewReservationView(reservation))
}

func (server *BookingServiceServer) ListReservations(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	var input listReservationsRequest
	if err := decodeRequest(request, &input); err != nil {
		return nil, err
	}
	memberID, err := booking.NewMemberID(input.MemberID)
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	facilityID, err := input.ReservationListInput.Parse()
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	reservations, operationError := server.bookingService.ListReservations(ctx, memberID, facilityID)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return encodeResponse(reservationsResponse{Reservations: wire.NewReservationViews(reservations)})
}

func (server *BookingServiceServer) RequestCancellation(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	memberID, reservationID, input, err := decodeReservationScoped(request)
	if err != nil {
		return nil, err
	}
	outcome, operationError := server.bookingService.RequestCancellation(ctx, reservationID, memberID, input.Reason)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return encodeResponse(wire.OutcomeView{Outcome: string(outcome)})
}

func (server *BookingServiceServer) CancelReservation(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	memberID, reservationID, input, err := decodeReservationScoped(request)
	if err != nil {
		return nil, err
	}
	outcome, operationError := server.bookingService.CancelUnpaidReservation(ctx, reservationID, memberID, input.Reason)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return encodeResponse(wire.OutcomeView{Outcome: string(outcome)})
}

func (server *BookingServiceServer) CheckOverlap(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	var input wire.OverlapInput
	if err := decodeRequest(request, &input); err != nil {
		return nil, err
	}
	facilityID, window, err := input.Parse()
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	overlap, operationError := server.bookingService.HasOverlap(ctx, facilityID, window)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return encodeResponse(wire.OverlapView{Overlap: overlap})
}

func (server *BookingServiceServer) RegisterInstrument(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	var input registerInstrumentRequest
	if err := decodeRequest(request, &input); err != nil {
		return nil, err
	}
	memberID, err := booking.NewMemberID(input.MemberID)
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	instrumentRequest, err := input.InstrumentInput.Request(memberID)
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	instrument, operationError := server.bookingService.RegisterInstrument(ctx, instrumentRequest)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return encodeResponse(wire.NewInstrumentView(instrument))
}

func (server *BookingServiceServer) ListInstruments(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	var input instrumentScoped
	if err := decodeRequest(request, &input); err != nil {
		return nil, err
	}
	memberID, err := booking.NewMemberID(input.MemberID)
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	var kind booking.InstrumentKind
	if input.Kind != "" {
		if kind, err = booking.ParseInstrumentKind(input.Kind); err != nil {
			return nil, mapToGRPCError(err)
		}
	}
	instruments, operationError := server.bookingService.ListInstruments(ctx, memberID, kind)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return encodeResponse(instrumentsResponse{Instruments: wire.NewInstrumentViews(instruments)})
}

func (server *BookingServiceServer) SetPrimaryInstrument(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	memberID, instrumentID, err := decodeInstrumentScoped(request)
	if err != nil {
		return nil, err
	}
	outcome, operationError := server.bookingService.SetPrimaryInstrument(ctx, instrumentID, memberID)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return encodeResponse(wire.OutcomeView{Outcome: string(outcome)})
}

func (server *BookingServiceServer) DeleteInstrument(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	memberID, instrumentID, err := decodeInstrumentScoped(request)
	if err != nil {
		return nil, err
	}
	if operationError := server.bookingService.DeleteInstrument(ctx, instrumentID, memberID); operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return encodeResponse(wire.OutcomeView{Outcome: string(booking.OutcomeApplied)})
}

func (server *BookingServiceServer) SubmitPayment(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	var input submitPaymentRequest
	if err := decodeRequest(request, &input); err != nil {
		return nil, err
	}
	memberID, err := booking.NewMemberID(input.MemberID)
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	paymentRequest, err := input.PaymentInput.Request(memberID)
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	payment, operationError := server.bookingService.SubmitPayment(ctx, paymentRequest)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return encodeResponse(wire.NewPaymentView(payment))
}

func (server *BookingServiceServer) GetPayment(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	memberID, paymentID, err := decodePaymentScoped(request)
	if err != nil {
		return nil, err
	}
	payment, operationError := server.bookingService.GetPayment(ctx, paymentID, memberID)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return encodeResponse(wire.NewPaymentView(payment))
}

func (server *BookingServiceServer) ListPayments(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	var input listPaymentsRequest
	if err := decodeRequest(request, &input); err != nil {
		return nil, err
	}
	memberID, err := booking.NewMemberID(input.MemberID)
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	filter, err := input.PaymentListInput.Filter()
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	payments, operationError := server.bookingService.ListPayments(ctx, memberID, filter)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return encodeResponse(paymentsResponse{Payments: wire.NewPaymentViews(payments)})
}

func (server *BookingServiceServer) ListPaymentLogs(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	memberID, paymentID, err := decodePaymentScoped(request)
	if err != nil {
		return nil, err
	}
	entries, operationError := server.bookingService.ListPaymentLogs(ctx, paymentID, memberID)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return encodeResponse(paymentLogsResponse{Logs: wire.NewPaymentLogViews(entries)})
}

func (server *BookingServiceServer) ListMemberPaymentLogs(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	var input memberScoped
	if err := decodeRequest(request, &input); err != nil {
		return nil, err
	}
	memberID, err := booking.NewMemberID(input.MemberID)
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	entries, operationError := server.bookingService.ListMemberPaymentLogs(ctx, memberID)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return encodeResponse(paymentLogsResponse{Logs: wire.NewPaymentLogViews(entries)})
}

func (server *BookingServiceServer) TransitionPayment(ctx context.Context, request *structpb.Struct) (*structpb.Struct, error) {
	var input transitionPaymentRequest
	if err := decodeRequest(request, &input); err != nil {
		return nil, err
	}
	paymentID, err := booking.NewPaymentID(input.PaymentID)
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	transitionRequest, err := input.TransitionInput.Request(paymentID, input.Actor)
	if err != nil {
		return nil, mapToGRPCError(err)
	}
	result, operationError := server.bookingService.TransitionPayment(ctx, transitionRequest)
	if operationError != nil {
		return nil, mapToGRPCError(operationError)
	}
	return encodeResponse(wire.NewTransitionView(result))
}

func decodeReservationScoped(request *structpb.Struct) (booking.MemberID, booking.ReservationID, reservationScoped, error) {
	var input reservationScoped
	if err := decodeRequest(request, &input); err != nil {
		return booking.MemberID{}, booking.ReservationID{}, input, err
	}
	memberID, err := booking.NewMemberID(input.MemberID)
	if err != nil {
		return booking.MemberID{}, booking.ReservationID{}, input, mapToGRPCError(err)
	}
	reservationID, err := booking.NewReservationID(input.ReservationID)
	if err != nil {
		return booking.MemberID{}, booking.ReservationID{}, input, mapToGRPCError(err)
	}
	return memberID, reservationID, input, nil
}

func decodeInstrumentScoped(request *structpb.Struct) (booking.MemberID, booking.InstrumentID, error) {
	var input instrumentScoped
	if err := decodeRequest(request, &input); err != nil {
		return booking.MemberID{}, booking.InstrumentID{}, err
	}
	memberID, err := booking.NewMemberID(input.MemberID)
	if err != nil {
		return booking.MemberID{}, booking.InstrumentID{}, mapToGRPCError(err)
	}
	instrumentID, err := booking.NewInstrumentID(input.InstrumentID)
	if err != nil {
		return booking.MemberID{}, booking.InstrumentID{}, mapToGRPCError(err)
	}
	return memberID, instrumentID, nil
}

func decodePaymentScoped(request *structpb.Struct) (booking.MemberID, booking.PaymentID, error) {
	var input paymentScoped
	if err := decodeRequest(request, &input); err != nil {
		return booking.MemberID{}, booking.PaymentID{}, err
	}
	memberID, err := booking.NewMemberID(input.MemberID)
	if err != nil {
		return booking.MemberID{}, booking.PaymentID{}, mapToGRPCError(err)
	}
	paymentID, err := booking.NewPaymentID(input.PaymentID)
	if err != nil {
		return booking.MemberID{}, booking.PaymentID{}, mapToGRPCError(err)
	}
	return memberID, paymentID, nil
}

func decodeRequest(request *structpb.Struct, target any) error {
	body, err := request.MarshalJSON()
	if err != nil {
		return status.Error(codes.InvalidArgument, errorMalformedRequest)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return status.Error(codes.InvalidArgument, errorMalformedRequest)
	}
	return nil
}

func encodeResponse(view any) (*structpb.Struct, error) {
	body, err := json.Marshal(view)
	if err != nil {
		return nil, status.Error(codes.Internal, apierror.CodeInternal)
	}
	response := new(structpb.Struct)
	if err := response.UnmarshalJSON(body); err != nil {
		return nil, status.Error(codes.Internal, apierror.CodeInternal)
	}
	return response, nil
}

func mapToGRPCError(source error) error {
	code := codes.Internal
	switch booking.Kind(source) {
	case booking.ErrNotFound:
		code = codes.NotFound
	case booking.ErrConflict:
		code = codes.AlreadyExists
	case booking.ErrForbidden:
		code = codes.PermissionDenied
	case booking.ErrInvalidState:
		code = codes.FailedPrecondition
	case booking.ErrInvalidArgument:
		code = codes.InvalidArgument
	}
	return status.Error(code, apierror.Code(source))
}
