// Package httpapi serves the booking service to session-authenticated members.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/MarkoPoloResearchLab/booking/internal/apierror"
	"github.com/MarkoPoloResearchLab/booking/internal/wire"
	"github.com/MarkoPoloResearchLab/booking/pkg/booking"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tyemirov/tauth/pkg/sessionvalidator"
	"go.uber.org/zap"
)

const claimsContextKey = "auth_claims"

// NewRouter builds the gin engine. Every /api route requires a valid session;
// payment transitions additionally require the configured admin role.
func NewRouter(cfg Config, bookingService *booking.Service, validator *sessionvalidator.Validator, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := &httpHandler{logger: logger, bookingService: bookingService, cfg: cfg}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Origin", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.Use(validator.GinMiddleware(claimsContextKey))

	api.POST("/reservations", handler.handleCreateReservation)
	api.GET("/reservations", handler.handleListReservations)
	api.GET("/reservations/:id", handler.handleGetReservation)
	api.POST("/reservations/:id/cancellation-request", handler.handleRequestCancellation)
	api.POST("/reservations/:id/cancel", handler.handleCancelReservation)
	api.GET("/availability", handler.handleAvailability)

	api.POST("/instruments", handler.handleRegisterInstrument)
	api.GET("/instruments", handler.handleListInstruments)
	api.PUT("/instruments/:id/primary", handler.handleSetPrimaryInstrument)
	api.DELETE("/instruments/:id", handler.handleDeleteInstrument)

	api.POST("/payments", handler.handleSubmitPayment)
	api.GET("/payments", handler.handleListPayments)
	api.GET("/payments/:id", handler.handleGetPayment)
	api.GET("/payments/:id/logs", handler.handleListPaymentLogs)
	api.GET("/payment-logs", handler.handleListMemberPaymentLogs)

	admin := api.Group("/admin")
	admin.Use(requireRole(cfg.AdminRole))
	admin.POST("/payments/:id/transitions", handler.handleTransitionPayment)

	return router
}

type httpHandler struct {
	logger         *zap.Logger
	bookingService *booking.Service
	cfg            Config
}

func (handler *httpHandler) handleCreateReservation(ctx *gin.Context) {
	memberID, ok := requireMember(ctx)
	if !ok {
		return
	}
	var input wire.ReservationInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	request, err := input.Request(memberID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	reservation, err := handler.bookingService.CreateReservation(requestCtx, request)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, wire.NewReservationView(reservation))
}

func (handler *httpHandler) handleGetReservation(ctx *gin.Context) {
	memberID, ok := requireMember(ctx)
	if !ok {
		return
	}
	reservationID, err := booking.NewReservationID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	reservation, err := handler.bookingService.GetReservation(requestCtx, reservationID, memberID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, wire.NewReservationView(reservation))
}

func (handler *httpHandler) handleListReservations(ctx *gin.Context) {
	memberID, ok := requireMember(ctx)
	if !ok {
		return
	}
	var input wire.ReservationListInput
	if err := ctx.ShouldBindQuery(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_query", "expected facility_id"))
		return
	}
	facilityID, err := input.Parse()
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	reservations, err := handler.bookingService.ListReservations(requestCtx, memberID, facilityID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"reservations": wire.NewReservationViews(reservations)})
}

func (handler *httpHandler) handleRequestCancellation(ctx *gin.Context) {
	handler.cancellation(ctx, handler.bookingService.RequestCancellation)
}

func (handler *httpHandler) handleCancelReservation(ctx *gin.Context) {
	handler.cancellation(ctx, handler.bookingService.CancelUnpaidReservation)
}

type cancellationCall func(ctx context.Context, reservationID booking.ReservationID, memberID booking.MemberID, reason string) (booking.Outcome, error)

func (handler *httpHandler) cancellation(ctx *gin.Context, call cancellationCall) {
	memberID, ok := requireMember(ctx)
	if !ok {
		return
	}
	reservationID, err := booking.NewReservationID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var input wire.CancellationInput
	if err := ctx.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	outcome, err := call(requestCtx, reservationID, memberID, input.Reason)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, wire.OutcomeView{Outcome: string(outcome)})
}

type availabilityQuery struct {
	FacilityID   string `form:"facility_id"`
	StartsAtUnix int64  `form:"starts_at_unix"`
	EndsAtUnix   int64  `form:"ends_at_unix"`
}

func (handler *httpHandler) handleAvailability(ctx *gin.Context) {
	var query availabilityQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_query", "expected facility_id, starts_at_unix and ends_at_unix"))
		return
	}
	facilityID, window, err := wire.OverlapInput{FacilityID: query.FacilityID, StartsAtUnix: query.StartsAtUnix, EndsAtUnix: query.EndsAtUnix}.Parse()
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	overlap, err := handler.bookingService.HasOverlap(requestCtx, facilityID, window)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, wire.OverlapView{Overlap: overlap})
}

func (handler *httpHandler) handleRegisterInstrument(ctx *gin.Context) {
	memberID, ok := requireMember(ctx)
	if !ok {
		return
	}
	var input wire.InstrumentInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	request, err := input.Request(memberID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	instrument, err := handler.bookingService.RegisterInstrument(requestCtx, request)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, wire.NewInstrumentView(instrument))
}

func (handler *httpHandler) handleListInstruments(ctx *gin.Context) {
	memberID, ok := requireMember(ctx)
	if !ok {
		return
	}
	var kind booking.InstrumentKind
	if rawKind := ctx.Query("kind"); rawKind != "" {
		parsed, err := booking.ParseInstrumentKind(rawKind)
		if err != nil {
			handler.respondError(ctx, err)
			return
		}
		kind = parsed
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	instruments, err := handler.bookingService.ListInstruments(requestCtx, memberID, kind)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"instruments": wire.NewInstrumentViews(instruments)})
}

func (handler *httpHandler) handleSetPrimaryInstrument(ctx *gin.Context) {
	memberID, ok := requireMember(ctx)
	if !ok {
		return
	}
	instrumentID, err := booking.NewInstrumentID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	outcome, err := handler.bookingService.SetPrimaryInstrument(requestCtx, instrumentID, memberID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, wire.OutcomeView{Outcome: string(outcome)})
}

func (handler *httpHandler) handleDeleteInstrument(ctx *gin.Context) {
	memberID, ok := requireMember(ctx)
	if !ok {
		return
	}
	instrumentID, err := booking.NewInstrumentID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	if err := handler.bookingService.DeleteInstrument(requestCtx, instrumentID, memberID); err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, wire.OutcomeView{Outcome: string(booking.OutcomeApplied)})
}

func (handler *httpHandler) handleSubmitPayment(ctx *gin.Context) {
	memberID, ok := requireMember(ctx)
	if !ok {
		return
	}
	var input wire.PaymentInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	request, err := input.Request(memberID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	payment, err := handler.bookingService.SubmitPayment(requestCtx, request)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, wire.NewPaymentView(payment))
}

func (handler *httpHandler) handleListPayments(ctx *gin.Context) {
	memberID, ok := requireMember(ctx)
	if !ok {
		return
	}
	var input wire.PaymentListInput
	if err := ctx.ShouldBindQuery(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_query", "expected reservation_id, kind or status"))
		return
	}
	filter, err := input.Filter()
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	payments, err := handler.bookingService.ListPayments(requestCtx, memberID, filter)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"payments": wire.NewPaymentViews(payments)})
}

func (handler *httpHandler) handleGetPayment(ctx *gin.Context) {
	memberID, ok := requireMember(ctx)
	if !ok {
		return
	}
	paymentID, err := booking.NewPaymentID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	payment, err := handler.bookingService.GetPayment(requestCtx, paymentID, memberID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, wire.NewPaymentView(payment))
}

func (handler *httpHandler) handleListPaymentLogs(ctx *gin.Context) {
	memberID, ok := requireMember(ctx)
	if !ok {
		return
	}
	paymentID, err := booking.NewPaymentID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	entries, err := handler.bookingService.ListPaymentLogs(requestCtx, paymentID, memberID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"logs": wire.NewPaymentLogViews(entries)})
}

func (handler *httpHandler) handleListMemberPaymentLogs(ctx *gin.Context) {
	memberID, ok := requireMember(ctx)
	if !ok {
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	entries, err := handler.bookingService.ListMemberPaymentLogs(requestCtx, memberID)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"logs": wire.NewPaymentLogViews(entries)})
}

func (handler *httpHandler) handleTransitionPayment(ctx *gin.Context) {
	claims := getClaims(ctx)
	if claims == nil {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return
	}
	paymentID, err := booking.NewPaymentID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	var input wire.TransitionInput
	if err := ctx.ShouldBindJSON(&input); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", "expected JSON body"))
		return
	}
	request, err := input.Request(paymentID, claims.GetUserID())
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	requestCtx, cancel := handler.requestContext(ctx)
	defer cancel()
	result, err := handler.bookingService.TransitionPayment(requestCtx, request)
	if err != nil {
		handler.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, wire.NewTransitionView(result))
}

func (handler *httpHandler) requestContext(ctx *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), handler.cfg.RequestTimeout)
}

func (handler *httpHandler) respondError(ctx *gin.Context, err error) {
	statusCode := statusForError(err)
	if statusCode == http.StatusInternalServerError {
		handler.logger.Error("request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
	}
	ctx.JSON(statusCode, errorResponse(apierror.Code(err), apierror.Message(err)))
}

func statusForError(err error) int {
	switch booking.Kind(err) {
	case booking.ErrNotFound:
		return http.StatusNotFound
	case booking.ErrConflict:
		return http.StatusConflict
	case booking.ErrForbidden:
		return http.StatusForbidden
	case booking.ErrInvalidState:
		return http.StatusUnprocessableEntity
	case booking.ErrInvalidArgument:
		return http.StatusBadRequest
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func requireMember(ctx *gin.Context) (booking.MemberID, bool) {
	claims := getClaims(ctx)
	if claims == nil {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
		return booking.MemberID{}, false
	}
	memberID, err := booking.NewMemberID(claims.GetUserID())
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, errorResponse("unauthorized", "session has no member"))
		return booking.MemberID{}, false
	}
	return memberID, true
}

func requireRole(role string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims := getClaims(ctx)
		if claims == nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing session"))
			return
		}
		if !slices.Contains(claims.GetUserRoles(), role) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, errorResponse("forbidden", "role required"))
			return
		}
		ctx.Next()
	}
}

func getClaims(ctx *gin.Context) *sessionvalidator.Claims {
	claimsValue, ok := ctx.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := claimsValue.(*sessionvalidator.Claims)
	return claims
}

func errorResponse(code string, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}
