package booking

const (
	operationCreateReservation   = "create_reservation"
	operationRequestCancellation = "request_cancellation"
	operationCancelReservation   = "cancel_reservation"
	operationRegisterInstrument  = "register_instrument"
	operationSetPrimary          = "set_primary_instrument"
	operationDeleteInstrument    = "delete_instrument"
	operationSubmitPayment       = "submit_payment"
	operationTransitionPayment   = "transition_payment"
	operationNotify              = "notify"

	operationStatusOK    = "ok"
	operationStatusNoOp  = "noop"
	operationStatusError = "error"

	requestedDateLayout = "2006-01-02"
	secondsPerHour      = 3600
	minutesPerDay       = 24 * 60
)

// Fixed notification bodies.
const (
	MessageCancellationRequested = "Your reservation cancellation request has been received."
	MessageReservationCancelled  = "Your reservation has been cancelled."
	MessagePaymentCompleted      = "Your reservation payment has been completed."
	MessagePaymentCancelled      = "Your reservation payment has been cancelled."
)
