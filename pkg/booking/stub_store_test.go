package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"
)

const (
	memberAlice    = "member-alice"
	memberBob      = "member-bob"
	facilityCourt  = "facility-court"
	facilityStudio = "facility-studio"
	stubClockUnix  = 1_700_000_000
)

type primaryKey struct {
	memberID MemberID
	kind     InstrumentKind
}

type stubState struct {
	sequence     int
	reservations map[ReservationID]Reservation
	instruments  map[InstrumentID]Instrument
	primaries    map[primaryKey]InstrumentID
	payments     map[PaymentID]Payment
	logs         []PaymentLogEntry
}

func (state *stubState) clone() *stubState {
	copied := &stubState{
		sequence:     state.sequence,
		reservations: make(map[ReservationID]Reservation, len(state.reservations)),
		instruments:  make(map[InstrumentID]Instrument, len(state.instruments)),
		primaries:    make(map[primaryKey]InstrumentID, len(state.primaries)),
		payments:     make(map[PaymentID]Payment, len(state.payments)),
		logs:         append([]PaymentLogEntry(nil), state.logs...),
	}
	for key, value := range state.reservations {
		copied.reservations[key] = value
	}
	for key, value := range state.instruments {
		copied.instruments[key] = value
	}
	for key, value := range state.primaries {
		copied.primaries[key] = value
	}
	for key, value := range state.payments {
		copied.payments[key] = value
	}
	return copied
}

type stubFailures struct {
	hideOverlaps            bool
	overlapError            error
	createReservationError  error
	getReservationError     error
	markCancellationError   error
	updateReservationError  error
	createInstrumentError   error
	setPrimaryError         error
	createPaymentError      error
	updatePaymentError      error
	appendPaymentLogError   error
	listPaymentsError       error
	deleteInstrumentError   error
	claimPrimaryError       error
	getInstrumentError      error
	getPaymentError         error
	listPaymentLogsError    error
	listInstrumentsError    error
	setPrimaryCallsObserved int
}

// stubStore is an in-memory Store. WithTx serialises transactions and rolls
// back every change made by a failing callback.
type stubStore struct {
	mutex    *sync.Mutex
	state    **stubState
	inTx     bool
	failures *stubFailures
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	state := &stubState{
		reservations: make(map[ReservationID]Reservation),
		instruments:  make(map[InstrumentID]Instrument),
		primaries:    make(map[primaryKey]InstrumentID),
		payments:     make(map[PaymentID]Payment),
	}
	return &stubStore{mutex: &sync.Mutex{}, state: &state, failures: &stubFailures{}}
}

func (store *stubStore) lock() func() {
	if store.inTx {
		return func() {}
	}
	store.mutex.Lock()
	return store.mutex.Unlock
}

func (store *stubStore) current() *stubState {
	return *store.state
}

func (store *stubStore) nextID(prefix string) string {
	state := store.current()
	state.sequence++
	return fmt.Sprintf("%s-%d", prefix, state.sequence)
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	snapshot := store.current().clone()
	transactionStore := &stubStore{mutex: store.mutex, state: store.state, inTx: true, failures: store.failures}
	if err := fn(ctx, transactionStore); err != nil {
		*store.state = snapshot
		return err
	}
	return nil
}

func (store *stubStore) HasOverlappingReservation(ctx context.Context, facilityID FacilityID, window TimeWindow) (bool, error) {
	defer store.lock()()
	if store.failures.overlapError != nil {
		return false, store.failures.overlapError
	}
	if store.failures.hideOverlaps {
		return false, nil
	}
	return store.overlaps(facilityID, window), nil
}

func (store *stubStore) overlaps(facilityID FacilityID, window TimeWindow) bool {
	for _, reservation := range store.current().reservations {
		if reservation.FacilityID != facilityID || reservation.Status == ReservationStatusCancelled {
			continue
		}
		if reservation.Window.Overlaps(window) {
			return true
		}
	}
	return false
}

func (store *stubStore) CreateReservation(ctx context.Context, draft ReservationDraft) (Reservation, error) {
	defer store.lock()()
	if store.failures.createReservationError != nil {
		return Reservation{}, store.failures.createReservationError
	}
	if store.overlaps(draft.FacilityID, draft.Window) {
		return Reservation{}, ErrReservationOverlap
	}
	reservation := Reservation{
		ID:             ReservationID{value: store.nextID("reservation")},
		MemberID:       draft.MemberID,
		FacilityID:     draft.FacilityID,
		RequestedDate:  draft.RequestedDate,
		Window:         draft.Window,
		Headcount:      draft.Headcount,
		Content:        draft.Content,
		Status:         ReservationStatusPending,
		CreatedUnixUTC: draft.CreatedUnixUTC,
		UpdatedUnixUTC: draft.CreatedUnixUTC,
	}
	store.current().reservations[reservation.ID] = reservation
	return reservation, nil
}

func (store *stubStore) GetReservation(ctx context.Context, reservationID ReservationID) (Reservation, error) {
	defer store.lock()()
	if store.failures.getReservationError != nil {
		return Reservation{}, store.failures.getReservationError
	}
	reservation, ok := store.current().reservations[reservationID]
	if !ok {
		return Reservation{}, ErrUnknownReservation
	}
	return reservation, nil
}

func (store *stubStore) ListReservations(ctx context.Context, memberID MemberID, facilityID FacilityID) ([]Reservation, error) {
	defer store.lock()()
	reservations := make([]Reservation, 0)
	for _, reservation := range store.current().reservations {
		if reservation.MemberID != memberID {
			continue
		}
		if facilityID.String() != "" && reservation.FacilityID != facilityID {
			continue
		}
		reservations = append(reservations, reservation)
	}
	sort.Slice(reservations, func(left, right int) bool {
		if reservations[left].Window.StartUnixUTC() != reservations[right].Window.StartUnixUTC() {
			return reservations[left].Window.StartUnixUTC() < reservations[right].Window.StartUnixUTC()
		}
		return reservations[left].ID.String() < reservations[right].ID.String()
	})
	return reservations, nil
}

func (store *stubStore) MarkCancellationRequested(ctx context.Context, reservationID ReservationID, reason string, atUnixUTC int64) (bool, error) {
	defer store.lock()()
	if store.failures.markCancellationError != nil {
		return false, store.failures.markCancellationError
	}
	reservation, ok := store.current().reservations[reservationID]
	if !ok {
		return false, ErrUnknownReservation
	}
	if reservation.CancelRequested || reservation.Status == ReservationStatusCancelled {
		return false, nil
	}
	reservation.CancelRequested = true
	reservation.CancelReason = reason
	reservation.UpdatedUnixUTC = atUnixUTC
	store.current().reservations[reservationID] = reservation
	return true, nil
}

func (store *stubStore) UpdateReservationStatus(ctx context.Context, reservationID ReservationID, from ReservationStatus, to ReservationStatus, atUnixUTC int64) error {
	defer store.lock()()
	if store.failures.updateReservationError != nil {
		return store.failures.updateReservationError
	}
	reservation, ok := store.current().reservations[reservationID]
	if !ok {
		return ErrUnknownReservation
	}
	if reservation.Status != from {
		return ErrStaleStatus
	}
	reservation.Status = to
	reservation.UpdatedUnixUTC = atUnixUTC
	store.current().reservations[reservationID] = reservation
	return nil
}

func (store *stubStore) CreateInstrument(ctx context.Context, draft InstrumentDraft) (Instrument, error) {
	defer store.lock()()
	if store.failures.createInstrumentError != nil {
		return Instrument{}, store.failures.createInstrumentError
	}
	for _, existing := range store.current().instruments {
		if existing.Kind == draft.Kind && existing.Details.Number() == draft.Details.Number() {
			return Instrument{}, ErrInstrumentNumberTaken
		}
	}
	instrument := Instrument{
		ID:             InstrumentID{value: store.nextID(string(draft.Kind))},
		MemberID:       draft.MemberID,
		Kind:           draft.Kind,
		Details:        draft.Details,
		CreatedUnixUTC: draft.CreatedUnixUTC,
	}
	store.current().instruments[instrument.ID] = instrument
	return instrument, nil
}

func (store *stubStore) withPrimary(instrument Instrument) Instrument {
	primaryID, ok := store.current().primaries[primaryKey{memberID: instrument.MemberID, kind: instrument.Kind}]
	instrument.Primary = ok && primaryID == instrument.ID
	return instrument
}

func (store *stubStore) GetInstrument(ctx context.Context, instrumentID InstrumentID) (Instrument, error) {
	defer store.lock()()
	if store.failures.getInstrumentError != nil {
		return Instrument{}, store.failures.getInstrumentError
	}
	instrument, ok := store.current().instruments[instrumentID]
	if !ok {
		return Instrument{}, ErrUnknownInstrument
	}
	return store.withPrimary(instrument), nil
}

func (store *stubStore) ListInstruments(ctx context.Context, memberID MemberID, kind InstrumentKind) ([]Instrument, error) {
	defer store.lock()()
	if store.failures.listInstrumentsError != nil {
		return nil, store.failures.listInstrumentsError
	}
	instruments := make([]Instrument, 0)
	for _, instrument := range store.current().instruments {
		if instrument.MemberID != memberID || (kind != "" && instrument.Kind != kind) {
			continue
		}
		instruments = append(instruments, store.withPrimary(instrument))
	}
	sort.Slice(instruments, func(left, right int) bool {
		return instruments[left].ID.String() < instruments[right].ID.String()
	})
	return instruments, nil
}

func (store *stubStore) ClaimPrimaryIfVacant(ctx context.Context, memberID MemberID, kind InstrumentKind, instrumentID InstrumentID, atUnixUTC int64) (bool, error) {
	defer store.lock()()
	if store.failures.claimPrimaryError != nil {
		return false, store.failures.claimPrimaryError
	}
	key := primaryKey{memberID: memberID, kind: kind}
	if _, taken := store.current().primaries[key]; taken {
		return false, nil
	}
	store.current().primaries[key] = instrumentID
	return true, nil
}

func (store *stubStore) SetPrimaryInstrument(ctx context.Context, memberID MemberID, kind InstrumentKind, instrumentID InstrumentID, atUnixUTC int64) error {
	defer store.lock()()
	store.failures.setPrimaryCallsObserved++
	if store.failures.setPrimaryError != nil {
		return store.failures.setPrimaryError
	}
	store.current().primaries[primaryKey{memberID: memberID, kind: kind}] = instrumentID
	return nil
}

func (store *stubStore) DeleteInstrument(ctx context.Context, instrumentID InstrumentID) error {
	defer store.lock()()
	if store.failures.deleteInstrumentError != nil {
		return store.failures.deleteInstrumentError
	}
	if _, ok := store.current().instruments[instrumentID]; !ok {
		return ErrUnknownInstrument
	}
	for _, primaryID := range store.current().primaries {
		if primaryID == instrumentID {
			return ErrPrimaryInstrument
		}
	}
	for _, payment := range store.current().payments {
		if payment.Instrument.ID() == instrumentID {
			return ErrInstrumentInUse
		}
	}
	delete(store.current().instruments, instrumentID)
	return nil
}

func (store *stubStore) CreatePayment(ctx context.Context, draft PaymentDraft) (Payment, error) {
	defer store.lock()()
	if store.failures.createPaymentError != nil {
		return Payment{}, store.failures.createPaymentError
	}
	for _, existing := range store.current().payments {
		if existing.ReservationID == draft.ReservationID && existing.Status != PaymentStatusCancelled {
			return Payment{}, ErrReservationAlreadyPaid
		}
	}
	payment := Payment{
		ID:             PaymentID{value: store.nextID("payment")},
		ReservationID:  draft.ReservationID,
		MemberID:       draft.MemberID,
		Instrument:     draft.Instrument,
		Amount:         draft.Amount,
		Status:         PaymentStatusReserved,
		CreatedUnixUTC: draft.CreatedUnixUTC,
		UpdatedUnixUTC: draft.CreatedUnixUTC,
	}
	store.current().payments[payment.ID] = payment
	return payment, nil
}

func (store *stubStore) GetPayment(ctx context.Context, paymentID PaymentID) (Payment, error) {
	defer store.lock()()
	if store.failures.getPaymentError != nil {
		return Payment{}, store.failures.getPaymentError
	}
	payment, ok := store.current().payments[paymentID]
	if !ok {
		return Payment{}, ErrUnknownPayment
	}
	return payment, nil
}

func (store *stubStore) ListPaymentsByReservation(ctx context.Context, reservationID ReservationID) ([]Payment, error) {
	defer store.lock()()
	if store.failures.listPaymentsError != nil {
		return nil, store.failures.listPaymentsError
	}
	payments := make([]Payment, 0)
	for _, payment := range store.current().payments {
		if payment.ReservationID == reservationID {
			payments = append(payments, payment)
		}
	}
	return payments, nil
}

func (store *stubStore) ListPayments(ctx context.Context, memberID MemberID, filter PaymentFilter) ([]Payment, error) {
	defer store.lock()()
	if store.failures.listPaymentsError != nil {
		return nil, store.failures.listPaymentsError
	}
	payments := make([]Payment, 0)
	for _, payment := range store.current().payments {
		switch {
		case payment.MemberID != memberID:
		case filter.ReservationID.String() != "" && payment.ReservationID != filter.ReservationID:
		case filter.Kind != "" && payment.Instrument.Kind() != filter.Kind:
		case filter.Status != "" && payment.Status != filter.Status:
		default:
			payments = append(payments, payment)
		}
	}
	sort.Slice(payments, func(left, right int) bool {
		return payments[left].ID.String() < payments[right].ID.String()
	})
	return payments, nil
}

func (store *stubStore) UpdatePaymentStatus(ctx context.Context, paymentID PaymentID, from PaymentStatus, to PaymentStatus, atUnixUTC int64) error {
	defer store.lock()()
	if store.failures.updatePaymentError != nil {
		return store.failures.updatePaymentError
	}
	payment, ok := store.current().payments[paymentID]
	if !ok {
		return ErrUnknownPayment
	}
	if payment.Status != from {
		return ErrStaleStatus
	}
	payment.Status = to
	payment.UpdatedUnixUTC = atUnixUTC
	store.current().payments[paymentID] = payment
	return nil
}

func (store *stubStore) AppendPaymentLog(ctx context.Context, draft PaymentLogDraft) (PaymentLogEntry, error) {
	defer store.lock()()
	if store.failures.appendPaymentLogError != nil {
		return PaymentLogEntry{}, store.failures.appendPaymentLogError
	}
	for _, existing := range store.current().logs {
		if existing.PaymentID == draft.PaymentID && existing.Before == draft.Before && existing.After == draft.After {
			return PaymentLogEntry{}, ErrDuplicateTransition
		}
	}
	entry := PaymentLogEntry{
		ID:             store.nextID("log"),
		PaymentID:      draft.PaymentID,
		Before:         draft.Before,
		After:          draft.After,
		Actor:          draft.Actor,
		Memo:           draft.Memo,
		Snapshot:       draft.Snapshot,
		CreatedUnixUTC: draft.CreatedUnixUTC,
	}
	store.current().logs = append(store.current().logs, entry)
	return entry, nil
}

func (store *stubStore) ListPaymentLogs(ctx context.Context, paymentID PaymentID) ([]PaymentLogEntry, error) {
	defer store.lock()()
	if store.failures.listPaymentLogsError != nil {
		return nil, store.failures.listPaymentLogsError
	}
	entries := make([]PaymentLogEntry, 0)
	for _, entry := range store.current().logs {
		if entry.PaymentID == paymentID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (store *stubStore) ListMemberPaymentLogs(ctx context.Context, memberID MemberID) ([]PaymentLogEntry, error) {
	defer store.lock()()
	if store.failures.listPaymentLogsError != nil {
		return nil, store.failures.listPaymentLogsError
	}
	entries := make([]PaymentLogEntry, 0)
	for _, entry := range store.current().logs {
		if payment, ok := store.current().payments[entry.PaymentID]; ok && payment.MemberID == memberID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (store *stubStore) seedReservation(test *testing.T, reservation Reservation) {
	test.Helper()
	defer store.lock()()
	store.current().reservations[reservation.ID] = reservation
}

func (store *stubStore) seedPayment(test *testing.T, payment Payment) {
	test.Helper()
	defer store.lock()()
	store.current().payments[payment.ID] = payment
}

func (store *stubStore) mustReservation(test *testing.T, reservationID ReservationID) Reservation {
	test.Helper()
	reservation, err := store.GetReservation(context.Background(), reservationID)
	if err != nil {
		test.Fatalf("reservation %s: %v", reservationID, err)
	}
	return reservation
}

func (store *stubStore) logCount() int {
	defer store.lock()()
	return len(store.current().logs)
}

func (store *stubStore) primaryCount(memberID MemberID, kind InstrumentKind) int {
	defer store.lock()()
	count := 0
	for _, instrument := range store.current().instruments {
		if instrument.MemberID == memberID && instrument.Kind == kind && store.withPrimary(instrument).Primary {
			count++
		}
	}
	return count
}

type stubCatalog struct {
	facilities map[FacilityID]Facility
	err        error
}

func (catalog *stubCatalog) GetFacility(ctx context.Context, facilityID FacilityID) (Facility, error) {
	if catalog.err != nil {
		return Facility{}, catalog.err
	}
	facility, ok := catalog.facilities[facilityID]
	if !ok {
		return Facility{}, ErrUnknownFacility
	}
	return facility, nil
}

type stubDirectory struct {
	members map[MemberID]bool
	err     error
}

func (directory *stubDirectory) MemberExists(ctx context.Context, memberID MemberID) (bool, error) {
	if directory.err != nil {
		return false, directory.err
	}
	return directory.members[memberID], nil
}

type recorderNotifier struct {
	mutex         sync.Mutex
	notifications []Notification
	err           error
}

func (notifier *recorderNotifier) Notify(ctx context.Context, notification Notification) error {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	notifier.notifications = append(notifier.notifications, notification)
	return notifier.err
}

func (notifier *recorderNotifier) sent() []Notification {
	notifier.mutex.Lock()
	defer notifier.mutex.Unlock()
	return append([]Notification(nil), notifier.notifications...)
}

type recorderLogger struct {
	mutex   sync.Mutex
	entries []OperationLog
}

func (logger *recorderLogger) LogOperation(_ context.Context, entry OperationLog) {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	logger.entries = append(logger.entries, entry)
}

func (logger *recorderLogger) operations(operation string) []OperationLog {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	matched := make([]OperationLog, 0)
	for _, entry := range logger.entries {
		if entry.Operation == operation {
			matched = append(matched, entry)
		}
	}
	return matched
}

type fixture struct {
	store    *stubStore
	catalog  *stubCatalog
	members  *stubDirectory
	notifier *recorderNotifier
	logger   *recorderLogger
	service  *Service
}

func newFixture(test *testing.T) *fixture {
	test.Helper()
	store := newStubStore(test)
	hours := mustOperatingHours(test, 6*60, 22*60)
	catalog := &stubCatalog{facilities: map[FacilityID]Facility{
		mustFacilityID(test, facilityCourt):  {ID: mustFacilityID(test, facilityCourt), Name: "Court", HourlyRate: 50000},
		mustFacilityID(test, facilityStudio): {ID: mustFacilityID(test, facilityStudio), Name: "Studio", HourlyRate: 1000, Hours: &hours},
	}}
	members := &stubDirectory{members: map[MemberID]bool{
		mustMemberID(test, memberAlice): true,
		mustMemberID(test, memberBob):   true,
	}}
	notifier := &recorderNotifier{}
	logger := &recorderLogger{}
	service, err := NewService(store, catalog, members, func() int64 { return stubClockUnix }, WithNotifier(notifier), WithOperationLogger(logger))
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return &fixture{store: store, catalog: catalog, members: members, notifier: notifier, logger: logger, service: service}
}

func (fixture *fixture) mustBook(test *testing.T, member string, facility string, startHour int, endHour int) Reservation {
	test.Helper()
	reservation, err := fixture.service.CreateReservation(context.Background(), reservationRequest(test, member, facility, startHour, endHour))
	if err != nil {
		test.Fatalf("book %s %d-%d: %v", facility, startHour, endHour, err)
	}
	return reservation
}

func (fixture *fixture) mustRegister(test *testing.T, member string, kind InstrumentKind, number string) Instrument {
	test.Helper()
	instrument, err := fixture.service.RegisterInstrument(context.Background(), InstrumentRequest{
		MemberID: mustMemberID(test, member),
		Kind:     kind,
		Details:  mustInstrumentDetails(test, "Issuer", number),
	})
	if err != nil {
		test.Fatalf("register %s %s: %v", kind, number, err)
	}
	return instrument
}

func (fixture *fixture) mustPay(test *testing.T, member string, reservation Reservation, instrument Instrument) Payment {
	test.Helper()
	payment, err := fixture.service.SubmitPayment(context.Background(), PaymentRequest{
		MemberID:      mustMemberID(test, member),
		ReservationID: reservation.ID,
		Instrument:    refFor(test, instrument),
	})
	if err != nil {
		test.Fatalf("submit payment: %v", err)
	}
	return payment
}

var bookingDay = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

func reservationRequest(test *testing.T, member string, facility string, startHour int, endHour int) ReservationRequest {
	test.Helper()
	return ReservationRequest{
		MemberID:   mustMemberID(test, member),
		FacilityID: mustFacilityID(test, facility),
		Window:     mustWindow(test, startHour, endHour),
		Headcount:  mustHeadcount(test, 4),
		Content:    "weekly practice",
	}
}

func refFor(test *testing.T, instrument Instrument) InstrumentRef {
	test.Helper()
	if instrument.Kind == InstrumentKindAccount {
		return mustInstrumentRef(test, instrument.ID.String(), "")
	}
	return mustInstrumentRef(test, "", instrument.ID.String())
}

func mustWindow(test *testing.T, startHour int, endHour int) TimeWindow {
	test.Helper()
	window, err := NewTimeWindow(bookingDay.Add(time.Duration(startHour)*time.Hour), bookingDay.Add(time.Duration(endHour)*time.Hour))
	if err != nil {
		test.Fatalf("window: %v", err)
	}
	return window
}

func mustMemberID(test *testing.T, raw string) MemberID {
	test.Helper()
	id, err := NewMemberID(raw)
	if err != nil {
		test.Fatalf("member id: %v", err)
	}
	return id
}

func mustFacilityID(test *testing.T, raw string) FacilityID {
	test.Helper()
	id, err := NewFacilityID(raw)
	if err != nil {
		test.Fatalf("facility id: %v", err)
	}
	return id
}

func mustReservationID(test *testing.T, raw string) ReservationID {
	test.Helper()
	id, err := NewReservationID(raw)
	if err != nil {
		test.Fatalf("reservation id: %v", err)
	}
	return id
}

func mustPaymentID(test *testing.T, raw string) PaymentID {
	test.Helper()
	id, err := NewPaymentID(raw)
	if err != nil {
		test.Fatalf("payment id: %v", err)
	}
	return id
}

func mustHeadcount(test *testing.T, raw int) Headcount {
	test.Helper()
	headcount, err := NewHeadcount(raw)
	if err != nil {
		test.Fatalf("headcount: %v", err)
	}
	return headcount
}

func mustActor(test *testing.T, raw string) Actor {
	test.Helper()
	actor, err := NewActor(raw)
	if err != nil {
		test.Fatalf("actor: %v", err)
	}
	return actor
}

func mustInstrumentDetails(test *testing.T, issuer string, number string) InstrumentDetails {
	test.Helper()
	details, err := NewInstrumentDetails(issuer, number, "")
	if err != nil {
		test.Fatalf("instrument details: %v", err)
	}
	return details
}

func mustInstrumentRef(test *testing.T, accountID string, cardID string) InstrumentRef {
	test.Helper()
	ref, err := NewInstrumentRef(accountID, cardID)
	if err != nil {
		test.Fatalf("instrument ref: %v", err)
	}
	return ref
}

func mustOperatingHours(test *testing.T, opens int, closes int) OperatingHours {
	test.Helper()
	hours, err := NewOperatingHours(opens, closes)
	if err != nil {
		test.Fatalf("operating hours: %v", err)
	}
	return hours
}

func expectKind(test *testing.T, err error, kind error) {
	test.Helper()
	if !errors.Is(err, kind) {
		test.Fatalf("expected %v kind, got %v", kind, err)
	}
}
