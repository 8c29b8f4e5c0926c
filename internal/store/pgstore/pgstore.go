package pgstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/MarkoPoloResearchLab/booking/internal/store/schema"
	"github.com/MarkoPoloResearchLab/booking/pkg/booking"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	errorOperationStore     = "store"
	errorSubjectSchema      = "schema"
	errorSubjectMember      = "member"
	errorSubjectFacility    = "facility"
	errorSubjectReservation = "reservation"
	errorSubjectInstrument  = "instrument"
	errorSubjectPrimary     = "primary_instrument"
	errorSubjectPayment     = "payment"
	errorSubjectPaymentLog  = "payment_log"
	errorSubjectTransaction = "transaction"
	errorCodeApply          = "apply"
	errorCodeBegin          = "begin"
	errorCodeCommit         = "commit"
	errorCodeCreate         = "create"
	errorCodeDelete         = "delete"
	errorCodeDuplicate      = "duplicate"
	errorCodeGet            = "get"
	errorCodeInvalid        = "invalid"
	errorCodeList           = "list"
	errorCodeLookup         = "lookup"
	errorCodeMarkCancel     = "mark_cancel_requested"
	errorCodeOverlap        = "overlap"
	errorCodeSave           = "save"
	errorCodeUpdateStatus   = "update_status"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Store implements booking.Store, booking.FacilityCatalog and
// booking.MemberDirectory on a pgx pool. Outside WithTx every call autocommits.
type Store struct {
	pool *pgxpool.Pool
	db   querier
	inTx bool
}

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// ApplySchema creates the booking tables and guards when missing.
func (store *Store) ApplySchema(ctx context.Context) error {
	err := schema.Apply(ctx, schema.DialectPostgres, func(ctx context.Context, statement string) error {
		_, err := store.db.Exec(ctx, statement)
		return err
	})
	return wrapStoreError(errorSubjectSchema, errorCodeApply, err)
}

// WithTx executes fn within a transaction. Nested calls join the outer one.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore booking.Store) error) error {
	if store.inTx {
		return fn(ctx, store)
	}
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeBegin, err)
	}
	if err := fn(ctx, &Store{pool: store.pool, db: tx, inTx: true}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeCommit, err)
	}
	return nil
}

// SaveMember registers or renames a member.
func (store *Store) SaveMember(ctx context.Context, memberID booking.MemberID, displayName string, atUnixUTC int64) error {
	_, err := store.db.Exec(ctx, sqlUpsertMember, memberID.String(), displayName, atUnixUTC)
	return wrapStoreError(errorSubjectMember, errorCodeSave, err)
}

// SaveFacility inserts or replaces a catalog record.
func (store *Store) SaveFacility(ctx context.Context, facility booking.Facility) error {
	var opens, closes *int32
	if facility.Hours != nil {
		opensValue := int32(facility.Hours.OpensMinute())
		closesValue := int32(facility.Hours.ClosesMinute())
		opens, closes = &opensValue, &closesValue
	}
	_, err := store.db.Exec(ctx, sqlUpsertFacility, facility.ID.String(), facility.Name, facility.HourlyRate.Int64(), opens, closes)
	return wrapStoreError(errorSubjectFacility, errorCodeSave, err)
}

func (store *Store) MemberExists(ctx context.Context, memberID booking.MemberID) (bool, error) {
	var exists bool
	if err := store.db.QueryRow(ctx, sqlMemberExists, memberID.String()).Scan(&exists); err != nil {
		return false, wrapStoreError(errorSubjectMember, errorCodeLookup, err)
	}
	return exists, nil
}

func (store *Store) GetFacility(ctx context.Context, facilityID booking.FacilityID) (booking.Facility, error) {
	var (
		idValue     string
		nameValue   string
		rateValue   int64
		opensValue  *int32
		closesValue *int32
	)
	err := store.db.QueryRow(ctx, sqlSelectFacility, facilityID.String()).Scan(&idValue, &nameValue, &rateValue, &opensValue, &closesValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return booking.Facility{}, wrapStoreError(errorSubjectFacility, errorCodeGet, booking.ErrUnknownFacility)
		}
		return booking.Facility{}, wrapStoreError(errorSubjectFacility, errorCodeGet, err)
	}
	parsedID, err := booking.NewFacilityID(idValue)
	if err != nil {
		return booking.Facility{}, wrapStoreError(errorSubjectFacility, errorCodeInvalid, err)
	}
	var hours *booking.OperatingHours
	if opensValue != nil && closesValue != nil {
		parsedHours, err := booking.NewOperatingHours(int(*opensValue), int(*closesValue))
		if err != nil {
			return booking.Facility{}, wrapStoreError(errorSubjectFacility, errorCodeInvalid, err)
		}
		hours = &parsedHours
	}
	facility, err := booking.NewFacility(parsedID, nameValue, booking.Amount(rateValue), hours)
	if err != nil {
		return booking.Facility{}, wrapStoreError(errorSubjectFacility, errorCodeInvalid, err)
	}
	return facility, nil
}

func (store *Store) HasOverlappingReservation(ctx context.Context, facilityID booking.FacilityID, window booking.TimeWindow) (bool, error) {
	var overlaps bool
	err := store.db.QueryRow(ctx, sqlHasOverlap, facilityID.String(), window.StartUnixUTC(), window.EndUnixUTC()).Scan(&overlaps)
	if err != nil {
		return false, wrapStoreError(errorSubjectReservation, errorCodeOverlap, err)
	}
	return overlaps, nil
}

func (store *Store) CreateReservation(ctx context.Context, draft booking.ReservationDraft) (booking.Reservation, error) {
	row := store.db.QueryRow(ctx, sqlInsertReservation,
		uuid.NewString(),
		draft.MemberID.String(),
		draft.FacilityID.String(),
		draft.RequestedDate.String(),
		draft.Window.StartUnixUTC(),
		draft.Window.EndUnixUTC(),
		draft.Headcount.Int(),
		draft.Content,
		draft.CreatedUnixUTC,
	)
	reservation, err := scanReservation(row)
	if schema.Classify(err) == schema.ViolationReservationOverlap {
		return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeOverlap, booking.ErrReservationOverlap)
	}
	if err != nil {
		return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeCreate, err)
	}
	return reservation, nil
}

func (store *Store) GetReservation(ctx context.Context, reservationID booking.ReservationID) (booking.Reservation, error) {
	reservation, err := scanReservation(store.db.QueryRow(ctx, sqlSelectReservation, reservationID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeGet, booking.ErrUnknownReservation)
		}
		return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeGet, err)
	}
	return reservation, nil
}

func (store *Store) ListReservations(ctx context.Context, memberID booking.MemberID, facilityID booking.FacilityID) ([]booking.Reservation, error) {
	rows, err := store.db.Query(ctx, sqlListReservations, memberID.String(), facilityID.String())
	if err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	defer rows.Close()
	reservations := make([]booking.Reservation, 0, 4)
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectReservation, errorCodeInvalid, err)
		}
		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	return reservations, nil
}

func (store *Store) MarkCancellationRequested(ctx context.Context, reservationID booking.ReservationID, reason string, atUnixUTC int64) (bool, error) {
	tag, err := store.db.Exec(ctx, sqlMarkCancellationRequested, reservationID.String(), reason, atUnixUTC)
	if err != nil {
		return false, wrapStoreError(errorSubjectReservation, errorCodeMarkCancel, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	if err := store.requireRow(ctx, sqlReservationExists, reservationID.String(), booking.ErrUnknownReservation); err != nil {
		return false, wrapStoreError(errorSubjectReservation, errorCodeMarkCancel, err)
	}
	return false, nil
}

func (store *Store) UpdateReservationStatus(ctx context.Context, reservationID booking.ReservationID, from booking.ReservationStatus, to booking.ReservationStatus, atUnixUTC int64) error {
	tag, err := store.db.Exec(ctx, sqlUpdateReservationStatus, reservationID.String(), from.String(), to.String(), atUnixUTC)
	if err != nil {
		return wrapStoreError(errorSubjectReservation, errorCodeUpdateStatus, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if err := store.requireRow(ctx, sqlReservationExists, reservationID.String(), booking.ErrUnknownReservation); err != nil {
		return wrapStoreError(errorSubjectReservation, errorCodeUpdateStatus, err)
	}
	return wrapStoreError(errorSubjectReservation, errorCodeUpdateStatus, booking.ErrStaleStatus)
}

// requireRow returns missing when the existence query reports no row.
func (store *Store) requireRow(ctx context.Context, query string, id string, missing error) error {
	var exists bool
	if err := store.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return missing
	}
	return nil
}

func (store *Store) CreateInstrument(ctx context.Context, draft booking.InstrumentDraft) (booking.Instrument, error) {
	instrumentIDValue := uuid.NewString()
	_, err := store.db.Exec(ctx, sqlInsertInstrument,
		instrumentIDValue,
		draft.MemberID.String(),
		draft.Kind.String(),
		draft.Details.Issuer(),
		draft.Details.Number(),
		draft.Details.Approval(),
		draft.CreatedUnixUTC,
	)
	if schema.Classify(err) == schema.ViolationInstrumentNumber {
		return booking.Instrument{}, wrapStoreError(errorSubjectInstrument, errorCodeDuplicate, booking.ErrInstrumentNumberTaken)
	}
	if err != nil {
		return booking.Instrument{}, wrapStoreError(errorSubjectInstrument, errorCodeCreate, err)
	}
	instrumentID, err := booking.NewInstrumentID(instrumentIDValue)
	if err != nil {
		return booking.Instrument{}, wrapStoreError(errorSubjectInstrument, errorCodeInvalid, err)
	}
	return booking.Instrument{
		ID:             instrumentID,
		MemberID:       draft.MemberID,
		Kind:           draft.Kind,
		Details:        draft.Details,
		CreatedUnixUTC: draft.CreatedUnixUTC,
	}, nil
}

func (store *Store) GetInstrument(ctx context.Context, instrumentID booking.InstrumentID) (booking.Instrument, error) {
	instrument, err := scanInstrument(store.db.QueryRow(ctx, sqlSelectInstrument, instrumentID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return booking.Instrument{}, wrapStoreError(errorSubjectInstrument, errorCodeGet, booking.ErrUnknownInstrument)
		}
		return booking.Instrument{}, wrapStoreError(errorSubjectInstrument, errorCodeGet, err)
	}
	return instrument, nil
}

func (store *Store) ListInstruments(ctx context.Context, memberID booking.MemberID, kind booking.InstrumentKind) ([]booking.Instrument, error) {
	rows, err := store.db.Query(ctx, sqlListInstruments, memberID.String(), kind.String())
	if err != nil {
		return nil, wrapStoreError(errorSubjectInstrument, errorCodeList, err)
	}
	defer rows.Close()
	instruments := make([]booking.Instrument, 0, 4)
	for rows.Next() {
		instrument, err := scanInstrument(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectInstrument, errorCodeInvalid, err)
		}
		instruments = append(instruments, instrument)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectInstrument, errorCodeList, err)
	}
	return instruments, nil
}

func (store *Store) ClaimPrimaryIfVacant(ctx context.Context, memberID booking.MemberID, kind booking.InstrumentKind, instrumentID booking.InstrumentID, atUnixUTC int64) (bool, error) {
	tag, err := store.db.Exec(ctx, sqlClaimPrimary, memberID.String(), kind.String(), instrumentID.String(), atUnixUTC)
	if err != nil {
		return false, wrapStoreError(errorSubjectPrimary, errorCodeSave, translatePrimaryError(err))
	}
	return tag.RowsAffected() > 0, nil
}

func (store *Store) SetPrimaryInstrument(ctx context.Context, memberID booking.MemberID, kind booking.InstrumentKind, instrumentID booking.InstrumentID, atUnixUTC int64) error {
	_, err := store.db.Exec(ctx, sqlSetPrimary, memberID.String(), kind.String(), instrumentID.String(), atUnixUTC)
	return wrapStoreError(errorSubjectPrimary, errorCodeSave, translatePrimaryError(err))
}

func translatePrimaryError(err error) error {
	if schema.Classify(err) == schema.ViolationPrimaryInstrumentRef {
		return booking.ErrInstrumentKindMismatch
	}
	return err
}

func (store *Store) DeleteInstrument(ctx context.Context, instrumentID booking.InstrumentID) error {
	var isPrimary bool
	if err := store.db.QueryRow(ctx, sqlPrimaryPointerExists, instrumentID.String()).Scan(&isPrimary); err != nil {
		return wrapStoreError(errorSubjectInstrument, errorCodeDelete, err)
	}
	if isPrimary {
		return wrapStoreError(errorSubjectInstrument, errorCodeDelete, booking.ErrPrimaryInstrument)
	}
	tag, err := store.db.Exec(ctx, sqlDeleteInstrument, instrumentID.String())
	switch schema.Classify(err) {
	case schema.ViolationNone:
	case schema.ViolationPrimaryInstrumentRef:
		return wrapStoreError(errorSubjectInstrument, errorCodeDelete, booking.ErrPrimaryInstrument)
	case schema.ViolationInstrumentInUse:
		return wrapStoreError(errorSubjectInstrument, errorCodeDelete, booking.ErrInstrumentInUse)
	default:
		return wrapStoreError(errorSubjectInstrument, errorCodeDelete, err)
	}
	if err != nil {
		return wrapStoreError(errorSubjectInstrument, errorCodeDelete, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectInstrument, errorCodeDelete, booking.ErrUnknownInstrument)
	}
	return nil
}

func (store *Store) CreatePayment(ctx context.Context, draft booking.PaymentDraft) (booking.Payment, error) {
	var accountValue, cardValue string
	if accountID, ok := draft.Instrument.AccountID(); ok {
		accountValue = accountID.String()
	}
	if cardID, ok := draft.Instrument.CardID(); ok {
		cardValue = cardID.String()
	}
	row := store.db.QueryRow(ctx, sqlInsertPayment,
		uuid.NewString(),
		draft.ReservationID.String(),
		draft.MemberID.String(),
		accountValue,
		cardValue,
		draft.Amount.Int64(),
		draft.CreatedUnixUTC,
	)
	payment, err := scanPayment(row)
	switch schema.Classify(err) {
	case schema.ViolationNone:
	case schema.ViolationOpenPayment:
		return booking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeDuplicate, booking.ErrReservationAlreadyPaid)
	case schema.ViolationInstrumentInUse:
		return booking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeCreate, booking.ErrUnknownInstrument)
	default:
		return booking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeCreate, err)
	}
	if err != nil {
		return booking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeCreate, err)
	}
	return payment, nil
}

func (store *Store) GetPayment(ctx context.Context, paymentID booking.PaymentID) (booking.Payment, error) {
	payment, err := scanPayment(store.db.QueryRow(ctx, sqlSelectPayment, paymentID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return booking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeGet, booking.ErrUnknownPayment)
		}
		return booking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeGet, err)
	}
	return payment, nil
}

func (store *Store) ListPaymentsByReservation(ctx context.Context, reservationID booking.ReservationID) ([]booking.Payment, error) {
	return store.queryPayments(ctx, sqlListPaymentsByReservation, reservationID.String())
}

func (store *Store) ListPayments(ctx context.Context, memberID booking.MemberID, filter booking.PaymentFilter) ([]booking.Payment, error) {
	return store.queryPayments(ctx, sqlListPayments,
		memberID.String(), filter.ReservationID.String(), filter.Kind.String(), filter.Status.String())
}

func (store *Store) queryPayments(ctx context.Context, sql string, args ...any) ([]booking.Payment, error) {
	rows, err := store.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapStoreError(errorSubjectPayment, errorCodeList, err)
	}
	defer rows.Close()
	payments := make([]booking.Payment, 0, 2)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectPayment, errorCodeInvalid, err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectPayment, errorCodeList, err)
	}
	return payments, nil
}

func (store *Store) UpdatePaymentStatus(ctx context.Context, paymentID booking.PaymentID, from booking.PaymentStatus, to booking.PaymentStatus, atUnixUTC int64) error {
	tag, err := store.db.Exec(ctx, sqlUpdatePaymentStatus, paymentID.String(), from.String(), to.String(), atUnixUTC)
	if err != nil {
		return wrapStoreError(errorSubjectPayment, errorCodeUpdateStatus, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if err := store.requireRow(ctx, sqlPaymentExists, paymentID.String(), booking.ErrUnknownPayment); err != nil {
		return wrapStoreError(errorSubjectPayment, errorCodeUpdateStatus, err)
	}
	return wrapStoreError(errorSubjectPayment, errorCodeUpdateStatus, booking.ErrStaleStatus)
}

func (store *Store) AppendPaymentLog(ctx context.Context, draft booking.PaymentLogDraft) (booking.PaymentLogEntry, error) {
	snapshot, err := json.Marshal(draft.Snapshot)
	if err != nil {
		return booking.PaymentLogEntry{}, wrapStoreError(errorSubjectPaymentLog, errorCodeInvalid, err)
	}
	row := store.db.QueryRow(ctx, sqlInsertPaymentLog,
		uuid.NewString(),
		draft.PaymentID.String(),
		draft.Before.String(),
		draft.After.String(),
		draft.Actor.String(),
		draft.Memo,
		string(snapshot),
		draft.CreatedUnixUTC,
	)
	entry, err := scanPaymentLog(row)
	if schema.Classify(err) == schema.ViolationPaymentLogTransition {
		return booking.PaymentLogEntry{}, wrapStoreError(errorSubjectPaymentLog, errorCodeDuplicate, booking.ErrDuplicateTransition)
	}
	if err != nil {
		return booking.PaymentLogEntry{}, wrapStoreError(errorSubjectPaymentLog, errorCodeCreate, err)
	}
	return entry, nil
}

func (store *Store) ListPaymentLogs(ctx context.Context, paymentID booking.PaymentID) ([]booking.PaymentLogEntry, error) {
	return store.queryPaymentLogs(ctx, sqlListPaymentLogs, paymentID.String())
}

func (store *Store) ListMemberPaymentLogs(ctx context.Context, memberID booking.MemberID) ([]booking.PaymentLogEntry, error) {
	return store.queryPaymentLogs(ctx, sqlListMemberPaymentLogs, memberID.String())
}

func (store *Store) queryPaymentLogs(ctx context.Context, sql string, args ...any) ([]booking.PaymentLogEntry, error) {
	rows, err := store.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapStoreError(errorSubjectPaymentLog, errorCodeList, err)
	}
	defer rows.Close()
	entries := make([]booking.PaymentLogEntry, 0, 2)
	for rows.Next() {
		entry, err := scanPaymentLog(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectPaymentLog, errorCodeInvalid, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectPaymentLog, errorCodeList, err)
	}
	return entries, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return booking.WrapError(errorOperationStore, subject, code, err)
}
