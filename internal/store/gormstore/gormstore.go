package gormstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/MarkoPoloResearchLab/booking/internal/store/schema"
	"github.com/MarkoPoloResearchLab/booking/pkg/booking"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	postgresDialectorName    = "postgres"
	lockingStrengthUpdate    = "UPDATE"
	errorOperationStore      = "store"
	errorSubjectSchema       = "schema"
	errorSubjectMember       = "member"
	errorSubjectFacility     = "facility"
	errorSubjectReservation  = "reservation"
	errorSubjectInstrument   = "instrument"
	errorSubjectPrimary      = "primary_instrument"
	errorSubjectPayment      = "payment"
	errorSubjectPaymentLog   = "payment_log"
	errorCodeApply           = "apply"
	errorCodeCreate          = "create"
	errorCodeDelete          = "delete"
	errorCodeDuplicate       = "duplicate"
	errorCodeGet             = "get"
	errorCodeInvalid         = "invalid"
	errorCodeList            = "list"
	errorCodeLookup          = "lookup"
	errorCodeMarkCancel      = "mark_cancel_requested"
	errorCodeOverlap         = "overlap"
	errorCodeSave            = "save"
	errorCodeUpdateStatus    = "update_status"
	instrumentSelectColumns  = "i.instrument_id, i.member_id, i.kind, i.issuer, i.number, i.approval, i.created_unix, CASE WHEN p.instrument_id IS NULL THEN 0 ELSE 1 END AS primary_flag"
	instrumentPrimaryJoinSQL = "LEFT JOIN primary_instruments p ON p.member_id = i.member_id AND p.kind = i.kind AND p.instrument_id = i.instrument_id"
)

// Store implements booking.Store, booking.FacilityCatalog and
// booking.MemberDirectory using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Dialect reports the SQL flavour of the underlying connection.
func (store *Store) Dialect() schema.Dialect {
	if store.db.Dialector.Name() == postgresDialectorName {
		return schema.DialectPostgres
	}
	return schema.DialectSQLite
}

// ApplySchema creates the booking tables and guards when missing.
func (store *Store) ApplySchema(ctx context.Context) error {
	err := schema.Apply(ctx, store.Dialect(), func(ctx context.Context, statement string) error {
		return store.db.WithContext(ctx).Exec(statement).Error
	})
	return wrapStoreError(errorSubjectSchema, errorCodeApply, err)
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore booking.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

// forUpdate locks selected rows on PostgreSQL. SQLite serialises writers
// at the database level and has no row locks.
func (store *Store) forUpdate(query *gorm.DB) *gorm.DB {
	if store.db.Dialector.Name() != postgresDialectorName {
		return query
	}
	return query.Clauses(clause.Locking{Strength: lockingStrengthUpdate})
}

// SaveMember registers or renames a member. Used for provisioning.
func (store *Store) SaveMember(ctx context.Context, memberID booking.MemberID, displayName string, atUnixUTC int64) error {
	model := Member{MemberID: memberID.String(), DisplayName: displayName, CreatedUnix: atUnixUTC}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "member_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name"}),
		}).
		Create(&model).Error
	return wrapStoreError(errorSubjectMember, errorCodeSave, err)
}

// SaveFacility inserts or replaces a catalog record.
func (store *Store) SaveFacility(ctx context.Context, facility booking.Facility) error {
	model := Facility{
		FacilityID: facility.ID.String(),
		Name:       facility.Name,
		HourlyRate: facility.HourlyRate.Int64(),
		InUse:      true,
	}
	if facility.Hours != nil {
		opens := facility.Hours.OpensMinute()
		closes := facility.Hours.ClosesMinute()
		model.OpensMinute = &opens
		model.ClosesMinute = &closes
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "facility_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "hourly_rate", "opens_minute", "closes_minute", "in_use"}),
		}).
		Create(&model).Error
	return wrapStoreError(errorSubjectFacility, errorCodeSave, err)
}

func (store *Store) MemberExists(ctx context.Context, memberID booking.MemberID) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Member{}).
		Where("member_id = ?", memberID.String()).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectMember, errorCodeLookup, err)
	}
	return count > 0, nil
}

// GetFacility treats facilities taken out of use as unknown.
func (store *Store) GetFacility(ctx context.Context, facilityID booking.FacilityID) (booking.Facility, error) {
	var model Facility
	err := store.db.WithContext(ctx).
		Where("facility_id = ? AND in_use = ?", facilityID.String(), true).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.Facility{}, wrapStoreError(errorSubjectFacility, errorCodeGet, booking.ErrUnknownFacility)
		}
		return booking.Facility{}, wrapStoreError(errorSubjectFacility, errorCodeGet, err)
	}
	facility, err := mapFacility(model)
	if err != nil {
		return booking.Facility{}, wrapStoreError(errorSubjectFacility, errorCodeInvalid, err)
	}
	return facility, nil
}

func (store *Store) HasOverlappingReservation(ctx context.Context, facilityID booking.FacilityID, window booking.TimeWindow) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("facility_id = ? AND status <> ?", facilityID.String(), booking.ReservationStatusCancelled.String()).
		Where("starts_at_unix < ? AND ends_at_unix > ?", window.EndUnixUTC(), window.StartUnixUTC()).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectReservation, errorCodeOverlap, err)
	}
	return count > 0, nil
}

func (store *Store) CreateReservation(ctx context.Context, draft booking.ReservationDraft) (booking.Reservation, error) {
	model := Reservation{
		MemberID:      draft.MemberID.String(),
		FacilityID:    draft.FacilityID.String(),
		RequestedDate: draft.RequestedDate.String(),
		StartsAtUnix:  draft.Window.StartUnixUTC(),
		EndsAtUnix:    draft.Window.EndUnixUTC(),
		Headcount:     draft.Headcount.Int(),
		Content:       draft.Content,
		Status:        booking.ReservationStatusPending.String(),
		CreatedUnix:   draft.CreatedUnixUTC,
		UpdatedUnix:   draft.CreatedUnixUTC,
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if schema.Classify(err) == schema.ViolationReservationOverlap {
		return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeOverlap, booking.ErrReservationOverlap)
	}
	if err != nil {
		return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeCreate, err)
	}
	reservation, err := mapReservation(model)
	if err != nil {
		return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeInvalid, err)
	}
	return reservation, nil
}

func (store *Store) GetReservation(ctx context.Context, reservationID booking.ReservationID) (booking.Reservation, error) {
	var model Reservation
	err := store.forUpdate(store.db.WithContext(ctx)).
		Where("reservation_id = ?", reservationID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeGet, booking.ErrUnknownReservation)
		}
		return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeGet, err)
	}
	reservation, err := mapReservation(model)
	if err != nil {
		return booking.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeInvalid, err)
	}
	return reservation, nil
}

func (store *Store) ListReservations(ctx context.Context, memberID booking.MemberID, facilityID booking.FacilityID) ([]booking.Reservation, error) {
	query := store.db.WithContext(ctx).Where("member_id = ?", memberID.String())
	if facilityID.String() != "" {
		query = query.Where("facility_id = ?", facilityID.String())
	}
	var rows []Reservation
	if err := query.Order("starts_at_unix, reservation_id").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	reservations := make([]booking.Reservation, 0, len(rows))
	for _, row := range rows {
		reservation, err := mapReservation(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectReservation, errorCodeInvalid, err)
		}
		reservations = append(reservations, reservation)
	}
	return reservations, nil
}

func (store *Store) MarkCancellationRequested(ctx context.Context, reservationID booking.ReservationID, reason string, atUnixUTC int64) (bool, error) {
	var storedReason *string
	if reason != "" {
		storedReason = &reason
	}
	result := store.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("reservation_id = ? AND cancel_requested = ?", reservationID.String(), false).
		Updates(map[string]interface{}{
			"cancel_requested": true,
			"cancel_reason":    storedReason,
			"updated_unix":     atUnixUTC,
		})
	if result.Error != nil {
		return false, wrapStoreError(errorSubjectReservation, errorCodeMarkCancel, result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}
	if err := store.requireReservation(ctx, reservationID); err != nil {
		return false, wrapStoreError(errorSubjectReservation, errorCodeMarkCancel, err)
	}
	return false, nil
}

func (store *Store) UpdateReservationStatus(ctx context.Context, reservationID booking.ReservationID, from booking.ReservationStatus, to booking.ReservationStatus, atUnixUTC int64) error {
	result := store.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("reservation_id = ? AND status = ?", reservationID.String(), from.String()).
		Updates(map[string]interface{}{"status": to.String(), "updated_unix": atUnixUTC})
	if result.Error != nil {
		return wrapStoreError(errorSubjectReservation, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		if err := store.requireReservation(ctx, reservationID); err != nil {
			return wrapStoreError(errorSubjectReservation, errorCodeUpdateStatus, err)
		}
		return wrapStoreError(errorSubjectReservation, errorCodeUpdateStatus, booking.ErrStaleStatus)
	}
	return nil
}

func (store *Store) requireReservation(ctx context.Context, reservationID booking.ReservationID) error {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("reservation_id = ?", reservationID.String()).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return booking.ErrUnknownReservation
	}
	return nil
}

func (store *Store) CreateInstrument(ctx context.Context, draft booking.InstrumentDraft) (booking.Instrument, error) {
	model := PaymentInstrument{
		MemberID:    draft.MemberID.String(),
		Kind:        draft.Kind.String(),
		Issuer:      draft.Details.Issuer(),
		Number:      draft.Details.Number(),
		Approval:    draft.Details.Approval(),
		CreatedUnix: draft.CreatedUnixUTC,
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if schema.Classify(err) == schema.ViolationInstrumentNumber {
		return booking.Instrument{}, wrapStoreError(errorSubjectInstrument, errorCodeDuplicate, booking.ErrInstrumentNumberTaken)
	}
	if err != nil {
		return booking.Instrument{}, wrapStoreError(errorSubjectInstrument, errorCodeCreate, err)
	}
	instrument, err := mapInstrument(instrumentWithPrimary{PaymentInstrument: model})
	if err != nil {
		return booking.Instrument{}, wrapStoreError(errorSubjectInstrument, errorCodeInvalid, err)
	}
	return instrument, nil
}

func (store *Store) instrumentQuery(ctx context.Context) *gorm.DB {
	return store.db.WithContext(ctx).
		Table("payment_instruments AS i").
		Select(instrumentSelectColumns).
		Joins(instrumentPrimaryJoinSQL)
}

func (store *Store) GetInstrument(ctx context.Context, instrumentID booking.InstrumentID) (booking.Instrument, error) {
	var rows []instrumentWithPrimary
	err := store.instrumentQuery(ctx).
		Where("i.instrument_id = ?", instrumentID.String()).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return booking.Instrument{}, wrapStoreError(errorSubjectInstrument, errorCodeGet, err)
	}
	if len(rows) == 0 {
		return booking.Instrument{}, wrapStoreError(errorSubjectInstrument, errorCodeGet, booking.ErrUnknownInstrument)
	}
	instrument, err := mapInstrument(rows[0])
	if err != nil {
		return booking.Instrument{}, wrapStoreError(errorSubjectInstrument, errorCodeInvalid, err)
	}
	return instrument, nil
}

func (store *Store) ListInstruments(ctx context.Context, memberID booking.MemberID, kind booking.InstrumentKind) ([]booking.Instrument, error) {
	query := store.instrumentQuery(ctx).Where("i.member_id = ?", memberID.String())
	if kind != "" {
		query = query.Where("i.kind = ?", kind.String())
	}
	var rows []instrumentWithPrimary
	if err := query.Order("i.created_unix, i.instrument_id").Scan(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectInstrument, errorCodeList, err)
	}
	instruments := make([]booking.Instrument, 0, len(rows))
	for _, row := range rows {
		instrument, err := mapInstrument(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectInstrument, errorCodeInvalid, err)
		}
		instruments = append(instruments, instrument)
	}
	return instruments, nil
}

func (store *Store) ClaimPrimaryIfVacant(ctx context.Context, memberID booking.MemberID, kind booking.InstrumentKind, instrumentID booking.InstrumentID, atUnixUTC int64) (bool, error) {
	model := PrimaryInstrument{
		MemberID:     memberID.String(),
		Kind:         kind.String(),
		InstrumentID: instrumentID.String(),
		UpdatedUnix:  atUnixUTC,
	}
	result := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model)
	if result.Error != nil {
		return false, wrapStoreError(errorSubjectPrimary, errorCodeSave, translatePrimaryError(result.Error))
	}
	return result.RowsAffected > 0, nil
}

func (store *Store) SetPrimaryInstrument(ctx context.Context, memberID booking.MemberID, kind booking.InstrumentKind, instrumentID booking.InstrumentID, atUnixUTC int64) error {
	model := PrimaryInstrument{
		MemberID:     memberID.String(),
		Kind:         kind.String(),
		InstrumentID: instrumentID.String(),
		UpdatedUnix:  atUnixUTC,
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "member_id"}, {Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"instrument_id", "updated_unix"}),
		}).
		Create(&model).Error
	return wrapStoreError(errorSubjectPrimary, errorCodeSave, translatePrimaryError(err))
}

// translatePrimaryError maps a pointer that names someone else's instrument,
// or an instrument of another kind, to a kind mismatch.
func translatePrimaryError(err error) error {
	switch schema.Classify(err) {
	case schema.ViolationPrimaryInstrumentRef, schema.ViolationForeignKey:
		return booking.ErrInstrumentKindMismatch
	default:
		return err
	}
}

func (store *Store) DeleteInstrument(ctx context.Context, instrumentID booking.InstrumentID) error {
	result := store.db.WithContext(ctx).
		Where("instrument_id = ?", instrumentID.String()).
		Delete(&PaymentInstrument{})
	switch schema.Classify(result.Error) {
	case schema.ViolationNone:
	case schema.ViolationPrimaryInstrumentRef:
		return wrapStoreError(errorSubjectInstrument, errorCodeDelete, booking.ErrPrimaryInstrument)
	case schema.ViolationInstrumentInUse:
		return wrapStoreError(errorSubjectInstrument, errorCodeDelete, booking.ErrInstrumentInUse)
	case schema.ViolationForeignKey:
		return wrapStoreError(errorSubjectInstrument, errorCodeDelete, store.explainDeleteRestriction(ctx, instrumentID))
	default:
		return wrapStoreError(errorSubjectInstrument, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectInstrument, errorCodeDelete, booking.ErrUnknownInstrument)
	}
	return nil
}

// explainDeleteRestriction names the reference that blocked a delete when the
// driver reports only a generic foreign key failure. Both the primary pointer
// and payments restrict deletes of an instrument.
func (store *Store) explainDeleteRestriction(ctx context.Context, instrumentID booking.InstrumentID) error {
	var pointers int64
	err := store.db.WithContext(ctx).
		Model(&PrimaryInstrument{}).
		Where("instrument_id = ?", instrumentID.String()).
		Count(&pointers).Error
	if err != nil {
		return err
	}
	if pointers > 0 {
		return booking.ErrPrimaryInstrument
	}
	return booking.ErrInstrumentInUse
}

func (store *Store) CreatePayment(ctx context.Context, draft booking.PaymentDraft) (booking.Payment, error) {
	model := Payment{
		ReservationID: draft.ReservationID.String(),
		MemberID:      draft.MemberID.String(),
		Amount:        draft.Amount.Int64(),
		Status:        booking.PaymentStatusReserved.String(),
		CreatedUnix:   draft.CreatedUnixUTC,
		UpdatedUnix:   draft.CreatedUnixUTC,
	}
	if accountID, ok := draft.Instrument.AccountID(); ok {
		value := accountID.String()
		model.AccountID = &value
	}
	if cardID, ok := draft.Instrument.CardID(); ok {
		value := cardID.String()
		model.CardID = &value
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	switch schema.Classify(err) {
	case schema.ViolationNone:
	case schema.ViolationOpenPayment:
		return booking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeDuplicate, booking.ErrReservationAlreadyPaid)
	case schema.ViolationInstrumentInUse, schema.ViolationForeignKey:
		return booking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeCreate, booking.ErrUnknownInstrument)
	default:
		return booking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeCreate, err)
	}
	if err != nil {
		return booking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeCreate, err)
	}
	payment, err := mapPayment(model)
	if err != nil {
		return booking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeInvalid, err)
	}
	return payment, nil
}

func (store *Store) GetPayment(ctx context.Context, paymentID booking.PaymentID) (booking.Payment, error) {
	var model Payment
	err := store.forUpdate(store.db.WithContext(ctx)).
		Where("payment_id = ?", paymentID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return booking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeGet, booking.ErrUnknownPayment)
		}
		return booking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeGet, err)
	}
	payment, err := mapPayment(model)
	if err != nil {
		return booking.Payment{}, wrapStoreError(errorSubjectPayment, errorCodeInvalid, err)
	}
	return payment, nil
}

func (store *Store) ListPaymentsByReservation(ctx context.Context, reservationID booking.ReservationID) ([]booking.Payment, error) {
	query := store.db.WithContext(ctx).Where("reservation_id = ?", reservationID.String())
	return store.findPayments(query)
}

func (store *Store) ListPayments(ctx context.Context, memberID booking.MemberID, filter booking.PaymentFilter) ([]booking.Payment, error) {
	query := store.db.WithContext(ctx).Where("member_id = ?", memberID.String())
	if filter.ReservationID.String() != "" {
		query = query.Where("reservation_id = ?", filter.ReservationID.String())
	}
	switch filter.Kind {
	case booking.InstrumentKindAccount:
		query = query.Where("account_id IS NOT NULL")
	case booking.InstrumentKindCard:
		query = query.Where("card_id IS NOT NULL")
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status.String())
	}
	return store.findPayments(query)
}

func (store *Store) findPayments(query *gorm.DB) ([]booking.Payment, error) {
	var rows []Payment
	if err := query.Order("created_unix, payment_id").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectPayment, errorCodeList, err)
	}
	payments := make([]booking.Payment, 0, len(rows))
	for _, row := range rows {
		payment, err := mapPayment(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectPayment, errorCodeInvalid, err)
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

func (store *Store) UpdatePaymentStatus(ctx context.Context, paymentID booking.PaymentID, from booking.PaymentStatus, to booking.PaymentStatus, atUnixUTC int64) error {
	result := store.db.WithContext(ctx).
		Model(&Payment{}).
		Where("payment_id = ? AND status = ?", paymentID.String(), from.String()).
		Updates(map[string]interface{}{"status": to.String(), "updated_unix": atUnixUTC})
	if result.Error != nil {
		return wrapStoreError(errorSubjectPayment, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := store.db.WithContext(ctx).Model(&Payment{}).Where("payment_id = ?", paymentID.String()).Count(&count).Error; err != nil {
		return wrapStoreError(errorSubjectPayment, errorCodeUpdateStatus, err)
	}
	if count == 0 {
		return wrapStoreError(errorSubjectPayment, errorCodeUpdateStatus, booking.ErrUnknownPayment)
	}
	return wrapStoreError(errorSubjectPayment, errorCodeUpdateStatus, booking.ErrStaleStatus)
}

func (store *Store) AppendPaymentLog(ctx context.Context, draft booking.PaymentLogDraft) (booking.PaymentLogEntry, error) {
	snapshot, err := json.Marshal(draft.Snapshot)
	if err != nil {
		return booking.PaymentLogEntry{}, wrapStoreError(errorSubjectPaymentLog, errorCodeInvalid, err)
	}
	model := PaymentLog{
		PaymentID:    draft.PaymentID.String(),
		BeforeStatus: draft.Before.String(),
		AfterStatus:  draft.After.String(),
		Actor:        draft.Actor.String(),
		Memo:         draft.Memo,
		Snapshot:     datatypes.JSON(snapshot),
		CreatedUnix:  draft.CreatedUnixUTC,
	}
	err = store.db.WithContext(ctx).Create(&model).Error
	if schema.Classify(err) == schema.ViolationPaymentLogTransition {
		return booking.PaymentLogEntry{}, wrapStoreError(errorSubjectPaymentLog, errorCodeDuplicate, booking.ErrDuplicateTransition)
	}
	if err != nil {
		return booking.PaymentLogEntry{}, wrapStoreError(errorSubjectPaymentLog, errorCodeCreate, err)
	}
	entry, err := mapPaymentLog(model)
	if err != nil {
		return booking.PaymentLogEntry{}, wrapStoreError(errorSubjectPaymentLog, errorCodeInvalid, err)
	}
	return entry, nil
}

func (store *Store) ListPaymentLogs(ctx context.Context, paymentID booking.PaymentID) ([]booking.PaymentLogEntry, error) {
	query := store.db.WithContext(ctx).Where("payment_id = ?", paymentID.String())
	return store.findPaymentLogs(query)
}

func (store *Store) ListMemberPaymentLogs(ctx context.Context, memberID booking.MemberID) ([]booking.PaymentLogEntry, error) {
	owned := store.db.WithContext(ctx).
		Model(&Payment{}).
		Select("payment_id").
		Where("member_id = ?", memberID.String())
	query := store.db.WithContext(ctx).Where("payment_id IN (?)", owned)
	return store.findPaymentLogs(query)
}

func (store *Store) findPaymentLogs(query *gorm.DB) ([]booking.PaymentLogEntry, error) {
	var rows []PaymentLog
	if err := query.Order("created_unix, log_id").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectPaymentLog, errorCodeList, err)
	}
	entries := make([]booking.PaymentLogEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := mapPaymentLog(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectPaymentLog, errorCodeInvalid, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func wrapStoreError(subject string, code string, err error) error {
	return booking.WrapError(errorOperationStore, subject, code, err)
}
