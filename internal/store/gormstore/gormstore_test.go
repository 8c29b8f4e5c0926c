package gormstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/booking/pkg/booking"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testMember      = "member-alice"
	testOtherMember = "member-bob"
	testFacility    = "court-1"
	testNowUnix     = int64(1_700_000_000)
)

var bookingDay = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

func newTestStore(test *testing.T) (*Store, *gorm.DB) {
	test.Helper()
	dsn := filepath.Join(test.TempDir(), "booking.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		test.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		test.Fatalf("sql db: %v", err)
	}
	test.Cleanup(func() { _ = sqlDB.Close() })

	store := New(db)
	ctx := context.Background()
	if err := store.ApplySchema(ctx); err != nil {
		test.Fatalf("apply schema: %v", err)
	}
	if err := store.ApplySchema(ctx); err != nil {
		test.Fatalf("schema must be idempotent: %v", err)
	}
	for _, rawMember := range []string{testMember, testOtherMember} {
		if err := store.SaveMember(ctx, mustMemberID(test, rawMember), rawMember, testNowUnix); err != nil {
			test.Fatalf("save member: %v", err)
		}
	}
	facility, err := booking.NewFacility(mustFacilityID(test, testFacility), "Court", 50000, nil)
	if err != nil {
		test.Fatalf("facility: %v", err)
	}
	if err := store.SaveFacility(ctx, facility); err != nil {
		test.Fatalf("save facility: %v", err)
	}
	return store, db
}

func TestGetFacilityMapsHoursAndHidesRetiredFacilities(test *testing.T) {
	test.Parallel()
	store, db := newTestStore(test)
	ctx := context.Background()

	hours, err := booking.NewOperatingHours(6*60, 22*60)
	if err != nil {
		test.Fatalf("hours: %v", err)
	}
	studio, err := booking.NewFacility(mustFacilityID(test, "studio"), "Studio", 1000, &hours)
	if err != nil {
		test.Fatalf("facility: %v", err)
	}
	if err := store.SaveFacility(ctx, studio); err != nil {
		test.Fatalf("save facility: %v", err)
	}
	loaded, err := store.GetFacility(ctx, studio.ID)
	if err != nil {
		test.Fatalf("get facility: %v", err)
	}
	if loaded.HourlyRate != 1000 || loaded.Hours == nil || loaded.Hours.OpensMinute() != 360 || loaded.Hours.ClosesMinute() != 1320 {
		test.Fatalf("unexpected facility %+v", loaded)
	}

	if err := db.Model(&Facility{}).Where("facility_id = ?", "studio").Update("in_use", false).Error; err != nil {
		test.Fatalf("retire facility: %v", err)
	}
	if _, err := store.GetFacility(ctx, studio.ID); !errors.Is(err, booking.ErrUnknownFacility) {
		test.Fatalf("expected unknown facility, got %v", err)
	}
	exists, err := store.MemberExists(ctx, mustMemberID(test, "member-nobody"))
	if err != nil || exists {
		test.Fatalf("expected missing member, got %v %v", exists, err)
	}
}

func TestReservationOverlapGuard(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	ctx := context.Background()

	first, err := store.CreateReservation(ctx, reservationDraft(test, testMember, 10, 12))
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	if first.Status != booking.ReservationStatusPending || first.ID.String() == "" {
		test.Fatalf("unexpected reservation %+v", first)
	}
	if _, err := store.CreateReservation(ctx, reservationDraft(test, testOtherMember, 11, 13)); !errors.Is(err, booking.ErrReservationOverlap) {
		test.Fatalf("expected overlap, got %v", err)
	}
	if _, err := store.CreateReservation(ctx, reservationDraft(test, testOtherMember, 12, 13)); err != nil {
		test.Fatalf("adjacent window must be accepted: %v", err)
	}
	overlaps, err := store.HasOverlappingReservation(ctx, first.FacilityID, mustWindow(test, 9, 11))
	if err != nil || !overlaps {
		test.Fatalf("expected overlap report, got %v %v", overlaps, err)
	}

	if err := store.UpdateReservationStatus(ctx, first.ID, booking.ReservationStatusPending, booking.ReservationStatusCancelled, testNowUnix); err != nil {
		test.Fatalf("cancel: %v", err)
	}
	if _, err := store.CreateReservation(ctx, reservationDraft(test, testOtherMember, 10, 12)); err != nil {
		test.Fatalf("cancelled reservations must not block: %v", err)
	}
}

func TestReservationStatusAndCancellationFlag(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	ctx := context.Background()

	reservation, err := store.CreateReservation(ctx, reservationDraft(test, testMember, 8, 9))
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	changed, err := store.MarkCancellationRequested(ctx, reservation.ID, "rain", testNowUnix+1)
	if err != nil || !changed {
		test.Fatalf("expected first mark to apply, got %v %v", changed, err)
	}
	changed, err = store.MarkCancellationRequested(ctx, reservation.ID, "again", testNowUnix+2)
	if err != nil || changed {
		test.Fatalf("expected second mark to be a no-op, got %v %v", changed, err)
	}
	loaded, err := store.GetReservation(ctx, reservation.ID)
	if err != nil {
		test.Fatalf("get reservation: %v", err)
	}
	if !loaded.CancelRequested || loaded.CancelReason != "rain" || loaded.UpdatedUnixUTC != testNowUnix+1 {
		test.Fatalf("unexpected reservation %+v", loaded)
	}

	if err := store.UpdateReservationStatus(ctx, reservation.ID, booking.ReservationStatusConfirmed, booking.ReservationStatusCancelled, testNowUnix); !errors.Is(err, booking.ErrStaleStatus) {
		test.Fatalf("expected stale status, got %v", err)
	}
	missing := mustReservationID(test, "missing")
	if _, err := store.MarkCancellationRequested(ctx, missing, "", testNowUnix); !errors.Is(err, booking.ErrUnknownReservation) {
		test.Fatalf("expected unknown reservation, got %v", err)
	}
	if err := store.UpdateReservationStatus(ctx, missing, booking.ReservationStatusPending, booking.ReservationStatusConfirmed, testNowUnix); !errors.Is(err, booking.ErrUnknownReservation) {
		test.Fatalf("expected unknown reservation, got %v", err)
	}
	if _, err := store.GetReservation(ctx, missing); !errors.Is(err, booking.ErrUnknownReservation) {
		test.Fatalf("expected unknown reservation, got %v", err)
	}
}

func TestInstrumentNumberIsUniquePerKind(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	ctx := context.Background()

	if _, err := store.CreateInstrument(ctx, instrumentDraft(test, testMember, booking.InstrumentKindCard, "4111-1111")); err != nil {
		test.Fatalf("create instrument: %v", err)
	}
	if _, err := store.CreateInstrument(ctx, instrumentDraft(test, testOtherMember, booking.InstrumentKindCard, "4111 1111")); !errors.Is(err, booking.ErrInstrumentNumberTaken) {
		test.Fatalf("expected number taken, got %v", err)
	}
	if _, err := store.CreateInstrument(ctx, instrumentDraft(test, testOtherMember, booking.InstrumentKindAccount, "41111111")); err != nil {
		test.Fatalf("same number of another kind must be accepted: %v", err)
	}
}

func TestPrimaryPointer(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	ctx := context.Background()
	member := mustMemberID(test, testMember)

	first, err := store.CreateInstrument(ctx, instrumentDraft(test, testMember, booking.InstrumentKindCard, "1000"))
	if err != nil {
		test.Fatalf("create first: %v", err)
	}
	second, err := store.CreateInstrument(ctx, instrumentDraft(test, testMember, booking.InstrumentKindCard, "2000"))
	if err != nil {
		test.Fatalf("create second: %v", err)
	}
	account, err := store.CreateInstrument(ctx, instrumentDraft(test, testMember, booking.InstrumentKindAccount, "3000"))
	if err != nil {
		test.Fatalf("create account: %v", err)
	}

	claimed, err := store.ClaimPrimaryIfVacant(ctx, member, booking.InstrumentKindCard, first.ID, testNowUnix)
	if err != nil || !claimed {
		test.Fatalf("expected vacant claim, got %v %v", claimed, err)
	}
	claimed, err = store.ClaimPrimaryIfVacant(ctx, member, booking.InstrumentKindCard, second.ID, testNowUnix)
	if err != nil || claimed {
		test.Fatalf("expected occupied claim to be skipped, got %v %v", claimed, err)
	}
	if err := store.SetPrimaryInstrument(ctx, member, booking.InstrumentKindCard, second.ID, testNowUnix); err != nil {
		test.Fatalf("set primary: %v", err)
	}

	cards, err := store.ListInstruments(ctx, member, booking.InstrumentKindCard)
	if err != nil {
		test.Fatalf("list cards: %v", err)
	}
	if len(cards) != 2 {
		test.Fatalf("expected two cards, got %d", len(cards))
	}
	for _, card := range cards {
		if card.Primary != (card.ID == second.ID) {
			test.Fatalf("expected only the second card primary, got %+v", cards)
		}
	}
	all, err := store.ListInstruments(ctx, member, "")
	if err != nil || len(all) != 3 {
		test.Fatalf("expected three instruments, got %d %v", len(all), err)
	}
	loaded, err := store.GetInstrument(ctx, account.ID)
	if err != nil || loaded.Primary || loaded.Details.Number() != "3000" {
		test.Fatalf("unexpected account %+v %v", loaded, err)
	}

	if err := store.SetPrimaryInstrument(ctx, member, booking.InstrumentKindCard, account.ID, testNowUnix); !errors.Is(err, booking.ErrInstrumentKindMismatch) {
		test.Fatalf("expected kind mismatch, got %v", err)
	}
	if _, err := store.GetInstrument(ctx, mustInstrumentID(test, "missing")); !errors.Is(err, booking.ErrUnknownInstrument) {
		test.Fatalf("expected unknown instrument, got %v", err)
	}
}

func TestDeleteInstrumentRestrictions(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	ctx := context.Background()
	member := mustMemberID(test, testMember)

	primary, err := store.CreateInstrument(ctx, instrumentDraft(test, testMember, booking.InstrumentKindCard, "1000"))
	if err != nil {
		test.Fatalf("create primary: %v", err)
	}
	used, err := store.CreateInstrument(ctx, instrumentDraft(test, testMember, booking.InstrumentKindCard, "2000"))
	if err != nil {
		test.Fatalf("create used: %v", err)
	}
	spare, err := store.CreateInstrument(ctx, instrumentDraft(test, testMember, booking.InstrumentKindCard, "3000"))
	if err != nil {
		test.Fatalf("create spare: %v", err)
	}
	if _, err := store.ClaimPrimaryIfVacant(ctx, member, booking.InstrumentKindCard, primary.ID, testNowUnix); err != nil {
		test.Fatalf("claim: %v", err)
	}
	reservation, err := store.CreateReservation(ctx, reservationDraft(test, testMember, 10, 11))
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	if _, err := store.CreatePayment(ctx, paymentDraft(test, reservation, used)); err != nil {
		test.Fatalf("create payment: %v", err)
	}

	if err := store.DeleteInstrument(ctx, primary.ID); !errors.Is(err, booking.ErrPrimaryInstrument) {
		test.Fatalf("expected primary restriction, got %v", err)
	}
	if err := store.DeleteInstrument(ctx, used.ID); !errors.Is(err, booking.ErrInstrumentInUse) {
		test.Fatalf("expected in-use restriction, got %v", err)
	}
	primaryAndUsed, err := store.CreateInstrument(ctx, instrumentDraft(test, testMember, booking.InstrumentKindAccount, "4000"))
	if err != nil {
		test.Fatalf("create account: %v", err)
	}
	if _, err := store.ClaimPrimaryIfVacant(ctx, member, booking.InstrumentKindAccount, primaryAndUsed.ID, testNowUnix); err != nil {
		test.Fatalf("claim account: %v", err)
	}
	later, err := store.CreateReservation(ctx, reservationDraft(test, testMember, 12, 13))
	if err != nil {
		test.Fatalf("create later reservation: %v", err)
	}
	if _, err := store.CreatePayment(ctx, paymentDraft(test, later, primaryAndUsed)); err != nil {
		test.Fatalf("create account payment: %v", err)
	}
	if err := store.DeleteInstrument(ctx, primaryAndUsed.ID); !errors.Is(err, booking.ErrPrimaryInstrument) {
		test.Fatalf("expected the primary pointer to be reported first, got %v", err)
	}
	if err := store.DeleteInstrument(ctx, spare.ID); err != nil {
		test.Fatalf("delete spare: %v", err)
	}
	if err := store.DeleteInstrument(ctx, spare.ID); !errors.Is(err, booking.ErrUnknownInstrument) {
		test.Fatalf("expected unknown instrument, got %v", err)
	}
}

func TestOpenPaymentGuardAndStatusUpdates(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	ctx := context.Background()

	card, err := store.CreateInstrument(ctx, instrumentDraft(test, testMember, booking.InstrumentKindCard, "1000"))
	if err != nil {
		test.Fatalf("create card: %v", err)
	}
	reservation, err := store.CreateReservation(ctx, reservationDraft(test, testMember, 10, 11))
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	first, err := store.CreatePayment(ctx, paymentDraft(test, reservation, card))
	if err != nil {
		test.Fatalf("create payment: %v", err)
	}
	if cardID, ok := first.Instrument.CardID(); !ok || cardID != card.ID {
		test.Fatalf("expected card reference, got %+v", first.Instrument)
	}
	if _, err := store.CreatePayment(ctx, paymentDraft(test, reservation, card)); !errors.Is(err, booking.ErrReservationAlreadyPaid) {
		test.Fatalf("expected open payment guard, got %v", err)
	}

	if err := store.UpdatePaymentStatus(ctx, first.ID, booking.PaymentStatusReserved, booking.PaymentStatusCancelled, testNowUnix+5); err != nil {
		test.Fatalf("cancel payment: %v", err)
	}
	if err := store.UpdatePaymentStatus(ctx, first.ID, booking.PaymentStatusReserved, booking.PaymentStatusCompleted, testNowUnix+6); !errors.Is(err, booking.ErrStaleStatus) {
		test.Fatalf("expected stale status, got %v", err)
	}
	if err := store.UpdatePaymentStatus(ctx, mustPaymentID(test, "missing"), booking.PaymentStatusReserved, booking.PaymentStatusCompleted, testNowUnix); !errors.Is(err, booking.ErrUnknownPayment) {
		test.Fatalf("expected unknown payment, got %v", err)
	}
	if _, err := store.CreatePayment(ctx, paymentDraft(test, reservation, card)); err != nil {
		test.Fatalf("cancelled payments must not block a new one: %v", err)
	}
	payments, err := store.ListPaymentsByReservation(ctx, reservation.ID)
	if err != nil || len(payments) != 2 {
		test.Fatalf("expected two payments, got %d %v", len(payments), err)
	}
	loaded, err := store.GetPayment(ctx, first.ID)
	if err != nil || loaded.Status != booking.PaymentStatusCancelled || loaded.UpdatedUnixUTC != testNowUnix+5 {
		test.Fatalf("unexpected payment %+v %v", loaded, err)
	}
}

func TestPaymentLogIsUniquePerTransition(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	ctx := context.Background()

	card, err := store.CreateInstrument(ctx, instrumentDraft(test, testMember, booking.InstrumentKindCard, "1000"))
	if err != nil {
		test.Fatalf("create card: %v", err)
	}
	reservation, err := store.CreateReservation(ctx, reservationDraft(test, testMember, 10, 11))
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	payment, err := store.CreatePayment(ctx, paymentDraft(test, reservation, card))
	if err != nil {
		test.Fatalf("create payment: %v", err)
	}
	actor, err := booking.NewActor("admin-1")
	if err != nil {
		test.Fatalf("actor: %v", err)
	}
	draft := booking.PaymentLogDraft{
		PaymentID: payment.ID,
		Before:    booking.PaymentStatusReserved,
		After:     booking.PaymentStatusCompleted,
		Actor:     actor,
		Memo:      "settled",
		Snapshot: booking.PaymentSnapshot{
			ReservationID:  reservation.ID.String(),
			Amount:         payment.Amount,
			InstrumentKind: booking.InstrumentKindCard,
			InstrumentID:   card.ID.String(),
		},
		CreatedUnixUTC: testNowUnix,
	}
	entry, err := store.AppendPaymentLog(ctx, draft)
	if err != nil {
		test.Fatalf("append log: %v", err)
	}
	if entry.ID == "" || entry.Snapshot != draft.Snapshot {
		test.Fatalf("unexpected entry %+v", entry)
	}
	if _, err := store.AppendPaymentLog(ctx, draft); !errors.Is(err, booking.ErrDuplicateTransition) {
		test.Fatalf("expected duplicate transition, got %v", err)
	}
	entries, err := store.ListPaymentLogs(ctx, payment.ID)
	if err != nil || len(entries) != 1 || entries[0].Memo != "settled" || entries[0].Actor.String() != "admin-1" {
		test.Fatalf("unexpected entries %+v %v", entries, err)
	}
}

func TestMemberScopedLists(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	ctx := context.Background()

	aliceCard, err := store.CreateInstrument(ctx, instrumentDraft(test, testMember, booking.InstrumentKindCard, "1000"))
	if err != nil {
		test.Fatalf("create card: %v", err)
	}
	aliceAccount, err := store.CreateInstrument(ctx, instrumentDraft(test, testMember, booking.InstrumentKindAccount, "2000"))
	if err != nil {
		test.Fatalf("create account: %v", err)
	}
	bobCard, err := store.CreateInstrument(ctx, instrumentDraft(test, testOtherMember, booking.InstrumentKindCard, "3000"))
	if err != nil {
		test.Fatalf("create card: %v", err)
	}
	late, err := store.CreateReservation(ctx, reservationDraft(test, testMember, 14, 15))
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	early, err := store.CreateReservation(ctx, reservationDraft(test, testMember, 8, 9))
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	bobs, err := store.CreateReservation(ctx, reservationDraft(test, testOtherMember, 10, 11))
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	cardPayment, err := store.CreatePayment(ctx, paymentDraft(test, early, aliceCard))
	if err != nil {
		test.Fatalf("create payment: %v", err)
	}
	accountDraft := paymentDraft(test, late, aliceAccount)
	accountDraft.CreatedUnixUTC = testNowUnix + 10
	accountPayment, err := store.CreatePayment(ctx, accountDraft)
	if err != nil {
		test.Fatalf("create payment: %v", err)
	}
	bobPayment, err := store.CreatePayment(ctx, paymentDraft(test, bobs, bobCard))
	if err != nil {
		test.Fatalf("create payment: %v", err)
	}
	if err := store.UpdatePaymentStatus(ctx, cardPayment.ID, booking.PaymentStatusReserved, booking.PaymentStatusCompleted, testNowUnix+1); err != nil {
		test.Fatalf("complete payment: %v", err)
	}
	actor, err := booking.NewActor("admin-1")
	if err != nil {
		test.Fatalf("actor: %v", err)
	}
	for _, payment := range []booking.Payment{cardPayment, bobPayment} {
		_, err := store.AppendPaymentLog(ctx, booking.PaymentLogDraft{
			PaymentID:      payment.ID,
			Before:         booking.PaymentStatusReserved,
			After:          booking.PaymentStatusCompleted,
			Actor:          actor,
			CreatedUnixUTC: testNowUnix,
		})
		if err != nil {
			test.Fatalf("append log: %v", err)
		}
	}

	alice := mustMemberID(test, testMember)
	reservations, err := store.ListReservations(ctx, alice, booking.FacilityID{})
	if err != nil || len(reservations) != 2 || reservations[0].ID != early.ID || reservations[1].ID != late.ID {
		test.Fatalf("expected alice's reservations by start, got %+v %v", reservations, err)
	}
	reservations, err = store.ListReservations(ctx, alice, mustFacilityID(test, "pool-9"))
	if err != nil || len(reservations) != 0 {
		test.Fatalf("expected no reservations for another facility, got %+v %v", reservations, err)
	}

	testCases := []struct {
		name     string
		filter   booking.PaymentFilter
		expected []booking.PaymentID
	}{
		{name: "all", expected: []booking.PaymentID{cardPayment.ID, accountPayment.ID}},
		{name: "by reservation", filter: booking.PaymentFilter{ReservationID: late.ID}, expected: []booking.PaymentID{accountPayment.ID}},
		{name: "other member's reservation", filter: booking.PaymentFilter{ReservationID: bobs.ID}},
		{name: "cards", filter: booking.PaymentFilter{Kind: booking.InstrumentKindCard}, expected: []booking.PaymentID{cardPayment.ID}},
		{name: "accounts", filter: booking.PaymentFilter{Kind: booking.InstrumentKindAccount}, expected: []booking.PaymentID{accountPayment.ID}},
		{name: "completed", filter: booking.PaymentFilter{Status: booking.PaymentStatusCompleted}, expected: []booking.PaymentID{cardPayment.ID}},
		{name: "completed accounts", filter: booking.PaymentFilter{Kind: booking.InstrumentKindAccount, Status: booking.PaymentStatusCompleted}},
	}
	for _, testCase := range testCases {
		payments, err := store.ListPayments(ctx, alice, testCase.filter)
		if err != nil {
			test.Fatalf("%s: list payments: %v", testCase.name, err)
		}
		if len(payments) != len(testCase.expected) {
			test.Fatalf("%s: expected %d payments, got %+v", testCase.name, len(testCase.expected), payments)
		}
		for index, payment := range payments {
			if payment.ID != testCase.expected[index] || payment.MemberID != alice {
				test.Fatalf("%s: unexpected payment %+v", testCase.name, payment)
			}
		}
	}

	entries, err := store.ListMemberPaymentLogs(ctx, alice)
	if err != nil || len(entries) != 1 || entries[0].PaymentID != cardPayment.ID {
		test.Fatalf("expected only alice's log, got %+v %v", entries, err)
	}
}

func TestWithTxRollsBackOnError(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	ctx := context.Background()
	failure := errors.New("abort")

	var created booking.Reservation
	err := store.WithTx(ctx, func(ctx context.Context, txStore booking.Store) error {
		reservation, err := txStore.CreateReservation(ctx, reservationDraft(test, testMember, 10, 11))
		if err != nil {
			return err
		}
		created = reservation
		return failure
	})
	if !errors.Is(err, failure) {
		test.Fatalf("expected abort, got %v", err)
	}
	if _, err := store.GetReservation(ctx, created.ID); !errors.Is(err, booking.ErrUnknownReservation) {
		test.Fatalf("expected rolled back reservation, got %v", err)
	}
}

func TestServiceLifecycleOnSQLite(test *testing.T) {
	test.Parallel()
	store, _ := newTestStore(test)
	ctx := context.Background()
	service, err := booking.NewService(store, store, store, func() int64 { return testNowUnix })
	if err != nil {
		test.Fatalf("service: %v", err)
	}
	member := mustMemberID(test, testMember)

	headcount, err := booking.NewHeadcount(4)
	if err != nil {
		test.Fatalf("headcount: %v", err)
	}
	reservation, err := service.CreateReservation(ctx, booking.ReservationRequest{
		MemberID:   member,
		FacilityID: mustFacilityID(test, testFacility),
		Window:     mustWindow(test, 18, 20),
		Headcount:  headcount,
	})
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	if reservation.RequestedDate.String() != "2024-03-04" {
		test.Fatalf("expected requested date default, got %q", reservation.RequestedDate.String())
	}
	details, err := booking.NewInstrumentDetails("Bank", "110-222", "")
	if err != nil {
		test.Fatalf("details: %v", err)
	}
	account, err := service.RegisterInstrument(ctx, booking.InstrumentRequest{MemberID: member, Kind: booking.InstrumentKindAccount, Details: details})
	if err != nil {
		test.Fatalf("register instrument: %v", err)
	}
	if !account.Primary {
		test.Fatalf("first instrument must become primary")
	}
	ref, err := booking.NewInstrumentRef(account.ID.String(), "")
	if err != nil {
		test.Fatalf("ref: %v", err)
	}
	payment, err := service.SubmitPayment(ctx, booking.PaymentRequest{MemberID: member, ReservationID: reservation.ID, Instrument: ref})
	if err != nil {
		test.Fatalf("submit payment: %v", err)
	}
	if payment.Amount != 100000 {
		test.Fatalf("expected two hours at 50000, got %d", payment.Amount)
	}
	actor, err := booking.NewActor("admin-1")
	if err != nil {
		test.Fatalf("actor: %v", err)
	}
	result, err := service.TransitionPayment(ctx, booking.TransitionRequest{PaymentID: payment.ID, Status: booking.PaymentStatusCompleted, Actor: actor})
	if err != nil {
		test.Fatalf("complete payment: %v", err)
	}
	if result.Outcome != booking.OutcomeApplied || result.ReservationStatus != booking.ReservationStatusConfirmed {
		test.Fatalf("unexpected result %+v", result)
	}
	replay, err := service.TransitionPayment(ctx, booking.TransitionRequest{PaymentID: payment.ID, Status: booking.PaymentStatusCompleted, Actor: actor})
	if err != nil || replay.Outcome != booking.OutcomeNoOp {
		test.Fatalf("expected no-op replay, got %+v %v", replay, err)
	}
	logs, err := service.ListPaymentLogs(ctx, payment.ID, member)
	if err != nil || len(logs) != 1 {
		test.Fatalf("expected one log entry, got %d %v", len(logs), err)
	}
	if err := service.DeleteInstrument(ctx, account.ID, member); !errors.Is(err, booking.ErrPrimaryInstrument) {
		test.Fatalf("expected primary restriction, got %v", err)
	}
}

func reservationDraft(test *testing.T, rawMember string, startHour int, endHour int) booking.ReservationDraft {
	test.Helper()
	window := mustWindow(test, startHour, endHour)
	headcount, err := booking.NewHeadcount(2)
	if err != nil {
		test.Fatalf("headcount: %v", err)
	}
	return booking.ReservationDraft{
		MemberID:       mustMemberID(test, rawMember),
		FacilityID:     mustFacilityID(test, testFacility),
		RequestedDate:  booking.RequestedDateOf(window.Start()),
		Window:         window,
		Headcount:      headcount,
		CreatedUnixUTC: testNowUnix,
	}
}

func instrumentDraft(test *testing.T, rawMember string, kind booking.InstrumentKind, number string) booking.InstrumentDraft {
	test.Helper()
	details, err := booking.NewInstrumentDetails("Issuer", number, "")
	if err != nil {
		test.Fatalf("details: %v", err)
	}
	return booking.InstrumentDraft{
		MemberID:       mustMemberID(test, rawMember),
		Kind:           kind,
		Details:        details,
		CreatedUnixUTC: testNowUnix,
	}
}

func paymentDraft(test *testing.T, reservation booking.Reservation, instrument booking.Instrument) booking.PaymentDraft {
	test.Helper()
	var (
		ref booking.InstrumentRef
		err error
	)
	if instrument.Kind == booking.InstrumentKindAccount {
		ref, err = booking.NewInstrumentRef(instrument.ID.String(), "")
	} else {
		ref, err = booking.NewInstrumentRef("", instrument.ID.String())
	}
	if err != nil {
		test.Fatalf("ref: %v", err)
	}
	return booking.PaymentDraft{
		ReservationID:  reservation.ID,
		MemberID:       reservation.MemberID,
		Instrument:     ref,
		Amount:         50000,
		CreatedUnixUTC: testNowUnix,
	}
}

func mustWindow(test *testing.T, startHour int, endHour int) booking.TimeWindow {
	test.Helper()
	window, err := booking.NewTimeWindow(bookingDay.Add(time.Duration(startHour)*time.Hour), bookingDay.Add(time.Duration(endHour)*time.Hour))
	if err != nil {
		test.Fatalf("window: %v", err)
	}
	return window
}

func mustMemberID(test *testing.T, raw string) booking.MemberID {
	test.Helper()
	id, err := booking.NewMemberID(raw)
	if err != nil {
		test.Fatalf("member id: %v", err)
	}
	return id
}

func mustFacilityID(test *testing.T, raw string) booking.FacilityID {
	test.Helper()
	id, err := booking.NewFacilityID(raw)
	if err != nil {
		test.Fatalf("facility id: %v", err)
	}
	return id
}

func mustReservationID(test *testing.T, raw string) booking.ReservationID {
	test.Helper()
	id, err := booking.NewReservationID(raw)
	if err != nil {
		test.Fatalf("reservation id: %v", err)
	}
	return id
}

func mustInstrumentID(test *testing.T, raw string) booking.InstrumentID {
	test.Helper()
	id, err := booking.NewInstrumentID(raw)
	if err != nil {
		test.Fatalf("instrument id: %v", err)
	}
	return id
}

func mustPaymentID(test *testing.T, raw string) booking.PaymentID {
	test.Helper()
	id, err := booking.NewPaymentID(raw)
	if err != nil {
		test.Fatalf("payment id: %v", err)
	}
	return id
}
