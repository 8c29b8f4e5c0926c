package pgstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/MarkoPoloResearchLab/booking/internal/store/schema"
	"github.com/MarkoPoloResearchLab/booking/pkg/booking"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const databaseURLEnv = "BOOKING_TEST_DATABASE_URL"

func TestWithTxJoinsOuterTransaction(test *testing.T) {
	test.Parallel()
	store := &Store{inTx: true}
	calls := 0
	err := store.WithTx(context.Background(), func(ctx context.Context, txStore booking.Store) error {
		calls++
		if txStore != booking.Store(store) {
			test.Fatalf("expected the same transactional store")
		}
		return nil
	})
	if err != nil || calls != 1 {
		test.Fatalf("expected one call, got %d %v", calls, err)
	}
}

func TestTranslatePrimaryError(test *testing.T) {
	test.Parallel()
	foreignKey := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23503", ConstraintName: schema.ConstraintPrimaryInstrumentRef})
	if err := translatePrimaryError(foreignKey); !errors.Is(err, booking.ErrInstrumentKindMismatch) {
		test.Fatalf("expected kind mismatch, got %v", err)
	}
	other := errors.New("connection reset")
	if err := translatePrimaryError(other); err != other {
		test.Fatalf("expected passthrough, got %v", err)
	}
	if translatePrimaryError(nil) != nil {
		test.Fatalf("expected nil passthrough")
	}
}

// TestStoreAgainstPostgres runs only when a scratch database is provided.
func TestStoreAgainstPostgres(test *testing.T) {
	databaseURL := os.Getenv(databaseURLEnv)
	if databaseURL == "" {
		test.Skipf("%s not set", databaseURLEnv)
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		test.Fatalf("pool: %v", err)
	}
	test.Cleanup(pool.Close)
	store := New(pool)
	if err := store.ApplySchema(ctx); err != nil {
		test.Fatalf("apply schema: %v", err)
	}

	suffix := uuid.NewString()
	member, err := booking.NewMemberID("member-" + suffix)
	if err != nil {
		test.Fatalf("member: %v", err)
	}
	facilityID, err := booking.NewFacilityID("court-" + suffix)
	if err != nil {
		test.Fatalf("facility id: %v", err)
	}
	facility, err := booking.NewFacility(facilityID, "Court", 50000, nil)
	if err != nil {
		test.Fatalf("facility: %v", err)
	}
	if err := store.SaveMember(ctx, member, "Member", 1); err != nil {
		test.Fatalf("save member: %v", err)
	}
	if err := store.SaveFacility(ctx, facility); err != nil {
		test.Fatalf("save facility: %v", err)
	}

	day := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	window, err := booking.NewTimeWindow(day.Add(10*time.Hour), day.Add(12*time.Hour))
	if err != nil {
		test.Fatalf("window: %v", err)
	}
	headcount, err := booking.NewHeadcount(2)
	if err != nil {
		test.Fatalf("headcount: %v", err)
	}
	draft := booking.ReservationDraft{
		MemberID:       member,
		FacilityID:     facilityID,
		RequestedDate:  booking.RequestedDateOf(window.Start()),
		Window:         window,
		Headcount:      headcount,
		CreatedUnixUTC: 1,
	}
	reservation, err := store.CreateReservation(ctx, draft)
	if err != nil {
		test.Fatalf("create reservation: %v", err)
	}
	if _, err := store.CreateReservation(ctx, draft); !errors.Is(err, booking.ErrReservationOverlap) {
		test.Fatalf("expected exclusion constraint, got %v", err)
	}

	details, err := booking.NewInstrumentDetails("Issuer", uuid.NewString(), "")
	if err != nil {
		test.Fatalf("details: %v", err)
	}
	card, err := store.CreateInstrument(ctx, booking.InstrumentDraft{MemberID: member, Kind: booking.InstrumentKindCard, Details: details, CreatedUnixUTC: 1})
	if err != nil {
		test.Fatalf("create instrument: %v", err)
	}
	if claimed, err := store.ClaimPrimaryIfVacant(ctx, member, booking.InstrumentKindCard, card.ID, 1); err != nil || !claimed {
		test.Fatalf("expected claim, got %v %v", claimed, err)
	}
	if err := store.DeleteInstrument(ctx, card.ID); !errors.Is(err, booking.ErrPrimaryInstrument) {
		test.Fatalf("expected primary restriction, got %v", err)
	}

	ref, err := booking.NewInstrumentRef("", card.ID.String())
	if err != nil {
		test.Fatalf("ref: %v", err)
	}
	paymentDraft := booking.PaymentDraft{ReservationID: reservation.ID, MemberID: member, Instrument: ref, Amount: 100000, CreatedUnixUTC: 1}
	payment, err := store.CreatePayment(ctx, paymentDraft)
	if err != nil {
		test.Fatalf("create payment: %v", err)
	}
	if _, err := store.CreatePayment(ctx, paymentDraft); !errors.Is(err, booking.ErrReservationAlreadyPaid) {
		test.Fatalf("expected open payment guard, got %v", err)
	}
	err = store.WithTx(ctx, func(ctx context.Context, txStore booking.Store) error {
		if err := txStore.UpdatePaymentStatus(ctx, payment.ID, booking.PaymentStatusReserved, booking.PaymentStatusCompleted, 2); err != nil {
			return err
		}
		actor, err := booking.NewActor("admin")
		if err != nil {
			return err
		}
		_, err = txStore.AppendPaymentLog(ctx, booking.PaymentLogDraft{
			PaymentID:      payment.ID,
			Before:         booking.PaymentStatusReserved,
			After:          booking.PaymentStatusCompleted,
			Actor:          actor,
			Snapshot:       booking.PaymentSnapshot{ReservationID: reservation.ID.String(), Amount: payment.Amount, InstrumentKind: booking.InstrumentKindCard, InstrumentID: card.ID.String()},
			CreatedUnixUTC: 2,
		})
		return err
	})
	if err != nil {
		test.Fatalf("transition: %v", err)
	}
	logs, err := store.ListPaymentLogs(ctx, payment.ID)
	if err != nil || len(logs) != 1 || logs[0].Snapshot.InstrumentID != card.ID.String() {
		test.Fatalf("unexpected logs %+v %v", logs, err)
	}

	reservations, err := store.ListReservations(ctx, member, facilityID)
	if err != nil || len(reservations) != 1 || reservations[0].ID != reservation.ID {
		test.Fatalf("unexpected reservations %+v %v", reservations, err)
	}
	payments, err := store.ListPayments(ctx, member, booking.PaymentFilter{Kind: booking.InstrumentKindCard, Status: booking.PaymentStatusCompleted})
	if err != nil || len(payments) != 1 || payments[0].ID != payment.ID {
		test.Fatalf("unexpected payments %+v %v", payments, err)
	}
	payments, err = store.ListPayments(ctx, member, booking.PaymentFilter{Kind: booking.InstrumentKindAccount})
	if err != nil || len(payments) != 0 {
		test.Fatalf("expected no account payments, got %+v %v", payments, err)
	}
	memberLogs, err := store.ListMemberPaymentLogs(ctx, member)
	if err != nil || len(memberLogs) != 1 || memberLogs[0].PaymentID != payment.ID {
		test.Fatalf("unexpected member logs %+v %v", memberLogs, err)
	}
}
