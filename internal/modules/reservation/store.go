// README: Reservation store backed by PostgreSQL. Transitions are a single
// guarded UPDATE on (status, version).
package reservation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"roam/internal/modules/deposit"
)

type PGStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

const reservationColumns = `
	id, vehicle_id, renter_user_id, owner_user_id, status,
	start_date, end_date, created_at, updated_at, version,
	total_amount, commission_amount, owner_payout, deposit_amount, currency,
	payment_status, deposit_status, deposit_hold_ref, deposit_retained,
	accepted_at, cancelled_by, refund_percent, refund_amount, penalty_amount,
	cancellation_reason`

func (s *PGStore) Create(ctx context.Context, r *Reservation) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO reservations (
			id, vehicle_id, renter_user_id, owner_user_id, status,
			start_date, end_date, created_at, updated_at, version,
			total_amount, commission_amount, owner_payout, deposit_amount, currency,
			payment_status, deposit_status
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17
		)`,
		r.ID, r.VehicleID, r.RenterUserID, r.OwnerUserID, string(r.Status),
		r.StartDate, r.EndDate, r.CreatedAt, r.UpdatedAt, r.Version,
		r.TotalAmount, r.CommissionAmount, r.OwnerPayout, r.DepositAmount, r.Currency,
		string(r.PaymentStatus), string(r.DepositStatus),
	)
	return err
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	return err
}

func (s *PGStore) Get(ctx context.Context, id string) (*Reservation, error) {
	r, err := scanReservation(s.db.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *PGStore) UpdateStatus(ctx context.Context, id string, from, to Status, version int, patch Patch) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE reservations
		SET status = $2,
		    version = version + 1,
		    updated_at = NOW(),
		    payment_status = COALESCE($5, payment_status),
		    deposit_status = COALESCE($6, deposit_status),
		    deposit_hold_ref = COALESCE($7, deposit_hold_ref),
		    deposit_retained = COALESCE($8, deposit_retained),
		    accepted_at = COALESCE($9, accepted_at),
		    cancelled_by = COALESCE($10, cancelled_by),
		    refund_percent = COALESCE($11, refund_percent),
		    refund_amount = COALESCE($12, refund_amount),
		    penalty_amount = COALESCE($13, penalty_amount),
		    cancellation_reason = COALESCE($14, cancellation_reason)
		WHERE id = $1 AND status = $3 AND version = $4`,
		id, string(to), string(from), version,
		(*string)(patch.PaymentStatus),
		(*string)(patch.DepositStatus),
		patch.DepositHoldRef,
		patch.DepositRetained,
		patch.AcceptedAt,
		patch.CancelledBy,
		patch.RefundPercent,
		patch.RefundAmount,
		patch.PenaltyAmount,
		patch.CancellationReason,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) ApplyPatch(ctx context.Context, id string, version int, patch Patch) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE reservations
		SET version = version + 1,
		    updated_at = NOW(),
		    payment_status = COALESCE($3, payment_status),
		    deposit_status = COALESCE($4, deposit_status),
		    deposit_hold_ref = COALESCE($5, deposit_hold_ref),
		    deposit_retained = COALESCE($6, deposit_retained)
		WHERE id = $1 AND version = $2`,
		id, version,
		(*string)(patch.PaymentStatus),
		(*string)(patch.DepositStatus),
		patch.DepositHoldRef,
		patch.DepositRetained,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PGStore) HasActiveForRenterVehicle(ctx context.Context, renterID, vehicleID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE renter_user_id = $1 AND vehicle_id = $2
			  AND status NOT IN ('completed','rejected','cancelled')
		)`, renterID, vehicleID,
	).Scan(&exists)
	return exists, err
}

func (s *PGStore) RecentlyTerminated(ctx context.Context, renterID, vehicleID string, since time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE renter_user_id = $1 AND vehicle_id = $2
			  AND status IN ('rejected','cancelled')
			  AND updated_at > $3
		)`, renterID, vehicleID, since,
	).Scan(&exists)
	return exists, err
}

func (s *PGStore) ListAcceptedUnpaidBefore(ctx context.Context, cutoff time.Time) ([]*Reservation, error) {
	return s.list(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE status = 'accepted_pending_payment' AND accepted_at < $1`, cutoff)
}

func (s *PGStore) ListInProgressEndedBefore(ctx context.Context, cutoff time.Time) ([]*Reservation, error) {
	return s.list(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE status = 'in_progress' AND end_date <= $1`, cutoff)
}

func (s *PGStore) list(ctx context.Context, query string, args ...any) ([]*Reservation, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanReservation(row pgx.Row) (*Reservation, error) {
	var r Reservation
	var status, paymentStatus, depositStatus string
	var holdRef, cancelledBy, reason sql.NullString
	var retained, refundAmount, penaltyAmount sql.NullInt64
	var refundPercent sql.NullFloat64
	var acceptedAt sql.NullTime

	err := row.Scan(
		&r.ID, &r.VehicleID, &r.RenterUserID, &r.OwnerUserID, &status,
		&r.StartDate, &r.EndDate, &r.CreatedAt, &r.UpdatedAt, &r.Version,
		&r.TotalAmount, &r.CommissionAmount, &r.OwnerPayout, &r.DepositAmount, &r.Currency,
		&paymentStatus, &depositStatus, &holdRef, &retained,
		&acceptedAt, &cancelledBy, &refundPercent, &refundAmount, &penaltyAmount,
		&reason,
	)
	if err != nil {
		return nil, err
	}
	r.Status = Status(status)
	r.PaymentStatus = PaymentStatus(paymentStatus)
	r.DepositStatus = deposit.State(depositStatus)
	if holdRef.Valid {
		r.DepositHoldRef = &holdRef.String
	}
	if retained.Valid {
		r.DepositRetained = &retained.Int64
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		r.AcceptedAt = &t
	}
	if cancelledBy.Valid {
		r.CancelledBy = &cancelledBy.String
	}
	if refundPercent.Valid {
		r.RefundPercent = &refundPercent.Float64
	}
	if refundAmount.Valid {
		r.RefundAmount = &refundAmount.Int64
	}
	if penaltyAmount.Valid {
		r.PenaltyAmount = &penaltyAmount.Int64
	}
	if reason.Valid {
		r.CancellationReason = &reason.String
	}
	return &r, nil
}
