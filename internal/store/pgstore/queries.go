package pgstore

const (
	reservationColumns = `
		reservation_id, member_id, facility_id, requested_date, starts_at_unix, ends_at_unix,
		headcount, content, status, cancel_requested, coalesce(cancel_reason, ''), created_unix, updated_unix
	`

	paymentColumns = `
		payment_id, reservation_id, member_id, coalesce(account_id, ''), coalesce(card_id, ''),
		amount, status, created_unix, updated_unix
	`

	instrumentColumns = `
		i.instrument_id, i.member_id, i.kind, i.issuer, i.number, i.approval, i.created_unix,
		p.instrument_id is not null
	`

	paymentLogColumns = `
		log_id, payment_id, before_status, after_status, actor, memo, snapshot::text, created_unix
	`

	sqlUpsertMember = `
		insert into members(member_id, display_name, created_unix) values ($1, $2, $3)
		on conflict (member_id) do update set display_name = excluded.display_name
	`

	sqlMemberExists = `select exists(select 1 from members where member_id = $1)`

	sqlUpsertFacility = `
		insert into facilities(facility_id, name, hourly_rate, opens_minute, closes_minute, in_use)
		values ($1, $2, $3, $4, $5, true)
		on conflict (facility_id) do update set
			name = excluded.name,
			hourly_rate = excluded.hourly_rate,
			opens_minute = excluded.opens_minute,
			closes_minute = excluded.closes_minute,
			in_use = true
	`

	sqlSelectFacility = `
		select facility_id, name, hourly_rate, opens_minute, closes_minute
		from facilities
		where facility_id = $1 and in_use
	`

	sqlHasOverlap = `
		select exists(
			select 1 from reservations
			where facility_id = $1 and status <> 'cancelled'
			and starts_at_unix < $3 and ends_at_unix > $2
		)
	`

	sqlInsertReservation = `
		insert into reservations(
			reservation_id, member_id, facility_id, requested_date, starts_at_unix, ends_at_unix,
			headcount, content, status, created_unix, updated_unix
		)
		values ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', $9, $9)
		returning ` + reservationColumns

	sqlSelectReservation = `select ` + reservationColumns + ` from reservations where reservation_id = $1 for update`

	sqlListReservations = `
		select ` + reservationColumns + `
		from reservations
		where member_id = $1 and ($2::text = '' or facility_id = $2::text)
		order by starts_at_unix, reservation_id
	`

	sqlReservationExists = `select exists(select 1 from reservations where reservation_id = $1)`

	sqlMarkCancellationRequested = `
		update reservations
		set cancel_requested = true, cancel_reason = nullif($2, ''), updated_unix = $3
		where reservation_id = $1 and not cancel_requested
	`

	sqlUpdateReservationStatus = `
		update reservations
		set status = $3, updated_unix = $4
		where reservation_id = $1 and status = $2
	`

	sqlInsertInstrument = `
		insert into payment_instruments(instrument_id, member_id, kind, issuer, number, approval, created_unix)
		values ($1, $2, $3, $4, $5, $6, $7)
	`

	sqlSelectInstruments = `
		select ` + instrumentColumns + `
		from payment_instruments i
		left join primary_instruments p
			on p.member_id = i.member_id and p.kind = i.kind and p.instrument_id = i.instrument_id
	`

	sqlSelectInstrument = sqlSelectInstruments + ` where i.instrument_id = $1`

	sqlListInstruments = sqlSelectInstruments + `
		where i.member_id = $1 and ($2 = '' or i.kind = $2)
		order by i.created_unix, i.instrument_id
	`

	sqlClaimPrimary = `
		insert into primary_instruments(member_id, kind, instrument_id, updated_unix)
		values ($1, $2, $3, $4)
		on conflict (member_id, kind) do nothing
	`

	sqlSetPrimary = `
		insert into primary_instruments(member_id, kind, instrument_id, updated_unix)
		values ($1, $2, $3, $4)
		on conflict (member_id, kind) do update set
			instrument_id = excluded.instrument_id,
			updated_unix = excluded.updated_unix
	`

	sqlPrimaryPointerExists = `select exists(select 1 from primary_instruments where instrument_id = $1)`

	sqlDeleteInstrument = `delete from payment_instruments where instrument_id = $1`

	sqlInsertPayment = `
		insert into payments(payment_id, reservation_id, member_id, account_id, card_id, amount, status, created_unix, updated_unix)
		values ($1, $2, $3, nullif($4, ''), nullif($5, ''), $6, 'reserved', $7, $7)
		returning ` + paymentColumns

	sqlSelectPayment = `select ` + paymentColumns + ` from payments where payment_id = $1 for update`

	sqlListPaymentsByReservation = `
		select ` + paymentColumns + `
		from payments
		where reservation_id = $1
		order by created_unix, payment_id
	`

	sqlListPayments = `
		select ` + paymentColumns + `
		from payments
		where member_id = $1
		and ($2::text = '' or reservation_id = $2::text)
		and (
			$3::text = ''
			or ($3::text = 'account' and account_id is not null)
			or ($3::text = 'card' and card_id is not null)
		)
		and ($4::text = '' or status = $4::text)
		order by created_unix, payment_id
	`

	sqlPaymentExists = `select exists(select 1 from payments where payment_id = $1)`

	sqlUpdatePaymentStatus = `
		update payments
		set status = $3, updated_unix = $4
		where payment_id = $1 and status = $2
	`

	sqlInsertPaymentLog = `
		insert into payment_logs(log_id, payment_id, before_status, after_status, actor, memo, snapshot, created_unix)
		values ($1, $2, $3, $4, $5, $6, $7::text::jsonb, $8)
		returning ` + paymentLogColumns

	sqlListPaymentLogs = `
		select ` + paymentLogColumns + `
		from payment_logs
		where payment_id = $1
		order by created_unix, log_id
	`

	sqlListMemberPaymentLogs = `
		select ` + paymentLogColumns + `
		from payment_logs
		where payment_id in (select payment_id from payments where member_id = $1)
		order by created_unix, log_id
	`
)
