package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/lockbox/internal/ledger"
)

// AppendTransition inserts a transition audit record.
// Uses ON CONFLICT(id) DO NOTHING: re-appending the same content-addressed
// record is a silent no-op.
//
// Detail is stored as canonical JSON so VerifyTransitions can recompute
// the ID from exactly what was persisted.
func (s *Store) AppendTransition(ctx context.Context, t ledger.Transition) error {
	detail, err := ledger.MarshalCanonical(t.Detail)
	if err != nil {
		return fmt.Errorf("append transition: marshal detail: %w", err)
	}

	var paymentID any
	if t.PaymentID != nil {
		paymentID = int64(*t.PaymentID)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transitions
		(id, trace_token, op, caller, payment_id, feed_key, tick, seq, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		t.ID,
		t.TraceToken,
		string(t.Op),
		string(t.Caller),
		paymentID,
		t.FeedKey,
		int64(t.Tick),
		t.Seq,
		string(detail),
	)
	if err != nil {
		return fmt.Errorf("append transition %s: %w", t.ID, err)
	}

	return nil
}

// ListTransitions returns the full audit log in deterministic order:
// ORDER BY seq ASC, id ASC. Returns an empty slice, not nil, when the log
// is empty.
func (s *Store) ListTransitions(ctx context.Context) ([]ledger.Transition, error) {
	return s.listTransitions(ctx, `
		SELECT id, trace_token, op, caller, payment_id, feed_key, tick, seq, detail
		FROM transitions
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
}

// ListTransitionsByTrace returns the audit records for one trace token in
// deterministic order.
func (s *Store) ListTransitionsByTrace(ctx context.Context, trace string) ([]ledger.Transition, error) {
	return s.listTransitions(ctx, `
		SELECT id, trace_token, op, caller, payment_id, feed_key, tick, seq, detail
		FROM transitions
		WHERE trace_token = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, trace)
}

func (s *Store) listTransitions(ctx context.Context, query string, args ...any) ([]ledger.Transition, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	transitions := []ledger.Transition{}
	for rows.Next() {
		t, err := scanTransition(rows)
		if err != nil {
			return nil, err
		}
		transitions = append(transitions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}

	return transitions, nil
}

func scanTransition(rows *sql.Rows) (ledger.Transition, error) {
	var (
		t         ledger.Transition
		op        string
		caller    string
		paymentID sql.NullInt64
		tick, seq int64
		detail    string
	)
	if err := rows.Scan(&t.ID, &t.TraceToken, &op, &caller, &paymentID, &t.FeedKey, &tick, &seq, &detail); err != nil {
		return ledger.Transition{}, fmt.Errorf("scan transition: %w", err)
	}

	t.Op = ledger.Op(op)
	t.Caller = ledger.Identity(caller)
	if paymentID.Valid {
		id := uint64(paymentID.Int64)
		t.PaymentID = &id
	}
	t.Tick = uint64(tick)
	t.Seq = seq

	dec := json.NewDecoder(strings.NewReader(detail))
	dec.UseNumber()
	if err := dec.Decode(&t.Detail); err != nil {
		return ledger.Transition{}, fmt.Errorf("decode transition detail: %w", err)
	}
	if err := normalizeDetail(t.Detail); err != nil {
		return ledger.Transition{}, fmt.Errorf("decode transition detail: %w", err)
	}

	return t, nil
}

// normalizeDetail converts json.Number values back to the uint64 the
// detail was written with. Decoding with UseNumber keeps full precision
// for values above 2^53, which float64 would silently round. Detail
// values are non-negative integers by construction (canonical JSON
// forbids floats on the way in).
func normalizeDetail(m map[string]any) error {
	for k, v := range m {
		switch val := v.(type) {
		case json.Number:
			n, err := strconv.ParseUint(val.String(), 10, 64)
			if err != nil {
				return fmt.Errorf("detail %q holds %q: %w", k, val.String(), err)
			}
			m[k] = n
		case map[string]any:
			if err := normalizeDetail(val); err != nil {
				return err
			}
		}
	}
	return nil
}

// LastSeq returns the highest sequence number in the audit log, or 0 when
// the log is empty. Used to resume the machine's sequence counter after a
// restart.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM transitions`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq, nil
}

// VerifyTransitions recomputes every transition's content-addressed ID
// from the stored fields and compares it with the stored ID. Returns the
// number of records checked; any mismatch is an error naming the record.
//
// A passing verification means the audit log has not been altered since
// it was written.
func (s *Store) VerifyTransitions(ctx context.Context) (int, error) {
	transitions, err := s.ListTransitions(ctx)
	if err != nil {
		return 0, err
	}

	for _, t := range transitions {
		expected, err := ledger.TransitionID(t)
		if err != nil {
			return 0, fmt.Errorf("verify transition %s: %w", t.ID, err)
		}
		if expected != t.ID {
			return 0, fmt.Errorf("transition %s fails verification: recomputed %s", t.ID, expected)
		}
	}

	return len(transitions), nil
}
