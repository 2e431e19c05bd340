package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"civicledger/internal/complaint/models"
	"civicledger/pkg/domain"
	"civicledger/pkg/platform/sentinel"
)

// idAllocationLock serialises id assignment so ids stay dense even when a
// submission transaction rolls back. Sequences would leave gaps.
const idAllocationLock = 0x636976696321

const complaintColumns = `id, reporter, description, location, category, urgency, status,
	stake_token, stake_amount::text, stake_locked, proof_reference, created_at, resolved_at`

// Postgres persists the ledger in PostgreSQL. Each transition and its
// settlement row commit in one transaction under a row lock.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, draft models.Draft, now time.Time) (*models.Complaint, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin create", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, idAllocationLock); err != nil {
		return nil, unavailable("lock id allocation", err)
	}
	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), -1) + 1 FROM complaints`).Scan(&next); err != nil {
		return nil, unavailable("allocate id", err)
	}

	c, err := models.NewComplaint(domain.ComplaintID(next), draft, now)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO complaints (id, reporter, description, location, category, urgency, status,
			stake_token, stake_amount, stake_locked, proof_reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::numeric, $10, $11, $12)`,
		int64(c.ID), c.Reporter.String(), c.Description, c.Location, c.Category,
		int16(c.Urgency), int16(c.Status), c.Stake.Token.String(), c.Stake.Amount.String(),
		c.StakeLocked, c.ProofReference, c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert complaint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit create", err)
	}
	return c, nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.ComplaintID) (*models.Complaint, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = $1`, int64(id))
	c, err := scanComplaint(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("complaint %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, unavailable("find complaint", err)
	}
	return c, nil
}

func (s *Postgres) Count(ctx context.Context) (uint64, error) {
	var next int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), -1) + 1 FROM complaints`).Scan(&next); err != nil {
		return 0, unavailable("count complaints", err)
	}
	return uint64(next), nil
}

func (s *Postgres) ListSince(ctx context.Context, cursor domain.ComplaintID, limit int) ([]*models.Complaint, error) {
	if limit <= 0 {
		return []*models.Complaint{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE id < $1 ORDER BY id DESC LIMIT $2`,
		int64(cursor), limit)
	if err != nil {
		return nil, unavailable("list complaints", err)
	}
	defer rows.Close()

	out := make([]*models.Complaint, 0, limit)
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate complaints", err)
	}
	return out, nil
}

func (s *Postgres) ListByReporter(ctx context.Context, reporter domain.Address) ([]domain.ComplaintID, error) {
	var ids pq.Int64Array
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(array_agg(id ORDER BY id), '{}') FROM complaints WHERE reporter = $1`,
		reporter.String()).Scan(&ids)
	if err != nil {
		return nil, unavailable("list reporter complaints", err)
	}
	out := make([]domain.ComplaintID, len(ids))
	for i, id := range ids {
		out[i] = domain.ComplaintID(id)
	}
	return out, nil
}

// Execute locks the row with FOR UPDATE, validates, mutates and writes the
// new state plus any settlement in the same transaction.
func (s *Postgres) Execute(ctx context.Context, id domain.ComplaintID,
	validate func(*models.Complaint) error,
	mutate func(*models.Complaint) *models.Settlement,
) (*models.Complaint, *models.Settlement, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, unavailable("begin execute", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = $1 FOR UPDATE`, int64(id))
	c, err := scanComplaint(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("complaint %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, nil, unavailable("lock complaint", err)
	}

	if err := validate(c); err != nil {
		return nil, nil, err
	}
	settlement := mutate(c)

	_, err = tx.ExecContext(ctx, `
		UPDATE complaints SET status = $2, stake_locked = $3, resolved_at = $4
		WHERE id = $1`,
		int64(c.ID), int16(c.Status), c.StakeLocked, nullTime(c.ResolvedAt))
	if err != nil {
		return nil, nil, fmt.Errorf("update complaint: %w", err)
	}

	if settlement != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO settlements (complaint_id, kind, recipient, token, amount, settled_at)
			VALUES ($1, $2, $3, $4, $5::numeric, $6)`,
			int64(settlement.ComplaintID), string(settlement.Kind), settlement.Recipient.String(),
			settlement.Token.String(), settlement.Amount.String(), settlement.SettledAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return nil, nil, fmt.Errorf("complaint %d already settled: %w", id, sentinel.ErrInvalidState)
			}
			return nil, nil, fmt.Errorf("insert settlement: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, unavailable("commit execute", err)
	}
	return c, settlement, nil
}

func (s *Postgres) Settlement(ctx context.Context, id domain.ComplaintID) (*models.Settlement, error) {
	var (
		kind, recipient, token, amount string
		settledAt                      time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT kind, recipient, token, amount::text, settled_at
		FROM settlements WHERE complaint_id = $1`, int64(id)).
		Scan(&kind, &recipient, &token, &amount, &settledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("settlement %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, unavailable("find settlement", err)
	}
	st := &models.Settlement{ComplaintID: id, Kind: models.SettlementKind(kind), SettledAt: settledAt}
	if st.Recipient, err = domain.ParseAddress(recipient); err != nil {
		return nil, fmt.Errorf("settlement recipient: %w", err)
	}
	if st.Token, err = domain.ParseAddress(token); err != nil {
		return nil, fmt.Errorf("settlement token: %w", err)
	}
	if st.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Postgres) Credited(ctx context.Context, holder, token domain.Address) (*big.Int, error) {
	var sum string
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)::text FROM settlements
		WHERE recipient = $1 AND token = $2`, holder.String(), token.String()).Scan(&sum)
	if err != nil {
		return nil, unavailable("sum credits", err)
	}
	return parseAmount(sum)
}

func (s *Postgres) Custody(ctx context.Context, token domain.Address) (*big.Int, error) {
	var sum string
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(stake_amount), 0)::text FROM complaints
		WHERE stake_locked AND stake_token = $1`, token.String()).Scan(&sum)
	if err != nil {
		return nil, unavailable("sum custody", err)
	}
	return parseAmount(sum)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComplaint(row rowScanner) (*models.Complaint, error) {
	var (
		id                      int64
		reporter, token, amount string
		urgency, status         int16
		resolvedAt              sql.NullTime
		c                       models.Complaint
	)
	err := row.Scan(&id, &reporter, &c.Description, &c.Location, &c.Category, &urgency, &status,
		&token, &amount, &c.StakeLocked, &c.ProofReference, &c.CreatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	c.ID = domain.ComplaintID(id)
	c.Urgency = models.Urgency(urgency)
	c.Status = models.Status(status)
	if c.Reporter, err = domain.ParseAddress(reporter); err != nil {
		return nil, fmt.Errorf("complaint %d reporter: %w", id, err)
	}
	if c.Stake.Token, err = domain.ParseAddress(token); err != nil {
		return nil, fmt.Errorf("complaint %d stake token: %w", id, err)
	}
	if c.Stake.Amount, err = parseAmount(amount); err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		c.ResolvedAt = &t
	}
	return &c, nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid stored amount %q", s)
	}
	return v, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}
