package claims

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

const schema = `CREATE OR REPLACE TABLE claims (
	seq          INTEGER NOT NULL,
	id           VARCHAR NOT NULL,
	claimant     VARCHAR NOT NULL,
	village      VARCHAR NOT NULL,
	state        VARCHAR NOT NULL,
	area_ha      DOUBLE NOT NULL,
	status       VARCHAR NOT NULL,
	submitted_at DATE NOT NULL
)`

// where applies a Filter; $1 is the state, $2 the search text.
const where = `WHERE ($1 = '' OR state = $1)
	AND ($2 = '' OR strpos(lower(concat_ws(' ', id, claimant, village, status, state)), lower($2)) > 0)`

// Repository reads and writes claims in DuckDB.
type Repository struct {
	db  *sql.DB
	log *zap.Logger
}

// NewRepository wraps an open database.
func NewRepository(db *sql.DB, log *zap.Logger) *Repository {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{db: db, log: log}
}

// Seed creates the claims table and replaces its rows with claims, keeping
// their order.
func (r *Repository) Seed(ctx context.Context, claims []Claim) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seeding claims: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating claims table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO claims (seq, id, claimant, village, state, area_ha, status, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, CAST(? AS DATE))`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range claims {
		if _, err := stmt.ExecContext(ctx, i, c.ID, c.Claimant, c.Village, c.State, c.AreaHa, string(c.Status), c.SubmittedAt); err != nil {
			return fmt.Errorf("inserting claim %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing claims: %w", err)
	}
	r.log.Info("claims seeded", zap.Int("rows", len(claims)))
	return nil
}

// Filter returns the matching claims in seed order.
func (r *Repository) Filter(ctx context.Context, f Filter) ([]Claim, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, claimant, village, state, area_ha, status, strftime(submitted_at, '%Y-%m-%d')
		 FROM claims `+where+` ORDER BY seq`, f.state(), f.Search)
	if err != nil {
		return nil, fmt.Errorf("filtering claims: %w", err)
	}
	defer rows.Close()

	out := []Claim{}
	for rows.Next() {
		var (
			c      Claim
			status string
		)
		if err := rows.Scan(&c.ID, &c.Claimant, &c.Village, &c.State, &c.AreaHa, &status, &c.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		c.Status = Status(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Totals counts the matching claims by status.
func (r *Repository) Totals(ctx context.Context, f Filter) (Counts, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, count(*) FROM claims `+where+` GROUP BY status`, f.state(), f.Search)
	if err != nil {
		return Counts{}, fmt.Errorf("totaling claims: %w", err)
	}
	defer rows.Close()

	var c Counts
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return Counts{}, fmt.Errorf("scanning totals: %w", err)
		}
		c.add(Status(status), n)
	}
	return c, rows.Err()
}

// StatsByState tallies the matching claims per state and status. Every focus
// state is present, in display order, even with no claims.
func (r *Repository) StatsByState(ctx context.Context, f Filter) ([]StateStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT state, status, count(*) FROM claims `+where+` GROUP BY state, status`, f.state(), f.Search)
	if err != nil {
		return nil, fmt.Errorf("claim stats: %w", err)
	}
	defer rows.Close()

	byState := make(map[string]*Counts, len(States))
	for rows.Next() {
		var (
			state, status string
			n             int
		)
		if err := rows.Scan(&state, &status, &n); err != nil {
			return nil, fmt.Errorf("scanning stats: %w", err)
		}
		c, ok := byState[state]
		if !ok {
			c = &Counts{}
			byState[state] = c
		}
		c.add(Status(status), n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]StateStats, 0, len(States))
	for _, s := range States {
		st := StateStats{State: s}
		if c, ok := byState[s]; ok {
			st.Counts = *c
		}
		out = append(out, st)
	}
	return out, nil
}
