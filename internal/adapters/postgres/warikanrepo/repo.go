package warikanrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/warikan-app/warikan-api/internal/adapters/postgres"
	"github.com/warikan-app/warikan-api/internal/domain"
	"github.com/warikan-app/warikan-api/internal/ports/out/repo"
)

// Repo is a Postgres implementation of repo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

var _ repo.Repository = (*Repo)(nil)

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var errNilPool = errors.New("nil postgres pool")

func (r *Repo) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	if r.pool == nil {
		return domain.User{}, errNilPool
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO users (id, name) VALUES ($1, $2)`, string(u.ID), u.Name)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return domain.User{}, repo.ErrAlreadyExists
		}
		return domain.User{}, err
	}
	return u, nil
}

func (r *Repo) DeleteUser(ctx context.Context, id domain.UserID) error {
	return r.deleteByID(ctx, `DELETE FROM users WHERE id = $1`, string(id))
}

func (r *Repo) GetUser(ctx context.Context, id domain.UserID) (domain.User, bool, error) {
	if r.pool == nil {
		return domain.User{}, false, errNilPool
	}
	var u domain.User
	var uid string
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM users WHERE id = $1`, string(id)).Scan(&uid, &u.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	u.ID = domain.UserID(uid)
	return u, true, nil
}

func (r *Repo) CreateGroup(ctx context.Context, g domain.Group) (domain.Group, error) {
	if r.pool == nil {
		return domain.Group{}, errNilPool
	}
	// TIMESTAMPTZ keeps microseconds; hand back the stored value.
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, `
		INSERT INTO groups (id, created_at, title, participants)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, string(g.ID), g.CreatedAt.UTC(), g.Title, userIDsToStrings(g.Participants)).Scan(&createdAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return domain.Group{}, repo.ErrAlreadyExists
		}
		return domain.Group{}, err
	}
	out := g.Clone()
	out.CreatedAt = createdAt.UTC()
	return out, nil
}

func (r *Repo) DeleteGroup(ctx context.Context, id domain.GroupID) error {
	return r.deleteByID(ctx, `DELETE FROM groups WHERE id = $1`, string(id))
}

const groupColumns = `id, created_at, title, participants`

func (r *Repo) GetGroup(ctx context.Context, id domain.GroupID) (domain.Group, bool, error) {
	if r.pool == nil {
		return domain.Group{}, false, errNilPool
	}
	g, err := scanGroup(r.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Group{}, false, nil
		}
		return domain.Group{}, false, err
	}
	return g, true, nil
}

func (r *Repo) GetGroupsByUser(ctx context.Context, user domain.UserID) ([]domain.Group, error) {
	if r.pool == nil {
		return nil, errNilPool
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+groupColumns+`
		FROM groups
		WHERE participants @> ARRAY[$1]::text[]
		ORDER BY created_at, id
	`, string(user))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Group, 0)
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repo) AddGroupParticipant(ctx context.Context, id domain.GroupID, user domain.UserID) error {
	if r.pool == nil {
		return errNilPool
	}
	var found bool
	err := r.pool.QueryRow(ctx, `
		WITH upd AS (
			UPDATE groups
			SET participants = array_append(participants, $2)
			WHERE id = $1 AND NOT (participants @> ARRAY[$2]::text[])
			RETURNING id
		)
		SELECT EXISTS (SELECT 1 FROM upd) OR EXISTS (SELECT 1 FROM groups WHERE id = $1)
	`, string(id), string(user)).Scan(&found)
	if err != nil {
		return err
	}
	if !found {
		return repo.ErrNotFound
	}
	return nil
}

func (r *Repo) CreatePayment(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	if r.pool == nil {
		return domain.Payment{}, errNilPool
	}
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, `
		INSERT INTO payments (id, created_at, title, group_id, creditor, debtors)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, string(p.ID), p.CreatedAt.UTC(), p.Title, string(p.Group), string(p.Creditor), userIDsToStrings(p.Debtors)).Scan(&createdAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return domain.Payment{}, repo.ErrAlreadyExists
		}
		return domain.Payment{}, err
	}
	out := p.Clone()
	out.CreatedAt = createdAt.UTC()
	return out, nil
}

func (r *Repo) DeletePayment(ctx context.Context, id domain.PaymentID) error {
	return r.deleteByID(ctx, `DELETE FROM payments WHERE id = $1`, string(id))
}

const paymentColumns = `id, created_at, title, group_id, creditor, debtors`

func (r *Repo) GetPayment(ctx context.Context, id domain.PaymentID) (domain.Payment, bool, error) {
	if r.pool == nil {
		return domain.Payment{}, false, errNilPool
	}
	p, err := scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Payment{}, false, nil
		}
		return domain.Payment{}, false, err
	}
	return p, true, nil
}

func (r *Repo) GetPaymentsByGroup(ctx context.Context, group domain.GroupID) ([]domain.Payment, error) {
	if r.pool == nil {
		return nil, errNilPool
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE group_id = $1
		ORDER BY created_at, id
	`, string(group))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) deleteByID(ctx context.Context, sql, id string) error {
	if r.pool == nil {
		return errNilPool
	}
	tag, err := r.pool.Exec(ctx, sql, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func scanGroup(row pgx.Row) (domain.Group, error) {
	var (
		id, title    string
		createdAt    time.Time
		participants []string
	)
	if err := row.Scan(&id, &createdAt, &title, &participants); err != nil {
		return domain.Group{}, err
	}
	return domain.Group{
		ID:           domain.GroupID(id),
		CreatedAt:    createdAt.UTC(),
		Title:        title,
		Participants: stringsToUserIDs(participants),
	}, nil
}

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var (
		id, title, group, creditor string
		createdAt                  time.Time
		debtors                    []string
	)
	if err := row.Scan(&id, &createdAt, &title, &group, &creditor, &debtors); err != nil {
		return domain.Payment{}, err
	}
	return domain.Payment{
		ID:        domain.PaymentID(id),
		CreatedAt: createdAt.UTC(),
		Title:     title,
		Group:     domain.GroupID(group),
		Creditor:  domain.UserID(creditor),
		Debtors:   stringsToUserIDs(debtors),
	}, nil
}

func userIDsToStrings(ids []domain.UserID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func stringsToUserIDs(ss []string) []domain.UserID {
	out := make([]domain.UserID, len(ss))
	for i, s := range ss {
		out[i] = domain.UserID(s)
	}
	return out
}
