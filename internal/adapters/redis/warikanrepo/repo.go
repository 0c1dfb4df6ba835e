// Package warikanrepo stores users, groups and payments in Redis.
//
// Layout (all keys under the configured prefix):
//
//	{p}:user:{id}               JSON user
//	{p}:group:{id}              JSON group
//	{p}:payment:{id}            JSON payment
//	{p}:user-groups:{id}        ZSET of group ids, scored by created_at (µs)
//	{p}:group-payments:{id}     ZSET of payment ids, scored by created_at (µs)
//
// IDs are caller-controlled and may contain ':', so each key kind has its own
// namespace and no ID can be suffixed into another kind's key.
//
// Multi-key writes run in WATCH/MULTI transactions so entity and index stay in step.
package warikanrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/warikan-app/warikan-api/internal/domain"
	"github.com/warikan-app/warikan-api/internal/ports/out/repo"
)

const maxTxRetries = 8

// Repo is a Redis implementation of repo.Repository.
type Repo struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ repo.Repository = (*Repo)(nil)

func NewRepo(rdb redis.UniversalClient, prefix string) *Repo {
	if prefix == "" {
		prefix = "warikan"
	}
	return &Repo{rdb: rdb, prefix: prefix}
}

func (r *Repo) userKey(id domain.UserID) string           { return r.prefix + ":user:" + string(id) }
func (r *Repo) groupKey(id domain.GroupID) string         { return r.prefix + ":group:" + string(id) }
func (r *Repo) paymentKey(id domain.PaymentID) string     { return r.prefix + ":payment:" + string(id) }
func (r *Repo) userGroupsKey(id domain.UserID) string     { return r.prefix + ":user-groups:" + string(id) }
func (r *Repo) groupPaymentsKey(id domain.GroupID) string { return r.prefix + ":group-payments:" + string(id) }

func score(t time.Time) float64 { return float64(t.UnixMicro()) }

type userDoc struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type groupDoc struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Title        string    `json:"title"`
	Participants []string  `json:"participants"`
}

type paymentDoc struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Group     string    `json:"group"`
	Creditor  string    `json:"creditor"`
	Debtors   []string  `json:"debtors"`
}

func (r *Repo) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	b, err := json.Marshal(userDoc{ID: string(u.ID), Name: u.Name})
	if err != nil {
		return domain.User{}, err
	}
	ok, err := r.rdb.SetNX(ctx, r.userKey(u.ID), b, 0).Result()
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, repo.ErrAlreadyExists
	}
	return u, nil
}

func (r *Repo) DeleteUser(ctx context.Context, id domain.UserID) error {
	n, err := r.rdb.Del(ctx, r.userKey(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetUser(ctx context.Context, id domain.UserID) (domain.User, bool, error) {
	var d userDoc
	ok, err := getJSON(ctx, r.rdb, r.userKey(id), &d)
	if err != nil || !ok {
		return domain.User{}, false, err
	}
	return domain.User{ID: domain.UserID(d.ID), Name: d.Name}, true, nil
}

func (r *Repo) CreateGroup(ctx context.Context, g domain.Group) (domain.Group, error) {
	b, err := json.Marshal(toGroupDoc(g))
	if err != nil {
		return domain.Group{}, err
	}
	key := r.groupKey(g.ID)
	err = r.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return repo.ErrAlreadyExists
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, 0)
			for _, u := range g.Participants {
				p.ZAdd(ctx, r.userGroupsKey(u), redis.Z{Score: score(g.CreatedAt), Member: string(g.ID)})
			}
			return nil
		})
		return err
	}, key)
	if err != nil {
		return domain.Group{}, err
	}
	return g.Clone(), nil
}

func (r *Repo) DeleteGroup(ctx context.Context, id domain.GroupID) error {
	key := r.groupKey(id)
	return r.watch(ctx, func(tx *redis.Tx) error {
		var d groupDoc
		ok, err := getJSON(ctx, tx, key, &d)
		if err != nil {
			return err
		}
		if !ok {
			return repo.ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			for _, u := range d.Participants {
				p.ZRem(ctx, r.userGroupsKey(domain.UserID(u)), d.ID)
			}
			return nil
		})
		return err
	}, key)
}

func (r *Repo) GetGroup(ctx context.Context, id domain.GroupID) (domain.Group, bool, error) {
	var d groupDoc
	ok, err := getJSON(ctx, r.rdb, r.groupKey(id), &d)
	if err != nil || !ok {
		return domain.Group{}, false, err
	}
	return d.toDomain(), true, nil
}

func (r *Repo) GetGroupsByUser(ctx context.Context, user domain.UserID) ([]domain.Group, error) {
	ids, err := r.rdb.ZRange(ctx, r.userGroupsKey(user), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.groupKey(domain.GroupID(id))
	}
	docs, err := mgetJSON[groupDoc](ctx, r.rdb, keys)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Group, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *Repo) AddGroupParticipant(ctx context.Context, id domain.GroupID, user domain.UserID) error {
	key := r.groupKey(id)
	return r.watch(ctx, func(tx *redis.Tx) error {
		var d groupDoc
		ok, err := getJSON(ctx, tx, key, &d)
		if err != nil {
			return err
		}
		if !ok {
			return repo.ErrNotFound
		}
		for _, p := range d.Participants {
			if p == string(user) {
				return nil
			}
		}
		d.Participants = append(d.Participants, string(user))
		b, err := json.Marshal(d)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, 0)
			p.ZAdd(ctx, r.userGroupsKey(user), redis.Z{Score: score(d.CreatedAt), Member: d.ID})
			return nil
		})
		return err
	}, key)
}

func (r *Repo) CreatePayment(ctx context.Context, p domain.Payment) (domain.Payment, error) {
	b, err := json.Marshal(toPaymentDoc(p))
	if err != nil {
		return domain.Payment{}, err
	}
	key := r.paymentKey(p.ID)
	err = r.watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return repo.ErrAlreadyExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, 0)
			pipe.ZAdd(ctx, r.groupPaymentsKey(p.Group), redis.Z{Score: score(p.CreatedAt), Member: string(p.ID)})
			return nil
		})
		return err
	}, key)
	if err != nil {
		return domain.Payment{}, err
	}
	return p.Clone(), nil
}

func (r *Repo) DeletePayment(ctx context.Context, id domain.PaymentID) error {
	key := r.paymentKey(id)
	return r.watch(ctx, func(tx *redis.Tx) error {
		var d paymentDoc
		ok, err := getJSON(ctx, tx, key, &d)
		if err != nil {
			return err
		}
		if !ok {
			return repo.ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			p.ZRem(ctx, r.groupPaymentsKey(domain.GroupID(d.Group)), d.ID)
			return nil
		})
		return err
	}, key)
}

func (r *Repo) GetPayment(ctx context.Context, id domain.PaymentID) (domain.Payment, bool, error) {
	var d paymentDoc
	ok, err := getJSON(ctx, r.rdb, r.paymentKey(id), &d)
	if err != nil || !ok {
		return domain.Payment{}, false, err
	}
	return d.toDomain(), true, nil
}

func (r *Repo) GetPaymentsByGroup(ctx context.Context, group domain.GroupID) ([]domain.Payment, error) {
	ids, err := r.rdb.ZRange(ctx, r.groupPaymentsKey(group), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.paymentKey(domain.PaymentID(id))
	}
	docs, err := mgetJSON[paymentDoc](ctx, r.rdb, keys)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Payment, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// watch runs fn in an optimistic transaction, retrying when a watched key changes.
func (r *Repo) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := r.rdb.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("redis transaction on %v: %w", keys, redis.TxFailedErr)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getJSON(ctx context.Context, c getter, key string, dst any) (bool, error) {
	b, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// mgetJSON decodes the values at keys in order, skipping keys that vanished
// between the index read and the fetch.
func mgetJSON[T any](ctx context.Context, c redis.UniversalClient, keys []string) ([]T, error) {
	if len(keys) == 0 {
		return []T{}, nil
	}
	vals, err := c.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var d T
		if err := json.Unmarshal([]byte(s), &d); err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		out = append(out, d)
	}
	return out, nil
}

func toGroupDoc(g domain.Group) groupDoc {
	d := groupDoc{ID: string(g.ID), CreatedAt: g.CreatedAt.UTC(), Title: g.Title, Participants: make([]string, len(g.Participants))}
	for i, p := range g.Participants {
		d.Participants[i] = string(p)
	}
	return d
}

func (d groupDoc) toDomain() domain.Group {
	g := domain.Group{ID: domain.GroupID(d.ID), CreatedAt: d.CreatedAt.UTC(), Title: d.Title, Participants: make([]domain.UserID, len(d.Participants))}
	for i, p := range d.Participants {
		g.Participants[i] = domain.UserID(p)
	}
	return g
}

func toPaymentDoc(p domain.Payment) paymentDoc {
	d := paymentDoc{
		ID: string(p.ID), CreatedAt: p.CreatedAt.UTC(), Title: p.Title,
		Group: string(p.Group), Creditor: string(p.Creditor), Debtors: make([]string, len(p.Debtors)),
	}
	for i, u := range p.Debtors {
		d.Debtors[i] = string(u)
	}
	return d
}

func (d paymentDoc) toDomain() domain.Payment {
	p := domain.Payment{
		ID: domain.PaymentID(d.ID), CreatedAt: d.CreatedAt.UTC(), Title: d.Title,
		Group: domain.GroupID(d.Group), Creditor: domain.UserID(d.Creditor), Debtors: make([]domain.UserID, len(d.Debtors)),
	}
	for i, u := range d.Debtors {
		p.Debtors[i] = domain.UserID(u)
	}
	return p
}
