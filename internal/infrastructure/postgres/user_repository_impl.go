package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-user-service/internal/domain/entity"
	"github.com/oksasatya/go-user-service/internal/domain/repository"
	"github.com/oksasatya/go-user-service/pkg/helpers"
)

const userColumns = `id, user_name, password, email, phone, role, first_name, last_name,
	modified_date, created_date, is_active, date_of_birth, is_deleted`

// UserStore creates pgx-backed units of work sharing one pool.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) Session() repository.UserRepository {
	return &UserRepository{pool: s.pool}
}

func (s *UserStore) Ping(ctx context.Context) error {
	return storeErr("ping", s.pool.Ping(ctx))
}

type stagedOp struct {
	name string
	run  func(ctx context.Context, tx pgx.Tx) error
}

// UserRepository reads straight from the pool and buffers writes until SaveChanges.
// It is not safe for concurrent use; take one per operation from UserStore.Session.
type UserRepository struct {
	pool   *pgxpool.Pool
	staged []stagedOp
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	err := row.Scan(&u.ID, &u.UserName, &u.Password, &u.Email, &u.Phone, &u.Role,
		&u.FirstName, &u.LastName, &u.ModifiedDate, &u.CreatedDate, &u.IsActive,
		&u.DateOfBirth, &u.IsDeleted)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func collectUsers(rows pgx.Rows) ([]entity.User, error) {
	defer rows.Close()
	out := make([]entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE is_deleted = false`).Scan(&n)
	if err != nil {
		return 0, storeErr("count", err)
	}
	return n, nil
}

func (r *UserRepository) GetPaged(ctx context.Context, pageNumber, pageSize int) ([]entity.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE is_deleted = false
		ORDER BY created_date ASC, id ASC
		OFFSET $1 LIMIT $2
	`, (pageNumber-1)*pageSize, pageSize)
	if err != nil {
		return nil, storeErr("get paged", err)
	}
	users, err := collectUsers(rows)
	if err != nil {
		return nil, storeErr("get paged", err)
	}
	return users, nil
}

func (r *UserRepository) GetAll(ctx context.Context) ([]entity.User, error) {
	log := helpers.LoggerFrom(ctx)
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_date ASC, id ASC`)
	if err != nil {
		log.WithError(err).Error("fetch all users failed")
		return nil, storeErr("get all", err)
	}
	users, err := collectUsers(rows)
	if err != nil {
		log.WithError(err).Error("fetch all users failed")
		return nil, storeErr("get all", err)
	}
	log.WithField("count", len(users)).Debug("fetched all users")
	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	log := helpers.LoggerFrom(ctx).WithField("user_id", id)
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Warn("user not found")
			return nil, nil
		}
		log.WithError(err).Error("fetch user failed")
		return nil, storeErr("get by id", err)
	}
	return u, nil
}

func (r *UserRepository) Add(ctx context.Context, u *entity.User) error {
	c := *u
	r.staged = append(r.staged, stagedOp{name: "insert user", run: func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, c.ID, c.UserName, c.Password, c.Email, c.Phone, c.Role, c.FirstName, c.LastName,
			c.ModifiedDate, c.CreatedDate, c.IsActive, c.DateOfBirth, c.IsDeleted)
		return err
	}})
	helpers.LoggerFrom(ctx).WithField("username", u.UserName).Debug("user insert staged")
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	c := *u
	r.staged = append(r.staged, stagedOp{name: "update user", run: func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE users
			SET user_name = $2, password = $3, email = $4, phone = $5, role = $6,
				first_name = $7, last_name = $8, modified_date = $9, is_active = $10,
				date_of_birth = $11, is_deleted = $12
			WHERE id = $1
		`, c.ID, c.UserName, c.Password, c.Email, c.Phone, c.Role, c.FirstName, c.LastName,
			c.ModifiedDate, c.IsActive, c.DateOfBirth, c.IsDeleted)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	}})
	helpers.LoggerFrom(ctx).WithField("user_id", u.ID).Debug("user update staged")
	return nil
}

func (r *UserRepository) Enqueue(ctx context.Context, msg entity.OutboxMessage) error {
	m := msg
	r.staged = append(r.staged, stagedOp{name: "insert outbox", run: func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO outbox_messages (id, channel, payload, created_at)
			VALUES ($1, $2, $3, $4)
		`, m.ID, m.Channel, m.Payload, m.CreatedAt)
		return err
	}})
	helpers.LoggerFrom(ctx).WithField("channel", msg.Channel).Debug("outbox message staged")
	return nil
}

// SaveChanges runs every staged operation inside one transaction.
// The staging buffer is cleared whether or not the commit succeeds.
func (r *UserRepository) SaveChanges(ctx context.Context) (err error) {
	ops := r.staged
	r.staged = nil
	if len(ops) == 0 {
		return nil
	}
	log := helpers.LoggerFrom(ctx).WithField("ops", len(ops))

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		log.WithError(err).Error("begin transaction failed")
		return storeErr("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	for _, op := range ops {
		if err = op.run(ctx, tx); err != nil {
			log.WithError(err).WithField("op", op.name).Error("save changes failed")
			return storeErr(op.name, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		log.WithError(err).Error("commit failed")
		return storeErr("commit", err)
	}
	log.Debug("changes saved")
	return nil
}

var (
	_ repository.UserRepository = (*UserRepository)(nil)
	_ repository.UserStore      = (*UserStore)(nil)
)
