package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/iliyamo/referral-service/internal/database"
	"github.com/iliyamo/referral-service/internal/model"
)

const userColumns = "id, login, password, gender_id, type_id, last_name, first_name, patr_name"

type UserRepo struct{ DB database.DBTX }

func NewUserRepo(db database.DBTX) *UserRepo { return &UserRepo{DB: db} }

// UpsertTx inserts the user or, when the login already exists, updates the
// mutable columns in place. The single statement keeps concurrent
// submissions for one login from creating two rows. LAST_INSERT_ID(id)
// makes the driver report the existing id on the update path, so u.ID is
// set either way. created is true only when a new row was inserted.
func (r *UserRepo) UpsertTx(ctx context.Context, tx database.DBTX, u *model.User) (created bool, err error) {
	const q = `INSERT INTO users (login, password, gender_id, type_id, last_name, first_name)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			id = LAST_INSERT_ID(id),
			password = VALUES(password),
			gender_id = VALUES(gender_id),
			type_id = VALUES(type_id),
			last_name = VALUES(last_name),
			first_name = VALUES(first_name)`
	res, err := tx.ExecContext(ctx, q, u.Login, u.PasswordHash, u.GenderID, u.TypeID, u.LastName, u.FirstName)
	if err != nil {
		return false, errors.Wrap(err, "upsert user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, errors.Wrap(err, "upsert user: last insert id")
	}
	// MySQL reports 1 affected row for an insert and 2 for an update.
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "upsert user: rows affected")
	}
	u.ID = uint64(id)
	return n == 1, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
	return scanUser(row)
}

// GetByLogin fetches a user by login. Surrounding whitespace is dropped,
// matching how referrals store logins; the column collation decides case
// sensitivity.
func (r *UserRepo) GetByLogin(ctx context.Context, login string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE login = ? LIMIT 1", strings.TrimSpace(login))
	return scanUser(row)
}

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u    model.User
		patr sql.NullString
	)
	err := s.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.GenderID, &u.TypeID, &u.LastName, &u.FirstName, &patr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, errors.Wrap(err, "scan user")
	}
	if patr.Valid {
		p := patr.String
		u.PatrName = &p
	}
	return u, nil
}
