package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"resume-assist/internal/helper"
	"resume-assist/internal/models"
)

// User is an account of the document backend.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`
	ID            string    `bun:"id,pk" json:"id"`
	Username      string    `bun:"username,notnull,unique" json:"username"`
	PasswordHash  string    `bun:"password_hash,notnull" json:"-"`
	Name          string    `bun:"name,notnull" json:"name"`
	Email         string    `bun:"email,notnull,unique" json:"email"`
	PhoneNumber   string    `bun:"phone_number,notnull,unique" json:"phone_number"`
	TokenVersion  int       `bun:"token_version,notnull" json:"-"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Conflicting fields reported by FindConflict, checked in this order.
const (
	ConflictUsername = "username"
	ConflictEmail    = "email"
	ConflictPhone    = "phone_number"
)

type UserRepository struct {
	db *bun.DB
}

func NewUserRepository(db *bun.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) InitSchema(ctx context.Context) error {
	_, err := r.db.NewCreateTable().Model((*User)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Create inserts u, filling in the id and creation time when empty.
func (r *UserRepository) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		id, err := helper.GenerateUUID()
		if err != nil {
			return err
		}
		u.ID = id
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NewInsert().Model(u).Exec(ctx); err != nil {
		return fmt.Errorf("insert user %s: %w", u.Username, err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getWhere(ctx, "id = ?", id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getWhere(ctx, "username = ?", username)
}

func (r *UserRepository) getWhere(ctx context.Context, query string, arg any) (*User, error) {
	u := new(User)
	err := r.db.NewSelect().Model(u).Where(query, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %v", models.ErrNotFound, arg)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// FindConflict reports which identifying field of a new account is already
// used, or "" when none is.
func (r *UserRepository) FindConflict(ctx context.Context, username, email, phone string) (string, error) {
	var users []User
	err := r.db.NewSelect().Model(&users).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("username = ?", username).
				WhereOr("email = ?", email).
				WhereOr("phone_number = ?", phone)
		}).
		Scan(ctx)
	if err != nil {
		return "", err
	}
	for _, field := range []string{ConflictUsername, ConflictEmail, ConflictPhone} {
		for _, u := range users {
			switch {
			case field == ConflictUsername && u.Username == username,
				field == ConflictEmail && u.Email == email,
				field == ConflictPhone && u.PhoneNumber == phone:
				return field, nil
			}
		}
	}
	return "", nil
}

// EmailTaken reports whether another account than exceptID uses email.
func (r *UserRepository) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	return r.db.NewSelect().Model((*User)(nil)).
		Where("email = ?", email).
		Where("id != ?", exceptID).
		Exists(ctx)
}

func (r *UserRepository) PhoneTaken(ctx context.Context, phone, exceptID string) (bool, error) {
	return r.db.NewSelect().Model((*User)(nil)).
		Where("phone_number = ?", phone).
		Where("id != ?", exceptID).
		Exists(ctx)
}

// Update writes every column of u except the creation time.
func (r *UserRepository) Update(ctx context.Context, u *User) error {
	res, err := r.db.NewUpdate().Model(u).ExcludeColumn("created_at").WherePK().Exec(ctx)
	return affected(res, err, u.ID)
}

// RevokeTokens bumps the token version so earlier tokens stop validating.
func (r *UserRepository) RevokeTokens(ctx context.Context, id string) error {
	res, err := r.db.NewUpdate().Model((*User)(nil)).
		Set("token_version = token_version + 1").
		Where("id = ?", id).
		Exec(ctx)
	return affected(res, err, id)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.NewDelete().Model((*User)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err, id)
}

func affected(res sql.Result, err error, id string) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: user %s", models.ErrNotFound, id)
	}
	return nil
}
