package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ce-fello/bug-tracker-service/src/internal/model"

	"go.uber.org/zap"
)

type UserFilter struct {
	Query         string
	Role          model.Role
	Active        *bool
	IncludeAdmins bool
	model.Pagination
}

const userColumns = `id, name, email, password_hash, role, is_active, created_at, updated_at`

func scanUser(s scanner) (model.User, error) {
	var u model.User
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *Repositories) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	r.Log.Debug("CreateUser: start", zap.String("email", u.Email), zap.String("role", string(u.Role)))
	row := r.DB.QueryRowContext(ctx,
		`INSERT INTO users(id, name, email, password_hash, role, is_active, created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,$6,now(),now())
		 RETURNING `+userColumns,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.IsActive)
	created, err := scanUser(row)
	if err != nil {
		err = mapPQError(err)
		if errors.Is(err, model.ErrConflict) {
			r.Log.Debug("CreateUser: email conflict", zap.String("email", u.Email))
			return model.User{}, err
		}
		r.Log.Error("CreateUser: insert failed", zap.Error(err))
		return model.User{}, err
	}
	r.Log.Info("CreateUser: success", zap.String("user", created.ID))
	return created, nil
}

func (r *Repositories) GetUser(ctx context.Context, userID string) (model.User, error) {
	r.Log.Debug("GetUser: start", zap.String("user", userID))
	if !model.ValidID(userID) {
		return model.User{}, model.ErrNotFound
	}
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug("GetUser: not found", zap.String("user", userID))
			return model.User{}, model.ErrNotFound
		}
		r.Log.Error("GetUser: query failed", zap.Error(err))
		return model.User{}, err
	}
	return u, nil
}

func (r *Repositories) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	r.Log.Debug("GetUserByEmail: start", zap.String("email", email))
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		r.Log.Error("GetUserByEmail: query failed", zap.Error(err))
		return model.User{}, err
	}
	return u, nil
}

func (r *Repositories) ListUsers(ctx context.Context, f UserFilter) ([]model.User, int, error) {
	r.Log.Debug("ListUsers: start", zap.String("q", f.Query), zap.String("role", string(f.Role)))

	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Query != "" {
		p := arg("%" + escapeLike(f.Query) + "%")
		where = append(where, "(name ILIKE "+p+" OR email ILIKE "+p+")")
	}
	if f.Role != "" {
		where = append(where, "role = "+arg(f.Role))
	} else if !f.IncludeAdmins {
		where = append(where, "role <> "+arg(model.RoleAdmin))
	}
	if f.Active != nil {
		where = append(where, "is_active = "+arg(*f.Active))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+clause, args...).Scan(&total); err != nil {
		r.Log.Error("ListUsers: count failed", zap.Error(err))
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users` + clause +
		` ORDER BY created_at DESC LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset())
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		r.Log.Error("ListUsers: query failed", zap.Error(err))
		return nil, 0, err
	}
	defer r.closeRows(rows, "ListUsers")

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			r.Log.Error("ListUsers: scan failed", zap.Error(err))
			return nil, 0, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	r.Log.Debug("ListUsers: success", zap.Int("count", len(out)), zap.Int("total", total))
	return out, total, nil
}

func (r *Repositories) UpdateUserProfile(ctx context.Context, userID string, name, email *string) (model.User, error) {
	r.Log.Debug("UpdateUserProfile: start", zap.String("user", userID))
	if !model.ValidID(userID) {
		return model.User{}, model.ErrNotFound
	}
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		`UPDATE users SET name=COALESCE($2, name), email=COALESCE($3, email), updated_at=now()
		 WHERE id=$1 RETURNING `+userColumns,
		userID, name, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		err = mapPQError(err)
		if !errors.Is(err, model.ErrConflict) {
			r.Log.Error("UpdateUserProfile: update failed", zap.Error(err))
		}
		return model.User{}, err
	}
	r.Log.Info("UpdateUserProfile: success", zap.String("user", userID))
	return u, nil
}

func (r *Repositories) SetUserPassword(ctx context.Context, userID, passwordHash string) error {
	r.Log.Debug("SetUserPassword: start", zap.String("user", userID))
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=now() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		r.Log.Error("SetUserPassword: update failed", zap.Error(err))
		return err
	}
	if err := r.affectedOne(res, "SetUserPassword"); err != nil {
		return err
	}
	return nil
}

func (r *Repositories) SetUserRole(ctx context.Context, userID string, role model.Role) (model.User, error) {
	r.Log.Debug("SetUserRole: start", zap.String("user", userID), zap.String("role", string(role)))
	return r.updateUser(ctx, "SetUserRole", `UPDATE users SET role=$2, updated_at=now() WHERE id=$1 RETURNING `+userColumns, userID, role)
}

func (r *Repositories) SetUserIsActive(ctx context.Context, userID string, isActive bool) (model.User, error) {
	r.Log.Debug("SetUserIsActive: start", zap.String("user", userID), zap.Bool("is_active", isActive))
	return r.updateUser(ctx, "SetUserIsActive", `UPDATE users SET is_active=$2, updated_at=now() WHERE id=$1 RETURNING `+userColumns, userID, isActive)
}

func (r *Repositories) updateUser(ctx context.Context, op, query string, userID string, value any) (model.User, error) {
	if !model.ValidID(userID) {
		return model.User{}, model.ErrNotFound
	}
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, userID, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.Log.Debug(op+": user not found", zap.String("user", userID))
			return model.User{}, model.ErrNotFound
		}
		r.Log.Error(op+": update failed", zap.Error(err))
		return model.User{}, err
	}
	r.Log.Info(op+": success", zap.String("user", userID))
	return u, nil
}

// CountActiveAdmins counts active admins other than exceptUserID.
func (r *Repositories) CountActiveAdmins(ctx context.Context, exceptUserID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role=$1 AND is_active AND id::text <> $2`,
		model.RoleAdmin, exceptUserID).Scan(&n)
	if err != nil {
		r.Log.Error("CountActiveAdmins: query failed", zap.Error(err))
		return 0, err
	}
	return n, nil
}

// escapeLike quotes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
