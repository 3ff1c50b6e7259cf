package accounts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Column order shared by every SELECT, INSERT and UPDATE below. id and
// created_at come first and are never updated.
var columns = []string{
	"id", "created_at", "username", "full_name", "email", "phone", "password_hash", "salt",
	"role", "verified", "account_status", "status", "otp", "otp_expires_at",
	"bio", "avatar", "cnic", "cnic_front_image", "cnic_back_image", "age", "gender",
	"street", "state", "postal_code", "country", "city", "address", "location",
	"skills", "job_counts", "experience", "ratings", "available", "featured", "updated_at",
}

var (
	selectColumns = strings.Join(columns, ", ")
	insertQuery   = fmt.Sprintf(`INSERT INTO accounts (%s) VALUES (%s)`, selectColumns, placeholders(1, len(columns)))
	updateQuery   = fmt.Sprintf(`UPDATE accounts SET (%s) = (%s) WHERE id = $1`, strings.Join(columns[2:], ", "), placeholders(2, len(columns)-1))
)

var sortColumns = map[string]string{
	models.SortCreatedAt:  "created_at",
	models.SortUpdatedAt:  "updated_at",
	models.SortFullName:   "full_name",
	models.SortUsername:   "username",
	models.SortJobCounts:  "job_counts",
	models.SortExperience: "experience",
	models.SortAge:        "age",
}

type PostgresRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	a := account.Clone()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := r.now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	args, err := accountArgs(a)
	if err != nil {
		return nil, err
	}

	err = dbx.InTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		if a.Phone != "" {
			var exists bool
			err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM accounts WHERE phone = $1)`, a.Phone).Scan(&exists)
			if err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			if exists {
				return common.ErrDuplicatePhone
			}
		}

		if _, err := tx.ExecContext(ctx, insertQuery, args...); err != nil {
			return mapWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return r.findOne(ctx, r.db, "id", id, false)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, r.db, "email", email, false)
}

func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (*models.Account, error) {
	return r.findOne(ctx, r.db, "phone", phone, false)
}

func (r *PostgresRepository) findOne(ctx context.Context, db dbx.DBTX, column, value string, forUpdate bool) (*models.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE %s = $1`, selectColumns, column)
	if forUpdate {
		query += ` FOR UPDATE`
	}

	a, err := scanAccount(db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) FindMany(ctx context.Context, q models.Query) ([]*models.Account, int64, error) {
	q = q.Normalize()
	where, args := buildWhere(q.Filter)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM accounts%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		selectColumns, where, orderBy(q), len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Account, 0, q.Limit)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	return result, total, nil
}

// UpdateByID locks the row, merges the patch in memory and writes every
// mutable column back, so the returned record is exactly what was stored.
func (r *PostgresRepository) UpdateByID(ctx context.Context, id string, patch models.Patch) (*models.Account, error) {
	var updated *models.Account

	err := dbx.InTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		a, err := r.findOne(ctx, tx, "id", id, true)
		if err != nil {
			return err
		}

		patch.Apply(a)
		a.UpdatedAt = r.now().UTC()

		args, err := accountArgs(a)
		if err != nil {
			return err
		}
		args = append([]any{a.ID}, args[2:]...)

		if _, err := tx.ExecContext(ctx, updateQuery, args...); err != nil {
			return mapWriteError(err)
		}

		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// mapWriteError turns unique-constraint violations into domain errors.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "accounts_phone_key":
			return common.ErrDuplicatePhone
		case "accounts_email_key":
			return common.ErrDuplicateEmail
		}
	}
	return fmt.Errorf("db error: %w", err)
}

func buildWhere(f models.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.FullName != "" {
		add(`full_name ILIKE $%d`, "%"+escapeLike(f.FullName)+"%")
	}
	if f.Email != "" {
		add(`email = $%d`, f.Email)
	}
	if f.Role != "" {
		add(`role = $%d`, f.Role)
	}
	if f.City != "" {
		add(`city = $%d`, f.City)
	}
	if f.Status != "" {
		add(`status = $%d`, f.Status)
	}
	if f.Verified != nil {
		add(`verified = $%d`, *f.Verified)
	}
	if f.Featured != nil {
		add(`featured = $%d`, *f.Featured)
	}
	if f.Available != nil {
		add(`available = $%d`, *f.Available)
	}
	if f.JobCounts != nil {
		add(`job_counts = $%d`, *f.JobCounts)
	}
	if len(f.Skills) > 0 {
		b, _ := json.Marshal(f.Skills)
		add(`skills @> $%d::jsonb`, string(b))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderBy(q models.Query) string {
	col, ok := sortColumns[q.SortField]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, id %s", col, dir, dir)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func placeholders(from, to int) string {
	p := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		p = append(p, fmt.Sprintf("$%d", i))
	}
	return strings.Join(p, ", ")
}

// accountArgs returns the column values of a in the order of columns.
func accountArgs(a *models.Account) ([]any, error) {
	location, err := json.Marshal(a.Location)
	if err != nil {
		return nil, fmt.Errorf("encode location: %w", err)
	}
	skills, err := json.Marshal(nonNil(a.Skills))
	if err != nil {
		return nil, fmt.Errorf("encode skills: %w", err)
	}
	ratings, err := json.Marshal(nonNil(a.Ratings))
	if err != nil {
		return nil, fmt.Errorf("encode ratings: %w", err)
	}

	var otp sql.NullString
	var otpExpiresAt sql.NullTime
	if a.OTP != nil {
		otp = sql.NullString{String: a.OTP.Code, Valid: true}
		otpExpiresAt = sql.NullTime{Time: a.OTP.ExpiresAt, Valid: true}
	}

	return []any{
		a.ID, a.CreatedAt, a.Username, a.FullName, nullString(a.Email), nullString(a.Phone), a.PasswordHash, a.Salt,
		a.Role, a.Verified, a.AccountStatus, a.Status, otp, otpExpiresAt,
		a.Bio, a.Avatar, a.CNIC, a.CNICFrontImage, a.CNICBackImage, a.Age, a.Gender,
		a.Street, a.State, a.PostalCode, a.Country, a.City, a.Address, string(location),
		string(skills), a.JobCounts, a.Experience, string(ratings), a.Available, a.Featured, a.UpdatedAt,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*models.Account, error) {
	var (
		a                        models.Account
		email, phone, otp        sql.NullString
		otpExpiresAt             sql.NullTime
		location, skills, rating []byte
	)

	err := row.Scan(
		&a.ID, &a.CreatedAt, &a.Username, &a.FullName, &email, &phone, &a.PasswordHash, &a.Salt,
		&a.Role, &a.Verified, &a.AccountStatus, &a.Status, &otp, &otpExpiresAt,
		&a.Bio, &a.Avatar, &a.CNIC, &a.CNICFrontImage, &a.CNICBackImage, &a.Age, &a.Gender,
		&a.Street, &a.State, &a.PostalCode, &a.Country, &a.City, &a.Address, &location,
		&skills, &a.JobCounts, &a.Experience, &rating, &a.Available, &a.Featured, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Email, a.Phone = email.String, phone.String
	if otp.Valid && otpExpiresAt.Valid {
		a.OTP = &models.OneTimeCode{Code: otp.String, ExpiresAt: otpExpiresAt.Time}
	}
	if err := json.Unmarshal(location, &a.Location); err != nil {
		return nil, fmt.Errorf("decode location: %w", err)
	}
	if err := json.Unmarshal(skills, &a.Skills); err != nil {
		return nil, fmt.Errorf("decode skills: %w", err)
	}
	if err := json.Unmarshal(rating, &a.Ratings); err != nil {
		return nil, fmt.Errorf("decode ratings: %w", err)
	}

	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
