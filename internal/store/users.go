package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/simulation"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Role is a user's function in the system.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleNurse   Role = "nurse"
	RoleAdmin   Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleNurse, RoleAdmin:
		return true
	default:
		return false
	}
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type userRow struct {
	ID        string `db:"id"`
	Email     string `db:"email"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Role      string `db:"role"`
	CreatedAt int64  `db:"created_at"`
}

func (row userRow) user() User {
	return User{
		ID:        row.ID,
		Email:     row.Email,
		FirstName: row.FirstName,
		LastName:  row.LastName,
		Role:      Role(row.Role),
		CreatedAt: fromMillis(row.CreatedAt),
	}
}

const (
	userColumns = `id, email, first_name, last_name, role, created_at`

	insertUserSQL = `
    INSERT INTO users (id, email, first_name, last_name, role, created_at)
    VALUES (:id, :email, :first_name, :last_name, :role, :created_at)`

	insertConfigSQL = `
    INSERT INTO simulation_configs (
        user_id, heart_rate_mean, heart_rate_variance, systolic_mean, systolic_variance,
        diastolic_mean, diastolic_variance, pulse_mean, pulse_variance,
        spo2_mean, spo2_variance, steps_mean, steps_variance, sleep_mean, sleep_variance
    ) VALUES (
        :user_id, :heart_rate_mean, :heart_rate_variance, :systolic_mean, :systolic_variance,
        :diastolic_mean, :diastolic_variance, :pulse_mean, :pulse_variance,
        :spo2_mean, :spo2_variance, :steps_mean, :steps_variance, :sleep_mean, :sleep_variance
    )`

	updateConfigSQL = `
    UPDATE simulation_configs SET
        heart_rate_mean = :heart_rate_mean, heart_rate_variance = :heart_rate_variance,
        systolic_mean = :systolic_mean, systolic_variance = :systolic_variance,
        diastolic_mean = :diastolic_mean, diastolic_variance = :diastolic_variance,
        pulse_mean = :pulse_mean, pulse_variance = :pulse_variance,
        spo2_mean = :spo2_mean, spo2_variance = :spo2_variance,
        steps_mean = :steps_mean, steps_variance = :steps_variance,
        sleep_mean = :sleep_mean, sleep_variance = :sleep_variance
    WHERE user_id = :user_id`

	configColumns = `user_id, heart_rate_mean, heart_rate_variance, systolic_mean, systolic_variance,
        diastolic_mean, diastolic_variance, pulse_mean, pulse_variance,
        spo2_mean, spo2_variance, steps_mean, steps_variance, sleep_mean, sleep_variance`
)

// CreateUser registers u and provisions the default simulation config
// for it in the same transaction.
func (s *Store) CreateUser(ctx context.Context, u User) (User, error) {
	errFactory := errors.New()

	u.Email = strings.TrimSpace(u.Email)
	if u.Email == "" {
		return User{}, errFactory.WithMessage(ErrInvalidRecord, "email is required")
	}
	if u.Role == "" {
		u.Role = RolePatient
	}
	if !u.Role.IsValid() {
		return User{}, errFactory.WithData(ErrInvalidRole, u.Role)
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	row := userRow{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		CreatedAt: toMillis(s.now()),
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertUserSQL, row); err != nil {
			return errFactory.WithData(ErrStorageAccess, struct {
				Phase string
				Error string
			}{
				Phase: "insert_user",
				Error: err.Error(),
			})
		}
		if _, err := tx.NamedExecContext(ctx, insertConfigSQL, simulation.DefaultConfig(u.ID)); err != nil {
			return errFactory.WithData(ErrStorageAccess, struct {
				Phase string
				Error string
			}{
				Phase: "insert_simulation_config",
				Error: err.Error(),
			})
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}

	s.logger.Debug().
		Str("user_id", u.ID).
		Str("role", string(u.Role)).
		Msg("User created")

	return row.user(), nil
}

func (s *Store) GetUser(ctx context.Context, id string) (User, error) {
	var row userRow
	q := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	if err := s.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, errors.New().WithData(ErrNotFound, id)
		}
		return User{}, errors.New().Wrap(ErrStorageAccess, err)
	}
	return row.user(), nil
}

// ListUsers returns users ordered by creation time. An empty role lists
// everyone.
func (s *Store) ListUsers(ctx context.Context, role Role) ([]User, error) {
	q := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if role != "" {
		if !role.IsValid() {
			return nil, errors.New().WithData(ErrInvalidRole, role)
		}
		q += ` WHERE role = ?`
		args = append(args, string(role))
	}
	q += ` ORDER BY created_at, id`

	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, errors.New().Wrap(ErrStorageAccess, err)
	}

	users := make([]User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

// UserIDs lists the ids of users with the given role, or of all users
// when role is empty.
func (s *Store) UserIDs(ctx context.Context, role string) ([]string, error) {
	users, err := s.ListUsers(ctx, Role(role))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func (s *Store) GetSimulationConfig(ctx context.Context, userID string) (simulation.Config, error) {
	var cfg simulation.Config
	q := s.db.Rebind(`SELECT ` + configColumns + ` FROM simulation_configs WHERE user_id = ?`)
	if err := s.db.GetContext(ctx, &cfg, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return simulation.Config{}, errors.New().WithData(ErrConfigMissing, userID)
		}
		return simulation.Config{}, errors.New().Wrap(ErrStorageAccess, err)
	}
	return cfg, nil
}

// UpdateSimulationConfig replaces the parameters of an existing config.
func (s *Store) UpdateSimulationConfig(ctx context.Context, cfg simulation.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	res, err := s.db.NamedExecContext(ctx, updateConfigSQL, cfg)
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}
	if n == 0 {
		return errors.New().WithData(ErrConfigMissing, cfg.UserID)
	}
	return nil
}
