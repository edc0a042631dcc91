package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"codeberg.org/mutker/vitalsd/internal/errors"
	"codeberg.org/mutker/vitalsd/internal/metric"
	"github.com/google/uuid"
)

const (
	readingColumns = `id, user_id, kind, recorded_at, source, created_at, updated_at,
        systolic, diastolic, pulse, value, activity_level, measurement_method,
        step_count, step_goal, device, distance, start_time, end_time, quality, interruptions`

	insertReadingSQL = `
    INSERT INTO readings (
        id, user_id, kind, recorded_at, source, created_at, updated_at,
        systolic, diastolic, pulse, value, activity_level, measurement_method,
        step_count, step_goal, device, distance, start_time, end_time, quality, interruptions
    ) VALUES (
        :id, :user_id, :kind, :recorded_at, :source, :created_at, :updated_at,
        :systolic, :diastolic, :pulse, :value, :activity_level, :measurement_method,
        :step_count, :step_goal, :device, :distance, :start_time, :end_time, :quality, :interruptions
    )`

	updateReadingSQL = `
    UPDATE readings SET
        recorded_at = :recorded_at, source = :source, updated_at = :updated_at,
        systolic = :systolic, diastolic = :diastolic, pulse = :pulse,
        value = :value, activity_level = :activity_level, measurement_method = :measurement_method,
        step_count = :step_count, step_goal = :step_goal, device = :device, distance = :distance,
        start_time = :start_time, end_time = :end_time, quality = :quality, interruptions = :interruptions
    WHERE id = :id AND user_id = :user_id AND kind = :kind`
)

// readingRow is the single-table layout of every reading kind; columns
// that do not belong to the row's kind stay NULL.
type readingRow struct {
	ID         string `db:"id"`
	UserID     string `db:"user_id"`
	Kind       string `db:"kind"`
	RecordedAt int64  `db:"recorded_at"`
	Source     string `db:"source"`
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`

	Systolic  sql.NullInt64 `db:"systolic"`
	Diastolic sql.NullInt64 `db:"diastolic"`
	Pulse     sql.NullInt64 `db:"pulse"`

	Value             sql.NullInt64  `db:"value"`
	ActivityLevel     sql.NullString `db:"activity_level"`
	MeasurementMethod sql.NullString `db:"measurement_method"`

	StepCount sql.NullInt64   `db:"step_count"`
	StepGoal  sql.NullInt64   `db:"step_goal"`
	Device    sql.NullString  `db:"device"`
	Distance  sql.NullFloat64 `db:"distance"`

	StartTime     sql.NullInt64 `db:"start_time"`
	EndTime       sql.NullInt64 `db:"end_time"`
	Quality       sql.NullInt64 `db:"quality"`
	Interruptions sql.NullInt64 `db:"interruptions"`
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: true}
}

func nullIntPtr(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return nullInt(*v)
}

func nullString[T ~string](v T) sql.NullString {
	return sql.NullString{String: string(v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func toRow(r metric.Reading) readingRow {
	h := r.Header()
	row := readingRow{
		ID:         h.ID,
		UserID:     h.UserID,
		Kind:       string(r.Kind()),
		RecordedAt: toMillis(h.Timestamp),
		Source:     string(h.Source),
		CreatedAt:  toMillis(h.CreatedAt),
		UpdatedAt:  toMillis(h.UpdatedAt),
	}

	switch v := r.(type) {
	case *metric.BloodPressure:
		row.Systolic = nullInt(v.Systolic)
		row.Diastolic = nullInt(v.Diastolic)
		row.Pulse = nullIntPtr(v.Pulse)
	case *metric.HeartRate:
		row.Value = nullInt(v.Value)
		row.ActivityLevel = nullString(v.ActivityLevel)
	case *metric.SpO2:
		row.Value = nullInt(v.Value)
		row.MeasurementMethod = nullString(v.MeasurementMethod)
	case *metric.DailySteps:
		row.StepCount = nullInt(v.Count)
		row.StepGoal = nullInt(v.Goal)
		row.Device = nullString(v.Device)
		if v.Distance != nil {
			row.Distance = sql.NullFloat64{Float64: *v.Distance, Valid: true}
		}
	case *metric.SleepDuration:
		row.StartTime = sql.NullInt64{Int64: toMillis(v.StartTime), Valid: true}
		row.EndTime = sql.NullInt64{Int64: toMillis(v.EndTime), Valid: true}
		row.Quality = nullIntPtr(v.Quality)
		row.Interruptions = nullIntPtr(v.Interruptions)
	}
	return row
}

func (row readingRow) reading() (metric.Reading, error) {
	r, ok := metric.New(metric.Kind(row.Kind))
	if !ok {
		return nil, errors.New().WithData(ErrUnknownKind, row.Kind)
	}
	*r.Header() = metric.Base{
		ID:        row.ID,
		UserID:    row.UserID,
		Timestamp: fromMillis(row.RecordedAt),
		Source:    metric.Source(row.Source),
		CreatedAt: fromMillis(row.CreatedAt),
		UpdatedAt: fromMillis(row.UpdatedAt),
	}

	switch v := r.(type) {
	case *metric.BloodPressure:
		v.Systolic = int(row.Systolic.Int64)
		v.Diastolic = int(row.Diastolic.Int64)
		v.Pulse = intPtr(row.Pulse)
	case *metric.HeartRate:
		v.Value = int(row.Value.Int64)
		v.ActivityLevel = metric.ActivityLevel(row.ActivityLevel.String)
	case *metric.SpO2:
		v.Value = int(row.Value.Int64)
		v.MeasurementMethod = metric.MeasurementMethod(row.MeasurementMethod.String)
	case *metric.DailySteps:
		v.Count = int(row.StepCount.Int64)
		v.Goal = int(row.StepGoal.Int64)
		v.Device = metric.StepDevice(row.Device.String)
		if row.Distance.Valid {
			d := row.Distance.Float64
			v.Distance = &d
		}
	case *metric.SleepDuration:
		v.StartTime = fromMillis(row.StartTime.Int64)
		v.EndTime = fromMillis(row.EndTime.Int64)
		v.Quality = intPtr(row.Quality)
		v.Interruptions = intPtr(row.Interruptions)
	}
	return r, nil
}

// Create validates r and inserts it atomically, filling in its id and
// bookkeeping times. A rejected reading leaves r untouched.
func (s *Store) Create(ctx context.Context, r metric.Reading) error {
	if err := r.Validate(); err != nil {
		return err
	}

	h := r.Header()
	now := s.now().UTC()
	row := toRow(r)
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	row.CreatedAt = toMillis(now)
	row.UpdatedAt = row.CreatedAt

	if _, err := s.db.NamedExecContext(ctx, insertReadingSQL, row); err != nil {
		s.logger.Debug().
			Str("user_id", h.UserID).
			Str("kind", row.Kind).
			Err(err).
			Msg("Failed to insert reading")
		return errors.New().Wrap(ErrStorageAccess, err)
	}

	h.ID = row.ID
	h.CreatedAt = fromMillis(row.CreatedAt)
	h.UpdatedAt = h.CreatedAt
	return nil
}

// Update re-validates r and overwrites the stored row with the same id,
// user and kind.
func (s *Store) Update(ctx context.Context, r metric.Reading) error {
	if err := r.Validate(); err != nil {
		return err
	}

	h := r.Header()
	if h.ID == "" {
		return errors.New().WithMessage(ErrNotFound, "reading has no id")
	}
	row := toRow(r)
	row.UpdatedAt = toMillis(s.now())

	res, err := s.db.NamedExecContext(ctx, updateReadingSQL, row)
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}
	if n == 0 {
		return errors.New().WithData(ErrNotFound, h.ID)
	}

	h.UpdatedAt = fromMillis(row.UpdatedAt)
	return nil
}

// Get loads one reading of a user by id.
func (s *Store) Get(ctx context.Context, userID, id string) (metric.Reading, error) {
	var row readingRow
	q := s.db.Rebind(`SELECT ` + readingColumns + ` FROM readings WHERE id = ? AND user_id = ?`)
	if err := s.db.GetContext(ctx, &row, q, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New().WithData(ErrNotFound, id)
		}
		return nil, errors.New().Wrap(ErrStorageAccess, err)
	}
	return row.reading()
}

// Query returns the readings selected by f ordered by timestamp.
func (s *Store) Query(ctx context.Context, f metric.Filter) ([]metric.Reading, error) {
	if _, ok := metric.New(f.Kind); !ok {
		return nil, errors.New().WithData(ErrUnknownKind, f.Kind)
	}

	q, args := buildQuery(f)
	var rows []readingRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, errors.New().Wrap(ErrStorageAccess, err)
	}

	out := make([]metric.Reading, 0, len(rows))
	for _, row := range rows {
		r, err := row.reading()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Latest returns the user's most recent reading of kind.
func (s *Store) Latest(ctx context.Context, userID string, kind metric.Kind) (metric.Reading, error) {
	readings, err := s.Query(ctx, metric.Filter{UserID: userID, Kind: kind, Order: metric.Descending, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, errors.New().WithData(ErrNotFound, fmt.Sprintf("%s for user %s", kind, userID))
	}
	return readings[0], nil
}

func buildQuery(f metric.Filter) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT ` + readingColumns + ` FROM readings WHERE user_id = ? AND kind = ?`)
	args := []any{f.UserID, string(f.Kind)}

	col := "recorded_at"
	if f.WindowOn == metric.WindowStartTime {
		col = "start_time"
	}
	if !f.Start.IsZero() {
		b.WriteString(" AND " + col + " >= ?")
		args = append(args, toMillis(f.Start))
	}
	if !f.End.IsZero() {
		b.WriteString(" AND " + col + " < ?")
		args = append(args, toMillis(f.End))
	}
	if f.Activity != "" {
		b.WriteString(" AND activity_level = ?")
		args = append(args, string(f.Activity))
	}

	if f.Order == metric.Descending {
		b.WriteString(" ORDER BY recorded_at DESC, created_at DESC, id DESC")
	} else {
		b.WriteString(" ORDER BY recorded_at ASC, created_at ASC, id ASC")
	}
	if f.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", f.Limit)
	}
	return b.String(), args
}
