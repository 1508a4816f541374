package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/eventora/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the pgx-backed Repository. It uses pgx directly (no ORM).
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres repository.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

const uniqueViolation = "23505"

// validID reports whether id can be compared against a UUID column.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *Postgres) CreateUser(ctx context.Context, u User) (*User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Roles == nil {
		u.Roles = []string{}
	}
	u.CreatedAt = time.Now().UTC()

	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, roles, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, u.Roles, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

const userColumns = `id, email, display_name, password_hash, roles, created_at`

func (r *Postgres) UserByEmail(ctx context.Context, email string) (*User, error) {
	return r.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

func (r *Postgres) UserByID(ctx context.Context, id string) (*User, error) {
	return r.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *Postgres) queryUser(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := r.db.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Roles, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

const eventColumns = `e.id, e.organizer_id, u.display_name, e.title, e.description, e.category,
	e.location_name, e.city, e.state, e.country, e.latitude, e.longitude,
	e.start_date, e.end_date, e.max_participants, e.current_participants,
	e.price, e.image_url, e.tags, e.status, e.created_at`

const eventFrom = ` FROM events e JOIN users u ON u.id = e.organizer_id`

func scanEvent(row pgx.Row) (*EventRecord, error) {
	var (
		e          EventRecord
		start, end *time.Time
		category   string
		status     string
	)
	err := row.Scan(
		&e.ID, &e.OrganizerID, &e.OrganizerDisplayName, &e.Title, &e.Description, &category,
		&e.LocationName, &e.City, &e.State, &e.Country, &e.Latitude, &e.Longitude,
		&start, &end, &e.MaxParticipants, &e.CurrentParticipants,
		&e.Price, &e.ImageURL, &e.Tags, &status, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Category = model.Category(category)
	e.EventStatus = model.EventStatus(status)
	if start != nil {
		e.StartDate = model.Timestamp{Time: *start}
	}
	if end != nil {
		e.EndDate = model.Timestamp{Time: *end}
	}
	return &e, nil
}

func nullableTime(t model.Timestamp) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t.Time
}

func (r *Postgres) CreateEvent(ctx context.Context, e EventRecord) (*EventRecord, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	e.CreatedAt = time.Now().UTC()
	e.CurrentParticipants = 0

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, organizer_id, title, description, category, location_name,
		   city, state, country, latitude, longitude, start_date, end_date,
		   max_participants, current_participants, price, image_url, tags, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 0, $15, $16, $17, $18, $19)`,
		e.ID, e.OrganizerID, e.Title, e.Description, string(e.Category), e.LocationName,
		e.City, e.State, e.Country, e.Latitude, e.Longitude, nullableTime(e.StartDate), nullableTime(e.EndDate),
		e.MaxParticipants, e.Price, e.ImageURL, e.Tags, string(e.EventStatus), e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return r.EventByID(ctx, e.ID)
}

func (r *Postgres) UpdateEvent(ctx context.Context, e EventRecord) error {
	if e.Tags == nil {
		e.Tags = []string{}
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE events SET title = $2, description = $3, category = $4, location_name = $5,
		   city = $6, state = $7, country = $8, latitude = $9, longitude = $10,
		   start_date = $11, end_date = $12, max_participants = $13, price = $14,
		   image_url = $15, tags = $16
		 WHERE id = $1`,
		e.ID, e.Title, e.Description, string(e.Category), e.LocationName,
		e.City, e.State, e.Country, e.Latitude, e.Longitude,
		nullableTime(e.StartDate), nullableTime(e.EndDate), e.MaxParticipants, e.Price,
		e.ImageURL, e.Tags,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Postgres) EventByID(ctx context.Context, id string) (*EventRecord, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	e, err := scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+eventFrom+` WHERE e.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// ListEvents returns all events ordered by creation time descending.
func (r *Postgres) ListEvents(ctx context.Context) ([]EventRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT `+eventColumns+eventFrom+` ORDER BY e.created_at DESC, e.id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (r *Postgres) UpdateStatus(ctx context.Context, id string, from, to model.EventStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE events SET status = $3 WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.EventByID(ctx, id); err != nil {
			return err
		}
		return ErrStatusChanged
	}
	return nil
}

// Book performs a concurrency-safe registration inside one transaction.
//
// SELECT ... FOR UPDATE takes a row lock on the event, so concurrent
// bookings for the same event queue up behind each other and the capacity
// check below always sees the committed counter.
func (r *Postgres) Book(ctx context.Context, eventID, userID string) (reg *Registration, err error) {
	if !validID(eventID) {
		return nil, ErrNotFound
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var (
		maxParticipants *int
		current         int
		status          string
	)
	err = tx.QueryRow(ctx,
		`SELECT max_participants, current_participants, status
		 FROM events
		 WHERE id = $1
		 FOR UPDATE`,
		eventID,
	).Scan(&maxParticipants, &current, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	var existing string
	err = tx.QueryRow(ctx,
		`SELECT status FROM registrations WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	).Scan(&existing)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing registration: %w", err)
	}
	if err = checkBookable(model.EventStatus(status), model.RegistrationStatus(existing)); err != nil {
		return nil, err
	}
	if maxParticipants != nil && current >= *maxParticipants {
		return nil, ErrEventFull
	}

	_, err = tx.Exec(ctx,
		`UPDATE events SET current_participants = current_participants + 1 WHERE id = $1`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("increment participants: %w", err)
	}

	reg = &Registration{
		ID:        uuid.NewString(),
		EventID:   eventID,
		UserID:    userID,
		Status:    model.RegistrationRegistered,
		CreatedAt: time.Now().UTC(),
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (id, event_id, user_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)`,
		reg.ID, reg.EventID, reg.UserID, string(reg.Status), reg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return reg, nil
}

// Unbook marks the registration cancelled and frees the place, under the
// same row lock as Book.
func (r *Postgres) Unbook(ctx context.Context, eventID, userID string) (err error) {
	if !validID(eventID) {
		return ErrNotFound
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var id string
	err = tx.QueryRow(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock event row: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE registrations SET status = $3, updated_at = now()
		 WHERE event_id = $1 AND user_id = $2 AND status = $4`,
		eventID, userID, string(model.RegistrationCancelled), string(model.RegistrationRegistered),
	)
	if err != nil {
		return fmt.Errorf("cancel registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = ErrNotRegistered
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE events SET current_participants = GREATEST(current_participants - 1, 0) WHERE id = $1`,
		eventID,
	)
	if err != nil {
		return fmt.Errorf("decrement participants: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *Postgres) RegistrationStatus(ctx context.Context, eventID, userID string) (model.RegistrationStatus, error) {
	var status string
	err := r.db.QueryRow(ctx,
		`SELECT status FROM registrations WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RegistrationNone, nil
		}
		return "", fmt.Errorf("get registration: %w", err)
	}
	return model.ParseRegistrationStatus(status), nil
}

func (r *Postgres) RegisteredEventIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT event_id FROM registrations
		 WHERE user_id = $1 AND status = $2
		 ORDER BY created_at ASC`,
		userID, string(model.RegistrationRegistered),
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ Repository = (*Postgres)(nil)
var _ Repository = (*Memory)(nil)
