package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"orcid/internal/domain/models"
	"orcid/internal/lib/logger/sl"
	"orcid/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// DB is the subset of *pgxpool.Pool the storage relies on.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

type Storage struct {
	db  DB
	log *slog.Logger
}

func Config(dsn string) (*pgxpool.Config, error) {
	const defaultMaxConns = int32(20)
	const defaultMinConns = int32(0)
	const defaultMaxConnLifetime = time.Hour
	const defaultMaxConnIdleTime = time.Minute * 30
	const defaultHealthCheckPeriod = time.Minute
	const defaultConnectTimeout = time.Second * 5

	dbConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	dbConfig.MaxConns = defaultMaxConns
	dbConfig.MinConns = defaultMinConns
	dbConfig.MaxConnLifetime = defaultMaxConnLifetime
	dbConfig.MaxConnIdleTime = defaultMaxConnIdleTime
	dbConfig.HealthCheckPeriod = defaultHealthCheckPeriod
	dbConfig.ConnConfig.ConnectTimeout = defaultConnectTimeout

	return dbConfig, nil
}

func New(ctx context.Context, dsn string, log *slog.Logger) (*Storage, error) {
	const op = "storage.postgres.New"

	cfg, err := Config(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewWithDB(db, log), nil
}

// NewWithDB wraps an already opened pool.
func NewWithDB(db DB, log *slog.Logger) *Storage {
	return &Storage{db: db, log: log}
}

func (s *Storage) Close() error {
	s.db.Close()
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Storage) SaveProfileRequest(ctx context.Context, req models.ProfileRequest) (models.ProfileRequest, error) {
	const op = "storage.postgres.SaveProfileRequest"

	query := `
		INSERT INTO orcid_profile_requests (id, user_id, given_names, family_name, primary_email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, given_names, family_name, primary_email, orcid_profile_id, created_at, updated_at
	`

	row := s.db.QueryRow(ctx, query, uuid.New().String(), req.UserID, req.GivenNames, req.FamilyName, req.PrimaryEmail)

	saved, err := scanProfileRequest(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.ProfileRequest{}, fmt.Errorf("%s: %w", op, storage.ErrProfileRequestExists)
		}
		return models.ProfileRequest{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("profile request saved", slog.String("request_id", saved.ID), sl.UserID(saved.UserID))
	return saved, nil
}

func (s *Storage) ProfileRequestByUserID(ctx context.Context, userID int64) (models.ProfileRequest, error) {
	const op = "storage.postgres.ProfileRequestByUserID"

	query := `
		SELECT id, user_id, given_names, family_name, primary_email, orcid_profile_id, created_at, updated_at
		FROM orcid_profile_requests
		WHERE user_id = $1
	`

	req, err := scanProfileRequest(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ProfileRequest{}, fmt.Errorf("%s: %w", op, storage.ErrProfileRequestNotFound)
		}
		return models.ProfileRequest{}, fmt.Errorf("%s: %w", op, err)
	}

	return req, nil
}

// OrcidProfileForUser returns the ORCID iD the user is already connected to.
func (s *Storage) OrcidProfileForUser(ctx context.Context, userID int64) (string, error) {
	const op = "storage.postgres.OrcidProfileForUser"

	query := `SELECT uid FROM authentications WHERE provider = $1 AND user_id = $2`

	var uid string
	err := s.db.QueryRow(ctx, query, models.ProviderORCID, userID).Scan(&uid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrOrcidProfileNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return uid, nil
}

// RecordProfileCreation stores the issued ORCID iD on the request and connects the user to it.
// Both writes commit together or not at all.
func (s *Storage) RecordProfileCreation(ctx context.Context, requestID string, userID int64, orcidProfileID string) (err error) {
	const op = "storage.postgres.RecordProfileCreation"

	log := s.log.With(
		slog.String("op", op),
		slog.String("request_id", requestID),
		sl.UserID(userID),
	)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Error("failed to rollback", sl.Err(rbErr))
		}
	}()

	tag, err := tx.Exec(ctx,
		`UPDATE orcid_profile_requests SET orcid_profile_id = $1, updated_at = now() WHERE id = $2`,
		orcidProfileID, requestID,
	)
	if err != nil {
		return fmt.Errorf("%s: update request: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrProfileRequestNotFound)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO authentications (user_id, provider, uid) VALUES ($1, $2, $3)`,
		userID, models.ProviderORCID, orcidProfileID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrOrcidProfileAlreadyAssigned)
		}
		return fmt.Errorf("%s: connect user: %w", op, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	log.Info("orcid profile recorded", slog.String("orcid_profile_id", orcidProfileID))
	return nil
}

func scanProfileRequest(row pgx.Row) (models.ProfileRequest, error) {
	var (
		req            models.ProfileRequest
		orcidProfileID pgtype.Text
	)

	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.GivenNames,
		&req.FamilyName,
		&req.PrimaryEmail,
		&orcidProfileID,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return models.ProfileRequest{}, err
	}

	if orcidProfileID.Valid {
		req.OrcidProfileID = strings.TrimSpace(orcidProfileID.String)
	}

	return req, nil
}
