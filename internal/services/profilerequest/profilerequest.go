package profilerequest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"orcid/internal/domain/models"
	"orcid/internal/lib/logger/sl"
	"orcid/internal/orcid"
	"orcid/internal/storage"
	"orcid/internal/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ErrProfileRequestNotFound = errors.New("profile request not found")
	ErrProfileRequestExists   = errors.New("profile request already exists")
	ErrOrcidProfileNotFound   = errors.New("orcid profile not found")
)

var runsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "orcid_profile_request_runs_total",
		Help: "Profile request submissions by outcome",
	},
	[]string{"outcome"},
)

type ProfileRequestSaver interface {
	SaveProfileRequest(ctx context.Context, req models.ProfileRequest) (models.ProfileRequest, error)
	// RecordProfileCreation must store the iD and connect the user in one transaction.
	RecordProfileCreation(ctx context.Context, requestID string, userID int64, orcidProfileID string) error
}

type ProfileRequestProvider interface {
	ProfileRequestByUserID(ctx context.Context, userID int64) (models.ProfileRequest, error)
}

type OrcidProfileProvider interface {
	OrcidProfileForUser(ctx context.Context, userID int64) (string, error)
}

type EventPublisher interface {
	ProfileCreated(ctx context.Context, ev models.ProfileCreated) error
}

// Validator decides whether a request may be submitted. A false result must be
// explained through req.AddError; an error means the check itself could not run.
type Validator interface {
	Validate(ctx context.Context, req *models.ProfileRequest) (bool, error)
}

type ValidatorFunc func(ctx context.Context, req *models.ProfileRequest) (bool, error)

func (f ValidatorFunc) Validate(ctx context.Context, req *models.ProfileRequest) (bool, error) {
	return f(ctx, req)
}

type PayloadBuilder interface {
	BuildPayload(attrs map[string]string) (string, error)
}

// Submitter sends a payload to ORCID and returns the newly assigned iD.
type Submitter interface {
	Submit(ctx context.Context, payload string) (string, error)
}

type SubmitterFunc func(ctx context.Context, payload string) (string, error)

func (f SubmitterFunc) Submit(ctx context.Context, payload string) (string, error) {
	return f(ctx, payload)
}

type Service struct {
	log       *slog.Logger
	saver     ProfileRequestSaver
	provider  ProfileRequestProvider
	profiles  OrcidProfileProvider
	publisher EventPublisher

	validator Validator
	builder   PayloadBuilder
	submitter Submitter
}

type Option func(*Service)

func WithValidator(v Validator) Option {
	return func(s *Service) { s.validator = v }
}

func WithPayloadBuilder(b PayloadBuilder) Option {
	return func(s *Service) { s.builder = b }
}

func WithSubmitter(sub Submitter) Option {
	return func(s *Service) { s.submitter = sub }
}

func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// New wires the service. submitter is the default remote gateway; the validator
// defaults to ValidateBeforeRun and the payload builder to orcid.BuildPayload.
func New(
	log *slog.Logger,
	saver ProfileRequestSaver,
	provider ProfileRequestProvider,
	profiles OrcidProfileProvider,
	submitter Submitter,
	opts ...Option,
) *Service {
	s := &Service{
		log:       log,
		saver:     saver,
		provider:  provider,
		profiles:  profiles,
		submitter: submitter,
		builder:   orcid.PayloadBuilderFunc(orcid.BuildPayload),
	}
	s.validator = ValidatorFunc(s.ValidateBeforeRun)

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateProfileRequest acknowledges that the user asked for an ORCID profile.
func (s *Service) CreateProfileRequest(ctx context.Context, in models.CreateProfileRequestInput) (models.ProfileRequest, error) {
	const op = "services.profilerequest.CreateProfileRequest"

	in = in.Normalize()

	log := s.log.With(
		slog.String("op", op),
		sl.UserID(in.UserID),
	)

	v := validator.New()
	validator.ValidateProfileRequestInput(v, in.UserID, in.GivenNames, in.FamilyName, in.PrimaryEmail, in.PrimaryEmailConfirmation)
	if !v.Valid() {
		log.Warn("invalid profile request", slog.Any("errors", v.Errors))
		return models.ProfileRequest{}, fmt.Errorf("%s: %w", op, &validator.ValidationError{Errors: v.Errors})
	}

	req, err := s.saver.SaveProfileRequest(ctx, models.ProfileRequest{
		UserID:       in.UserID,
		GivenNames:   in.GivenNames,
		FamilyName:   in.FamilyName,
		PrimaryEmail: in.PrimaryEmail,
	})
	if err != nil {
		if errors.Is(err, storage.ErrProfileRequestExists) {
			log.Warn("profile request already exists")
			return models.ProfileRequest{}, fmt.Errorf("%s: %w", op, ErrProfileRequestExists)
		}
		log.Error("failed to save profile request", sl.Err(err))
		return models.ProfileRequest{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("profile request created", slog.String("request_id", req.ID))
	return req, nil
}

func (s *Service) ProfileRequestForUser(ctx context.Context, userID int64) (models.ProfileRequest, error) {
	const op = "services.profilerequest.ProfileRequestForUser"

	req, err := s.provider.ProfileRequestByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrProfileRequestNotFound) {
			return models.ProfileRequest{}, fmt.Errorf("%s: %w", op, ErrProfileRequestNotFound)
		}
		s.log.Error("failed to get profile request", slog.String("op", op), sl.UserID(userID), sl.Err(err))
		return models.ProfileRequest{}, fmt.Errorf("%s: %w", op, err)
	}

	return req, nil
}

func (s *Service) OrcidProfileForUser(ctx context.Context, userID int64) (string, error) {
	const op = "services.profilerequest.OrcidProfileForUser"

	id, err := s.profiles.OrcidProfileForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrOrcidProfileNotFound) {
			return "", fmt.Errorf("%s: %w", op, ErrOrcidProfileNotFound)
		}
		s.log.Error("failed to look up orcid profile", slog.String("op", op), sl.UserID(userID), sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// SubmitForUser loads the user's request and runs it.
func (s *Service) SubmitForUser(ctx context.Context, userID int64) (models.ProfileRequest, bool, error) {
	req, err := s.ProfileRequestForUser(ctx, userID)
	if err != nil {
		return models.ProfileRequest{}, false, err
	}

	ok, err := s.Run(ctx, &req)
	return req, ok, err
}

// Run validates the request, submits it to ORCID and records the issued iD.
// It returns false without error when a precondition fails; the reason is on req.Errors.
func (s *Service) Run(ctx context.Context, req *models.ProfileRequest) (bool, error) {
	const op = "services.profilerequest.Run"

	log := s.log.With(
		slog.String("op", op),
		slog.String("request_id", req.ID),
		sl.UserID(req.UserID),
	)

	ok, err := s.validator.Validate(ctx, req)
	if err != nil {
		runsTotal.WithLabelValues("error").Inc()
		log.Error("failed to validate profile request", sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		runsTotal.WithLabelValues("rejected").Inc()
		log.Warn("profile request not submitted", slog.Any("errors", req.Errors))
		return false, nil
	}

	payload, err := s.builder.BuildPayload(req.Attributes())
	if err != nil {
		runsTotal.WithLabelValues("error").Inc()
		log.Error("failed to build payload", sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	orcidProfileID, err := s.submitter.Submit(ctx, payload)
	if err != nil {
		runsTotal.WithLabelValues("remote_error").Inc()
		log.Error("failed to submit profile request", sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.handleProfileCreation(ctx, req, orcidProfileID); err != nil {
		runsTotal.WithLabelValues("error").Inc()
		log.Error("failed to record orcid profile", slog.String("orcid_profile_id", orcidProfileID), sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	runsTotal.WithLabelValues("created").Inc()
	log.Info("orcid profile assigned", slog.String("orcid_profile_id", orcidProfileID))
	return true, nil
}

// ValidateBeforeRun is the default Validator: the request must not already carry an
// iD, and its user must not already be connected to an ORCID profile.
func (s *Service) ValidateBeforeRun(ctx context.Context, req *models.ProfileRequest) (bool, error) {
	if !validateProfileIDIsUnassigned(req) {
		return false, nil
	}

	return s.validateUserDoesNotHaveProfile(ctx, req)
}

func validateProfileIDIsUnassigned(req *models.ProfileRequest) bool {
	if !req.HasOrcidProfileID() {
		return true
	}

	req.AddError(validator.Base, fmt.Sprintf(
		"ProfileRequest ID=%s already has an assigned :orcid_profile_id %q",
		req.ID, req.OrcidProfileID,
	))
	return false
}

func (s *Service) validateUserDoesNotHaveProfile(ctx context.Context, req *models.ProfileRequest) (bool, error) {
	existing, err := s.profiles.OrcidProfileForUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrOrcidProfileNotFound) {
			return true, nil
		}
		return false, err
	}

	req.AddError(validator.Base, fmt.Sprintf(
		"ProfileRequest ID=%s's associated user %d already has an assigned :orcid_profile_id %s",
		req.ID, req.UserID, existing,
	))
	return false, nil
}

func (s *Service) handleProfileCreation(ctx context.Context, req *models.ProfileRequest, orcidProfileID string) error {
	if err := s.saver.RecordProfileCreation(ctx, req.ID, req.UserID, orcidProfileID); err != nil {
		return err
	}
	req.OrcidProfileID = orcidProfileID

	if s.publisher == nil {
		return nil
	}

	// The profile is already recorded; a lost event must not fail the run.
	ev := models.ProfileCreated{
		RequestID:      req.ID,
		UserID:         req.UserID,
		OrcidProfileID: orcidProfileID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.publisher.ProfileCreated(ctx, ev); err != nil {
		s.log.Warn("failed to publish profile created event", sl.UserID(req.UserID), sl.Err(err))
	}

	return nil
}
