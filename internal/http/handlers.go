package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"orcid/internal/app/auth"
	"orcid/internal/domain/models"
	"orcid/internal/lib/logger/sl"
	"orcid/internal/orcid"
	"orcid/internal/services/profilerequest"
	"orcid/internal/validator"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type userHandler func(w http.ResponseWriter, r *http.Request, userID int64)

type errorsResponse struct {
	Errors   validator.Errors `json:"errors"`
	Messages []string         `json:"messages"`
}

type orcidProfileResponse struct {
	OrcidProfileID string                 `json:"orcid_profile_id"`
	ProfileRequest *models.ProfileRequest `json:"profile_request,omitempty"`
}

// authorized resolves {user_id} and only lets the token's owner through.
func (s *Server) authorized(next userHandler) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
		userID, err := strconv.ParseInt(pathParams["user_id"], 10, 64)
		if err != nil || userID <= 0 {
			s.httpError(w, r, status.Error(codes.InvalidArgument, "user_id must be a positive integer"))
			return
		}

		claims, err := s.auth.Authenticate(r)
		if err != nil {
			s.httpError(w, r, status.Error(codes.Unauthenticated, err.Error()))
			return
		}

		if err := auth.RequireOwnership(claims, userID); err != nil {
			s.httpError(w, r, status.Error(codes.PermissionDenied, err.Error()))
			return
		}

		next(w, r, userID)
	}
}

func (s *Server) createProfileRequest(w http.ResponseWriter, r *http.Request, userID int64) {
	var in models.CreateProfileRequestInput
	if err := s.marshaler.NewDecoder(r.Body).Decode(&in); err != nil {
		s.httpError(w, r, status.Error(codes.InvalidArgument, "malformed request body"))
		return
	}
	in.UserID = userID

	req, err := s.requests.CreateProfileRequest(r.Context(), in)
	if err != nil {
		var vErr *validator.ValidationError
		switch {
		case errors.As(err, &vErr):
			s.writeJSON(w, http.StatusBadRequest, errorsResponse{Errors: vErr.Errors, Messages: vErr.Errors.Full()})
		case errors.Is(err, profilerequest.ErrProfileRequestExists):
			s.httpError(w, r, status.Error(codes.AlreadyExists, "profile request already exists"))
		default:
			s.internalError(w, r, err)
		}
		return
	}

	s.writeJSON(w, http.StatusCreated, req)
}

func (s *Server) getProfileRequest(w http.ResponseWriter, r *http.Request, userID int64) {
	req, err := s.requests.ProfileRequestForUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, profilerequest.ErrProfileRequestNotFound) {
			s.httpError(w, r, status.Error(codes.NotFound, "profile request not found"))
			return
		}
		s.internalError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, req)
}

func (s *Server) runProfileRequest(w http.ResponseWriter, r *http.Request, userID int64) {
	req, ok, err := s.requests.SubmitForUser(r.Context(), userID)
	if err != nil {
		var (
			remoteErr *orcid.RemoteServiceError
			cfgErr    *orcid.ConfigurationError
		)
		switch {
		case errors.Is(err, profilerequest.ErrProfileRequestNotFound):
			s.httpError(w, r, status.Error(codes.NotFound, "profile request not found"))
		case errors.As(err, &remoteErr):
			s.log.Error("orcid remote call failed", sl.UserID(userID), slog.Int("status", remoteErr.StatusCode()), sl.Err(err))
			s.httpError(w, r, status.Error(codes.Unavailable, "orcid did not accept the profile request"))
		case errors.As(err, &cfgErr):
			s.log.Error("orcid is not configured", sl.Err(err))
			s.httpError(w, r, status.Error(codes.FailedPrecondition, cfgErr.Error()))
		default:
			s.internalError(w, r, err)
		}
		return
	}

	if !ok {
		s.writeJSON(w, http.StatusUnprocessableEntity, errorsResponse{Errors: req.Errors, Messages: req.Errors.Full()})
		return
	}

	s.writeJSON(w, http.StatusOK, orcidProfileResponse{OrcidProfileID: req.OrcidProfileID, ProfileRequest: &req})
}

func (s *Server) getOrcidProfile(w http.ResponseWriter, r *http.Request, userID int64) {
	id, err := s.requests.OrcidProfileForUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, profilerequest.ErrOrcidProfileNotFound) {
			s.httpError(w, r, status.Error(codes.NotFound, "orcid profile not found"))
			return
		}
		s.internalError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, orcidProfileResponse{OrcidProfileID: id})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := s.marshaler.Marshal(v)
	if err != nil {
		s.log.Error("failed to marshal response", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", s.marshaler.ContentType(v))
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func (s *Server) httpError(w http.ResponseWriter, r *http.Request, err error) {
	runtime.HTTPError(r.Context(), s.mux, s.marshaler, w, r, err)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("request failed", slog.String("path", r.URL.Path), sl.Err(err))
	s.httpError(w, r, status.Error(codes.Internal, "internal server error"))
}
