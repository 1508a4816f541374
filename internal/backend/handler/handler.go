// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/eventora/internal/backend/repository"
	"github.com/Shivanand-hulikatti/eventora/internal/backend/service"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
)

// Options tune the router.
type Options struct {
	// RedirectLists answers list reads with 302 Found and the JSON body,
	// as some deployments behind a misconfigured proxy do.
	RedirectLists bool
	// DevAuthorize mounts a stand-in provider consent endpoint.
	DevAuthorize bool
	// AllowOrigin is the browser origin allowed by CORS.
	AllowOrigin string
	Logger      *slog.Logger
}

// Handler holds all HTTP handlers for the Eventora API.
type Handler struct {
	events *service.EventService
	auth   *service.AuthService
	opts   Options
	logger *slog.Logger
}

// New constructs a Handler.
func New(events *service.EventService, auth *service.AuthService, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{events: events, auth: auth, opts: opts, logger: logger}
}

// Router builds the full route tree.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(h.logger))
	r.Use(CORS(h.opts.AllowOrigin))

	r.Get("/health", HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(h.identify)

		r.Route("/public/api", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/create-user", h.Signup)
			r.With(requireUser).Get("/getUserInfo", h.UserInfo)

			r.Route("/events", func(r chi.Router) {
				r.Post("/getByFilter", h.GetByFilter)
				r.Get("/getById", h.GetByID)
				r.Get("/getByNameAndOrganizer", h.Search)

				r.Group(func(r chi.Router) {
					r.Use(requireUser)
					r.Get("/getByNameOrganiserByMe", h.OrganizerEvents)
					r.Post("/create", h.CreateEvent)
					r.Post("/update/{id}", h.UpdateEvent)
					r.Put("/schedule/{id}", h.Schedule)
					r.Put("/cancel/{id}", h.CancelEvent)
				})
			})
		})

		r.Route("/api/registrations", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/getMyEvents", h.MyEvents)
			r.Post("/register-event/{id}", h.Register)
			r.Delete("/unregister-event/{id}", h.Unregister)
		})

		r.Route("/api/ml", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/predict/event/{id}", h.Predict)
			r.Get("/prediction/latest/{id}", h.LatestPrediction)
			r.Get("/prediction/history/{id}", h.PredictionHistory)
			r.Get("/health", h.MLHealth)
			r.Get("/stats", h.MLStats)
		})

		r.Get("/auth/{provider}/code", h.ExchangeCode)
	})

	if h.opts.DevAuthorize {
		r.Get("/dev/oauth/{provider}/authorize", h.DevAuthorize)
	}

	return r
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Message: msg})
}

// writeList answers a list read, as a redirect carrying the body when the
// router is configured to.
func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, v any) {
	if h.opts.RedirectLists {
		w.Header().Set("Location", r.URL.RequestURI())
		writeJSON(w, http.StatusFound, v)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

// writeServiceError maps domain errors onto statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	var (
		verr *service.ValidationError
		terr *service.TransitionError
	)
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Msg)
	case errors.As(err, &terr):
		writeError(w, http.StatusConflict, terr.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, repository.ErrEventFull):
		writeError(w, http.StatusConflict, "event is fully booked")
	case errors.Is(err, repository.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "you are already registered for this event")
	case errors.Is(err, repository.ErrRegistrationCancelled):
		writeError(w, http.StatusConflict, "You can only register for an event once.")
	case errors.Is(err, repository.ErrNotRegistered):
		writeError(w, http.StatusConflict, "you are not registered for this event")
	case errors.Is(err, repository.ErrNotOpen):
		writeError(w, http.StatusConflict, "event is not open for registration")
	case errors.Is(err, repository.ErrStatusChanged):
		writeError(w, http.StatusConflict, "event changed, reload and try again")
	default:
		h.logger.Error("request_failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func searchParams(r *http.Request) model.SearchParams {
	q := r.URL.Query()
	p := model.SearchParams{
		EventName:     q.Get("eventName"),
		OrganizerName: q.Get("organizerName"),
		Page:          model.DefaultPage,
		Size:          model.DefaultSize,
	}
	p.MyEventsOnly, _ = strconv.ParseBool(q.Get("isMyEventList"))
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Page = n
	}
	if n, err := strconv.Atoi(q.Get("size")); err == nil {
		p.Size = n
	}
	return p
}

// ─── Identity ─────────────────────────────────────────────────────────────────

// Login handles POST /public/api/login and answers 202 with a token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	token, err := h.auth.Login(r.Context(), creds)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.writeServiceError(w, err, "login failed")
		return
	}
	writeJSON(w, http.StatusAccepted, model.TokenResponse{Token: token})
}

// Signup handles POST /public/api/create-user.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	u, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			writeError(w, http.StatusConflict, "User already exists")
			return
		}
		h.writeServiceError(w, err, "failed to create user")
		return
	}
	writeJSON(w, http.StatusCreated, model.UserProfile{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName, Roles: u.Roles})
}

// UserInfo handles GET /public/api/getUserInfo.
func (h *Handler) UserInfo(w http.ResponseWriter, r *http.Request) {
	p, err := h.auth.Profile(r.Context(), userID(r.Context()))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "account no longer exists")
			return
		}
		h.writeServiceError(w, err, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ExchangeCode handles GET /auth/{provider}/code?code=.
func (h *Handler) ExchangeCode(w http.ResponseWriter, r *http.Request) {
	token, err := h.auth.ExchangeCode(r.Context(), chi.URLParam(r, "provider"), r.URL.Query().Get("code"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCode) {
			writeError(w, http.StatusUnauthorized, "Invalid authorization code")
			return
		}
		h.writeServiceError(w, err, "code exchange failed")
		return
	}
	writeJSON(w, http.StatusOK, model.TokenResponse{Token: token})
}

// ─── Events ───────────────────────────────────────────────────────────────────

// GetByFilter handles POST /public/api/events/getByFilter.
func (h *Handler) GetByFilter(w http.ResponseWriter, r *http.Request) {
	var f model.EventFilter
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &f); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	events, err := h.events.FilterEvents(r.Context(), f, userID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "failed to list events")
		return
	}
	h.writeList(w, r, events)
}

// GetByID handles GET /public/api/events/getById?eventId=.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	e, err := h.events.GetEvent(r.Context(), r.URL.Query().Get("eventId"), userID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "failed to get event")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Search handles GET /public/api/events/getByNameAndOrganizer.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := h.events.Search(r.Context(), searchParams(r), userID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "failed to search events")
		return
	}
	h.writeList(w, r, page)
}

// OrganizerEvents handles GET /public/api/events/getByNameOrganiserByMe.
func (h *Handler) OrganizerEvents(w http.ResponseWriter, r *http.Request) {
	page, err := h.events.OrganizerEvents(r.Context(), userID(r.Context()), searchParams(r))
	if err != nil {
		h.writeServiceError(w, err, "failed to list your events")
		return
	}
	h.writeList(w, r, page)
}

// CreateEvent handles POST /public/api/events/create.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.EventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	e, err := h.events.CreateEvent(r.Context(), userID(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, err, "failed to create event")
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// UpdateEvent handles POST /public/api/events/update/{id}.
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.EventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	e, err := h.events.UpdateEvent(r.Context(), userID(r.Context()), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, err, "failed to update event")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Schedule handles PUT /public/api/events/schedule/{id}.
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	if err := h.events.Schedule(r.Context(), userID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "failed to schedule event")
		return
	}
	writeText(w, http.StatusOK, "Event scheduled")
}

// CancelEvent handles PUT /public/api/events/cancel/{id}.
func (h *Handler) CancelEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.events.CancelEvent(r.Context(), userID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "failed to cancel event")
		return
	}
	writeText(w, http.StatusOK, "Event cancelled")
}

// ─── Registrations ────────────────────────────────────────────────────────────

// MyEvents handles GET /api/registrations/getMyEvents.
func (h *Handler) MyEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.MyEvents(r.Context(), userID(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "failed to list registrations")
		return
	}
	h.writeList(w, r, events)
}

// Register handles POST /api/registrations/register-event/{id}.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := h.events.Register(r.Context(), userID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "failed to register")
		return
	}
	writeText(w, http.StatusOK, "Registered successfully")
}

// Unregister handles DELETE /api/registrations/unregister-event/{id}.
func (h *Handler) Unregister(w http.ResponseWriter, r *http.Request) {
	if err := h.events.Unregister(r.Context(), userID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, err, "failed to cancel registration")
		return
	}
	writeText(w, http.StatusOK, "Registration cancelled")
}

// ─── ML ───────────────────────────────────────────────────────────────────────

// The development backend carries no prediction model; these endpoints
// answer with the shapes the client handles.

// Predict handles GET /api/ml/predict/event/{id}.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if !h.eventExists(w, r) {
		return
	}
	writeError(w, http.StatusNotFound, "prediction model not available")
}

// LatestPrediction handles GET /api/ml/prediction/latest/{id}.
func (h *Handler) LatestPrediction(w http.ResponseWriter, r *http.Request) {
	if !h.eventExists(w, r) {
		return
	}
	writeError(w, http.StatusNotFound, "No latest prediction available.")
}

// PredictionHistory handles GET /api/ml/prediction/history/{id}.
func (h *Handler) PredictionHistory(w http.ResponseWriter, r *http.Request) {
	if !h.eventExists(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, []any{})
}

// MLHealth handles GET /api/ml/health.
func (h *Handler) MLHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP", "model": "none"})
}

// MLStats handles GET /api/ml/stats.
func (h *Handler) MLStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"totalPredictions": 0, "modelsLoaded": 0})
}

func (h *Handler) eventExists(w http.ResponseWriter, r *http.Request) bool {
	if _, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"), ""); err != nil {
		h.writeServiceError(w, err, "failed to get event")
		return false
	}
	return true
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// DevAuthorize handles GET /dev/oauth/{provider}/authorize. It plays the
// provider's consent screen: it grants a fresh code for a per-provider dev
// account and redirects back to redirect_uri with code and state.
func (h *Handler) DevAuthorize(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()
	target, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || target.Scheme == "" || target.Host == "" {
		writeError(w, http.StatusBadRequest, "redirect_uri must be an absolute URL")
		return
	}
	code := uuid.NewString()
	h.auth.GrantCode(provider, code, service.OAuthIdentity{
		Email:       "dev-" + provider + "@example.com",
		DisplayName: "Dev " + provider,
	})
	back := target.Query()
	back.Set("code", code)
	if state := q.Get("state"); state != "" {
		back.Set("state", state)
	}
	target.RawQuery = back.Encode()
	h.logger.Info("dev_oauth_code_granted", "provider", provider)
	http.Redirect(w, r, target.String(), http.StatusFound)
}
