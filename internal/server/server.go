package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/eventboard/internal/access"
	"github.com/dukerupert/eventboard/internal/apperr"
	"github.com/dukerupert/eventboard/internal/auth"
	"github.com/dukerupert/eventboard/internal/config"
	"github.com/dukerupert/eventboard/internal/database"
	"github.com/dukerupert/eventboard/internal/fanout"
	"github.com/dukerupert/eventboard/internal/handler"
	"github.com/dukerupert/eventboard/internal/identity"
	"github.com/dukerupert/eventboard/internal/middleware"
	"github.com/dukerupert/eventboard/internal/registry"
	"github.com/dukerupert/eventboard/internal/store"
	"github.com/dukerupert/eventboard/internal/token"
	ws "github.com/dukerupert/eventboard/internal/websocket"
)

type Options struct {
	Config   *config.Config
	DB       *database.DB
	Provider identity.Provider
	// Limiter defaults to an in-memory limiter.
	Limiter middleware.Limiter
	Logger  *slog.Logger
}

type Server struct {
	cfg     *config.Config
	hub     *ws.Hub
	checker *access.Checker
	tokens  *token.Issuer
	users   *store.UserStore
	limiter middleware.Limiter

	eventH        *handler.EventHandler
	subscriptionH *handler.SubscriptionHandler
	adminH        *handler.AdminHandler
	announcementH *handler.AnnouncementHandler
	notificationH *handler.NotificationHandler
	authH         *handler.AuthHandler
	userH         *handler.UserHandler
	reminderH     *handler.ReminderHandler
	healthH       *handler.HealthHandler

	logger *slog.Logger
}

// NotifierConfig derives the fan-out settings from the notify.* keys.
func NotifierConfig(cfg *config.Config) fanout.Config {
	filter := fanout.AllSubscribers
	if cfg.Notify.SkipDisabled {
		filter = fanout.EnabledOnly
	}
	return fanout.Config{
		Concurrency: cfg.Notify.Concurrency,
		Retries:     cfg.Notify.Retries,
		Filter:      filter,
	}
}

func New(opts Options) *Server {
	cfg, db, logger := opts.Config, opts.DB, opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter()
	}

	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	eventStore := store.NewEventStore(db)
	adminStore := store.NewAdminStore(db)
	subscriptionStore := store.NewSubscriptionStore(db)
	announcementStore := store.NewAnnouncementStore(db)
	notificationStore := store.NewNotificationStore(db)

	tokens := token.NewIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	reg := registry.New(eventStore, subscriptionStore, logger)
	notifier := fanout.New(subscriptionStore, notificationStore, hub, NotifierConfig(cfg), logger)
	loc := cfg.DefaultLocation()

	return &Server{
		cfg:     cfg,
		hub:     hub,
		checker: access.NewChecker(adminStore, subscriptionStore),
		tokens:  tokens,
		users:   userStore,
		limiter: limiter,

		eventH:        handler.NewEventHandler(eventStore, userStore, notifier, hub, loc, logger.With("component", "event")),
		subscriptionH: handler.NewSubscriptionHandler(reg, userStore, logger.With("component", "subscription")),
		adminH:        handler.NewAdminHandler(eventStore, adminStore, userStore, logger.With("component", "event_admin")),
		announcementH: handler.NewAnnouncementHandler(eventStore, announcementStore, userStore, notifier, logger.With("component", "announcement")),
		notificationH: handler.NewNotificationHandler(notificationStore, logger.With("component", "notification")),
		authH:         handler.NewAuthHandler(opts.Provider, userStore, tokens, cfg.IsAdminEmail, logger.With("component", "auth")),
		userH:         handler.NewUserHandler(userStore, logger.With("component", "user")),
		reminderH:     handler.NewReminderHandler(eventStore, notifier, cfg.Auth.ReminderKeyHash, logger.With("component", "reminder")),
		healthH:       handler.NewHealthHandler(db, logger),

		logger: logger,
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the limiter guarding every route.
func (s *Server) RateLimiter() middleware.Limiter {
	return s.limiter
}

// route binds a pattern to a handler and the minimum capability the caller
// must hold on the event named by {id}.
type route struct {
	pattern string
	min     access.Capability
	handler http.HandlerFunc
}

func (s *Server) routes() []route {
	const (
		none        = access.None
		participant = access.Participant
		eventAdmin  = access.EventAdmin
		globalAdmin = access.GlobalAdmin
	)
	return []route{
		{"POST /auth/refresh", none, s.authH.Refresh},
		{"GET /me", none, s.userH.Me},
		{"GET /users", none, s.userH.Search},
		{"PUT /users/{id}/admin", globalAdmin, s.userH.SetAdmin},

		{"GET /events", none, s.eventH.List},
		{"POST /events", globalAdmin, s.eventH.Create},
		{"GET /events/{id}", none, s.eventH.Get},
		{"PUT /events/{id}", eventAdmin, s.eventH.Update},
		{"DELETE /events/{id}", eventAdmin, s.eventH.Delete},
		{"POST /events/{id}/remind", eventAdmin, s.eventH.Remind},

		{"GET /events/{id}/subscribe", none, s.subscriptionH.Mine},
		{"POST /events/{id}/subscribe", none, s.subscriptionH.Subscribe},
		{"DELETE /events/{id}/subscribe", none, s.subscriptionH.Unsubscribe},
		{"PUT /events/{id}/subscribe/status", none, s.subscriptionH.SetMyStatus},

		{"GET /events/{id}/participants", eventAdmin, s.subscriptionH.ListParticipants},
		{"POST /events/{id}/participants", eventAdmin, s.subscriptionH.AddParticipant},
		{"PUT /events/{id}/participants/{userID}/status", eventAdmin, s.subscriptionH.SetParticipantStatus},
		{"DELETE /events/{id}/participants/{userID}", eventAdmin, s.subscriptionH.RemoveParticipant},

		{"GET /events/{id}/admins", none, s.adminH.List},
		{"POST /events/{id}/admins", eventAdmin, s.adminH.Add},
		{"DELETE /events/{id}/admins/{userID}", eventAdmin, s.adminH.Remove},

		{"GET /events/{id}/announcements", participant, s.announcementH.List},
		{"POST /events/{id}/announcements", eventAdmin, s.announcementH.Create},
		{"DELETE /events/{id}/announcements/{announcementID}", eventAdmin, s.announcementH.Delete},

		{"GET /notifications", none, s.notificationH.List},
		{"PUT /notifications/read-all", none, s.notificationH.MarkAllRead},
		{"PUT /notifications/{id}/read", none, s.notificationH.MarkRead},
		{"DELETE /notifications/{id}", none, s.notificationH.Delete},

		{"GET /ws", none, ws.HandleWebSocket(s.hub, s.cfg.Server.AllowedOrigins, s.logger.With("component", "websocket"))},
	}
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	limit := middleware.RateLimit(s.limiter, middleware.ClientKey, s.cfg.RateLimit.Limit, s.cfg.RateLimit.Window,
		s.logger.With("component", "ratelimit"))
	if s.cfg.RateLimit.Limit <= 0 {
		limit = func(next http.Handler) http.Handler { return next }
	}

	// Public routes (no bearer token)
	outerMux.HandleFunc("GET /health", s.healthH.Health)
	outerMux.Handle("GET /auth/login", limit(http.HandlerFunc(s.authH.Login)))
	outerMux.Handle("GET /auth/callback", limit(http.HandlerFunc(s.authH.Callback)))
	outerMux.Handle("POST /internal/events/{id}/remind", limit(http.HandlerFunc(s.reminderH.Remind)))

	protectedMux := http.NewServeMux()
	for _, rt := range s.routes() {
		protectedMux.Handle(rt.pattern, s.guard(rt))
	}

	authMiddleware := middleware.RequireAuth(s.tokens, s.users)
	outerMux.Handle("/", authMiddleware(limit(protectedMux)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

// guard enforces the route's minimum capability before the handler runs.
func (s *Server) guard(rt route) http.Handler {
	eventScoped := strings.Contains(rt.pattern, "/events/{id}")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rt.min == access.None {
			rt.handler(w, r)
			return
		}
		var eventID int64
		if eventScoped {
			id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
				return
			}
			eventID = id
		}

		user, _ := auth.FromContext(r.Context())
		if err := s.checker.Require(r.Context(), user, eventID, rt.min); err != nil {
			if apperr.Kind(err) == "unauthorized" {
				s.logger.Warn("capability denied",
					"path", r.URL.Path,
					"user_id", user.UserID,
					"required", rt.min.String(),
					"request_id", middleware.RequestID(r.Context()),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="eventboard"`)
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			s.logger.Error("capability check", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
			return
		}
		rt.handler(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
