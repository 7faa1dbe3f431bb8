package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtroode/kychat-server/internal/api/http/handler"
	"github.com/dtroode/kychat-server/internal/api/http/middleware"
	"github.com/dtroode/kychat-server/internal/logger"
	"github.com/dtroode/kychat-server/internal/model"
)

// Config holds the HTTP surface parameters.
type Config struct {
	AllowedOrigins []string
	AuthRPS        float64
	AuthBurst      int
	MaxUploadBytes int64
}

// Services are the application services exposed over HTTP.
type Services struct {
	Auth    handler.AuthService
	User    handler.UserService
	Channel handler.ChannelService
	File    handler.FileService
	Token   middleware.TokenService
}

// Router builds the public HTTP API of the chat server.
type Router struct {
	services       Services
	realtime       http.Handler
	db             model.Pinger
	connections    handler.ConnectionCounter
	contextManager model.ContextManager
	cfg            Config
	logger         *logger.Logger
}

// New creates new HTTP Router instance. realtime serves the websocket
// endpoint; connections reports its live sessions on the health endpoint.
func New(
	services Services,
	realtime http.Handler,
	db model.Pinger,
	connections handler.ConnectionCounter,
	contextManager model.ContextManager,
	cfg Config,
	logger *logger.Logger,
) *Router {
	return &Router{
		services:       services,
		realtime:       realtime,
		db:             db,
		connections:    connections,
		contextManager: contextManager,
		cfg:            cfg,
		logger:         logger,
	}
}

// Register wires middleware and every route and returns the root handler.
func (r *Router) Register() http.Handler {
	logging := middleware.NewLogging(r.logger)

	mux := chi.NewRouter()
	mux.Use(middleware.Metrics)
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(logging.Handle)
	mux.Use(chimw.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	}))

	health := handler.NewHealth(r.db, r.connections, r.logger)
	mux.Get("/healthz", health.Check)
	mux.Method(http.MethodGet, "/metrics", promhttp.Handler())
	mux.Method(http.MethodGet, "/ws/chat", r.realtime)

	r.registerAuthRoutes(mux)

	authenticate := middleware.NewAuthenticate(r.services.Token, r.contextManager, r.logger)
	mux.Group(func(g chi.Router) {
		g.Use(authenticate.Handle)
		r.registerUserRoutes(g)
		r.registerChannelRoutes(g)
		r.registerFileRoutes(g)
	})

	return mux
}

func (r *Router) registerAuthRoutes(mux chi.Router) {
	h := handler.NewAuth(r.services.Auth, r.logger)
	limiter := middleware.NewRateLimiter("auth", r.cfg.AuthRPS, r.cfg.AuthBurst, r.logger)

	mux.Route("/auth", func(g chi.Router) {
		g.Use(limiter.Handle)
		g.Post("/signup", h.Signup)
		g.Post("/signin", h.Signin)
		g.Get("/check_username/{username}", h.CheckUsername)
	})
}

func (r *Router) registerUserRoutes(mux chi.Router) {
	h := handler.NewUser(r.services.User, r.contextManager, r.cfg.MaxUploadBytes, r.logger)

	mux.Get("/user/profile", h.Profile)
	mux.Post("/user/profile/edit", h.EditProfile)
	mux.Post("/user/profile/photo", h.UpdatePhoto)
	mux.Get("/user/check_username/{username}", h.CheckUsername)
}

func (r *Router) registerChannelRoutes(mux chi.Router) {
	h := handler.NewChannel(r.services.Channel, r.contextManager, r.logger)

	mux.Post("/chat/create", h.Create)
	mux.Post("/chat/join", h.Join)
	mux.Get("/chat/get_chats", h.ListChats)
	mux.Get("/chat/get_chat/{partnerID}", h.GetChat)
	mux.Get("/chat/get_chat_details/{channelID}", h.GetChatDetails)
	mux.Delete("/chat_delete/{partnerID}", h.DeleteChat)
	mux.Patch("/enable_e2ee/{channelID}", h.SetE2EE)
	mux.Get("/get_e2ee_status/{partnerID}", h.GetE2EEStatus)
	mux.Post("/chat/store_public_key", h.StorePublicKey)
	mux.Post("/chat/get_public_key", h.GetPublicKey)
	mux.Patch("/chat/refresh_connection/{channelID}", h.RefreshConnection)
	mux.Get("/get_keys_data", h.KeysData)
	mux.Post("/edit_key_note", h.EditKeyNote)
	mux.Delete("/delete_key/{keyID}", h.DeleteKey)
	mux.Delete("/reject-request/{requestID}", h.RejectRequest)
	mux.Patch("/approve-request/{requestID}", h.ApproveRequest)
}

func (r *Router) registerFileRoutes(mux chi.Router) {
	h := handler.NewFile(r.services.File, r.contextManager, r.cfg.MaxUploadBytes, r.logger)

	mux.Post("/file/upload", h.Upload)
}
