package http

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/frontend"
	"github.com/secmon-lab/bambooslack/pkg/usecase"
	"github.com/secmon-lab/bambooslack/pkg/utils/logging"
	"github.com/secmon-lab/bambooslack/pkg/utils/safe"
)

// CommandUseCase answers slash commands
type CommandUseCase interface {
	HandleCommand(ctx context.Context, cmd *usecase.SlashCommand) *usecase.CommandReply
}

// RedirectUseCase completes the OAuth redirect
type RedirectUseCase interface {
	HandleRedirect(ctx context.Context, req *usecase.RedirectRequest) (string, error)
}

type Server struct {
	router        *chi.Mux
	commandUC     CommandUseCase
	redirectUC    RedirectUseCase
	signingSecret string
	clock         func() time.Time
}

type Options func(*Server)

// WithClock replaces time.Now for request signature verification
func WithClock(clock func() time.Time) Options {
	return func(s *Server) {
		s.clock = clock
	}
}

func New(commandUC CommandUseCase, redirectUC RedirectUseCase, signingSecret string, opts ...Options) (*Server, error) {
	if signingSecret == "" {
		return nil, goerr.New("Slack signing secret is required")
	}

	r := chi.NewRouter()
	s := &Server{
		router:        r,
		commandUC:     commandUC,
		redirectUC:    redirectUC,
		signingSecret: signingSecret,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	staticFS, err := fs.Sub(frontend.StaticFiles, "dist")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to bind dist dir for static")
	}

	r.Get("/", indexHandler(staticFS))
	r.Post("/", methodNotAllowed(http.MethodGet))
	r.Get("/redirect", redirectHandler(s.redirectUC))

	// Slack endpoints verify the request signature before anything else
	r.Group(func(r chi.Router) {
		r.Use(SlackSignatureMiddleware(s.signingSecret, s.clock))
		r.Post("/command", commandHandler(s.commandUC))
		r.Post("/interactive", interactiveHandler)
	})
	r.Get("/command", methodNotAllowed(http.MethodPost))
	r.Get("/interactive", methodNotAllowed(http.MethodPost))

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func methodNotAllowed(allow string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// indexHandler serves the landing page the OAuth redirect ends on
func indexHandler(staticFS fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := staticFS.Open("index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer safe.Close(r.Context(), f)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		safe.Copy(r.Context(), w, f)
	}
}
