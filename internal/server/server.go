// Package server provides the HTTP API: the conversation trigger, the
// WhatsApp webhook, published page serving, and the JWT-protected operator
// endpoints.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/veyra/automarket/internal/agents"
	"github.com/veyra/automarket/internal/config"
	"github.com/veyra/automarket/internal/db"
	"github.com/veyra/automarket/internal/llm"
	"github.com/veyra/automarket/internal/publish"
	"github.com/veyra/automarket/internal/render"
	"github.com/veyra/automarket/internal/whatsapp"
	"github.com/veyra/automarket/internal/workflow"
)

// Store is the persistence surface the HTTP layer needs: the engine's store
// contract plus operator listing.
type Store interface {
	workflow.Store
	ListWorkflows(ctx context.Context, limit int) ([]workflow.Record, error)
}

// MessageStore records inbound conversation messages.
type MessageStore interface {
	InsertMessage(ctx context.Context, msg *db.Message) error
}

// Engine drives workflow threads forward.
type Engine interface {
	Advance(ctx context.Context, threadID string) (*workflow.Record, error)
}

// Server is the HTTP server and its collaborators.
type Server struct {
	httpServer *http.Server
	database   *db.DB
	llmClient  llm.Client

	store    Store
	messages MessageStore
	engine   Engine

	whatsappCfg whatsapp.Config
	jwtService  *JWTService
	admin       *config.AdminConfig
	validate    *validator.Validate

	// advanceTimeout bounds background pipeline runs kicked off by the
	// webhook handler.
	advanceTimeout time.Duration
}

// New wires the full service: database, LLM client, stage agents, publisher,
// WhatsApp notifier, and the workflow engine.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	llmClient, err := llm.NewGeminiClient(ctx, llm.DefaultConfig(), cfg.GeminiAPIKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		database.Close()
		return nil, err
	}
	adminConfig, err := config.NewAdminConfig()
	if err != nil {
		database.Close()
		return nil, err
	}

	whatsappCfg := whatsapp.ConfigFromEnv()
	var notifier workflow.Notifier = workflow.NopNotifier{}
	if whatsappCfg.Configured() {
		notifier = whatsapp.NewClient(whatsappCfg)
	} else {
		log.Printf("[SERVER] WhatsApp credentials not set, outbound messaging disabled")
	}

	var publisher workflow.Publisher
	if cfg.V0APIKey != "" {
		publisher = publish.NewV0Client(cfg.V0APIKey)
	} else {
		publisher = &publish.Local{BaseURL: cfg.PublicBaseURL}
	}

	renderer := render.New(cfg.RenderTimeout)
	engine := workflow.New(database, agents.New(llmClient, renderer), publisher, notifier, workflow.Config{
		FanOutLimit:  cfg.FanOutLimit,
		StageTimeout: cfg.StageTimeout,
		ItemTimeout:  cfg.ItemTimeout,
	})

	s := &Server{
		database:       database,
		llmClient:      llmClient,
		store:          database,
		messages:       database,
		engine:         engine,
		whatsappCfg:    whatsappCfg,
		jwtService:     NewJWTService(jwtConfig),
		admin:          adminConfig,
		validate:       validator.New(),
		advanceTimeout: 30 * time.Minute,
	}

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // /run drives the pipeline synchronously
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("GET /webhook", s.handleWebhookVerify)
	mux.HandleFunc("POST /webhook", s.handleWebhookEvent)
	mux.HandleFunc("GET /pages/{thread_id}", s.handlePage)

	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.Handle("GET /workflows", s.withAuth(s.handleListWorkflows))
	mux.Handle("GET /workflows/{thread_id}", s.withAuth(s.handleGetWorkflow))
	mux.Handle("POST /workflows/{thread_id}/retry", s.withAuth(s.handleRetryWorkflow))
	mux.Handle("POST /workflows/{thread_id}/fail", s.withAuth(s.handleFailWorkflow))

	return s.withLogging(s.withCORS(mux))
}

// Start begins listening and blocks until an interrupt, then shuts down
// gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.llmClient != nil {
		if err := s.llmClient.Close(); err != nil {
			log.Printf("[SERVER] closing LLM client: %v", err)
		}
	}
	if s.database != nil {
		s.database.Close()
	}
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
