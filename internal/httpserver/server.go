package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/printops/usagehub/internal/blob"
	"github.com/printops/usagehub/internal/config"
	"github.com/printops/usagehub/internal/reports"
	"github.com/printops/usagehub/internal/storage"
	"github.com/printops/usagehub/internal/storage/blobstore"
	"github.com/printops/usagehub/internal/storage/localfs"
	"github.com/printops/usagehub/internal/storage/memory"
	"github.com/printops/usagehub/internal/storage/postgres"
)

// Server is the HTTP server
type Server struct {
	config  *config.Config
	mux     *http.ServeMux
	storage storage.ReportsStorage
}

// New creates a new HTTP server
func New(cfg *config.Config) *Server {
	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
	}

	s.initStorage()
	s.routes()
	return s
}

// initStorage picks the persistence backend: PostgreSQL when DATABASE_URL is
// set, otherwise object storage per BLOB_MODE, otherwise the local filesystem.
// Every failure falls back one step; in-memory is the floor.
func (s *Server) initStorage() {
	if s.config.DatabaseURL != "" {
		log.Println("INFO storage: connecting to PostgreSQL...")
		pgStorage, err := postgres.New(context.Background(), s.config.DatabaseURL)
		if err == nil {
			log.Println("INFO storage: PostgreSQL connected")
			s.storage = pgStorage
			return
		}
		log.Printf("WARN storage: PostgreSQL connection failed: %v", err)
		log.Println("WARN storage: falling back to local persistence")
	}

	if store := s.initBlobStore(); store != nil {
		log.Println("INFO storage: using object storage backend")
		s.storage = blobstore.New(store)
		return
	}

	fsStorage, err := localfs.New(s.config.DataDir)
	if err != nil {
		log.Printf("WARN storage: local data dir unusable: %v", err)
		log.Println("WARN storage: falling back to in-memory storage")
		s.storage = memory.New()
		return
	}
	log.Printf("INFO storage: using local filesystem backend (dir=%s)", s.config.DataDir)
	s.storage = fsStorage
}

// initBlobStore resolves BLOB_MODE. Returns nil when the effective mode is
// local, meaning filesystem persistence should be used instead.
func (s *Server) initBlobStore() blob.Store {
	log.Printf("INFO blob: initializing store (BLOB_MODE=%s)", s.config.Blob.Mode)
	store, mode, err := blob.NewBlobStore(s.config.Blob, log.Default())
	if err != nil {
		log.Fatalf("FATAL blob: failed to initialize store: %v", err)
	}
	log.Printf("INFO blob: mode: %s", mode)
	return store
}

// routes registers the API routes
func (s *Server) routes() {
	// Health check
	s.mux.HandleFunc("/healthz", s.handleHealthz)

	reportsService := reports.NewService(s.storage)
	reportsHandler := reports.NewHandlers(reportsService, s.config.UploadMaxMB)

	// POST /v1/parse - parse an uploaded usage report without saving
	s.mux.HandleFunc("POST /v1/parse", reportsHandler.HandleParse)

	// POST /v1/reports - save a report
	s.mux.HandleFunc("POST /v1/reports", reportsHandler.HandleSave)

	// GET /v1/reports - list saved reports
	s.mux.HandleFunc("GET /v1/reports", reportsHandler.HandleList)

	// GET /v1/reports/{id} - get a saved report
	s.mux.HandleFunc("GET /v1/reports/{id}", reportsHandler.HandleGet)

	// PUT /v1/reports/{id} - update a saved report
	s.mux.HandleFunc("PUT /v1/reports/{id}", reportsHandler.HandleUpdate)

	// DELETE /v1/reports/{id} - delete a saved report
	s.mux.HandleFunc("DELETE /v1/reports/{id}", reportsHandler.HandleDelete)

	// POST /v1/reports/{id}/users/rename - rename a detected user identity
	s.mux.HandleFunc("POST /v1/reports/{id}/users/rename", reportsHandler.HandleRenameIdentity)

	// POST /v1/reports/{id}/users/delete - remove detected user identities
	s.mux.HandleFunc("POST /v1/reports/{id}/users/delete", reportsHandler.HandleDeleteIdentities)

	// GET /v1/reports/{id}/summary - aggregate across periods
	s.mux.HandleFunc("GET /v1/reports/{id}/summary", reportsHandler.HandleSummary)

	// GET /v1/reports/{id}/export - export as CSV or PDF
	s.mux.HandleFunc("GET /v1/reports/{id}/export", reportsHandler.HandleExport)
}

// handleHealthz reports server status
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// Start runs the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	// Build middleware chain (outermost first): CORS -> Rate Limit -> Router
	var handler http.Handler = s.mux
	handler = RateLimitMiddleware(s.config, handler)
	handler = CORSMiddleware(s.config, handler)

	log.Printf("Server listening on http://localhost%s\n", addr)
	log.Printf("Health check: http://localhost%s/healthz\n", addr)
	log.Printf("Reports API: http://localhost%s/v1/reports\n", addr)

	return http.ListenAndServe(addr, handler)
}

// Close releases the storage backend
func (s *Server) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}
