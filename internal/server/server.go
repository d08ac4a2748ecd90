package server

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/dukerupert/bywater/internal/backup"
	"github.com/dukerupert/bywater/internal/family"
	"github.com/dukerupert/bywater/internal/handler"
	"github.com/dukerupert/bywater/internal/ledger"
	"github.com/dukerupert/bywater/internal/middleware"
	"github.com/dukerupert/bywater/internal/store"
	ws "github.com/dukerupert/bywater/internal/websocket"
	"github.com/dukerupert/bywater/internal/workflow"
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	profileH      *handler.ProfileHandler
	familyH       *handler.FamilyHandler
	choreH        *handler.ChoreHandler
	completionH   *handler.CompletionHandler
	wishlistH     *handler.WishlistHandler
	backupH       *handler.BackupHandler
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, wfCfg workflow.Config, backupCfg backup.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	familyStore := store.NewFamilyStore(db)
	profileStore := store.NewProfileStore(db)
	choreStore := store.NewChoreStore(db)
	completionStore := store.NewCompletionStore(db)
	wishlistStore := store.NewWishlistStore(db)

	rewardLedger := ledger.New(db, logger.With("component", "ledger"))
	familySvc := family.NewService(familyStore, profileStore)
	workflowSvc := workflow.NewService(wfCfg, profileStore, choreStore, completionStore, rewardLedger, logger.With("component", "workflow"))

	backupMgr := backup.NewManager(backupCfg, db, logger.With("component", "backup"))

	return &Server{
		db:            db,
		hub:           hub,
		profileH:      handler.NewProfileHandler(profileStore, workflowSvc, logger.With("component", "profile")),
		familyH:       handler.NewFamilyHandler(familySvc),
		choreH:        handler.NewChoreHandler(choreStore, familySvc, hub, logger.With("component", "chore")),
		completionH:   handler.NewCompletionHandler(workflowSvc, hub, logger.With("component", "completion")),
		wishlistH:     handler.NewWishlistHandler(wishlistStore, profileStore, hub, logger.With("component", "wishlist")),
		backupH:       handler.NewBackupHandler(backupMgr, logger.With("component", "backup")),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	mux.HandleFunc("POST /api/profiles", s.profileH.Create)
	mux.HandleFunc("GET /api/profiles", s.profileH.List)
	mux.HandleFunc("GET /api/profiles/{id}", s.profileH.Get)
	mux.HandleFunc("GET /api/profiles/{id}/balance", s.profileH.Balance)
	mux.HandleFunc("POST /api/profiles/{id}/pin", s.profileH.SetPIN)
	mux.HandleFunc("DELETE /api/profiles/{id}/pin", s.profileH.ClearPIN)
	mux.HandleFunc("POST /api/profiles/{id}/verify-pin", s.profileH.VerifyPIN)

	mux.HandleFunc("GET /api/families/{id}/children", s.familyH.Children)

	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("GET /api/chores", s.choreH.List)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.HandleFunc("POST /api/chores/{id}/assign", s.choreH.Assign)

	mux.HandleFunc("GET /api/children/{id}/board", s.completionH.Board)
	mux.HandleFunc("POST /api/completions/claim", s.completionH.Claim)
	mux.HandleFunc("GET /api/completions/pending", s.completionH.Pending)
	mux.HandleFunc("POST /api/completions/{id}/approve", s.completionH.Approve)
	mux.HandleFunc("POST /api/completions/{id}/reject", s.completionH.Reject)

	mux.HandleFunc("GET /api/children/{id}/wishlist", s.wishlistH.List)
	mux.HandleFunc("POST /api/children/{id}/wishlist", s.wishlistH.Create)
	mux.HandleFunc("DELETE /api/wishlist/{id}", s.wishlistH.Delete)
	mux.HandleFunc("POST /api/wishlist/{id}/redeem", s.wishlistH.Redeem)

	mux.HandleFunc("POST /api/backup/run", s.backupH.Run)
	mux.HandleFunc("GET /api/backup/status", s.backupH.Status)

	logged := middleware.RequestLogger(s.logger.With("component", "http"))
	return logged(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
