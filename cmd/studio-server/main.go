// Package main is the entry point for the DevHouse Tycoon studio server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lmendia/DevHouseTycoon/internal/domain/contract"
	"github.com/lmendia/DevHouseTycoon/internal/domain/contributor"
	"github.com/lmendia/DevHouseTycoon/internal/domain/work"
	"github.com/lmendia/DevHouseTycoon/internal/events"
	"github.com/lmendia/DevHouseTycoon/internal/infra/storage"
	"github.com/lmendia/DevHouseTycoon/internal/network"
	"github.com/lmendia/DevHouseTycoon/internal/platform/config"
	"github.com/lmendia/DevHouseTycoon/internal/platform/logger"
	"github.com/lmendia/DevHouseTycoon/internal/platform/metrics"
	"github.com/lmendia/DevHouseTycoon/internal/platform/tuning"
	"github.com/lmendia/DevHouseTycoon/internal/sim"
)

// The server runs a single studio per process.
const studioID = "STUDIO_1"

// SQLitePersisterAdapter translates domain events to storage events.
type SQLitePersisterAdapter struct {
	repo    *storage.SQLiteEventRepository
	metrics *metrics.Collector
}

func (a *SQLitePersisterAdapter) Append(event events.StudioEvent) error {
	payloadBytes, _ := json.Marshal(event.Payload)

	storageEvent := storage.StudioEvent{
		ID:        event.ID,
		StudioID:  studioID,
		Timestamp: event.Timestamp,
		EventType: string(event.Type),
		ActorID:   event.ActorID,
		TargetID:  event.TargetID,
		Payload:   string(payloadBytes),
		Sprint:    event.Sprint,
		Day:       event.Day,
	}
	err := a.repo.Append(context.Background(), storageEvent)
	a.metrics.RecordEventWrite(err)
	return err
}

// lateNotifier lets the simulation be built before the hub that will
// ultimately carry its notifications.
type lateNotifier struct {
	target sim.Notifier
}

func (l *lateNotifier) Notify(message string) {
	if l.target != nil {
		l.target.Notify(message)
	}
}

func bootstrapRoster(ctx context.Context, repo *storage.SQLiteSnapshotRepository, appLogger *logger.Logger) *sim.MemRoster {
	appLogger.Info("Checking DB for existing roster...")
	snaps, err := repo.GetContributors(ctx, studioID)
	if err != nil {
		appLogger.Errorf("Failed to query DB for roster: %v", err)
		return sim.NewMemRoster()
	}

	if len(snaps) == 0 {
		appLogger.Info("Database empty. Seeding founding contributors...")
		starters := []*contributor.Contributor{
			{ID: "C001", Name: "Sam", Archetype: contributor.ArchetypeGeneralist, Velocity: 1.2},
			{ID: "C002", Name: "Igor", Archetype: contributor.ArchetypeBackend, Velocity: 1.0},
		}
		roster := sim.NewMemRoster(starters...)
		_ = repo.UpsertContributors(ctx, contributorSnaps(roster.Contributors()))
		return roster
	}

	appLogger.Info("Reconstructing roster from SQLite state...")
	restored := make([]*contributor.Contributor, 0, len(snaps))
	for _, s := range snaps {
		restored = append(restored, &contributor.Contributor{
			ID:        s.ContributorID,
			Name:      s.Name,
			Archetype: contributor.Archetype(s.Archetype),
			Velocity:  s.Velocity,
			Passive: contributor.PassiveEffect{
				Kind:   contributor.EffectKind(s.Passive),
				Amount: s.PassiveValue,
			},
		})
	}
	return sim.NewMemRoster(restored...)
}

func restoreContract(ctx context.Context, repo *storage.SQLiteSnapshotRepository, simulation *sim.Simulation, appLogger *logger.Logger) {
	snap, itemSnaps, err := repo.GetOpenContract(ctx, studioID)
	if err != nil {
		appLogger.Errorf("Failed to query DB for open contract: %v", err)
		return
	}
	if snap == nil {
		return
	}

	items := make([]*work.Item, 0, len(itemSnaps))
	for _, it := range itemSnaps {
		status := work.Status(it.Status)
		// Mid-sprint board state is not persisted; committed but unfinished
		// items resume from the backlog for a fresh planning pass.
		if status == work.StatusQueued || status == work.StatusInProgress {
			status = work.StatusBacklog
		}
		items = append(items, &work.Item{
			ID:             it.ItemID,
			Kind:           work.Kind(it.Kind),
			Title:          it.Title,
			PointsRequired: it.PointsRequired,
			PointsDone:     it.PointsDone,
			Status:         status,
		})
	}

	c := &contract.Contract{
		ID:            snap.ContractID,
		Client:        snap.Client,
		FullBacklog:   items,
		BasePayout:    snap.BasePayout,
		TotalSprints:  snap.TotalSprints,
		CurrentSprint: snap.CurrentSprint,
	}
	if simulation.Restore(c, snap.CurrentSprint) {
		appLogger.Infof("Restored open contract %s at sprint planning.", c.ID)
	}
}

func contributorSnaps(roster []*contributor.Contributor) []storage.ContributorSnapshot {
	snaps := make([]storage.ContributorSnapshot, 0, len(roster))
	for _, c := range roster {
		snaps = append(snaps, storage.ContributorSnapshot{
			ContributorID: c.ID,
			StudioID:      studioID,
			Name:          c.Name,
			Archetype:     string(c.Archetype),
			Velocity:      c.Velocity,
			Passive:       string(c.Passive.Kind),
			PassiveValue:  c.Passive.Amount,
		})
	}
	return snaps
}

func persistState(ctx context.Context, repo *storage.SQLiteSnapshotRepository, view sim.StateView) {
	_ = repo.UpsertStudio(ctx, storage.StudioSnapshot{
		StudioID:      studioID,
		Phase:         string(view.Phase),
		Bank:          view.Bank,
		CurrentSprint: view.Sprint,
		CurrentDay:    view.Day,
	})
	_ = repo.UpsertContributors(ctx, contributorSnaps(view.Roster))

	if view.Contract == nil {
		return
	}
	itemSnaps := make([]storage.WorkItemSnapshot, 0, len(view.Contract.FullBacklog))
	for _, it := range view.Contract.FullBacklog {
		itemSnaps = append(itemSnaps, storage.WorkItemSnapshot{
			ItemID:         it.ID,
			ContractID:     view.Contract.ID,
			Kind:           string(it.Kind),
			Title:          it.Title,
			PointsRequired: it.PointsRequired,
			PointsDone:     it.PointsDone,
			Status:         string(it.Status),
		})
	}
	_ = repo.UpsertContract(ctx, storage.ContractSnapshot{
		ContractID:    view.Contract.ID,
		StudioID:      studioID,
		Client:        view.Contract.Client,
		BasePayout:    view.Contract.BasePayout,
		TotalSprints:  view.Contract.TotalSprints,
		CurrentSprint: view.Contract.CurrentSprint,
		IsClosed:      view.Phase == sim.PhaseIdle,
	}, itemSnaps)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// actionHandler wraps a boolean simulation action into a POST endpoint that
// reads an optional {"target_id": "..."} body.
func actionHandler(action func(targetID string) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			TargetID string `json:"target_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		if !action(req.TargetID) {
			writeJSON(w, http.StatusConflict, map[string]string{"status": "rejected"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func main() {
	log.Println("[STUDIO-SERVER] Initializing DevHouse Tycoon authoritative server...")

	appLogger := logger.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		appLogger.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	tun := tuning.Default()
	if cfg.TuningPath != "" {
		tun, err = tuning.Load(cfg.TuningPath)
		if err != nil {
			appLogger.Errorf("Failed to load tuning file: %v", err)
			os.Exit(1)
		}
		appLogger.Infof("Loaded tuning overrides from %s", cfg.TuningPath)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed, err = sim.NewSeed()
		if err != nil {
			appLogger.Errorf("Failed to draw seed: %v", err)
			os.Exit(1)
		}
	}

	appLogger.Infof("Initializing SQLite database %q...", cfg.DBPath)
	db, err := storage.InitSQLite(cfg.DBPath)
	if err != nil {
		appLogger.Errorf("Failed to initialize SQLite: %v", err)
		os.Exit(1)
	}
	collector := metrics.NewCollector()
	eventRepo := storage.NewSQLiteEventRepository(db)
	eventPersister := &SQLitePersisterAdapter{repo: eventRepo, metrics: collector}

	appLogger.Info("Bootstrapping EventLog...")
	eventLog := events.NewLog(eventPersister)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapRepo := storage.NewSQLiteSnapshotRepository(db)
	roster := bootstrapRoster(ctx, snapRepo, appLogger)

	notifier := &lateNotifier{}
	appLogger.Info("Bootstrapping simulation...")
	simulation := sim.New(sim.Config{
		Tuning:   tun,
		Rand:     sim.NewRand(seed),
		Roster:   roster,
		Notifier: notifier,
		EventLog: eventLog,
		Logger:   appLogger,
		Metrics:  collector,
	})

	if studio, err := snapRepo.GetStudio(ctx, studioID); err == nil && studio != nil {
		simulation.SetBank(studio.Bank)
		appLogger.Info("Restored bank balance from database.")
	}
	restoreContract(ctx, snapRepo, simulation, appLogger)

	simulation.Start(ctx)

	// Automated state backup routine.
	go func() {
		backupTicker := time.NewTicker(time.Duration(cfg.SnapshotMS) * time.Millisecond)
		defer backupTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-backupTicker.C:
				persistState(ctx, snapRepo, simulation.StateView())
			}
		}
	}()

	appLogger.Info("Bootstrapping WebSocket Hub...")
	hub := network.NewHub(simulation, appLogger, collector)
	notifier.target = hub
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, eventLog)

	// API routes.
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r, appLogger)
	})

	http.HandleFunc("/api/contract/accept", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		c, ok := simulation.AcceptContract()
		if !ok {
			writeJSON(w, http.StatusConflict, map[string]string{"status": "rejected"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "contract": c})
	})

	http.HandleFunc("/api/contract/ship-early", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		result, ok := simulation.ShipEarly()
		if !ok {
			writeJSON(w, http.StatusConflict, map[string]string{"status": "rejected"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "result": result})
	})

	http.HandleFunc("/api/contract/collect", actionHandler(func(string) bool {
		return simulation.CollectPayout()
	}))
	http.HandleFunc("/api/story/commit", actionHandler(simulation.CommitStory))
	http.HandleFunc("/api/story/uncommit", actionHandler(simulation.UncommitStory))
	http.HandleFunc("/api/blocker/dismiss", actionHandler(simulation.DismissBlocker))
	http.HandleFunc("/api/candidates/hire", actionHandler(simulation.HireCandidate))

	http.HandleFunc("/api/candidates/roll", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		batch := simulation.RollCandidates()
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "candidates": batch})
	})

	http.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, simulation.StateView())
	})

	// The timeline is served from SQLite, not the in-memory log, so it
	// spans server restarts. Optional filters: ?type=PAYOUT_ISSUED,
	// ?sprint=2.
	http.HandleFunc("/api/timeline", func(w http.ResponseWriter, r *http.Request) {
		var (
			timeline []storage.StudioEvent
			err      error
		)
		q := r.URL.Query()
		switch {
		case q.Get("type") != "":
			timeline, err = eventRepo.GetByEventType(r.Context(), studioID, q.Get("type"))
		case q.Get("sprint") != "":
			sprint, convErr := strconv.Atoi(q.Get("sprint"))
			if convErr != nil {
				http.Error(w, "Invalid sprint", http.StatusBadRequest)
				return
			}
			timeline, err = eventRepo.GetBySprint(r.Context(), studioID, sprint)
		default:
			timeline, err = eventRepo.GetByStudioID(r.Context(), studioID)
		}
		if err != nil {
			appLogger.Errorf("Failed to load timeline: %v", err)
			http.Error(w, "Failed to load timeline", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, timeline)
	})

	http.HandleFunc("/metrics", collector.Handler())

	go func() {
		log.Printf("[STUDIO-SERVER] HTTP API & WS server listening on %s", cfg.Addr)
		if err := http.ListenAndServe(cfg.Addr, nil); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	log.Println("[STUDIO-SERVER] Server running. Press Ctrl+C to exit.")

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[STUDIO-SERVER] Shutting down...")
	simulation.Stop()
	persistState(context.Background(), snapRepo, simulation.StateView())
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow cross-origin requests for the web client dev server
	},
}

// serveWs handles websocket requests from the peer.
func serveWs(hub *network.Hub, w http.ResponseWriter, r *http.Request, log *logger.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("Failed to upgrade websocket connection")
		return
	}

	client := network.NewClient(hub, conn)
	client.Register()

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.WritePump()
	go client.ReadPump()
}
