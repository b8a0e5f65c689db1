package main

import (
	"net/http"
	"time"

	"songwriter-go/circuitbreaker"
	"songwriter-go/config"
	"songwriter-go/logcolors"
	"songwriter-go/middleware"
	"songwriter-go/services/editor"
	"songwriter-go/services/filesync"
	"songwriter-go/services/notifier"
	"songwriter-go/services/songs"
	"songwriter-go/stats"
	"songwriter-go/storage"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const statsAutoSaveInterval = 5 * time.Minute

// App wires the local store, the editing session and the HTTP surface.
type App struct {
	conf       config.Config
	store      *storage.Store
	stats      *stats.Stats
	statsStore *stats.Store
	bus        *notifier.EventBus
	guard      *circuitbreaker.CircuitBreaker
	repo       *songs.Repository
	session    *editor.Session
	mirror     *filesync.Mirror
	limiter    *middleware.IPRateLimiter
	upgrader   websocket.Upgrader
}

func newApp(conf config.Config) (*App, error) {
	store, err := storage.Open(conf.Storage.DBPath, conf.Storage.BackupPath, conf.FeatureFlags.StorageCompression)
	if err != nil {
		return nil, err
	}

	a := &App{
		conf:    conf,
		store:   store,
		stats:   stats.Get(),
		bus:     notifier.NewEventBus(conf.NoticeTTL()),
		repo:    songs.NewRepository(store),
		limiter: middleware.NewIPRateLimiter(rate.Limit(conf.Configuration.RateLimitPerSecond), conf.Configuration.RateLimitBurstLimit),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(conf.AllowedOrigins()),
		},
	}

	a.statsStore = stats.NewStore(store, a.stats)
	if err := a.statsStore.Load(); err != nil {
		log.Warnf("%s %v", logcolors.LogStats, err)
	}

	a.guard = circuitbreaker.New(circuitbreaker.Config{
		Name:      "storage",
		Threshold: conf.Configuration.StorageBreakerThreshold,
		Cooldown:  conf.StorageBreakerCooldown(),
		Bus:       a.bus,
	})

	snap, err := a.repo.Load()
	if err != nil {
		store.Close()
		return nil, err
	}
	library := songs.NewLibrary(snap.Songs, snap.Categories)
	a.session = editor.NewSession(library, snap.ActiveSongID, a.repo, editor.Options{
		Debounce:     conf.CommitDebounce(),
		HistoryLimit: conf.Configuration.HistoryLimit,
		Bus:          a.bus,
		Guard:        a.guard,
		Stats:        a.stats,
	})

	if conf.Storage.SyncDir != "" {
		mirror, err := filesync.New(conf.Storage.SyncDir, a.session, a.bus)
		if err != nil {
			log.Warnf("%s File mirror disabled: %v", logcolors.LogFileSync, err)
		} else {
			a.mirror = mirror
			for _, s := range a.session.Songs() {
				if err := mirror.WriteSong(s.ID, s.Lyrics); err != nil {
					log.Warnf("%s Failed to mirror %s: %v", logcolors.LogFileSync, logcolors.Song(s.ID), err)
				}
			}
		}
	}

	a.statsStore.StartAutoSave(statsAutoSaveInterval)
	a.bus.SubscribeAll(logNotice)
	return a, nil
}

// logNotice writes user-visible notices to the log.
func logNotice(event *notifier.Event) {
	if !event.IsNotice() {
		return
	}
	if event.Severity == notifier.SeverityCritical {
		log.Errorf("%s %s %v", logcolors.LogWarning, event.Message, event.Data)
		return
	}
	log.Infof("%s %s", logcolors.LogNotices, event.Message)
}

// originChecker accepts websocket upgrades from the configured CORS origins
// and from clients that send no Origin header.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set["*"] || set[origin]
	}
}

// Handler builds the router and middleware chain.
func (a *App) Handler() http.Handler {
	router := mux.NewRouter()
	a.setupRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins:   a.conf.AllowedOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", middleware.APIKeyHeader},
		AllowCredentials: true,
	})

	var handler http.Handler = middleware.LoggingMiddleware(router)
	handler = middleware.APIKeyMiddleware(a.conf.Server.APIKey, a.conf.Server.APIKeyRequired, []string{"/health", "/"})(handler)
	handler = middleware.RateLimitMiddleware(a.limiter)(handler)
	return c.Handler(handler)
}

// startLimiterPrune drops idle rate limit buckets until done is closed.
func (a *App) startLimiterPrune(done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := a.limiter.Prune(30 * time.Minute); n > 0 {
					log.Debugf("%s Pruned %d idle clients", logcolors.LogRateLimit, n)
				}
			case <-done:
				return
			}
		}
	}()
}

// Close flushes the session and releases the store.
func (a *App) Close() {
	a.session.Close()
	if a.mirror != nil {
		a.mirror.Close()
	}
	if err := a.statsStore.Close(); err != nil {
		log.Warnf("%s %v", logcolors.LogStats, err)
	}
	if err := a.store.Close(); err != nil {
		log.Errorf("%s Failed to close store: %v", logcolors.LogStorage, err)
	}
}
