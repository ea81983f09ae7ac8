package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/gofrs/flock"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"mensabot/internal/bot"
	"mensabot/internal/config"
	"mensabot/internal/logger"
	"mensabot/internal/mensa"
	"mensabot/internal/repository"
	"mensabot/internal/service"
)

// ErrAlreadyRunning is returned when another process holds the lock file.
var ErrAlreadyRunning = errors.New("another instance is already running")

type App struct {
	cfg     config.Config
	log     *zap.Logger
	lock    *flock.Flock
	db      *gorm.DB
	api     *tgbotapi.BotAPI
	cron    *service.SchedulerService
	subs    *service.SubscriptionService
	bot     *bot.Bot
	httpSrv *http.Server
}

// New takes the process lock, opens storage and wires all services. Nothing
// is started yet.
func New(cfg config.Config, log *zap.Logger) (*App, error) {
	if err := cfg.RequireToken(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	canteen, err := mensa.LookupLocation(cfg.MensaLocation)
	if err != nil {
		return nil, err
	}

	lock, err := acquireLock(cfg.LockFile)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, lock: lock}
	if err := a.wire(loc, canteen); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(loc *time.Location, canteen mensa.Location) error {
	db, err := repository.NewDB(a.cfg.DatabaseURL, logger.StdLog(a.log, "gorm"))
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	a.db = db

	api, err := tgbotapi.NewBotAPI(a.cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("create bot api: %w", err)
	}
	api.Debug = false
	a.api = api
	a.log.Info("bot authorized", zap.String("account", api.Self.UserName))

	sender := bot.NewSender(api, a.cfg.SendRate)
	menus := service.NewMenuService(
		mensa.NewClient(a.cfg.MensaBaseURL, canteen.ID, a.cfg.FetchTimeout),
		loc,
		a.log,
	)

	// Weekday specs are evaluated in UTC; subscribers' local times are
	// converted when a job is armed.
	a.cron = service.NewSchedulerService(time.UTC, cron.PrintfLogger(logger.StdLog(a.log, "cron")))
	a.subs = service.NewSubscriptionService(
		repository.NewSubscriptionRepository(db),
		a.cron,
		menus.DailyJob(sender),
		loc,
		2*a.cfg.FetchTimeout,
		a.log,
	)
	a.bot = bot.New(api, sender, a.subs, menus, loc, canteen.Name, a.log)

	if a.cfg.HTTPAddr != "" {
		a.httpSrv = &http.Server{
			Addr:         a.cfg.HTTPAddr,
			Handler:      a.healthMux(),
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}
	}
	return nil
}

// Run restores subscriptions, starts the scheduler and polls Telegram until
// ctx is cancelled. A failed restore aborts before anything is started.
func (a *App) Run(ctx context.Context) error {
	if err := a.subs.Reload(ctx); err != nil {
		a.log.Error("restore subscriptions failed", zap.Error(err))
		return err
	}

	a.cron.Start()
	defer a.cron.Stop()

	if a.httpSrv != nil {
		go func() {
			if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("http server error", zap.Error(err))
			}
		}()
	}

	a.notify(daemon.SdNotifyReady)
	a.log.Info("mensabot started",
		zap.Int("subscriptions", a.subs.Len()),
		zap.String("canteen", a.cfg.MensaLocation),
		zap.String("http", a.cfg.HTTPAddr),
	)

	err := a.bot.Start(ctx)

	a.log.Info("shutdown signal received")
	a.notify(daemon.SdNotifyStopping)
	if a.httpSrv != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.httpSrv.Shutdown(shCtx); err != nil {
			a.log.Warn("http server shutdown error", zap.Error(err))
		}
		cancel()
	}
	return err
}

// Close releases storage and the process lock.
func (a *App) Close() {
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.lock != nil {
		if err := a.lock.Unlock(); err != nil {
			a.log.Warn("release lock", zap.Error(err))
		}
	}
}

func (a *App) healthMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler(a.subs))
	return mux
}

type jobCounter interface {
	Len() int
}

func healthHandler(jobs jobCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":        "ok",
			"subscriptions": jobs.Len(),
		})
	}
}

func (a *App) notify(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		a.log.Warn("sd_notify failed", zap.String("state", state), zap.Error(err))
		return
	}
	if sent {
		a.log.Debug("sd_notify", zap.String("state", state))
	}
}

// acquireLock takes an exclusive, non-blocking lock on path.
func acquireLock(path string) (*flock.Flock, error) {
	if path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create lock dir: %w", err)
		}
	}
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}
	return lock, nil
}
