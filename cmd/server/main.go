package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"moviemania/internal/admin"
	"moviemania/internal/auth"
	"moviemania/internal/backup"
	"moviemania/internal/catalog"
	"moviemania/internal/config"
	xglog "moviemania/internal/log"
	"moviemania/internal/notify"
	"moviemania/internal/store"
	"moviemania/internal/udpnotify"
	"moviemania/internal/upload"
	"moviemania/internal/websocket"
)

// application holds the dependencies shared by every handler.
type application struct {
	cfg      *config.Config
	logger   zerolog.Logger
	store    store.Store
	hub      *websocket.Hub
	notes    *notify.Log
	issuer   *auth.Issuer
	admins   *admin.Directory
	sessions *admin.Sessions
	catalog  *catalog.Service
	backups  *backup.Exporter
	posters  *upload.Posters
	now      func() time.Time
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		xglog.L().Fatal().Err(err).Msg("load configuration")
	}
	xglog.Configure(xglog.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})
	logger := xglog.WithComponent("server")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.Storage.Backend).Msg("open record store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error().Err(err).Msg("close record store")
		}
	}()

	hub := websocket.NewHub()
	go hub.Run(ctx)

	publishers := []notify.Publisher{hub}
	if cfg.Notifications.UDPAddr != "" {
		feed := udpnotify.New(cfg.Notifications.UDPAddr)
		if err := feed.Listen(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Notifications.UDPAddr).Msg("listen udp notification feed")
		}
		go func() {
			if err := feed.Serve(ctx); err != nil {
				logger.Error().Err(err).Msg("udp notification feed stopped")
			}
		}()
		publishers = append(publishers, feed)
	}

	app, err := newApplication(cfg, st, hub, time.Now, publishers...)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise services")
	}

	if created, err := app.admins.EnsureOwner(ctx, cfg.Bootstrap.Username, cfg.Bootstrap.Password); err != nil {
		logger.Fatal().Err(err).Msg("bootstrap owner account")
	} else if created {
		logger.Info().Str("username", cfg.Bootstrap.Username).Msg("bootstrap owner created")
	}

	if err := app.serve(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		cancel()
		st.Close()
		os.Exit(1)
	}
}

func newApplication(cfg *config.Config, st store.Store, hub *websocket.Hub, now func() time.Time, pubs ...notify.Publisher) (*application, error) {
	opts := []notify.Option{notify.WithClock(now)}
	for _, p := range pubs {
		opts = append(opts, notify.WithPublisher(p))
	}
	notes, err := notify.NewLog(cfg.Notifications.Path, opts...)
	if err != nil {
		return nil, err
	}
	posters, err := upload.NewPosters(cfg.Uploads.ImageDir, cfg.Uploads.MaxBytes)
	if err != nil {
		return nil, err
	}

	hasher := auth.Hasher{Cost: cfg.Auth.BcryptCost}
	admins := admin.NewDirectory(st, hasher, notes, admin.WithClock(now))

	return &application{
		cfg:      cfg,
		logger:   xglog.WithComponent("http"),
		store:    st,
		hub:      hub,
		notes:    notes,
		issuer:   auth.NewIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL).WithClock(now),
		admins:   admins,
		sessions: admin.NewSessions(st, now),
		catalog:  catalog.NewService(st, admins, notes, catalog.WithClock(now)),
		backups:  backup.NewExporter(st, notes),
		posters:  posters,
		now:      now,
	}, nil
}
