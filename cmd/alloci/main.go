// Command alloci is the terminal client for Allô Services CI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	aiservice "github.com/nhle/alloci/internal/ai"
	"github.com/nhle/alloci/internal/api"
	"github.com/nhle/alloci/internal/app"
	"github.com/nhle/alloci/internal/credential"
	"github.com/nhle/alloci/internal/logger"
	"github.com/nhle/alloci/internal/model"
	"github.com/nhle/alloci/internal/notify"
	"github.com/nhle/alloci/internal/push"
	"github.com/nhle/alloci/internal/session"
	"github.com/nhle/alloci/internal/store"
	appsync "github.com/nhle/alloci/internal/sync"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const startupTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "alloci:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.StringP("config", "c", model.DefaultConfigPath(), "config file")
	debug := pflag.Bool("debug", false, "log at debug level")
	showVersion := pflag.BoolP("version", "v", false, "print the version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println("alloci", version)
		return nil
	}

	// A missing .env is fine; the environment and config file still apply.
	_ = godotenv.Load()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := cfg.Log.Level
	if *debug {
		level = "debug"
	}
	log, logFile, err := logger.New(logger.Config{Level: level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer logFile.Close()
	log.Info().Str("version", version).Str("backend", cfg.Backend.BaseURL).Msg("starting")

	st, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return fmt.Errorf("opening local store: %w", err)
	}
	defer st.Close()

	client := api.NewClient(cfg.Backend.BaseURL,
		api.WithTimeout(time.Duration(cfg.Backend.TimeoutSec)*time.Second))

	tokens, err := credential.Open(model.ConfigDir())
	if err != nil {
		log.Warn().Err(err).Msg("system keyring unavailable, keeping secrets in memory")
		tokens = credential.NewMemory()
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	center := notify.NewCenter(ctx, st, notify.WithLogger(logger.Component(log, "notify")))
	defer center.Close()

	poller := appsync.New(client,
		time.Duration(cfg.Alerts.PollIntervalSec)*time.Second,
		logger.Component(log, "unread"))

	recent := aiservice.LoadRecentPrompts(ctx, st, logger.Component(log, "recent"))
	chat := aiservice.NewSession(client,
		aiservice.WithRecentPrompts(recent),
		aiservice.WithLogger(logger.Component(log, "ai")),
		aiservice.WithTemperature(cfg.AI.Temperature),
		aiservice.WithMaxTokens(cfg.AI.MaxTokens),
		aiservice.WithGreeting(cfg.AI.Greeting),
	)

	sess := session.New(st, client, tokens, logger.Component(log, "session"))
	sess.OnChange(func(u *model.User) {
		id := ""
		if u != nil {
			id = u.ID
		}
		poller.SetUser(id)
	})
	if _, err := sess.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("restoring user")
	}

	receiver := startPush(ctx, cfg.Push.ListenAddr, sess, logger.Component(log, "push"))

	m := app.New(app.Deps{
		Config:     cfg,
		ConfigPath: *configPath,
		API:        client,
		Session:    sess,
		Center:     center,
		Poller:     poller,
		Chat:       chat,
		Push:       receiver,
		Logger:     logger.Component(log, "app"),
		Version:    version,
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running UI: %w", err)
	}
	return nil
}

// startPush starts the local push receiver and registers its address as
// the device token. It returns nil when disabled or when the address is
// taken, after dropping any token left by an earlier run.
func startPush(ctx context.Context, addr string, sess *session.Session, log zerolog.Logger) *push.Receiver {
	if addr == "" {
		clearPushToken(sess, log)
		return nil
	}
	r := push.NewReceiver(log)
	if err := r.Start(addr); err != nil {
		log.Warn().Err(err).Msg("push receiver disabled")
		clearPushToken(sess, log)
		return nil
	}
	if err := sess.SetPushToken(ctx, r.Token()); err != nil {
		log.Warn().Err(err).Msg("saving push token")
	}
	return r
}

func clearPushToken(sess *session.Session, log zerolog.Logger) {
	if err := sess.ClearPushToken(); err != nil {
		log.Warn().Err(err).Msg("clearing push token")
	}
}
