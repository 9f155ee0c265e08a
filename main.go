package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/robalobadob/numguess/apps/go-server/internal/config"
	"github.com/robalobadob/numguess/apps/go-server/internal/db"
	"github.com/robalobadob/numguess/apps/go-server/internal/game"
	"github.com/robalobadob/numguess/apps/go-server/internal/httpserver"
	"github.com/robalobadob/numguess/apps/go-server/internal/play"
	"github.com/robalobadob/numguess/apps/go-server/internal/store"
)

const (
	sweepEvery  = 10 * time.Minute
	finishedTTL = time.Hour
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal().Err(err).Msg("guessd exited")
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "guessd",
		Usage: "number guessing game server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Usage: "listen port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "db", Usage: "sqlite database path", Sources: cli.EnvVars("DB_PATH")},
			&cli.IntFlag{Name: "min", Usage: "lowest possible secret", Sources: cli.EnvVars("GAME_MIN")},
			&cli.IntFlag{Name: "max", Usage: "highest possible secret", Sources: cli.EnvVars("GAME_MAX")},
			&cli.IntFlag{Name: "attempts", Usage: "attempts per game", Sources: cli.EnvVars("GAME_MAX_ATTEMPTS")},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP and websocket server",
				Action: runServe,
			},
			{
				Name:   "play",
				Usage:  "play a game in the terminal",
				Action: runPlay,
			},
		},
		Action: runServe,
	}
}

// loadConfig reads the environment, applies flags set on the command line
// and configures the global log level.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.String("port")
	}
	if cmd.IsSet("db") {
		cfg.DBPath = cmd.String("db")
	}
	if cmd.IsSet("min") {
		cfg.GameMin = int(cmd.Int("min"))
	}
	if cmd.IsSet("max") {
		cfg.GameMax = int(cmd.Int("max"))
	}
	if cmd.IsSet("attempts") {
		cfg.GameMaxAttempts = int(cmd.Int("attempts"))
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}

	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	sqlDB, err := db.OpenMigrated(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer sqlDB.Close()

	mem := store.NewMemoryStore()
	go sweep(ctx, mem)

	srv := httpserver.New(cfg, mem, sqlDB)
	log.Info().Str("port", cfg.Port).Str("db", cfg.DBPath).Msg("starting go-server")
	return srv.Serve(ctx, ":"+cfg.Port)
}

// sweep drops finished games from memory once they are older than finishedTTL.
func sweep(ctx context.Context, mem *store.Memory) {
	t := time.NewTicker(sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := mem.Sweep(now.Add(-finishedTTL)); n > 0 {
				log.Debug().Int("removed", n).Int("live", mem.Len()).Msg("swept games")
			}
		}
	}
}

func runPlay(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	g, err := game.New(cfg.Game(nil))
	if err != nil {
		return err
	}
	s := &play.Session{Game: g, In: os.Stdin, Out: os.Stdout}
	wins, err := s.Run()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Thanks for playing! Games won: %d\n", wins)
	return nil
}
