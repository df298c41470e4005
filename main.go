// main.go
//
// WordSeek service entry point.
// Wires configuration, logging, the word catalog, the game engine and its
// collaborators (WebSocket hub, command dispatcher, event sinks, win ledger,
// definition lookups), then serves HTTP until SIGINT/SIGTERM.

package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordseek/internal/bot"
	"github.com/robalobadob/wordseek/internal/config"
	"github.com/robalobadob/wordseek/internal/dictionary"
	"github.com/robalobadob/wordseek/internal/events"
	"github.com/robalobadob/wordseek/internal/game"
	"github.com/robalobadob/wordseek/internal/gateway"
	"github.com/robalobadob/wordseek/internal/httpserver"
	"github.com/robalobadob/wordseek/internal/ledger"
	"github.com/robalobadob/wordseek/internal/scoreboard"
	"github.com/robalobadob/wordseek/internal/words"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := words.Load(ctx, words.Source{
		File:   cfg.WordsFile,
		URL:    cfg.WordsURL,
		Length: cfg.Game.WordLength,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word list")
	}

	// --- event sinks ---
	var sinks []events.Sink
	var history httpserver.History
	if cfg.DBPath != "" && !strings.EqualFold(cfg.DBPath, "off") {
		led, err := ledger.Open(cfg.DBPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open win ledger")
		}
		defer led.Close()
		sinks = append(sinks, led)
		history = led
	}
	if cfg.NATSURL != "" {
		js, err := events.NewJetStreamSink(ctx, events.DefaultJetStreamConfig(cfg.NATSURL))
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.NATSURL).Msg("failed to connect to NATS")
		}
		defer js.Close()
		sinks = append(sinks, js)
	}
	dispatcher := events.NewDispatcher(0, sinks...)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()

	// --- game ---
	hub := gateway.NewHub(gateway.ConnectionConfig{
		WriteTimeout:   cfg.Gateway.WriteTimeout,
		ReadTimeout:    cfg.Gateway.ReadTimeout,
		PingInterval:   cfg.Gateway.PingInterval,
		MaxMessageSize: cfg.Gateway.MaxMessageSize,
		SendBuffer:     cfg.Gateway.SendBuffer,
	})
	opts := []game.Option{game.WithPublisher(dispatcher)}
	if cfg.DefinitionsEnabled() {
		opts = append(opts, game.WithDefiner(dictionary.NewClient(cfg.DictionaryURL)))
	}
	engine := game.NewEngine(cfg.Engine(), catalog, hub, scoreboard.New(), opts...)
	defer engine.Close()

	commands := bot.New(engine, hub, bot.WithWordLength(engine.Config().WordLength))
	hub.SetHandler(func(ctx context.Context, room string, from gateway.Client, text string) {
		if err := commands.Handle(ctx, bot.Inbound{
			Room:     room,
			PlayerID: from.PlayerID,
			Name:     from.Name,
			Text:     text,
		}); err != nil {
			log.Error().Err(err).Str("room", room).Str("player", from.PlayerID).Msg("handle socket message")
		}
	})

	// --- http ---
	srv := httpserver.New(httpserver.Deps{
		Engine:  engine,
		Bot:     commands,
		Hub:     hub,
		History: history,
		Words:   catalog,
	}, httpserver.Options{
		ClientOrigin: cfg.ClientOrigin,
		JWTSecret:    cfg.JWTSecret,
		JWTTTL:       cfg.JWTTTL(),
		SecureCookie: os.Getenv("NODE_ENV") == "production",
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting wordseek")
		errCh <- srv.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server exited")
		}
		stop()
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	hub.Close()
	engine.Close()
	<-dispatcherDone
}

func setupLogging(cfg config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if strings.EqualFold(cfg.LogFormat, "console") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
