package main

import (
	"flag"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"context"

	"gungnir/internal/common"
	"gungnir/internal/config"
	"gungnir/internal/exchange"
	"gungnir/internal/journal"
	"gungnir/internal/net"
)

func main() {
	cfgPath := flag.String("config", "", "path to TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.Log.Level).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	opts := []exchange.Option{
		exchange.WithCommandBuffer(cfg.Pipeline.CommandBuffer),
		exchange.WithEventBuffer(cfg.Pipeline.EventBuffer),
	}
	var j *journal.Store
	if cfg.Journal.Enabled {
		j, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Journal.Path).Msg("unable to open journal")
		}
		opts = append(opts, exchange.WithJournal(j))
	}

	// The TCP gateway doubles as the exchange's event handler.
	srv := net.New(cfg.Server.Address, cfg.Server.Port, nil)
	exch := exchange.New(srv, opts...)
	srv.SetExchange(exch)

	// Rebuild state by re-submitting the journalled command stream. The
	// commands pass back through the pipeline, so they land on the same
	// sequence numbers and overwrite their own journal entries byte for byte.
	var replayed int
	if j != nil {
		var cmds []common.Command
		if err := j.Replay(func(seq uint64, cmd common.Command) error {
			cmds = append(cmds, cmd)
			return nil
		}); err != nil {
			log.Fatal().Err(err).Msg("unable to replay journal")
		}
		for _, cmd := range cmds {
			if _, err := exch.SubmitWait(cmd); err != nil {
				log.Fatal().Err(err).Msg("journal replay aborted")
			}
		}
		replayed = len(cmds)
		if replayed > 0 {
			log.Info().Int("commands", replayed).Msg("journal replayed")
		}
	}

	// A replayed journal already contains the instrument registration.
	if replayed == 0 && len(cfg.Symbols) > 0 {
		specs := make([]common.SymbolSpec, 0, len(cfg.Symbols))
		for _, s := range cfg.Symbols {
			specs = append(specs, s.Spec())
		}
		cmd, err := common.NewRegisterSymbols(specs...)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid symbol configuration")
		}
		res, err := exch.SubmitWait(cmd)
		if err != nil || !res.Code.Ok() {
			log.Fatal().Err(err).Stringer("result", res.Code).Msg("unable to register symbols")
		}
		log.Info().Int("symbols", len(specs)).Msg("instruments registered")
	}

	go srv.Run(ctx)
	<-ctx.Done()

	if err := exch.Close(); err != nil {
		log.Error().Err(err).Msg("exchange shut down with error")
	}
}
