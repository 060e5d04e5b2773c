package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/chatsim/internal/adapters/generation/ollama"
	instructionsfile "github.com/bnema/chatsim/internal/adapters/instructions/file"
	profilechain "github.com/bnema/chatsim/internal/adapters/profiles/chain"
	profilefile "github.com/bnema/chatsim/internal/adapters/profiles/file"
	tomlrepo "github.com/bnema/chatsim/internal/adapters/repo/toml"
	"github.com/bnema/chatsim/internal/application"
	"github.com/bnema/chatsim/internal/config"
	"github.com/bnema/chatsim/internal/logging"
	"github.com/bnema/chatsim/internal/ports"
	"github.com/bnema/chatsim/internal/random"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type app struct {
	config       config.Config
	logger       *zap.Logger
	roster       *tomlrepo.RosterRepository
	profileStore *profilefile.Source
	profiles     ports.ProfileSource
	instructions ports.InstructionSource
	generator    ports.Generator
	seed         uint64
	now          func() time.Time
}

func (a *app) wire(opts globalOptions) error {
	cfg, err := config.Load(viper.New(), opts.configFile)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger, err := logging.New(level)
	if err != nil {
		return fmt.Errorf("wire logger: %w", err)
	}

	roster, err := tomlrepo.NewRosterRepository(cfg.RosterPath)
	if err != nil {
		return fmt.Errorf("wire roster repository: %w", err)
	}

	seed := opts.seed
	if !opts.seedSet {
		if seed, err = random.NewSeed(); err != nil {
			return fmt.Errorf("wire random source: %w", err)
		}
	}

	clientOptions := []ollama.ClientOption{
		ollama.WithBaseURL(cfg.Generation.BaseURL),
		ollama.WithTimeout(cfg.Generation.Timeout),
	}
	if cfg.Generation.Temperature > 0 {
		clientOptions = append(clientOptions, ollama.WithTemperature(cfg.Generation.Temperature))
	}
	if opts.seedSet {
		clientOptions = append(clientOptions, ollama.WithSeed(int(seed&0x7fffffff)))
	}
	generator, err := ollama.NewClient(cfg.Generation.Model, logger.Named("ollama"), clientOptions...)
	if err != nil {
		return fmt.Errorf("wire generation client: %w", err)
	}

	profileStore := profilefile.NewSource(cfg.Prompts.Dir)

	*a = app{
		config:       cfg,
		logger:       logger,
		roster:       roster,
		profileStore: profileStore,
		profiles:     profilechain.NewSource(profileStore, profilefile.NewSource(cfg.Prompts.FallbackDir)),
		instructions: instructionsfile.NewSource(cfg.Instructions),
		generator:    generator,
		seed:         seed,
		now:          time.Now,
	}

	logger.Debug("wired app",
		zap.String("config", cfg.File),
		zap.String("roster", roster.Path()),
		zap.String("model", cfg.Generation.Model),
		zap.Uint64("seed", seed),
	)
	return nil
}

// newEngine builds an engine over the stored roster with profiles loaded.
// The caller owns the engine and must Close it.
func (a *app) newEngine(ctx context.Context, notifier ports.Notifier) (*application.Engine, error) {
	personas, err := a.roster.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	engine, err := application.NewEngine(application.EngineConfig{
		Personas:     personas,
		Generator:    a.generator,
		Notifier:     notifier,
		Random:       random.New(a.seed),
		Logger:       a.logger.Named("engine"),
		Pacing:       application.PacingWindow{Min: a.config.Pacing.Min, Max: a.config.Pacing.Max},
		HistoryLimit: a.config.HistoryLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	if err := engine.LoadProfiles(ctx, a.profiles); err != nil {
		engine.Close()
		return nil, fmt.Errorf("load persona profiles: %w", err)
	}

	return engine, nil
}

func (a *app) schedulerConfig() application.SchedulerConfig {
	return application.SchedulerConfig{
		MinInterval: a.config.Scheduler.Min,
		MaxInterval: a.config.Scheduler.Max,
	}
}

func (a *app) sync() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
