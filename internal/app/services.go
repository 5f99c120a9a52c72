package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/workshop-backend/internal/data/aggregates"
	"github.com/yungbote/workshop-backend/internal/modules/workshop"
	"github.com/yungbote/workshop-backend/internal/modules/workshop/stages"
	"github.com/yungbote/workshop-backend/internal/modules/workshop/steps"
	"github.com/yungbote/workshop-backend/internal/observability"
	"github.com/yungbote/workshop-backend/internal/platform/lock"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
	"github.com/yungbote/workshop-backend/internal/platform/openai"
)

type Services struct {
	Workshop workshop.Usecases
	Locker   lock.Locker

	// redis is kept for shutdown when the distributed lock is enabled.
	redis *goredis.Client
}

func wireServices(ctx context.Context, db *gorm.DB, log *logger.Logger, cfg Config, metrics *observability.Metrics, r Repos) (Services, error) {
	log.Info("Wiring services...")

	registry, deps, err := stages.Load(cfg.StagesFile)
	if err != nil {
		return Services{}, fmt.Errorf("load stage definitions: %w", err)
	}
	log.Info("Stage definitions loaded", "stages", registry.Len(), "source", stagesSource(cfg.StagesFile))
	if err := validateGate(cfg, registry); err != nil {
		return Services{}, err
	}

	locker, rdb, err := wireLocker(ctx, log, cfg)
	if err != nil {
		return Services{}, err
	}

	generator, err := wireGenerator(log, cfg)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return Services{}, err
	}

	base := aggregates.BaseDeps{
		DB:    db,
		Log:   log,
		Hooks: aggregates.NewObservabilityHooks(metrics),
	}

	uc := workshop.New(workshop.UsecasesDeps{
		Log:          log,
		Registry:     registry,
		Dependencies: deps,
		Locker:       locker,
		Workshops:    r.Workshop,
		Stages:       r.StageInstance,
		Artifacts:    r.Artifact,
		Summaries:    r.Summary,
		Messages:     r.Message,
		Canvas:       r.CanvasItem,
		Credits:      r.UserCredit,
		WorkshopAggregate: aggregates.NewWorkshopAggregate(aggregates.WorkshopAggregateDeps{
			Base:      base,
			Workshops: r.Workshop,
			Stages:    r.StageInstance,
			Artifacts: r.Artifact,
			Summaries: r.Summary,
			Messages:  r.Message,
			Canvas:    r.CanvasItem,
			Credits:   r.UserCredit,
		}),
		ArtifactAggregate: aggregates.NewArtifactAggregate(aggregates.ArtifactAggregateDeps{
			Base:      base,
			Artifacts: r.Artifact,
		}),
		Generator: generator,
		Gate: steps.GateConfig{
			Enabled:           cfg.GateEnabled,
			StageID:           cfg.GateStageID,
			GrandfatherCutoff: cfg.GateGrandfatherCutoff,
		},
		Summary: workshop.SummaryConfig{
			Timeout:         cfg.SummaryTimeout,
			FallbackTimeout: cfg.SummaryFallbackTimeout,
			MaxWords:        cfg.SummaryMaxWords,
		},
	})

	return Services{Workshop: uc, Locker: locker, redis: rdb}, nil
}

// wireLocker uses redis when configured, degrading to the in-process lock
// if redis is unreachable at startup or later at acquire time.
func wireLocker(ctx context.Context, log *logger.Logger, cfg Config) (lock.Locker, *goredis.Client, error) {
	opts := lock.Options{TTL: cfg.LockTTL, Wait: cfg.LockWait}
	local := lock.NewLocal(opts)
	if cfg.RedisAddr == "" {
		log.Info("Workshop lock: in-process")
		return local, nil, nil
	}
	rdb, err := lock.Dial(ctx, cfg.RedisAddr)
	if err != nil {
		log.Warn("Workshop lock: redis unavailable, using in-process lock", "addr", cfg.RedisAddr, "error", err)
		return local, nil, nil
	}
	rl, err := lock.NewRedis(log, rdb, cfg.LockPrefix, opts)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("init redis lock: %w", err)
	}
	log.Info("Workshop lock: redis", "addr", cfg.RedisAddr)
	return lock.NewFallback(log, rl, local), rdb, nil
}

// wireGenerator returns nil without an API key; summaries then always fall back.
func wireGenerator(log *logger.Logger, cfg Config) (steps.TextGenerator, error) {
	if cfg.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY not set; stage summaries will use the fallback text")
		return nil, nil
	}
	client, err := openai.NewClient(log, openai.Config{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.OpenAIModel,
		Timeout:    cfg.OpenAITimeout,
		MaxRetries: cfg.OpenAIMaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("init openai client: %w", err)
	}
	return steps.NewOpenAIGenerator(client), nil
}

// validateGate refuses a gate that names a stage the registry does not know,
// since such a gate would never apply.
func validateGate(cfg Config, registry *stages.Registry) error {
	if !cfg.GateEnabled {
		return nil
	}
	if _, ok := registry.Get(cfg.GateStageID); !ok {
		return fmt.Errorf("gate stage %q is not a defined stage (set GATE_STAGE_ID or GATE_ENABLED=false)", cfg.GateStageID)
	}
	return nil
}

func stagesSource(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}
