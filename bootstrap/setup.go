package bootstrap

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/va6996/tripplanner/config"
	"github.com/va6996/tripplanner/geo"
	"github.com/va6996/tripplanner/llm"
	"github.com/va6996/tripplanner/log"
	"github.com/va6996/tripplanner/macroplanner"
	"github.com/va6996/tripplanner/orchestrator"
	"github.com/va6996/tripplanner/poi"
	"github.com/va6996/tripplanner/poiplanner"
	"github.com/va6996/tripplanner/routeoptimizer"
	"github.com/va6996/tripplanner/store"
	"github.com/va6996/tripplanner/travel"
)

// App holds every initialized component the HTTP layer needs.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Store        *store.Store
	Config       *config.Config
}

// Setup wires config into an LLM backend, the Maps-backed POI/Travel-Time
// providers (with a Local/Heuristic-only fallback when no Maps key is
// configured), the four pipeline stages, and the Orchestrator that strings
// them together.
func Setup(ctx context.Context, cfg *config.Config) (*App, error) {
	llmClient, err := setupLLM(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm backend: %w", err)
	}

	var mapsClient *geo.Client
	if cfg.Maps.APIKey != "" {
		mapsClient, err = geo.NewClient(cfg.Maps.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize maps client: %w", err)
		}
	} else {
		log.WithField("component", "bootstrap").Debug("GOOGLE_MAPS_API_KEY not set, running Local-only POI and heuristic-only travel-time")
	}

	db, err := setupDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	tripStore := store.New(db)
	if err := tripStore.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	poiProvider := setupPOIProvider(cfg, mapsClient, db)
	travelProvider := setupTravelProvider(cfg, mapsClient, db)

	macroPlanner := macroplanner.NewPlanner(llmClient, cfg.Planner)
	poiPlanner := poiplanner.NewPlanner(poiProvider)
	routeOptimizer := routeoptimizer.NewOptimizer(travelProvider)

	orch := orchestrator.New(tripStore, macroPlanner, poiPlanner, routeOptimizer)

	return &App{Orchestrator: orch, Store: tripStore, Config: cfg}, nil
}

func setupLLM(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	switch cfg.AI.Plugin {
	case "ollama", "zai", "gemini", "":
		return llm.NewGenkitClient(ctx, &cfg.AI)
	case "gemini-direct":
		if cfg.AI.Gemini.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY must be set for AI_PLUGIN=gemini-direct")
		}
		return llm.NewDirectGeminiClient(ctx, cfg.AI.Gemini.APIKey, cfg.AI.Gemini.Model)
	default:
		return nil, fmt.Errorf("unknown AI_PLUGIN %q", cfg.AI.Plugin)
	}
}

func setupPOIProvider(cfg *config.Config, mapsClient *geo.Client, db *gorm.DB) poi.Provider {
	local := poi.NewLocalProvider(poi.NewDefaultIndex(nil))
	if mapsClient == nil {
		return local
	}

	external := poi.NewExternalProvider(mapsClient, time.Duration(cfg.POI.ExternalTimeout)*time.Second, db)
	return poi.NewCompositeProvider(local, external)
}

func setupTravelProvider(cfg *config.Config, mapsClient *geo.Client, db *gorm.DB) travel.Provider {
	if mapsClient == nil {
		return travel.NewHeuristicProvider()
	}
	return travel.NewExternalProvider(mapsClient, time.Duration(cfg.Travel.ExternalTimeout)*time.Second, db)
}

func setupDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.DB.Host == "" {
		return gorm.Open(sqlite.Open("tripplanner.db"), &gorm.Config{})
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.DBName, cfg.DB.SSLMode)
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}
