// Package app opens the shared infrastructure and builds the services used by
// both the API server and the background worker.
package app

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/patientiq/dashboard-api/internal/config"
	"github.com/patientiq/dashboard-api/internal/handler/health"
	promhandler "github.com/patientiq/dashboard-api/internal/handler/prometheus"
	"github.com/patientiq/dashboard-api/internal/llm"
	"github.com/patientiq/dashboard-api/internal/repository/postgres"
	"github.com/patientiq/dashboard-api/internal/service/appointment"
	"github.com/patientiq/dashboard-api/internal/service/docnotes"
	"github.com/patientiq/dashboard-api/internal/service/message"
	"github.com/patientiq/dashboard-api/internal/service/patient"
	"github.com/patientiq/dashboard-api/internal/service/questionnaire"
	"github.com/patientiq/dashboard-api/internal/service/research"
	"github.com/patientiq/dashboard-api/internal/service/summary"
	"github.com/patientiq/dashboard-api/internal/service/wearable"
	"github.com/patientiq/dashboard-api/internal/vector"
	"github.com/patientiq/dashboard-api/pkg/messaging"
	"github.com/patientiq/dashboard-api/pkg/messaging/redis"
	"github.com/patientiq/dashboard-api/pkg/metrics"
)

type Services struct {
	Patients       *patient.Service
	Research       *research.Service
	DoctorNotes    *docnotes.Service
	Wearables      *wearable.Service
	Summaries      *summary.Service
	Messages       *message.Service
	Appointments   *appointment.Service
	Questionnaires *questionnaire.Service
}

type App struct {
	Config      *config.Config
	DB          *sqlx.DB
	Repos       *postgres.Repositories
	HTTPMetrics *promhandler.Handler
	Metrics     *metrics.Metrics
	LLM         llm.Client
	Embedder    llm.Embedder
	Index       vector.Index
	Services    Services

	weaviate *vector.WeaviateIndex
	broker   *redis.RedisBroker
}

// New connects to Postgres (required) and to Weaviate and Redis (optional;
// features depending on them degrade when they are unreachable).
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:      cfg,
		DB:          db,
		Repos:       postgres.NewRepositories(db),
		HTTPMetrics: promhandler.New(cfg.Server.MetricsPrefix),
	}
	a.Metrics = metrics.NewMetrics(cfg.Server.MetricsPrefix, "", a.HTTPMetrics.Registry())
	a.LLM, a.Embedder = llm.NewFromConfig(ctx, cfg, a.Metrics)
	a.Index = a.openIndex(ctx)
	a.broker = a.openBroker(ctx)
	a.Services = a.buildServices()

	return a, nil
}

func (a *App) openIndex(ctx context.Context) vector.Index {
	idx, err := vector.NewWeaviateIndex(a.Config.Weaviate)
	if err != nil {
		log.Warn().Err(err).Msg("vector index disabled")
		return vector.Disabled{}
	}
	if err := idx.EnsureSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("weaviate schema check failed, searches may fall back to keywords")
	}
	a.weaviate = idx
	return idx
}

func (a *App) openBroker(ctx context.Context) *redis.RedisBroker {
	rc := a.Config.Redis
	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          rc.URL,
		MaxRetries:   rc.MaxRetries,
		RetryBackoff: rc.RetryBackoff,
		PoolSize:     rc.PoolSize,
		MinIdleConns: rc.MinIdleConns,
	}, log.Logger, a.Metrics)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, alert fan-out disabled")
		return nil
	}
	return broker
}

func (a *App) buildServices() Services {
	cfg := a.Config
	repos := a.Repos
	questionnaires := questionnaire.NewFileStore(cfg.Questionnaire.Dir)

	researchSvc := research.NewService(repos.Patients, repos.Research, a.Embedder, a.Index, a.LLM,
		research.NewExternalClient(cfg.Research), cfg.Research.DefaultDoctor)

	return Services{
		Patients: patient.NewService(repos.Patients, repos.Wearables, repos.Notes, repos.Research,
			questionnaires, a.LLM),
		Research: researchSvc,
		DoctorNotes: docnotes.NewService(repos.Notes, repos.Patients, a.Embedder, a.Index, a.LLM,
			cfg.Research.DefaultDoctor),
		Wearables: wearable.NewService(repos.Patients, repos.Wearables, repos.Alerts, researchSvc,
			a.LLM, a.Metrics),
		Summaries: summary.NewService(repos.Patients, repos.Wearables, repos.Notes,
			repos.QuestionnaireSummaries, questionnaires, a.LLM),
		Messages:       message.NewService(repos.Messages, a.LLM, cfg.Messages),
		Appointments:   appointment.NewService(repos.Appointments),
		Questionnaires: questionnaire.NewService(questionnaires, repos.Patients, repos.Notes, a.LLM),
	}
}

// Broker is nil when Redis could not be reached.
func (a *App) Broker() messaging.MessageBroker {
	if a.broker == nil {
		return nil
	}
	return messaging.NewBrokerAdapter(a.broker)
}

// Pingers lists the dependencies /health/ready checks.
func (a *App) Pingers() map[string]health.Pinger {
	deps := map[string]health.Pinger{"database": a.DB}
	if a.broker != nil {
		deps["redis"] = a.broker
	}
	if a.weaviate != nil {
		deps["weaviate"] = a.weaviate
	}
	return deps
}

func (a *App) Close() {
	if a.broker != nil {
		if err := a.broker.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis broker")
		}
	}
	if err := a.DB.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close database")
	}
}

// BackfillVectors indexes papers and doctor notes that have no vector yet,
// batch at a time, until a claim comes back short.
func (a *App) BackfillVectors(ctx context.Context, batch int) (papers, notes int, err error) {
	if batch <= 0 {
		batch = 100
	}
	papers, err = drain(ctx, batch, a.Services.Research.Backfill)
	if err != nil {
		return papers, 0, err
	}
	notes, err = drain(ctx, batch, a.Services.DoctorNotes.Backfill)
	return papers, notes, err
}

// drain runs step until it claims fewer than batch rows. Rows that fail to
// index still count as claimed, so a batch of failures does not end the pass
// while unclaimed rows remain behind it.
func drain(ctx context.Context, batch int, step func(context.Context, int) (int, int, error)) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		indexed, scanned, err := step(ctx, batch)
		total += indexed
		if err != nil || scanned < batch {
			return total, err
		}
	}
}
