package cli

import (
	"crypto/rand"
	"encoding/hex"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/report"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// App holds the services built over one store.
type App struct {
	Issuer       *auth.Issuer
	SummaryCache *cache.LRUCache[core.Summary]
	Accounts     *services.AccountService
	Transactions *services.TransactionService
	Summaries    *services.SummaryService
	Reports      *services.ReportService
}

// NewApp wires the services. publisher may be nil. When no JWT secret is
// configured a random one is used, so tokens issued by the process are only
// valid within it.
func NewApp(store storage.Store, cfg *config.Config, publisher services.EventPublisher, logger *log.Logger) *App {
	secret := cfg.JWTSecret
	if secret == "" {
		secret = randomSecret()
		logger.Warn("JWT_SECRET not set, tokens will not survive a restart")
	}
	issuer := auth.NewIssuer(secret, cfg.JWTTTL)

	summaryCache := cache.NewLRUCache[core.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	if err := metrics.RegisterCacheStats(nil, "summary", summaryCache.Stats); err != nil {
		logger.Warn("Cache metrics not registered", log.FieldError, err)
	}
	summaries := services.NewSummaryService(store, summaryCache, logger)
	exporter := report.NewExporter(logger, report.Limits{
		MaxRecords: cfg.ExportMaxRecords,
		Timeout:    cfg.ExportTimeout,
	})

	return &App{
		Issuer:       issuer,
		SummaryCache: summaryCache,
		Accounts:     services.NewAccountService(store, issuer, auth.DefaultHasher(), summaries, logger),
		Transactions: services.NewTransactionService(store, summaries, publisher, logger),
		Summaries:    summaries,
		Reports:      services.NewReportService(store, exporter, logger),
	}
}

// OpenPublisher connects to the broker when AMQP_URL is set. With no broker
// configured it returns a nil interface and a no-op close.
func OpenPublisher(cfg *config.Config, logger *log.Logger) (services.EventPublisher, func() error, error) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled, transaction events will not be published")
		return nil, func() error { return nil }, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("AMQP publisher connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, client.Close, nil
}

func randomSecret() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
