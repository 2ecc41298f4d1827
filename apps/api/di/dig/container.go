package dig_container

import (
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/tutoring/apps/api/echo"
	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/cart"
	"github.com/trezcool/tutoring/core/catalog"
	"github.com/trezcool/tutoring/core/session"
	"github.com/trezcool/tutoring/core/user"
	emailsvc "github.com/trezcool/tutoring/services/email"
	logsvc "github.com/trezcool/tutoring/services/logger"
	metricsvc "github.com/trezcool/tutoring/services/metrics"
	"github.com/trezcool/tutoring/storage/database"
	inmemdb "github.com/trezcool/tutoring/storage/database/inmem"
	sqlxrepos "github.com/trezcool/tutoring/storage/database/sqlx"
	sessionstore "github.com/trezcool/tutoring/storage/session"
)

// EngineMemory selects the process-local database instead of PostgreSQL.
const EngineMemory = "memory"

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// CloseFunc releases the resources of a provided dependency.
	CloseFunc func() error

	Storage struct {
		dig.Out

		UserRepo    user.Repository
		CatalogRepo catalog.Repository
		CartRepo    cart.Repository
		Transactor  core.Transactor
		Close       CloseFunc `name:"closeDB"`
	}

	SessionStore struct {
		dig.Out

		Store session.Store
		Close CloseFunc `name:"closeSessions"`
	}

	// Closers are released on shutdown, in that order.
	Closers struct {
		dig.In

		DB       CloseFunc `name:"closeDB"`
		Sessions CloseFunc `name:"closeSessions"`
	}
)

func newZapLogger(conf *core.Config) (*zap.Logger, error) {
	return logsvc.NewZapLogger(conf)
}

func newLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config, zl *zap.Logger) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("db"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	if conf.Database.Engine == EngineMemory {
		db := inmemdb.Open()
		return Storage{
			UserRepo:    inmemdb.NewUserRepository(db),
			CatalogRepo: inmemdb.NewCatalogRepository(db),
			CartRepo:    inmemdb.NewCartRepository(db),
			Transactor:  db,
			Close:       func() error { return nil },
		}
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		loggerParam.Logger.Fatal("setting up database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		loggerParam.Logger.Fatal("setting up database", err)
	}
	if err = database.Migrate(db.DB); err != nil {
		loggerParam.Logger.Fatal("setting up database", err)
	}

	return Storage{
		UserRepo:    sqlxrepos.NewUserRepository(db),
		CatalogRepo: sqlxrepos.NewCatalogRepository(db),
		CartRepo:    sqlxrepos.NewCartRepository(db),
		Transactor:  core.NewTransactor(db),
		Close:       db.Close,
	}
}

// newSessionStore uses redis when configured, else keeps sessions in memory.
func newSessionStore(conf *core.Config, logger core.Logger) SessionStore {
	if conf.Redis.Address == "" {
		logger.Warn("no redis configured: guest sessions are kept in memory")
		return SessionStore{
			Store: sessionstore.NewMemoryStore(),
			Close: func() error { return nil },
		}
	}
	client := sessionstore.NewRedisClient(conf)
	return SessionStore{
		Store: sessionstore.NewRedisStore(client),
		Close: client.Close,
	}
}

func newSessionManager(conf *core.Config, store session.Store) *session.Manager {
	return session.NewManager(store, session.Options{
		SecretKey:   conf.SecretKey,
		TTL:         conf.Redis.SessionTTL,
		GuestPrefix: conf.Cart.GuestSessionPrefix,
	})
}

// newCodeStore keeps guest verification codes next to the sessions.
func newCodeStore(store session.Store) user.CodeStore {
	return store
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newCatalog(repo catalog.Repository) cart.Catalog {
	return catalog.NewCatalog(repo)
}

func newMetrics(conf *core.Config) *metricsvc.Metrics {
	if !conf.Metrics.Enabled {
		return nil
	}
	return metricsvc.NewMetrics(conf)
}

func newCartService(
	repo cart.Repository,
	tx core.Transactor,
	cat cart.Catalog,
	metrics *metricsvc.Metrics,
	logger core.Logger,
) *cart.Service {
	var recorder cart.Recorder
	if metrics != nil {
		recorder = metrics
	}
	return cart.NewService(repo, tx, cat, recorder, logger)
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	usrSvc user.Service,
	cartSvc *cart.Service,
	sessions *session.Manager,
	metrics *metricsvc.Metrics,
	validate *validator.Validate,
	translator ut.Translator,
) *echoapi.Server {
	return echoapi.NewServer(echoapi.Options{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		CartSvc:    cartSvc,
		Sessions:   sessions,
		Metrics:    metrics,
		Validate:   validate,
		Translator: translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newZapLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newSessionStore))
	must(c.Provide(newSessionManager))
	must(c.Provide(newCodeStore))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newMetrics))
	must(c.Provide(user.NewService))
	must(c.Provide(newCatalog))
	must(c.Provide(newCartService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
