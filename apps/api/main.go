package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	echoapi "github.com/DeathRaider12/HUB-TUTORIUM/apps/api/echo"
	"github.com/DeathRaider12/HUB-TUTORIUM/core"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/account"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/group"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/identity"
	"github.com/DeathRaider12/HUB-TUTORIUM/core/question"
	emailsvc "github.com/DeathRaider12/HUB-TUTORIUM/services/email"
	logsvc "github.com/DeathRaider12/HUB-TUTORIUM/services/logger"
	pgstore "github.com/DeathRaider12/HUB-TUTORIUM/storage/store/postgres"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig(".")
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}
	core.Conf = conf

	// set up loggers
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	var logger core.Logger
	if conf.Debug {
		logger = core.StdLogger{Std: std}
	} else {
		rl := logsvc.NewRollbarLogger(std, conf)
		rl.Enable(true)
		logger = rl
	}

	// set up DB
	db, err := pgstore.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer db.Close()

	if err = pgstore.Migrate(db.DB); err != nil {
		logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}

	recordStore, err := pgstore.NewRecordStore(db, pgstore.ConnInfo(conf), logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up record store: %v", err), err)
	}
	defer recordStore.Close()

	// set up Redis; rate limiting is disabled without it
	var rdb *redis.Client
	if conf.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
			DB:       conf.Redis.DB,
		})
		defer rdb.Close()
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	admins, err := account.NewAdminDirectory(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing admin accounts: %v", err), err)
	}

	identitySvc := identity.NewService(pgstore.NewIdentityRepository(db), mailSvc, logger)
	accountSvc := account.NewService(recordStore, admins, mailSvc, logger)
	engine := account.NewEngine(recordStore, admins, logger, conf.SessionResolveTimeout)
	questionSvc := question.NewService(pgstore.NewQuestionRepository(db))
	groupSvc := group.NewService(pgstore.NewGroupRepository(db))

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	// Google sign-in is optional; the API runs without it
	var google *echoapi.GoogleAuthenticator
	if conf.OIDC.ClientID != "" {
		google, err = echoapi.NewGoogleAuthenticator(context.Background(), conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up Google sign-in: %v", err), err)
		}
	}

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Logger:      logger,
			IdentitySvc: identitySvc,
			AccountSvc:  accountSvc,
			Engine:      engine,
			QuestionSvc: questionSvc,
			GroupSvc:    groupSvc,
			Admins:      admins,
			Google:      google,
			Redis:       rdb,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
