package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/room"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	sendgridmail "github.com/trezcool/darasa/services/email/sendgrid"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/services/realtime"
	"github.com/trezcool/darasa/storage/database"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig(core.Getwd())

	var logger core.Logger
	if conf.RollbarToken != "" && !conf.Debug {
		rl := logsvc.NewRollbarLogger(std, conf)
		defer rl.Wait()
		logger = rl
	} else {
		logger = logsvc.NewStdLogger(std, conf)
	}

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Critical("opening database", err)
		os.Exit(1)
	}
	defer db.Close()
	if err = database.Migrate(db); err != nil {
		logger.Critical("migrating database", err)
		os.Exit(1)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = sendgridmail.NewService(conf)
	}

	roomRepo := sqlxrepos.NewRoomRepository(db)
	modRepo := sqlxrepos.NewModerationRepository(db)
	completionRepo := sqlxrepos.NewCompletionRepository(db)
	enrolls := sqlxrepos.NewEnrollmentDirectory(db)
	catalog := sqlxrepos.NewMaterialCatalog(db)

	hub := realtime.NewHub(logger)
	guard := room.NewGuard(roomRepo, enrolls, modRepo)
	modSvc := room.NewModerationService(roomRepo, modRepo, hub)

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))
	chatSvc := room.NewService(roomRepo, guard, modSvc, enrolls, hub, mailSvc, logger, conf)
	progressSvc := room.NewProgressService(roomRepo, completionRepo, catalog, enrolls, hub, logger)

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Addr:        conf.Server.Address(),
		Conf:        conf,
		Logger:      logger,
		UserSvc:     usrSvc,
		ChatSvc:     chatSvc,
		ModSvc:      modSvc,
		ProgressSvc: progressSvc,
		Guard:       guard,
		Hub:         hub,
	})
	go app.Start()
	logger.Info("server started on " + conf.Server.Address())

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		logger.Error("server shutdown", err)
	}
}
