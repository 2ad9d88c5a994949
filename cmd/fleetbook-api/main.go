// README: Entry point; loads config, wires stores and services, starts the
// scheduler and the HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fleetbook/internal/config"
	httptransport "fleetbook/internal/http"
	"fleetbook/internal/infra"
	"fleetbook/internal/logging"
	"fleetbook/internal/modules/assignment"
	"fleetbook/internal/modules/booking"
	"fleetbook/internal/modules/fleet"
	"fleetbook/internal/modules/notify"
	"fleetbook/internal/modules/pricing"
	"fleetbook/internal/scheduler"
	"fleetbook/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.WithError(err).Fatal("db init failed")
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	locker := infra.NewRedisLocker(redisClient)
	clock := types.SystemClock()

	notifySvc := notify.NewService(notify.NewPGStore(dbPool), clock)
	pricingSvc := pricing.NewService()

	bookingStore := booking.NewPGStore(dbPool)
	bookingSvc := booking.NewService(bookingStore, notifySvc, pricingSvc, clock, log)

	fleetStore := fleet.NewPGStore(dbPool)
	fleetSvc := fleet.NewService(fleetStore, locker, clock)

	matcher := assignment.NewMatcher(fleetStore, bookingStore)
	assignSvc := assignment.NewService(matcher, bookingSvc, bookingStore, notifySvc, clock, log, cfg.Batch.Throttle)

	sched := scheduler.New(assignSvc, bookingStore, notifySvc, clock, log)
	sched.Start(ctx)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Bookings: bookingSvc,
		Assigner: assignSvc,
		Fleet:    fleetSvc,
		APIKey:   cfg.HTTP.APIKey,
		Log:      log,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", cfg.HTTP.Addr).Info("fleetbook api listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server failed")
	}
}
