// README: Entry point; loads config, wires services, starts HTTP server and
// background sweeps.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roam/internal/config"
	httptransport "roam/internal/http"
	"roam/internal/infra"
	"roam/internal/modules/calendar"
	"roam/internal/modules/deposit"
	"roam/internal/modules/dispute"
	"roam/internal/modules/inspection"
	"roam/internal/modules/reservation"
	"roam/internal/modules/timeline"
	"roam/internal/modules/vehicle"
	"roam/internal/notify"
)

func main() {
	log := infra.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	sink := notify.NewRedisSink(redisClient)

	vehicleStore := vehicle.NewStore(dbPool)
	calendarSvc := calendar.NewService(calendar.NewStore(dbPool))
	timelineSvc := timeline.NewService(timeline.NewStore(dbPool))
	ledger := deposit.NewLedger(deposit.NewBreakerGateway(deposit.NewStubGateway()))

	reservationSvc := reservation.NewService(
		reservation.NewStore(dbPool), vehicleStore, calendarSvc, timelineSvc,
		ledger, sink, log, reservation.Config{
			CommissionPercent: cfg.Marketplace.CommissionPercent,
			Cooldown:          time.Duration(cfg.Marketplace.CooldownMins) * time.Minute,
			PaymentTimeout:    time.Duration(cfg.Sweep.PaymentTimeoutMins) * time.Minute,
			SweepTick:         time.Duration(cfg.Sweep.TickSeconds) * time.Second,
		})

	inspectionSvc := inspection.NewService(inspection.NewStore(dbPool), reservationSvc, timelineSvc)

	disputeSvc := dispute.NewService(dispute.NewStore(dbPool), reservationSvc,
		inspectionSvc, timelineSvc, cfg.Admin.UserID,
		time.Duration(cfg.Marketplace.DisputeWindowHours)*time.Hour, log)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Reservations: reservationSvc,
		Inspections:  inspectionSvc,
		Disputes:     disputeSvc,
		Timeline:     timelineSvc,
		AdminUserID:  cfg.Admin.UserID,
		Log:          log,
	})
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go reservationSvc.RunSweeper(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", cfg.HTTP.Addr).Info("roam-api listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
