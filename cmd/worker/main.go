package main

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mlukyanov/skyfare/config"
	"github.com/mlukyanov/skyfare/internal/email"
	"github.com/mlukyanov/skyfare/internal/kafka"
	"github.com/mlukyanov/skyfare/internal/pricing"
	"github.com/mlukyanov/skyfare/internal/repository"
	"github.com/mlukyanov/skyfare/internal/service/booking"
	"github.com/mlukyanov/skyfare/internal/simulator"
	kafkaGo "github.com/segmentio/kafka-go"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	fareRepo := repository.NewFareHistoryRepository(pool)

	// Repair any seat-counter drift left by a crash between a seat
	// update and its booking row.
	if err := flightRepo.ReconcileSeats(ctx); err != nil {
		log.Printf("reconcile seats: %v", err)
	}

	calc := pricing.NewCalculator(cfg.Pricing)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	demand := pricing.NewRandDemand(rng, cfg.Simulator)

	bookingService := booking.NewBookingService(
		bookingRepo,
		flightRepo,
		fareRepo,
		nil,
		producer,
		calc,
		demand,
		cfg.Kafka.BookingTopic,
		time.Duration(cfg.Booking.HoldTTLMinutes)*time.Minute,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	market := simulator.NewMarket(flightRepo, fareRepo, calc, demand, producer, cfg.Kafka.FareTopic, cfg.Simulator, rng)

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:           cfg.Kafka.Brokers,
		GroupID:           cfg.Kafka.GroupID,
		Topic:             cfg.Kafka.NotificationsTopic,
		HeartbeatInterval: time.Duration(cfg.Kafka.HeartbeatIntervalSeconds) * time.Second,
		SessionTimeout:    time.Duration(cfg.Kafka.SessionTimeoutSeconds) * time.Second,
	})
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("decode event error: %v", err)
				return nil
			}
			return emailSender.Send(ctx, event)
		}); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	marketTicker := time.NewTicker(time.Duration(cfg.Simulator.IntervalSeconds) * time.Second)
	defer marketTicker.Stop()

	expireTicker := time.NewTicker(time.Duration(cfg.Booking.ExpirySweepMinutes) * time.Minute)
	defer expireTicker.Stop()

	for {
		select {
		case <-marketTicker.C:
			if err := market.Tick(ctx); err != nil {
				log.Printf("market tick error: %v", err)
			}
		case <-expireTicker.C:
			expired, err := bookingService.ExpirePendingBookings(ctx)
			if err != nil {
				log.Printf("expire bookings error: %v", err)
				continue
			}
			if len(expired) > 0 {
				log.Printf("expired %d bookings", len(expired))
			}
		case <-ctx.Done():
			log.Printf("shutting down")
			return
		}
	}
}
