package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/logger"
	"wallet-activity-stats/internal/infrastructure/messaging"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// stats-consumer tails the stats events stream and logs a one-line summary per wallet
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	log, err := logger.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	consumerName := os.Getenv("CONSUMER_NAME")
	if consumerName == "" {
		consumerName = "stats-consumer"
	}
	subject := messaging.NewNATSClient(&cfg.NATS, log).StatsSubject()

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("wallet-stats-consumer"),
		nats.Timeout(cfg.NATS.ConnectTimeout),
		nats.ReconnectWait(cfg.NATS.ReconnectDelay),
		nats.MaxReconnects(cfg.NATS.ReconnectAttempts),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		log.Fatal("Failed to create JetStream context", zap.Error(err))
	}

	if _, err := js.StreamInfo(cfg.NATS.StreamName); err != nil {
		log.Fatal("Stream does not exist", zap.String("stream", cfg.NATS.StreamName), zap.Error(err))
	}

	if _, err := js.AddConsumer(cfg.NATS.StreamName, &nats.ConsumerConfig{
		Durable:       consumerName,
		AckPolicy:     nats.AckExplicitPolicy,
		FilterSubject: subject,
		MaxDeliver:    3,
		AckWait:       30 * time.Second,
	}); err != nil {
		if _, err := js.ConsumerInfo(cfg.NATS.StreamName, consumerName); err != nil {
			log.Fatal("Failed to create or get consumer", zap.Error(err))
		}
	}

	sub, err := js.PullSubscribe(subject, consumerName)
	if err != nil {
		log.Fatal("Failed to create pull subscription", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Consuming stats events",
		zap.String("stream", cfg.NATS.StreamName),
		zap.String("subject", subject),
		zap.String("consumer", consumerName))

	for ctx.Err() == nil {
		msgs, err := sub.Fetch(10, nats.MaxWait(time.Second))
		if err != nil {
			if err != nats.ErrTimeout && ctx.Err() == nil {
				log.Warn("Error fetching messages", zap.Error(err))
			}
			continue
		}

		for _, msg := range msgs {
			var event messaging.StatsComputedEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				log.Warn("Failed to unmarshal stats event", zap.Error(err))
				_ = msg.Nak()
				continue
			}

			log.Info("Stats computed",
				zap.String("address", event.Address),
				zap.String("source", string(event.Source)),
				zap.Int("tx_all", event.Totals.TxAll),
				zap.Int("tx_out", event.Totals.TxOut),
				zap.Any("counts", event.CountsByCategoryOut),
				zap.Strings("warnings", event.Warnings))

			if err := msg.Ack(); err != nil {
				log.Warn("Failed to acknowledge message", zap.Error(err))
			}
		}
	}
}
