package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/IBM/sarama"
	"github.com/spf13/viper"

	"github.com/JayStevency/livekit-msa-server/backend/config"
	"github.com/JayStevency/livekit-msa-server/backend/internal/livekit"
	"github.com/JayStevency/livekit-msa-server/backend/internal/rpc"
)

func initConfig() (*config.LivekitConfig, error) {
	cfg := &config.LivekitConfig{}
	v := viper.New()
	v.SetConfigName("livekitConfig")
	v.SetConfigType("yaml")
	v.AddConfigPath("./backend/config")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	cfg, err := initConfig()
	if err != nil {
		log.Fatalf("init config failed: %v", err)
	}

	kafkaCfg := sarama.NewConfig()
	kafkaCfg.Producer.Return.Successes = true
	kafkaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaCfg)
	if err != nil {
		log.Fatalf("Failed to connect kafka: %v", err)
	}
	defer producer.Close()

	consumerCfg := sarama.NewConfig()
	consumerCfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	group, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.Group, consumerCfg)
	if err != nil {
		log.Fatalf("Failed to create consumer group: %v", err)
	}
	defer group.Close()

	registry := livekit.NewRegistry()
	handler := livekit.NewHandler(registry, cfg.Livekit.APIKey, cfg.Livekit.APISecret, cfg.Livekit.WsURL)

	srv := rpc.NewServer(producer, group, cfg.Kafka.RequestTopic)
	handler.Register(srv)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	log.Printf("livekit-service consuming %s", cfg.Kafka.RequestTopic)
	if err := srv.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("server stopped: %v", err)
	}
}
