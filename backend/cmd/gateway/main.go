package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/JayStevency/livekit-msa-server/backend/config"
	"github.com/JayStevency/livekit-msa-server/backend/internal/cache"
	"github.com/JayStevency/livekit-msa-server/backend/internal/httpapi/handlers"
	"github.com/JayStevency/livekit-msa-server/backend/internal/httpapi/middleware"
	"github.com/JayStevency/livekit-msa-server/backend/internal/kvstore"
	"github.com/JayStevency/livekit-msa-server/backend/internal/rooms"
	"github.com/JayStevency/livekit-msa-server/backend/internal/rpc"
	"github.com/JayStevency/livekit-msa-server/backend/internal/session"
	"github.com/JayStevency/livekit-msa-server/backend/internal/store"
)

func initConfig() (*config.GatewayConfig, error) {
	cfg := &config.GatewayConfig{}
	v := viper.New()
	v.SetConfigName("gatewayConfig")
	v.SetConfigType("yaml")
	// 兼容从项目根目录或 backend 目录启动
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

	// === redis ===
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	kv := kvstore.NewRedisStore(rdb)
	defer kv.Close()

	// === mysql（可选：dsn 为空则不落房间记录）===
	var records *store.RoomStore
	if cfg.Mysql.DSN != "" {
		db, err := store.InitMySQL(cfg.Mysql.DSN)
		if err != nil {
			log.Fatalf("Failed to connect to mysql: %v", err)
		}
		records, err = store.NewRoomStore(db)
		if err != nil {
			log.Fatalf("Failed to migrate room store: %v", err)
		}
	} else {
		log.Printf("mysql dsn empty, room records disabled")
	}

	// === kafka producer（发请求）===
	kafkaCfg := sarama.NewConfig()
	// SyncProducer 必须开启 Return.Successes
	kafkaCfg.Producer.Return.Successes = true
	kafkaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaCfg)
	if err != nil {
		log.Fatalf("Failed to connect kafka: %v", err)
	}
	defer producer.Close()

	// === kafka consumer group（收回复）===
	consumerCfg := sarama.NewConfig()
	consumerCfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	replyGroup, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.ReplyGroup, consumerCfg)
	if err != nil {
		log.Fatalf("Failed to create reply consumer group: %v", err)
	}
	defer replyGroup.Close()

	// === RPC 客户端 + 回复消费循环 ===
	transport := rpc.NewKafkaTransport(producer, cfg.Kafka.RequestTopic)
	rpcClient := rpc.NewClient(transport, cfg.Kafka.ReplyTopic)
	replyConsumer := rpc.NewReplyConsumer(rpcClient, replyGroup, cfg.Kafka.ReplyTopic)
	go func() {
		if err := replyConsumer.Run(context.Background()); err != nil {
			log.Fatalf("reply consumer stopped: %v", err)
		}
	}()

	// === 组装：kv -> cache + session -> 编排器 ===
	cacheLayer := cache.New(kv)
	sessionStore := session.NewStore(kv)
	roomsService := rooms.NewService(rpcClient, cacheLayer, sessionStore, records)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	limit := cfg.RateLimit.Limit
	if limit <= 0 {
		limit = 100
	}
	window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	r.Use(middleware.RateLimit(cacheLayer, limit, window))

	handlers.NewRoomsHandler(roomsService).RegisterRoutes(r)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	port := cfg.Running.Port
	if port == 0 {
		port = 3000
	}
	_ = r.Run(fmt.Sprintf(":%d", port))
}
