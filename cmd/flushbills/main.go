package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"pos-service/config"
	"pos-service/internal/broker"
	"pos-service/internal/redisclient"
	"pos-service/internal/service"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

const confirmation = "YES"

func main() {
	os.Exit(run(os.Stdin))
}

// run returns the process exit code so deferred cleanup always runs.
func run(in io.Reader) int {
	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Printf("Failed to initialize logger: %v", err)
		return 1
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	fmt.Println("This deletes ALL bills, bill lines, refunds and status history.")
	fmt.Println("Bill numbering restarts at 1. Items and operators are kept.")
	fmt.Printf("Type %s to continue: ", confirmation)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		logger.Error("Failed to read confirmation", zap.Error(err))
		return 1
	}
	if strings.TrimSpace(answer) != confirmation {
		fmt.Println("Aborted, nothing was deleted.")
		return 0
	}

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		fmt.Printf("Flush failed: %v\n", err)
		return 1
	}
	defer db.Close()

	var cache service.Cache
	var locker service.Locker
	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis unavailable, report cache will expire on its own", zap.Error(err))
		} else {
			defer redisClient.Close()
			cache, locker = redisClient, redisClient
		}
	}

	var publisher service.EventPublisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicBill)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
	}

	reports := service.NewReportService(db, cache, cfg.Business.ReportCacheTTL, cfg.Business.Location())
	maintenance := service.NewMaintenanceService(db, reports, publisher, locker)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := maintenance.FlushHistory(ctx)
	if err != nil {
		logger.Error("Flush failed, nothing was deleted", zap.Error(err))
		fmt.Printf("Flush failed: %v\n", err)
		return 1
	}

	fmt.Printf("Deleted %d bills and %d lines. Next bill is %s.\n",
		result.Bills, result.Lines,
		service.SequenceFormat{Prefix: cfg.Business.SequencePrefix, Width: cfg.Business.SequenceWidth}.Code(1))
	return 0
}
