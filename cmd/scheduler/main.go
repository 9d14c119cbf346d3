package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"artsync/internal/coldstore"
	"artsync/internal/creds"
	"artsync/internal/hotstore"
	"artsync/internal/processor"
	"artsync/internal/store"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	st, err := store.NewDynamoStore(ctx)
	if err != nil {
		log.Fatal("scheduler: init dynamo store:", err)
	}

	bucket, err := hotstore.NewBucket(ctx)
	if err != nil {
		log.Fatal("scheduler: init hot storage:", err)
	}

	proc := processor.New(st, bucket, coldstore.NewClient(), creds.NewResolver(st))
	proc.MaxRetry = getenvInt("SYNC_MAX_RETRY", processor.DefaultMaxRetry)
	proc.BatchSize = getenvInt("SYNC_BATCH_SIZE", processor.DefaultBatchSize)

	interval := time.Duration(getenvInt("SYNC_INTERVAL_SECONDS", 300)) * time.Second

	log.Println("scheduler: started",
		"interval=", interval,
		"batchSize=", proc.BatchSize,
		"maxRetry=", proc.MaxRetry,
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		results, err := proc.ProcessBatch(ctx)
		if err != nil {
			log.Println("scheduler: batch error:", err)
		} else if len(results) > 0 {
			log.Println("scheduler: batch done", "processed=", len(results))
		}
		<-ticker.C
	}
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
