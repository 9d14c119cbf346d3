package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"

	"artsync/internal/coldstore"
	"artsync/internal/creds"
	"artsync/internal/hotstore"
	"artsync/internal/notify"
	"artsync/internal/processor"
	kafkaqueue "artsync/internal/queue"
	"artsync/internal/store"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	st, err := store.NewDynamoStore(ctx)
	if err != nil {
		log.Fatal("worker: init dynamo store:", err)
	}

	bucket, err := hotstore.NewBucket(ctx)
	if err != nil {
		log.Fatal("worker: init hot storage:", err)
	}

	proc := processor.New(st, bucket, coldstore.NewClient(), creds.NewResolver(st))

	if alertTo := os.Getenv("ALERT_EMAIL"); alertTo != "" {
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatal("worker: load aws cfg:", err)
		}
		sender, err := notify.NewSESSender(awsCfg)
		if err != nil {
			log.Fatal("worker: init ses:", err)
		}
		proc.Notify = notify.NewAbandonmentNotifier(sender, alertTo)
	}

	brokersCSV := getenv("KAFKA_BROKERS", "localhost:9092")
	topic := getenv("KAFKA_TOPIC_SYNC", "artsync-queue")
	groupID := getenv("KAFKA_GROUP_ID", "artsync-workers")

	consumer := kafkaqueue.NewConsumer(splitCSV(brokersCSV), topic, groupID)
	defer consumer.Close()

	log.Println("worker: started", "topic=", topic, "brokers=", brokersCSV)

	for {
		qm, commit, err := consumer.ReadQueueID(ctx)
		if err != nil {
			log.Println("worker: read error:", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		out := proc.ProcessTask(ctx, qm.QueueID)
		log.Println("worker: processed", "id=", qm.QueueID, "status=", out.Status)

		// Failures are already recorded on the row and the periodic pass will
		// retry them, so the message is done either way. Only a commit error
		// leaves it for redelivery; the conditional claim keeps that safe.
		if err := commit(ctx); err != nil {
			log.Println("worker: commit error:", err)
		}
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
