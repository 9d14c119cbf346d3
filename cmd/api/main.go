package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"artsync/internal/coldstore"
	"artsync/internal/creds"
	"artsync/internal/hotstore"
	httpapi "artsync/internal/http"
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
		log.Fatal("api: init dynamo store:", err)
	}

	bucket, err := hotstore.NewBucket(ctx)
	if err != nil {
		log.Fatal("api: init hot storage:", err)
	}

	proc := processor.New(st, bucket, coldstore.NewClient(), creds.NewResolver(st))

	// Abandonment alerts are optional; skip when SES isn't configured.
	if alertTo := os.Getenv("ALERT_EMAIL"); alertTo != "" {
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatal("api: load aws cfg:", err)
		}
		sender, err := notify.NewSESSender(awsCfg)
		if err != nil {
			log.Fatal("api: init ses:", err)
		}
		proc.Notify = notify.NewAbandonmentNotifier(sender, alertTo)
	}

	app := &httpapi.App{
		Processor: proc,
		Store:     st,
		Previews:  bucket,
	}

	// Kafka dispatch is optional too; without it the scheduler pass drains
	// the backlog on its own.
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		topic := getenv("KAFKA_TOPIC_SYNC", "artsync-queue")
		prod := kafkaqueue.NewProducer(brokers, topic)
		defer prod.Close()
		app.Publisher = prod
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	httpapi.RegisterRoutes(r, app)

	addr := ":" + getenv("PORT", "8080")
	log.Println("API listening on", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
