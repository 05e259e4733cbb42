//go:build ignore

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	streamCreated  = "stream:report:created"
	streamEnriched = "stream:report:enriched"
)

type reportCreatedEvent struct {
	ReportID  uuid.UUID `json:"report_id"`
	Category  string    `json:"category"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// Публикует тестовое событие и ждёт ответа воркера обогащения.
// Отчёта с таким ID в хранилище нет, поэтому ожидаемый ответ - error "report not found".
func main() {
	redisAddr := flag.String("redis", "localhost:6379", "Redis address for streams")
	reportID := flag.String("report", "", "Existing report ID (random if empty)")
	lat := flag.Float64("lat", 44.4432, "Latitude")
	lon := flag.Float64("lon", 26.0931, "Longitude")
	flag.Parse()

	client := redis.NewClient(&redis.Options{
		Addr: *redisAddr,
	})
	defer client.Close()

	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	id := uuid.New()
	if *reportID != "" {
		parsed, err := uuid.Parse(*reportID)
		if err != nil {
			log.Fatalf("Invalid report ID: %v", err)
		}
		id = parsed
	}

	event := reportCreatedEvent{
		ReportID:  id,
		Category:  "blocked_sidewalk",
		Latitude:  *lat,
		Longitude: *lon,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Fatalf("Failed to marshal event: %v", err)
	}

	// запоминаем хвост стрима ответов до публикации
	lastID := "$"
	if last, err := client.XRevRangeN(ctx, streamEnriched, "+", "-", 1).Result(); err == nil && len(last) > 0 {
		lastID = last[0].ID
	}

	result, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamCreated,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		log.Fatalf("Failed to publish event: %v", err)
	}

	fmt.Printf("Event published\n")
	fmt.Printf("   Stream: %s\n", streamCreated)
	fmt.Printf("   Message ID: %s\n", result)
	fmt.Printf("   Report ID: %s\n", event.ReportID)
	fmt.Printf("   Coordinates: %.6f, %.6f\n", event.Latitude, event.Longitude)
	fmt.Printf("\nWaiting for response in %s...\n", streamEnriched)

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		streams, err := client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{streamEnriched, lastID},
			Count:   10,
			Block:   time.Second,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Printf("XREAD failed: %v", err)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				lastID = msg.ID

				dataStr, ok := msg.Values["data"].(string)
				if !ok {
					continue
				}
				var response map[string]interface{}
				if err := json.Unmarshal([]byte(dataStr), &response); err != nil {
					continue
				}
				if response["report_id"] == event.ReportID.String() {
					pretty, _ := json.MarshalIndent(response, "", "  ")
					fmt.Printf("\nResponse received:\n%s\n", pretty)
					return
				}
			}
		}
	}

	fmt.Println("Timeout waiting for response")
}
