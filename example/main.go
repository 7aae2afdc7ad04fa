package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tunaaoguzhann/fixedwindow/core"
)

func main() {
	limiter, err := core.NewMemoryLimiter()
	if err != nil {
		log.Fatalf("Failed to create limiter: %v", err)
	}

	ctx := context.Background()
	clientID := "1.2.3.4"
	maxRequests := core.DefaultMaxRequests
	window := core.DefaultWindow

	fmt.Printf("Limit: %d requests per %s\n\n", maxRequests, window)

	for i := 0; i < maxRequests; i++ {
		d, err := limiter.Check(ctx, clientID, maxRequests, window, time.UnixMilli(1000))
		if err != nil {
			log.Fatalf("Check failed: %v", err)
		}
		fmt.Printf("  t=1000   #%d admitted=%v remaining=%d\n", d.Count, d.Admitted, d.Remaining)
	}

	d, err := limiter.Check(ctx, clientID, maxRequests, window, time.UnixMilli(1500))
	if err != nil {
		log.Fatalf("Check failed: %v", err)
	}
	fmt.Printf("  t=1500   #%d admitted=%v\n", d.Count, d.Admitted)
	fmt.Printf("\nRejected response:\n")
	fmt.Printf("  429 %s\n", d.Message())
	fmt.Printf("  X-RateLimit-Limit: %d\n", d.Limit)
	fmt.Printf("  X-RateLimit-Remaining: 0\n")
	fmt.Printf("  X-RateLimit-Reset: %d\n", d.ResetAt)
	fmt.Printf("  Retry-After: %d\n\n", d.RetryAfter)

	d, err = limiter.Check(ctx, clientID, maxRequests, window, time.UnixMilli(61500))
	if err != nil {
		log.Fatalf("Check failed: %v", err)
	}
	fmt.Printf("  t=61500  #%d admitted=%v (window reset)\n", d.Count, d.Admitted)
}
