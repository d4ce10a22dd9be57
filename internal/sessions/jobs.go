package sessions

import (
	"context"
	"log"
	"time"
)

// Sweeper runs the background expiry pass over purchase sessions.
type Sweeper struct {
	service  Service
	interval time.Duration
	done     chan struct{}
}

// NewSweeper creates a sweeper that runs every interval
func NewSweeper(service Service, interval time.Duration) *Sweeper {
	return &Sweeper{
		service:  service,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop
func (sw *Sweeper) Start(ctx context.Context) {
	log.Printf("Starting session expiry sweeper with %v interval", sw.interval)
	go sw.run(ctx)
}

// Stop terminates the sweep loop
func (sw *Sweeper) Stop() {
	log.Println("Stopping session expiry sweeper...")
	close(sw.done)
}

func (sw *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.sweep(ctx)
		case <-sw.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (sw *Sweeper) sweep(ctx context.Context) {
	if _, _, err := sw.service.SweepExpired(ctx); err != nil {
		log.Printf("Error sweeping expired sessions: %v", err)
	}
}
