package jobs

import (
	"context"
	"log"
	"time"

	"github.com/jeshanrai/orderbot-backend/internal/services"
	"github.com/jeshanrai/orderbot-backend/internal/storage"
)

const (
	reminderCheckInterval = 5 * time.Minute
	cartIdleThreshold     = 30 * time.Minute
)

// CartReminderJob nudges users who went quiet with items still in their
// cart. Each session gets at most one reminder per cart; the flag resets
// when an order completes.
type CartReminderJob struct {
	sessions  storage.SessionStore
	renderer  services.Renderer
	isRunning bool
	stop      chan struct{}
}

// NewCartReminderJob creates a new cart reminder scheduler.
func NewCartReminderJob(sessions storage.SessionStore, renderer services.Renderer) *CartReminderJob {
	return &CartReminderJob{
		sessions: sessions,
		renderer: renderer,
		stop:     make(chan struct{}),
	}
}

// Start begins the reminder loop.
func (j *CartReminderJob) Start() {
	if j.isRunning {
		log.Println("Cart reminder job already running")
		return
	}
	j.isRunning = true
	log.Println("Starting cart reminder job...")
	go j.loop()
}

// Stop halts the reminder loop.
func (j *CartReminderJob) Stop() {
	if !j.isRunning {
		return
	}
	j.isRunning = false
	close(j.stop)
	log.Println("Stopping cart reminder job...")
}

func (j *CartReminderJob) loop() {
	ticker := time.NewTicker(reminderCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			j.runOnce()
		}
	}
}

func (j *CartReminderJob) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sessions, err := j.sessions.ListIdleSessions(ctx, cartIdleThreshold)
	if err != nil {
		log.Printf("⚠️ Cart reminder scan failed: %v", err)
		return
	}

	for _, session := range sessions {
		if len(session.Cart) == 0 || session.ReminderSent {
			continue
		}

		intent := services.TextIntent("👋 Still thinking it over? You have %d item(s) waiting in your cart. Say \"checkout\" to place the order or \"cart\" to review it.",
			session.CartCount())
		if err := j.renderer.Render(ctx, session, intent); err != nil {
			log.Printf("⚠️ Failed to send cart reminder to %s: %v", session.UserID, err)
			continue
		}

		session.ReminderSent = true
		if err := j.sessions.SaveSession(ctx, session); err != nil {
			log.Printf("⚠️ Failed to persist reminder flag for %s: %v", session.UserID, err)
		}
		log.Printf("🔔 Cart reminder sent to %s", session.UserID)
	}
}
