package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"nurtureflow/models"
	"nurtureflow/nurture"

	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"
)

type NurtureWorker struct {
	DB     *gorm.DB
	Engine *nurture.Executor
	Logger *log.Logger
}

func NewNurtureWorker(db *gorm.DB, engine *nurture.Executor, logger *log.Logger) *NurtureWorker {
	return &NurtureWorker{
		DB:     db,
		Engine: engine,
		Logger: logger,
	}
}

func (nw *NurtureWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	nw.Logger.Println("Nurture worker started")

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			nw.Logger.Println("Nurture worker shutting down...")
			return
		case <-ticker.C:
			nw.processDueLeads()
		}
	}
}

func (nw *NurtureWorker) processDueLeads() {
	var leads []*models.Lead
	if err := nw.DB.Preload("CustomFields").Preload("Interactions").
		Where("status = ? AND next_touch_at <= ?", models.LeadStatusActive, time.Now()).
		Limit(200).
		Find(&leads).Error; err != nil {
		nw.Logger.Printf("Error fetching due leads: %v", err)
		sentry.CaptureException(err)
		return
	}

	if len(leads) == 0 {
		return
	}

	nw.Logger.Printf("Processing %d due leads", len(leads))

	results := nw.Engine.ProcessDue(leads)

	for i, lead := range leads {
		item := results[i]
		if item.Status == nurture.BatchStatusError {
			nw.Logger.Printf("Error processing lead %s: %s", item.LeadUUID, item.Error)
			sentry.CaptureException(fmt.Errorf("nurture batch lead %s: %s", item.LeadUUID, item.Error))
			continue
		}
		if item.Status == nurture.BatchStatusSkipped {
			continue
		}

		if err := nw.DB.Session(&gorm.Session{FullSaveAssociations: true}).Save(lead).Error; err != nil {
			nw.Logger.Printf("Error saving lead %s: %v", lead.UUID, err)
			sentry.CaptureException(err)
			continue
		}

		if item.Status == nurture.BatchStatusCompleted {
			nw.Logger.Printf("Lead %s completed its sequence, routed to %s", lead.UUID, lead.Route)
		}
	}
}
