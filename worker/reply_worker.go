package worker

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"nurtureflow/config"
	"nurtureflow/models"
	"nurtureflow/nurture"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
	"github.com/getsentry/sentry-go"
	"gorm.io/gorm"
)

// ReplyWorker polls the configured IMAP mailbox and records replies from
// known leads as responded engagement.
type ReplyWorker struct {
	DB     *gorm.DB
	Engine *nurture.Executor
	Logger *log.Logger
	IMAP   config.IMAPConfig
	Notify func(*models.SalesAlert)
}

func NewReplyWorker(db *gorm.DB, engine *nurture.Executor, logger *log.Logger, imapCfg config.IMAPConfig, notify func(*models.SalesAlert)) *ReplyWorker {
	return &ReplyWorker{
		DB:     db,
		Engine: engine,
		Logger: logger,
		IMAP:   imapCfg,
		Notify: notify,
	}
}

func (rw *ReplyWorker) Start(ctx context.Context) {
	rw.Logger.Println("Reply worker started")

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rw.Logger.Println("Reply worker shutting down...")
			return
		case <-ticker.C:
			if err := rw.scanInbox(); err != nil {
				rw.Logger.Printf("Error scanning inbox: %v", err)
				sentry.CaptureException(err)
			}
		}
	}
}

func (rw *ReplyWorker) scanInbox() error {
	imapClient, err := rw.dial()
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer imapClient.Logout()

	if err := imapClient.Login(rw.IMAP.Username, rw.IMAP.Password); err != nil {
		return fmt.Errorf("IMAP login failed: %w", err)
	}

	if _, err := imapClient.Select(rw.IMAP.Mailbox, false); err != nil {
		return fmt.Errorf("failed to select mailbox %s: %w", rw.IMAP.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	ids, err := imapClient.Search(criteria)
	if err != nil {
		return fmt.Errorf("IMAP search failed: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- imapClient.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchItem("BODY.PEEK[]")}, messages)
	}()

	for msg := range messages {
		if err := rw.processMessage(msg); err != nil {
			rw.Logger.Printf("Error processing inbound message: %v", err)
		}
	}

	if err := <-done; err != nil {
		return err
	}

	// BODY.PEEK never sets \Seen, so mark the batch explicitly or the next
	// scan fetches the same messages again
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	return imapClient.Store(seqset, item, []interface{}{imap.SeenFlag}, nil)
}

func (rw *ReplyWorker) dial() (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", rw.IMAP.Host, rw.IMAP.Port)

	switch strings.ToUpper(rw.IMAP.Encryption) {
	case "SSL":
		return client.DialTLS(addr, &tls.Config{ServerName: rw.IMAP.Host})
	case "STARTTLS":
		c, err := client.Dial(addr)
		if err != nil {
			return nil, err
		}
		if err := c.StartTLS(&tls.Config{ServerName: rw.IMAP.Host}); err != nil {
			c.Logout()
			return nil, err
		}
		return c, nil
	default:
		return client.Dial(addr)
	}
}

func (rw *ReplyWorker) processMessage(msg *imap.Message) error {
	if msg.Envelope == nil || len(msg.Envelope.From) == 0 {
		return nil
	}

	from := strings.ToLower(msg.Envelope.From[0].Address())

	var lead models.Lead
	if err := rw.DB.Preload("Interactions").Where("email = ?", from).First(&lead).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil // not one of ours
		}
		return err
	}

	// The reply counts against the most recent fired touchpoint
	if lead.Cursor == 0 || len(lead.Interactions) == 0 {
		return nil
	}
	stepIndex := lead.Cursor - 1

	// Already recorded; nothing to save
	for i := range lead.Interactions {
		if lead.Interactions[i].StepIndex == stepIndex && lead.Interactions[i].Responded {
			return nil
		}
	}

	// Drain the body so the message is marked seen even when unused
	section := imap.BodySectionName{}
	if literal := msg.GetBody(&section); literal != nil {
		if mr, err := mail.CreateReader(literal); err == nil {
			for {
				p, err := mr.NextPart()
				if err == io.EOF {
					break
				}
				if err != nil {
					break
				}
				io.Copy(io.Discard, p.Body)
			}
		}
	}

	alert, err := rw.Engine.RecordEngagement(&lead, stepIndex, nurture.EngagementResponded)
	if err != nil {
		return err
	}

	if err := rw.DB.Session(&gorm.Session{FullSaveAssociations: true}).Save(&lead).Error; err != nil {
		return err
	}

	rw.Logger.Printf("Recorded reply from lead %s on touchpoint %d", lead.UUID, stepIndex)

	if alert != nil {
		if err := rw.DB.Create(alert).Error; err != nil {
			rw.Logger.Printf("Failed to save sales alert for lead %s: %v", lead.UUID, err)
		}
		if rw.Notify != nil {
			rw.Notify(alert)
		}
	}

	return nil
}
