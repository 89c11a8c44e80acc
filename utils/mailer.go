package utils

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"nurtureflow/config"
	"nurtureflow/models"
	"nurtureflow/nurture"
)

// SMTPDeliverer sends email touchpoints over SMTP with open/click tracking
// injected. It satisfies nurture.Deliverer for the email channel.
type SMTPDeliverer struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
	logger  *logrus.Logger
}

func NewSMTPDeliverer(cfg config.SMTPConfig, baseURL string, logger *logrus.Logger) *SMTPDeliverer {
	if logger == nil {
		logger = logrus.New()
	}
	return &SMTPDeliverer{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Deliver sends the touchpoint to the lead's email address. A send failure
// is reported as not-delivered; the nurture engine records it and moves on.
func (d *SMTPDeliverer) Deliver(lead *models.Lead, rec nurture.TouchpointRecord) (bool, error) {
	if rec.Channel != nurture.ChannelEmail {
		return false, fmt.Errorf("smtp deliverer cannot handle channel %q", rec.Channel)
	}
	if lead.Email == "" {
		return false, fmt.Errorf("lead %s has no email address", lead.UUID)
	}

	body := renderHTMLBody(rec.Body)
	if rec.MessageID != "" {
		body = InjectTracking(body, d.baseURL, rec.MessageID)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetHeader("To", lead.Email)
	m.SetHeader("Subject", rec.Subject)
	m.SetBody("text/html", body)

	if err := d.dialer.DialAndSend(m); err != nil {
		d.logger.WithFields(logrus.Fields{
			"lead":    lead.UUID,
			"step":    rec.Index,
			"message": rec.MessageID,
		}).WithError(err).Warn("SMTP send failed")
		return false, nil
	}

	d.logger.WithFields(logrus.Fields{
		"lead":    lead.UUID,
		"step":    rec.Index,
		"message": rec.MessageID,
	}).Info("touchpoint email sent")
	return true, nil
}

// renderHTMLBody converts the plain-text touchpoint body to minimal HTML so
// tracking injection has something to hook into
func renderHTMLBody(text string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, para := range strings.Split(text, "\n\n") {
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(para, "\n", "<br>"))
		b.WriteString("</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}
