package email

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"github.com/patientiq/dashboard-api/internal/config"
	"github.com/patientiq/dashboard-api/internal/model"
)

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// AlertNotifier emails the care team when a critical wearable alert is
// broadcast.
type AlertNotifier struct {
	sender Sender
	from   string
	to     []string
}

func NewAlertNotifier(cfg config.SMTPConfig) *AlertNotifier {
	return newAlertNotifier(gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password), cfg.From, cfg.AlertTo)
}

func newAlertNotifier(sender Sender, from, to string) *AlertNotifier {
	var recipients []string
	for _, addr := range strings.Split(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	return &AlertNotifier{sender: sender, from: from, to: recipients}
}

// HandleEvent is a broker handler for the alert channel. Events below
// critical are ignored; malformed payloads are logged and dropped.
func (n *AlertNotifier) HandleEvent(payload []byte) error {
	var event model.AlertEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Warn().Err(err).Msg("dropping malformed alert event")
		return nil
	}
	if event.Priority != model.PriorityCritical {
		return nil
	}
	return n.Notify(context.Background(), event)
}

func (n *AlertNotifier) Notify(ctx context.Context, event model.AlertEvent) error {
	if len(n.to) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to...)
	m.SetHeader("Subject", Subject(event))
	m.SetBody("text/plain", Body(event))

	if err := n.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	log.Info().
		Str("alert_id", event.AlertID).
		Str("patient_id", event.PatientID).
		Int("recipients", len(n.to)).
		Msg("alert email sent")
	return nil
}

func Subject(event model.AlertEvent) string {
	name := event.PatientName
	if name == "" {
		name = "patient " + event.PatientID
	}
	return fmt.Sprintf("[%s] %s alert for %s", strings.ToUpper(string(event.Priority)), metricLabel(event.Metric), name)
}

func Body(event model.AlertEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patient: %s (ID %s)\n", event.PatientName, event.PatientID)
	fmt.Fprintf(&b, "Severity: %s\n", event.Priority)
	fmt.Fprintf(&b, "Metric: %s\n", metricLabel(event.Metric))
	fmt.Fprintf(&b, "Raised: %s\n\n", event.RaisedAt.UTC().Format("2006-01-02 15:04 MST"))
	b.WriteString(event.Message)
	b.WriteString("\n")
	return b.String()
}

func metricLabel(metric string) string {
	return strings.ReplaceAll(metric, "_", " ")
}
