/*
Package notify delivers payment decision notifications.

PURPOSE:
  The engine emits a PaymentDecision event for every verification; this
  package carries it to the outside world. Delivery is fire-and-forget:
  a failed webhook never fails, blocks, or rolls back the decision that
  produced it.

DELIVERY:
  Events are POSTed as JSON to a configured webhook URL (typically the
  messaging bridge that emails or WhatsApps the affected party). Each
  delivery runs in its own goroutine with a bounded timeout.

SEE ALSO:
  - engine/notify.go: The Dispatcher interface and event shape
  - cmd/server/main.go: Wiring (WEBHOOK_URL)
*/
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/warp/contract-engine/engine"
)

// Webhook POSTs payment decisions to a single URL.
type Webhook struct {
	URL    string
	Client *http.Client

	// Timeout bounds each delivery attempt. Defaults to 5s.
	Timeout time.Duration
}

var _ engine.Dispatcher = (*Webhook)(nil)

func NewWebhook(url string) *Webhook {
	return &Webhook{URL: url, Client: &http.Client{}, Timeout: 5 * time.Second}
}

// decisionPayload is the wire shape of a delivered event.
type decisionPayload struct {
	ContractID     string `json:"contract_id"`
	CollaboratorID string `json:"collaborator_id,omitempty"`
	InstallmentID  string `json:"installment_id"`
	PaymentID      string `json:"payment_id"`
	Outcome        string `json:"outcome"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	SubmittedBy    string `json:"submitted_by"`
	DecidedBy      string `json:"decided_by"`
	DecidedAt      string `json:"decided_at"`
}

// PaymentDecided delivers the event asynchronously. The caller's context is
// not reused: the decision has already committed and delivery outlives the
// originating request.
func (wh *Webhook) PaymentDecided(_ context.Context, d engine.PaymentDecision) {
	payload := decisionPayload{
		ContractID:     string(d.ContractID),
		CollaboratorID: string(d.CollaboratorID),
		InstallmentID:  string(d.InstallmentID),
		PaymentID:      string(d.PaymentID),
		Outcome:        string(d.Outcome),
		Amount:         d.Amount.Value.StringFixed(2),
		Currency:       string(d.Amount.Currency),
		SubmittedBy:    d.SubmittedBy,
		DecidedBy:      d.DecidedBy,
		DecidedAt:      d.DecidedAt.Format(time.RFC3339),
	}

	go func() {
		body, err := json.Marshal(payload)
		if err != nil {
			log.Printf("notify: marshal decision %s: %v", d.PaymentID, err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), wh.timeout())
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
		if err != nil {
			log.Printf("notify: build request for %s: %v", d.PaymentID, err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := wh.Client.Do(req)
		if err != nil {
			log.Printf("notify: deliver decision %s: %v", d.PaymentID, err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			log.Printf("notify: deliver decision %s: status %d", d.PaymentID, resp.StatusCode)
		}
	}()
}

func (wh *Webhook) timeout() time.Duration {
	if wh.Timeout > 0 {
		return wh.Timeout
	}
	return 5 * time.Second
}
