package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/shopflow/internal/domain"
	"github.com/joao-fontenele/shopflow/internal/messaging"
)

// NotificationHandler turns order created events into receipt emails.
type NotificationHandler struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewNotificationHandler(emailServiceURL string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		emailServiceURL: strings.TrimRight(emailServiceURL, "/"),
		httpClient:      client,
		logger:          logger,
	}
}

func (h *NotificationHandler) Handle(ctx context.Context, key string, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: unmarshal order created event %q: %w", messaging.ErrSkipMessage, key, err)
	}
	if event.OrderID == "" {
		return fmt.Errorf("%w: order created event %q has no order id", messaging.ErrSkipMessage, key)
	}

	h.logger.Info("processing order created event", "order_id", event.OrderID, "username", event.Username)

	if err := h.sendReceipt(ctx, event); err != nil {
		h.logger.Error("failed to send receipt", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send receipt: %w", err)
	}

	h.logger.Info("receipt sent", "order_id", event.OrderID)
	return nil
}

func (h *NotificationHandler) sendReceipt(ctx context.Context, event domain.OrderCreatedEvent) error {
	body := map[string]string{
		"to":      event.Username + "@example.com",
		"subject": "Order receipt: " + event.OrderID,
		"body":    receiptBody(event),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}

func receiptBody(event domain.OrderCreatedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s is %s.\n", event.OrderID, event.Status)
	for _, p := range event.Products {
		fmt.Fprintf(&b, "- %s (%s): %d\n", p.Name, p.ID, p.Price)
	}
	fmt.Fprintf(&b, "Total: %d\n", event.TotalPrice)
	return b.String()
}
