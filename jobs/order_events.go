package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/meridian-oms/meridian-oms/internal/orders"
)

// OrderEventJob turns committed lifecycle events into notification emails.
type OrderEventJob struct {
	Logger    *slog.Logger
	Mailer    Mailer
	Recipient string
}

// NewOrderEventJob initialises the order event handler.
func NewOrderEventJob(logger *slog.Logger, mailer Mailer, recipient string) *OrderEventJob {
	return &OrderEventJob{Logger: logger, Mailer: mailer, Recipient: recipient}
}

// Handle processes TaskTypeOrderEvent tasks.
func (j *OrderEventJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Mailer == nil {
		return errors.New("order events: handler not configured")
	}
	var event orders.OrderEvent
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return asynq.SkipRetry
	}

	subject, body := composeOrderEmail(event)
	if err := j.Mailer.Send(j.Recipient, subject, body); err != nil {
		j.Logger.Error("send order notification",
			slog.Any("error", err),
			slog.String("kind", event.Kind),
			slog.Int64("order_id", event.OrderID),
		)
		return err
	}
	j.Logger.Info("order notification sent",
		slog.String("kind", event.Kind),
		slog.Int64("order_id", event.OrderID),
	)
	return nil
}

func composeOrderEmail(event orders.OrderEvent) (subject, body string) {
	p := message.NewPrinter(language.English)
	amount := p.Sprintf("%.2f", event.GrandTotal)

	switch event.Kind {
	case orders.EventOrderCreated:
		subject = fmt.Sprintf("Order #%d created (invoice %d)", event.OrderID, event.InvoiceNumber)
		body = p.Sprintf("A new order was created for customer %d.\nInvoice number: %d\nGrand total: %s\n",
			event.CustomerID, event.InvoiceNumber, amount)
	case orders.EventOrderUpdated:
		subject = fmt.Sprintf("Order #%d updated", event.OrderID)
		body = p.Sprintf("Order %d was edited.\nNew grand total: %s\n", event.OrderID, amount)
	case orders.EventOrderDispatched:
		subject = fmt.Sprintf("Order #%d dispatched", event.OrderID)
		body = p.Sprintf("Order %d left the warehouse. Stock has been decremented.\n", event.OrderID)
	case orders.EventOrderCompleted:
		subject = fmt.Sprintf("Order #%d delivered", event.OrderID)
		body = p.Sprintf("Order %d was delivered to customer %d.\n", event.OrderID, event.CustomerID)
	case orders.EventOrderDeleted:
		subject = fmt.Sprintf("Order #%d deleted", event.OrderID)
		body = p.Sprintf("Order %d (invoice %d) was deleted. Stock restitution applied where due.\n",
			event.OrderID, event.InvoiceNumber)
	default:
		subject = fmt.Sprintf("Order #%d: %s", event.OrderID, event.Kind)
		body = p.Sprintf("Order %d emitted event %s.\nGrand total: %s\n", event.OrderID, event.Kind, amount)
	}
	return subject, body
}
