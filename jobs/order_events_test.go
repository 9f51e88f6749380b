package jobs

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-oms/meridian-oms/internal/orders"
)

type recordedMail struct {
	to, subject, body string
}

type recordingMailer struct {
	sent []recordedMail
}

func (m *recordingMailer) Send(to, subject, body string) error {
	m.sent = append(m.sent, recordedMail{to: to, subject: subject, body: body})
	return nil
}

func TestOrderEventJobSendsCreatedMail(t *testing.T) {
	mailer := &recordingMailer{}
	job := NewOrderEventJob(slog.Default(), mailer, "ops@meridian.local")

	task, err := NewOrderEventTask(orders.OrderEvent{
		Kind:          orders.EventOrderCreated,
		TenantID:      1,
		OrderID:       42,
		CustomerID:    7,
		InvoiceNumber: 9,
		GrandTotal:    2000,
	})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, mailer.sent, 1)
	mail := mailer.sent[0]
	require.Equal(t, "ops@meridian.local", mail.to)
	require.Contains(t, mail.subject, "Order #42 created")
	require.Contains(t, mail.body, "2,000.00")
	require.Contains(t, mail.body, "Invoice number: 9")
}

func TestOrderEventJobCoversAllKinds(t *testing.T) {
	kinds := []string{
		orders.EventOrderCreated,
		orders.EventOrderUpdated,
		orders.EventOrderDispatched,
		orders.EventOrderCompleted,
		orders.EventOrderDeleted,
	}
	for _, kind := range kinds {
		subject, body := composeOrderEmail(orders.OrderEvent{Kind: kind, OrderID: 1, InvoiceNumber: 2})
		require.NotEmpty(t, subject, kind)
		require.NotEmpty(t, body, kind)
	}
}
