package receipts

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

// Sender delivers receipt emails through the Resend API.
type Sender struct {
	client *resend.Client
	from   string
}

// NewSender creates a Sender. from must be a verified sender address, e.g.
// "Mood Lab Digital <noreply@moodlab.site>".
func NewSender(apiKey, from string) *Sender {
	return &Sender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// Send delivers the purchase receipt for a paid order.
func (s *Sender) Send(ctx context.Context, job Job) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{job.Email},
		Subject: fmt.Sprintf("Struk Pembelian Anda untuk pesanan %s", job.OrderID),
		Html:    buildReceiptHTML(job),
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send receipt email: %w", err)
	}
	return nil
}

func buildReceiptHTML(job Job) string {
	var b strings.Builder
	name := job.Name
	if name == "" {
		name = "Pelanggan"
	}
	fmt.Fprintf(&b, "<h1>Terima kasih, %s!</h1>", name)
	fmt.Fprintf(&b, "<p>Pembayaran untuk pesanan <strong>%s</strong> telah kami terima.</p>", job.OrderID)
	b.WriteString("<ul>")
	for _, it := range job.Items {
		fmt.Fprintf(&b, "<li>%s &times; %d &mdash; Rp%d</li>", it.Name, it.Quantity, it.UnitPrice*int64(it.Quantity))
	}
	b.WriteString("</ul>")
	fmt.Fprintf(&b, "<p>Total: <strong>Rp%d</strong></p>", job.TotalAmount)
	return b.String()
}
