package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/moodlab/storefront-orders/internal/receipts"
)

// ReceiptSender delivers a single receipt email.
type ReceiptSender interface {
	Send(ctx context.Context, job receipts.Job) error
}

// Processor consumes receipt jobs from the queue and sends the emails.
type Processor struct {
	sender ReceiptSender
	logger *zap.Logger
}

func newProcessor(sender ReceiptSender, logger *zap.Logger) *Processor {
	return &Processor{sender: sender, logger: logger}
}

// Handle receives an SQS batch event and processes each message. Returning an
// error lets the Lambda runtime retry; repeated failures land in the DLQ.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.logger.Error("receipt worker error", zap.Error(err))
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var job receipts.Job
	if err := json.Unmarshal([]byte(rec.Body), &job); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if job.Email == "" {
		// nothing to deliver to; drop rather than retry forever
		p.logger.Warn("receipt job without email", zap.String("order_id", job.OrderID))
		return nil
	}

	if err := p.sender.Send(ctx, job); err != nil {
		return fmt.Errorf("send receipt for order %s: %w", job.OrderID, err)
	}

	p.logger.Info("receipt sent",
		zap.String("order_id", job.OrderID),
		zap.String("email", job.Email))
	return nil
}

// handleLocal simulates a single SQS event using the LOCAL_SQS_BODY
// environment variable, for development without a queue.
func (p *Processor) handleLocal(ctx context.Context) error {
	body := os.Getenv("LOCAL_SQS_BODY")
	if body == "" {
		body = `{"order_id":"local-order-1","email":"dev@example.com","total_amount":100000,"items":[]}`
	}
	ev := events.SQSEvent{
		Records: []events.SQSMessage{
			{Body: body},
		},
	}
	return p.Handle(ctx, ev)
}
