package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/moodlab/storefront-orders/internal/config"
	"github.com/moodlab/storefront-orders/internal/receipts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	sender := receipts.NewSender(cfg.ResendAPIKey, cfg.ReceiptFrom)
	p := newProcessor(sender, logger)

	if cfg.RunLocal {
		// Local testing helper: process a single job from LOCAL_SQS_BODY.
		if err := p.handleLocal(context.Background()); err != nil {
			logger.Fatal("local handler error", zap.Error(err))
		}
		return
	}

	lambda.Start(func(ctx context.Context, ev events.SQSEvent) error {
		return p.Handle(ctx, ev)
	})
}
