package main

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	internalaws "github.com/moodlab/storefront-orders/internal/aws"
	"github.com/moodlab/storefront-orders/internal/config"
	"github.com/moodlab/storefront-orders/internal/handlers"
	"github.com/moodlab/storefront-orders/internal/identity"
	"github.com/moodlab/storefront-orders/internal/ledger"
	"github.com/moodlab/storefront-orders/internal/metrics"
	"github.com/moodlab/storefront-orders/internal/midtrans"
	"github.com/moodlab/storefront-orders/internal/orders"
	"github.com/moodlab/storefront-orders/internal/receipts"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterRoutes(r, cfg)

	return r
}

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

	clients, err := internalaws.NewAWSClients(context.Background(), cfg.AWSRegion, cfg.AWSEndpoint)
	if err != nil {
		logger.Fatal("failed to init aws clients", zap.Error(err))
	}

	store := orders.NewStore(clients.DynamoDB, cfg.OrdersTable)
	gateway := midtrans.NewClient(cfg.MidtransServerKey, cfg.MidtransProduction, cfg.GatewayTimeout)
	recorder := metrics.NewRecorder(clients.CloudWatch, logger)

	var publisher ledger.ReceiptPublisher
	if cfg.ReceiptQueueURL != "" {
		publisher = receipts.NewPublisher(clients.SQS, cfg.ReceiptQueueURL)
	}

	ldg := ledger.New(ledger.Config{
		MidtransServerKey: cfg.MidtransServerKey,
		GatewayTimeout:    cfg.GatewayTimeout,
	}, store, gateway, publisher, recorder, logger)

	r := setupRouter(handlers.HandlerConfig{
		Ledger:   ldg,
		Identity: identity.NewService(cfg.JWTSecret),
		Logger:   logger,
	})

	// if RUN_LOCAL is set, run a local HTTP server for development.
	if cfg.RunLocal {
		addr := ":" + cfg.Port
		logger.Info("running local server", zap.String("addr", addr))
		if err := r.Run(addr); err != nil {
			logger.Fatal("failed to run local server", zap.Error(err))
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
