package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	RunLocal    bool   `envconfig:"RUN_LOCAL" default:"false"`
	AWSRegion   string `envconfig:"AWS_REGION" default:"ap-southeast-1"`
	AWSEndpoint string `envconfig:"AWS_ENDPOINT_OVERRIDE" default:""` // DynamoDB Local / localstack

	OrdersTable     string `envconfig:"ORDERS_TABLE" default:"orders"`
	ReceiptQueueURL string `envconfig:"RECEIPT_QUEUE_URL" default:""`

	MidtransServerKey  string        `envconfig:"MIDTRANS_SERVER_KEY"`
	MidtransProduction bool          `envconfig:"MIDTRANS_PRODUCTION" default:"false"`
	GatewayTimeout     time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"10s"`

	JWTSecret string `envconfig:"JWT_SECRET"`

	ResendAPIKey string `envconfig:"RESEND_API_KEY" default:""`
	ReceiptFrom  string `envconfig:"RECEIPT_FROM" default:"Mood Lab Digital <noreply@moodlab.site>"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
