// Package metrics emits operational counters to CloudWatch. Emission is
// best-effort: a metrics failure must never fail the request that produced it.
package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"

	"github.com/moodlab/storefront-orders/internal/aws"
)

const namespace = "StorefrontOrders"

// Metric names emitted by the ledger and handlers. OrderNotFound backs the
// alarm for notifications that reference no local order.
const (
	MetricOrderCreated        = "OrderCreated"
	MetricNotificationApplied = "NotificationApplied"
	MetricNotificationIgnored = "NotificationIgnored"
	MetricSignatureRejected   = "SignatureRejected"
	MetricOrderNotFound       = "OrderNotFound"
)

// Recorder wraps a CloudWatch client. A nil Recorder is a no-op, so callers
// never need to guard.
type Recorder struct {
	client aws.CloudWatchAPI
	logger *zap.Logger
}

// NewRecorder returns a Recorder bound to the service namespace.
func NewRecorder(client aws.CloudWatchAPI, logger *zap.Logger) *Recorder {
	return &Recorder{client: client, logger: logger}
}

// Count emits a single count datapoint for name.
func (r *Recorder) Count(ctx context.Context, name string) {
	if r == nil || r.client == nil {
		return
	}
	now := time.Now().UTC()
	input := &cloudwatch.PutMetricDataInput{
		Namespace: awsString(namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: awsString(name),
				Value:      awsFloat(1),
				Unit:       cwtypes.StandardUnitCount,
				Timestamp:  &now,
			},
		},
	}
	if _, err := r.client.PutMetricData(ctx, input); err != nil {
		r.logger.Warn("put metric data failed", zap.String("metric", name), zap.Error(err))
	}
}

func awsString(s string) *string  { return &s }
func awsFloat(f float64) *float64 { return &f }
