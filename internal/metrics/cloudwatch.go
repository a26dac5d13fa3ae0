// Package metrics publishes operational counters to CloudWatch. Publication
// is best effort: a metrics outage must never fail an order.
package metrics

import (
	"context"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"

	"github.com/quickbasket/orderflow/internal/aws"
)

const namespace = "Orderflow"

// Metric names emitted by the API and worker.
const (
	OrdersCreated     = "OrdersCreated"
	OrderCreateFailed = "OrderCreateFailed"
	PaymentsConfirmed = "PaymentsConfirmed"
	SignatureFailures = "SignatureFailures"
	OrdersFulfilled   = "OrdersFulfilled"
)

// Publisher sends counters to CloudWatch.
type Publisher struct {
	client aws.CloudWatchAPI
	log    *zap.Logger
}

// NewPublisher wires the CloudWatch client. A nil client yields a no-op
// publisher, which keeps local runs quiet.
func NewPublisher(client aws.CloudWatchAPI, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{client: client, log: log}
}

// Count emits a single count datum, optionally dimensioned by reason.
func (p *Publisher) Count(ctx context.Context, name, reason string) {
	if p == nil || p.client == nil {
		return
	}
	datum := cwtypes.MetricDatum{
		MetricName: sdkaws.String(name),
		Timestamp:  sdkaws.Time(time.Now().UTC()),
		Unit:       cwtypes.StandardUnitCount,
		Value:      sdkaws.Float64(1),
	}
	if reason != "" {
		datum.Dimensions = []cwtypes.Dimension{
			{Name: sdkaws.String("Reason"), Value: sdkaws.String(reason)},
		}
	}
	_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(namespace),
		MetricData: []cwtypes.MetricDatum{datum},
	})
	if err != nil {
		p.log.Warn("put metric data failed", zap.String("metric", name), zap.Error(err))
	}
}
