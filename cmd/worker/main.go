package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/quickbasket/orderflow/internal/aws"
	"github.com/quickbasket/orderflow/internal/logging"
	"github.com/quickbasket/orderflow/internal/metrics"
	"github.com/quickbasket/orderflow/internal/orders"
	"github.com/quickbasket/orderflow/internal/worker"
)

func main() {
	logger := logging.MustNewLogger("orderflow-worker")
	defer func() { _ = logger.Sync() }()

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	orderStore := orders.NewStore(clients.DynamoDB, os.Getenv("ORDERS_TABLE"))
	meter := metrics.NewPublisher(clients.CloudWatch, logger)
	proc := worker.NewProcessor(orderStore, meter, logger)

	// Local testing helper: RUN_LOCAL=true feeds a single synthetic SQS
	// event from LOCAL_SQS_BODY instead of starting the Lambda runtime.
	if os.Getenv("RUN_LOCAL") == "true" {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = `{"order_id":"local-order-1","payment_reference":"local-pay-1"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{{Body: body}},
		}
		if err := proc.Handle(context.Background(), event); err != nil {
			log.Fatalf("local handler error: %v", err)
		}
		return
	}

	lambda.Start(proc.Handle)
}
