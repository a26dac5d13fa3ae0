package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/quickbasket/orderflow/internal/aws"
	"github.com/quickbasket/orderflow/internal/handlers"
	"github.com/quickbasket/orderflow/internal/logging"
	"github.com/quickbasket/orderflow/internal/payment"
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
	logger := logging.MustNewLogger("orderflow-api")
	defer func() { _ = logger.Sync() }()

	clients, err := aws.NewAWSClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	// the gateway is optional: without credentials the service runs in
	// sandbox mode and payment confirmations are trusted unverified
	var gateway payment.Gateway
	if keyID := os.Getenv("GATEWAY_KEY_ID"); keyID != "" {
		gateway = payment.NewRESTGateway(
			os.Getenv("GATEWAY_BASE_URL"),
			keyID,
			os.Getenv("GATEWAY_KEY_SECRET"),
		)
	}

	cfg := handlers.HandlerConfig{
		DynamoDBClient:   clients.DynamoDB,
		SQSClient:        clients.SQS,
		CloudWatchClient: clients.CloudWatch,
		CatalogTable:     os.Getenv("CATALOG_TABLE"),
		ListingsTable:    os.Getenv("LISTINGS_TABLE"),
		OrdersTable:      os.Getenv("ORDERS_TABLE"),
		IdempotencyTable: os.Getenv("IDEMPOTENCY_TABLE"),
		QueueURL:         os.Getenv("ORDERS_QUEUE_URL"),
		TTLWindow:        48 * time.Hour,
		Gateway:          gateway,
		WebhookSecret:    os.Getenv("GATEWAY_WEBHOOK_SECRET"),
		Logger:           logger,
	}

	r := setupRouter(cfg)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		addr := ":8080"
		logger.Sugar().Infof("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
