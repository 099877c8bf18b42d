package main

import (
	"context"
	"errors"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/wolfman30/landlead-crm/cmd/mainconfig"
	"github.com/wolfman30/landlead-crm/internal/app/bootstrap"
	"github.com/wolfman30/landlead-crm/internal/scan"
	"github.com/wolfman30/landlead-crm/pkg/logging"
)

// processor screens one queue payload.
type processor interface {
	Process(ctx context.Context, body string) error
}

func main() {
	cfg, logger := mainconfig.Load()
	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	pg, err := bootstrap.BuildPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, false)
	service, err := bootstrap.BuildResolutionService(cfg, bootstrap.BuildLeadRepository(pg, logger), redisClient, pg, nil, logger)
	if err != nil {
		logger.Error("failed to build resolution service", "error", err)
		os.Exit(1)
	}

	jobs := scan.NewDynamoJobStore(dynamodb.NewFromConfig(awsCfg), cfg.ScanJobsTable, logger)
	worker := scan.NewWorker(service, nil, jobs, logger)

	lambda.Start(func(ctx context.Context, evt events.SQSEvent) (events.SQSEventResponse, error) {
		return handle(ctx, worker, logger, evt), nil
	})
}

// handle processes every record and reports the ones SQS should redeliver.
// Payloads that can never decode are dropped instead of retried.
func handle(ctx context.Context, p processor, logger *logging.Logger, evt events.SQSEvent) events.SQSEventResponse {
	var resp events.SQSEventResponse
	for _, record := range evt.Records {
		err := p.Process(ctx, record.Body)
		switch {
		case err == nil:
		case errors.Is(err, scan.ErrInvalidJob):
			logger.Warn("dropping invalid scan job", "error", err, "msg_id", record.MessageId)
		default:
			logger.Error("scan job failed", "error", err, "msg_id", record.MessageId)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return resp
}
