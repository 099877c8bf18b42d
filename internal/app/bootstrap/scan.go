package bootstrap

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/landlead-crm/internal/config"
	"github.com/wolfman30/landlead-crm/internal/scan"
	"github.com/wolfman30/landlead-crm/pkg/logging"
)

// ScanRuntime is the queue and job store pair for import screening.
type ScanRuntime struct {
	Queue     scan.Queue
	Jobs      scan.JobStore
	Publisher *scan.Publisher
	// InProcess is true when the queue lives in memory and the API must run
	// the worker itself.
	InProcess bool
}

// BuildScan picks the in-memory or AWS-backed queue and job store. awsCfg is
// only read when USE_MEMORY_QUEUE is false.
func BuildScan(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (*ScanRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	rt := &ScanRuntime{}
	if cfg.UseMemoryQueue {
		rt.Queue = scan.NewMemoryQueue(256)
		rt.Jobs = scan.NewMemoryJobStore()
		rt.InProcess = true
		logger.Info("import screening uses in-memory queue")
	} else {
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: aws config required for SQS scan queue")
		}
		if cfg.ScanQueueURL == "" {
			return nil, fmt.Errorf("bootstrap: SCAN_QUEUE_URL is required")
		}
		rt.Queue = scan.NewSQSQueue(sqs.NewFromConfig(*awsCfg), cfg.ScanQueueURL)
		rt.Jobs = scan.NewDynamoJobStore(dynamodb.NewFromConfig(*awsCfg), cfg.ScanJobsTable, logger)
	}
	rt.Publisher = scan.NewPublisher(rt.Queue, rt.Jobs, cfg.ScanBatchSize, logger)
	return rt, nil
}

// NewWorker builds a worker over the runtime's queue and job store.
func (rt *ScanRuntime) NewWorker(screener scan.Screener, logger *logging.Logger, opts ...scan.WorkerOption) *scan.Worker {
	return scan.NewWorker(screener, rt.Queue, rt.Jobs, logger, opts...)
}
