package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/wolfman30/landlead-crm/internal/config"
	"github.com/wolfman30/landlead-crm/internal/dedupe"
	"github.com/wolfman30/landlead-crm/internal/leads"
	"github.com/wolfman30/landlead-crm/internal/scan"
	"github.com/wolfman30/landlead-crm/pkg/logging"
)

func testConfig() *appconfig.Config {
	cfg := appconfig.Load()
	cfg.DatabaseURL = ""
	cfg.RedisAddr = ""
	cfg.UseMemoryQueue = true
	return cfg
}

func TestBuildRedisClient(t *testing.T) {
	logger := logging.New("error")
	cfg := testConfig()

	assert.Nil(t, BuildRedisClient(context.Background(), cfg, logger, true), "empty address disables redis")

	mr := miniredis.RunT(t)
	cfg.RedisAddr = mr.Addr()
	client := BuildRedisClient(context.Background(), cfg, logger, true)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	mr.Close()
	assert.Nil(t, BuildRedisClient(context.Background(), cfg, logger, true), "failed ping returns nil")
}

func TestBuildPostgresWithoutURL(t *testing.T) {
	pg, err := BuildPostgres(context.Background(), testConfig(), logging.New("error"))
	require.NoError(t, err)
	assert.Nil(t, pg)

	repo := BuildLeadRepository(pg, logging.New("error"))
	assert.IsType(t, &leads.InMemoryRepository{}, repo)
}

func TestBuildResolutionService(t *testing.T) {
	cfg := testConfig()
	mr := miniredis.RunT(t)
	cfg.RedisAddr = mr.Addr()
	client := BuildRedisClient(context.Background(), cfg, nil, false)
	t.Cleanup(func() { _ = client.Close() })

	repo := leads.NewInMemoryRepository()
	repo.Seed(
		leads.Lead{ID: "a", OrgID: "org-1", PrimaryPhone: "5125550100"},
		leads.Lead{ID: "b", OrgID: "org-1", PrimaryPhone: "512-555-0100"},
	)
	svc, err := BuildResolutionService(cfg, repo, client, nil, nil, logging.New("error"))
	require.NoError(t, err)

	groups, err := svc.FindDuplicates(context.Background(), "org-1", dedupe.DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, groups, 1)
	assert.Len(t, mr.Keys(), 1, "results are cached in redis")
}

func TestBuildResolutionServiceRejectsBadPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.DedupeThreshold = 1.5

	_, err := BuildResolutionService(cfg, leads.NewInMemoryRepository(), nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestBuildScanMemory(t *testing.T) {
	rt, err := BuildScan(testConfig(), nil, logging.New("error"))
	require.NoError(t, err)
	assert.True(t, rt.InProcess)
	assert.IsType(t, &scan.MemoryQueue{}, rt.Queue)
	assert.IsType(t, &scan.MemoryJobStore{}, rt.Jobs)
	assert.NotNil(t, rt.Publisher)
}

func TestBuildScanSQS(t *testing.T) {
	cfg := testConfig()
	cfg.UseMemoryQueue = false

	_, err := BuildScan(cfg, nil, nil)
	assert.Error(t, err, "aws config is required")

	awsCfg := aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("test", "test", ""),
	}
	_, err = BuildScan(cfg, &awsCfg, nil)
	assert.Error(t, err, "queue url is required")

	cfg.ScanQueueURL = "http://localhost:4566/000000000000/lead-scans"
	rt, err := BuildScan(cfg, &awsCfg, nil)
	require.NoError(t, err)
	assert.False(t, rt.InProcess)
	assert.IsType(t, &scan.SQSQueue{}, rt.Queue)
	assert.IsType(t, &scan.DynamoJobStore{}, rt.Jobs)
}
