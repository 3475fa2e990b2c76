package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/hupe1980/brickstream"
	"github.com/hupe1980/brickstream/blobstore"
	bsminio "github.com/hupe1980/brickstream/blobstore/minio"
	bss3 "github.com/hupe1980/brickstream/blobstore/s3"
)

const (
	storeCategory   = "STORE"
	streamCategory  = "STREAMING"
	loggingCategory = "LOGGING"
	clusterCategory = "CLUSTER"
	volumeCategory  = "VOLUME"
)

var (
	logLevelFlag = &cli.StringFlag{
		Name:     "log.level",
		Usage:    "Log level (debug, info, warn, error)",
		Value:    "info",
		Category: loggingCategory,
	}
	logJSONFlag = &cli.BoolFlag{
		Name:     "log.json",
		Usage:    "Format logs as JSON",
		Category: loggingCategory,
	}

	storeFlag = &cli.StringFlag{
		Name:     "store",
		Usage:    "Blob store backend (local, minio, s3)",
		Value:    "local",
		Category: storeCategory,
	}
	dirFlag = &cli.StringFlag{
		Name:     "dir",
		Usage:    "Directory of the local store",
		Value:    "./volume",
		Category: storeCategory,
	}
	prefixFlag = &cli.StringFlag{
		Name:     "prefix",
		Usage:    "Key prefix inside the bucket",
		Category: storeCategory,
	}
	bucketFlag = &cli.StringFlag{
		Name:     "bucket",
		Usage:    "Bucket for the minio and s3 stores",
		Category: storeCategory,
	}
	endpointFlag = &cli.StringFlag{
		Name:     "endpoint",
		Usage:    "Object store endpoint (host:port for minio, URL for s3)",
		EnvVars:  []string{"BRICKSTREAM_ENDPOINT"},
		Category: storeCategory,
	}
	regionFlag = &cli.StringFlag{
		Name:     "region",
		Usage:    "AWS region for the s3 store",
		EnvVars:  []string{"AWS_REGION"},
		Category: storeCategory,
	}
	accessKeyFlag = &cli.StringFlag{
		Name:     "access-key",
		Usage:    "Access key for the minio store",
		EnvVars:  []string{"MINIO_ACCESS_KEY"},
		Category: storeCategory,
	}
	secretKeyFlag = &cli.StringFlag{
		Name:     "secret-key",
		Usage:    "Secret key for the minio store",
		EnvVars:  []string{"MINIO_SECRET_KEY"},
		Category: storeCategory,
	}
	secureFlag = &cli.BoolFlag{
		Name:     "secure",
		Usage:    "Use TLS for the minio store",
		Category: storeCategory,
	}

	configFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: streamCategory,
	}
	gpuBudgetFlag = &cli.Int64Flag{
		Name:     "gpu-budget",
		Usage:    "Residency tier budget in MiB",
		Category: streamCategory,
	}
	cpuBudgetFlag = &cli.Int64Flag{
		Name:     "cpu-budget",
		Usage:    "Data tier budget in MiB",
		Category: streamCategory,
	}
	samplesFlag = &cli.UintFlag{
		Name:     "samples",
		Usage:    "Samples per ray (0 = automatic)",
		Category: streamCategory,
	}
	workersFlag = &cli.IntFlag{
		Name:     "workers",
		Usage:    "Data fill workers (0 = GOMAXPROCS)",
		Category: streamCategory,
	}
	ioLimitFlag = &cli.Int64Flag{
		Name:     "io-limit",
		Usage:    "Payload read limit in bytes per second (0 = unlimited)",
		Category: streamCategory,
	}
	latencyFlag = &cli.IntFlag{
		Name:     "latency",
		Usage:    "Frames render nodes may lag before histogram frames are abandoned",
		Category: clusterCategory,
	}

	storeFlags = []cli.Flag{
		storeFlag,
		dirFlag,
		prefixFlag,
		bucketFlag,
		endpointFlag,
		regionFlag,
		accessKeyFlag,
		secretKeyFlag,
		secureFlag,
	}
	configFlags = []cli.Flag{
		configFileFlag,
		gpuBudgetFlag,
		cpuBudgetFlag,
		samplesFlag,
		workersFlag,
		ioLimitFlag,
		latencyFlag,
	}
)

// openStore builds the blob store selected by the store flags. The local
// store carries the prefix in its directory, the object stores as key prefix.
func openStore(ctx *cli.Context) (blobstore.BlobStore, error) {
	switch backend := ctx.String(storeFlag.Name); backend {
	case "local":
		return blobstore.NewLocalStore(ctx.String(dirFlag.Name)), nil
	case "minio":
		bucket, err := requireFlag(ctx, bucketFlag)
		if err != nil {
			return nil, err
		}
		endpoint, err := requireFlag(ctx, endpointFlag)
		if err != nil {
			return nil, err
		}
		client, err := bsminio.Dial(endpoint, ctx.String(accessKeyFlag.Name), ctx.String(secretKeyFlag.Name), ctx.Bool(secureFlag.Name))
		if err != nil {
			return nil, err
		}
		return bsminio.NewStore(client, bucket, ctx.String(prefixFlag.Name)), nil
	case "s3":
		bucket, err := requireFlag(ctx, bucketFlag)
		if err != nil {
			return nil, err
		}
		client, err := bss3.LoadClient(ctx.Context, ctx.String(regionFlag.Name), ctx.String(endpointFlag.Name))
		if err != nil {
			return nil, err
		}
		return bss3.NewStore(client, bucket, ctx.String(prefixFlag.Name)), nil
	default:
		return nil, fmt.Errorf("unknown store %q", backend)
	}
}

func requireFlag(ctx *cli.Context, f *cli.StringFlag) (string, error) {
	v := ctx.String(f.Name)
	if v == "" {
		return "", fmt.Errorf("--%s is required for the %s store", f.Name, ctx.String(storeFlag.Name))
	}
	return v, nil
}

// loadConfig reads --config over the defaults and applies flag overrides.
func loadConfig(ctx *cli.Context) (brickstream.Config, error) {
	cfg := brickstream.DefaultConfig()
	if file := ctx.String(configFileFlag.Name); file != "" {
		var err error
		if cfg, err = brickstream.LoadConfig(file); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(gpuBudgetFlag.Name) {
		cfg.GPUBudgetMiB = ctx.Int64(gpuBudgetFlag.Name)
	}
	if ctx.IsSet(cpuBudgetFlag.Name) {
		cfg.CPUBudgetMiB = ctx.Int64(cpuBudgetFlag.Name)
	}
	if ctx.IsSet(samplesFlag.Name) {
		cfg.SamplesPerRay = uint32(ctx.Uint(samplesFlag.Name))
	}
	if ctx.IsSet(workersFlag.Name) {
		cfg.FillWorkers = ctx.Int(workersFlag.Name)
	}
	if ctx.IsSet(ioLimitFlag.Name) {
		cfg.IOLimitBytesPerSec = ctx.Int64(ioLimitFlag.Name)
	}
	if ctx.IsSet(latencyFlag.Name) {
		cfg.HistogramLatency = ctx.Int(latencyFlag.Name)
	}
	return cfg, cfg.Validate()
}
