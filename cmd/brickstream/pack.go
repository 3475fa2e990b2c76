package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/hupe1980/brickstream/internal/resource"
	"github.com/hupe1980/brickstream/model"
	"github.com/hupe1980/brickstream/source"
)

var (
	depthFlag = &cli.UintFlag{
		Name:     "depth",
		Usage:    "Number of octree levels",
		Value:    4,
		Category: volumeCategory,
	}
	brickSizeFlag = &cli.UintFlag{
		Name:     "brick-size",
		Usage:    "Brick edge length in voxels",
		Value:    32,
		Category: volumeCategory,
	}
	dataTypeFlag = &cli.StringFlag{
		Name:     "data-type",
		Usage:    "Voxel type (uint8, uint16, uint32, int8, int16, int32, float32)",
		Value:    "uint8",
		Category: volumeCategory,
	}
	componentsFlag = &cli.UintFlag{
		Name:     "components",
		Usage:    "Components per voxel",
		Value:    1,
		Category: volumeCategory,
	}
	compressionFlag = &cli.StringFlag{
		Name:     "compression",
		Usage:    "Brick compression (none, lz4, zstd)",
		Value:    "zstd",
		Category: volumeCategory,
	}
	concurrencyFlag = &cli.IntFlag{
		Name:     "concurrency",
		Usage:    "Parallel brick encoders (0 = GOMAXPROCS)",
		Category: volumeCategory,
	}
)

var packCommand = &cli.Command{
	Name:      "pack",
	Usage:     "Write a synthetic volume to a blob store",
	ArgsUsage: " ",
	Flags: append([]cli.Flag{
		depthFlag,
		brickSizeFlag,
		dataTypeFlag,
		componentsFlag,
		compressionFlag,
		concurrencyFlag,
		ioLimitFlag,
	}, storeFlags...),
	Action: pack,
}

func pack(ctx *cli.Context) error {
	logger, err := newLogger(ctx)
	if err != nil {
		return err
	}
	dt, err := model.ParseDataType(ctx.String(dataTypeFlag.Name))
	if err != nil {
		return err
	}
	comp, err := model.ParseCompression(ctx.String(compressionFlag.Name))
	if err != nil {
		return err
	}
	store, err := openStore(ctx)
	if err != nil {
		return err
	}

	info := model.VolumeInfo{
		Depth:       uint32(ctx.Uint(depthFlag.Name)),
		BrickSize:   uint32(ctx.Uint(brickSizeFlag.Name)),
		DataType:    dt,
		Components:  uint32(ctx.Uint(componentsFlag.Name)),
		Compression: comp,
	}
	stats, err := source.Pack(ctx.Context, store, info, source.Sphere(info), source.PackOptions{
		Concurrency: ctx.Int(concurrencyFlag.Name),
		Controller: resource.NewController(resource.Config{
			IOLimitBytesPerSec: ctx.Int64(ioLimitFlag.Name),
		}),
		Logger: logger.Logger,
	})
	if err != nil {
		return err
	}

	fmt.Printf("packed %d bricks: %d raw bytes, %d stored bytes\n", stats.Bricks, stats.RawBytes, stats.StoredBytes)
	return nil
}
