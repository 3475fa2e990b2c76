package source

import (
	"bytes"
	"fmt"

	"github.com/hupe1980/brickstream/codec"
	"github.com/hupe1980/brickstream/model"
)

const (
	// ManifestName is the blob holding the volume manifest.
	ManifestName = "volume.json"
	// DataName is the blob holding the encoded brick payloads.
	DataName = "bricks.dat"

	formatVersion = 1
)

type manifest struct {
	Version     int          `json:"version"`
	Voxels      [3]uint32    `json:"voxels"`
	BrickSize   uint32       `json:"brick_size"`
	Depth       uint32       `json:"depth"`
	DataType    string       `json:"data_type"`
	Components  uint32       `json:"components"`
	WorldSize   [3]float64   `json:"world_size"`
	Compression string       `json:"compression"`
	Bricks      []brickEntry `json:"bricks"`
}

type brickEntry struct {
	ID     uint64    `json:"id"`
	Offset int64     `json:"offset"`
	Length int64     `json:"length"`
	Voxels [3]uint32 `json:"voxels"`
}

// encodeManifest writes "<codec name>\n<body>".
func encodeManifest(c codec.Codec, info model.VolumeInfo, nodes []model.LODNode) ([]byte, error) {
	m := manifest{
		Version:     formatVersion,
		Voxels:      info.Voxels,
		BrickSize:   info.BrickSize,
		Depth:       info.Depth,
		DataType:    info.DataType.String(),
		Components:  info.Components,
		WorldSize:   [3]float64{info.WorldSize.X, info.WorldSize.Y, info.WorldSize.Z},
		Compression: info.Compression.String(),
		Bricks:      make([]brickEntry, len(nodes)),
	}
	for i, n := range nodes {
		m.Bricks[i] = brickEntry{ID: uint64(n.ID), Offset: n.Offset, Length: n.Length, Voxels: n.Voxels}
	}

	body, err := c.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	out := make([]byte, 0, len(c.Name())+1+len(body))
	out = append(out, c.Name()...)
	out = append(out, '\n')
	return append(out, body...), nil
}

// decodeManifest parses a manifest. The data type is not validated here;
// the data tier rejects unsupported types when it is built.
func decodeManifest(data []byte) (model.VolumeInfo, []model.LODNode, error) {
	name, body, ok := bytes.Cut(data, []byte{'\n'})
	if !ok {
		return model.VolumeInfo{}, nil, fmt.Errorf("%w: missing codec header", ErrFormat)
	}
	c, ok := codec.ByName(string(name))
	if !ok {
		return model.VolumeInfo{}, nil, fmt.Errorf("%w: unknown codec %q", ErrFormat, name)
	}

	var m manifest
	if err := c.Unmarshal(body, &m); err != nil {
		return model.VolumeInfo{}, nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if m.Version != formatVersion {
		return model.VolumeInfo{}, nil, fmt.Errorf("%w: version %d", ErrFormat, m.Version)
	}
	if m.Depth == 0 || m.Depth > model.MaxLevel+1 {
		return model.VolumeInfo{}, nil, fmt.Errorf("%w: depth %d out of range [1,%d]", ErrFormat, m.Depth, model.MaxLevel+1)
	}

	comp, err := model.ParseCompression(m.Compression)
	if err != nil {
		return model.VolumeInfo{}, nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	// Unknown names map to DataTypeUndefined.
	dt, _ := model.ParseDataType(m.DataType)

	info := model.VolumeInfo{
		Voxels:      m.Voxels,
		BrickSize:   m.BrickSize,
		Depth:       m.Depth,
		DataType:    dt,
		Components:  m.Components,
		WorldSize:   model.Vec3{X: m.WorldSize[0], Y: m.WorldSize[1], Z: m.WorldSize[2]},
		Compression: comp,
	}

	nodes := make([]model.LODNode, len(m.Bricks))
	for i, b := range m.Bricks {
		id := model.BrickID(b.ID)
		if id.Level() >= info.Depth {
			return model.VolumeInfo{}, nil, fmt.Errorf("%w: %s below depth %d", ErrFormat, id, info.Depth)
		}
		nodes[i] = model.LODNode{
			ID:       id,
			WorldBox: info.BrickBox(id),
			Offset:   b.Offset,
			Length:   b.Length,
			Voxels:   b.Voxels,
		}
	}
	return info, nodes, nil
}
