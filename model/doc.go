// Package model defines the core types shared by the cache tiers, the
// visibility scheduler and the volume sources.
//
// # Identity Types
//
//   - BrickID: packed (level, x, y, z) key of one octree brick (uint64)
//   - LODNode: metadata of one brick (world box, level, byte extent)
//
// # Volume Types
//
//   - VolumeInfo: global description of a volume (voxels, depth, data type)
//   - DataType: voxel element type with value range and width
//   - Compression: payload encoding of stored bricks
//
// # Geometry
//
//   - Vec3, Box: world-space points and axis-aligned boxes
//   - Mat4, Frustum: column-major transforms and the per-frame view
package model
