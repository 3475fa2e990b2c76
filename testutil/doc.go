// Package testutil provides testing utilities for brickstream.
//
// This package is intended for use in tests only. It provides a seeded,
// thread-safe random source and helpers that pack small synthetic volumes.
//
// # Random Bricks
//
//	rng := testutil.NewRNG(seed)
//	ids := rng.BrickIDs(100, 3)   // random level-3 brick ids
//	order := rng.Perm(len(ids))
//
// # Volumes
//
//	src := testutil.PackVolume(t, testutil.SmallVolume())
package testutil
