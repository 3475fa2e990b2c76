// Package tier binds the generic brick cache to the two memory tiers of the
// streamer.
//
// The data tier holds decoded voxels in host memory and fills on the worker
// pool. The residency tier holds textures and fills on the render goroutine:
// a miss pins the brick in the data tier, and Prepare uploads every brick
// whose data has arrived. Texture frees are deferred to Prepare so graphics
// calls never leave the render goroutine.
package tier
