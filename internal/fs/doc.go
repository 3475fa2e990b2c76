// Package fs is the filesystem seam under blobstore.LocalStore.
//
// [LocalFS] forwards to the os package. [FaultyFS] wraps another
// FileSystem and injects write, sync, close and rename failures so the
// atomic-publish path of the local blob store can be tested:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("bricks.dat", fs.Fault{FailOnSync: true})
//	store := blobstore.NewLocalStore(dir, blobstore.WithFileSystem(ffs))
//
// Reads go through internal/mmap and are not abstracted here.
package fs
