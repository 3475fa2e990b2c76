package tier

import (
	"bytes"
	"sync"
)

// HostUploader keeps "textures" in host memory. It stands in for a graphics
// device in headless runs and tests.
type HostUploader struct {
	mu       sync.Mutex
	next     uint32
	textures map[uint32][]byte
	uploads  int64
	frees    int64
}

// NewHostUploader creates an empty HostUploader.
func NewHostUploader() *HostUploader {
	return &HostUploader{textures: make(map[uint32][]byte)}
}

// Upload copies the brick into a new texture.
func (u *HostUploader) Upload(b *Brick) (Texture, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.next++
	u.textures[u.next] = bytes.Clone(b.Data)
	u.uploads++
	return Texture{
		ID:       u.next,
		Size:     int64(len(b.Data)),
		Format:   FormatFor(b.Components),
		DataType: b.DataType,
		Voxels:   b.Node.Voxels,
	}, nil
}

// Free drops a texture.
func (u *HostUploader) Free(t Texture) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if _, ok := u.textures[t.ID]; ok {
		delete(u.textures, t.ID)
		u.frees++
	}
}

// Data returns the contents of a live texture.
func (u *HostUploader) Data(id uint32) ([]byte, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	d, ok := u.textures[id]
	return d, ok
}

// Live returns the number of textures not yet freed.
func (u *HostUploader) Live() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.textures)
}

// Counts returns the total uploads and frees.
func (u *HostUploader) Counts() (uploads, frees int64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.uploads, u.frees
}
