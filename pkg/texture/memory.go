package texture

import (
	"fmt"
	"sync"
)

// Texture is one entry in a MemoryRegistry.
type Texture struct {
	Width  int
	Height int
	Format Format
	Pix    []byte
}

// MemoryRegistry is a Registry that keeps registered textures in process
// memory. It backs software rendering and tests; GPU embedders provide their
// own Registry.
type MemoryRegistry struct {
	mu       sync.Mutex
	next     Handle
	textures map[Handle]*Texture
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{textures: make(map[Handle]*Texture)}
}

// Register stores a copy of pix and returns a fresh handle.
func (r *MemoryRegistry) Register(width, height int, format Format, pix []byte) (Handle, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("texture: invalid dimensions %dx%d", width, height)
	}
	want := width * height * format.BytesPerPixel()
	if len(pix) < want {
		return 0, fmt.Errorf("texture: short pixel buffer: got %d bytes, need %d", len(pix), want)
	}

	stored := make([]byte, want)
	copy(stored, pix[:want])

	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	h := r.next
	r.textures[h] = &Texture{Width: width, Height: height, Format: format, Pix: stored}
	return h, nil
}

// Texture returns the entry for h, or nil if h is unknown.
func (r *MemoryRegistry) Texture(h Handle) *Texture {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.textures[h]
}

// Unregister releases the texture for h. Unknown handles are ignored.
func (r *MemoryRegistry) Unregister(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.textures, h)
}

// Len returns the number of registered textures.
func (r *MemoryRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.textures)
}
