package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"sync"
)

// ImageCache provides thread-safe caching of decoded strip images.
//
// Digitizing a strip is usually followed by follow-up requests on the same
// file (plot a lead, overlay the detected grid, crop a lead), so decoded images
// are kept keyed by path until evicted.
//
// ImageCache is safe for concurrent use by multiple goroutines.
type ImageCache struct {
	mu      sync.RWMutex
	images  map[string]image.Image
	formats map[string]string
}

// NewImageCache creates an empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images:  make(map[string]image.Image),
		formats: make(map[string]string),
	}
}

// Load returns the decoded image for path, reading it from disk on first use.
//
// Supported formats are PNG, JPEG and GIF. The path string is the cache key,
// so relative and absolute paths to the same file are cached separately.
func (c *ImageCache) Load(path string) (image.Image, error) {
	img, _, err := c.load(path)
	return img, err
}

func (c *ImageCache) load(path string) (image.Image, string, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		format := c.formats[path]
		c.mu.RUnlock()
		return img, format, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := Decode(f)
	if err != nil {
		return nil, "", err
	}

	c.mu.Lock()
	c.images[path] = img
	c.formats[path] = format
	c.mu.Unlock()

	return img, format, nil
}

// Evict removes one image from the cache. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	delete(c.formats, path)
	c.mu.Unlock()
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.formats = make(map[string]string)
	c.mu.Unlock()
}

// Decode decodes an image stream and rejects images without pixels.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, "", fmt.Errorf("decoded %s image has no pixels", format)
	}
	return img, format, nil
}

// StripInfo describes a loaded strip image.
type StripInfo struct {
	// Width and Height are the pixel dimensions.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is the decoder that recognised the file: "png", "jpeg" or "gif".
	Format string `json:"format"`

	// Grayscale reports whether the image lacks a chromatic grid. Scanned
	// photocopies and thermal printouts are grayscale; most original paper
	// strips print the grid in color.
	Grayscale bool `json:"grayscale"`

	// GridColor is the mean color of the chromatic pixels, empty for
	// grayscale strips.
	GridColor string `json:"grid_color,omitempty"`

	// FileSizeBytes is the size of the file on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadStripInfo loads an image through the cache and describes it.
//
// minSaturation and minFraction decide whether the strip has a chromatic grid:
// at least minFraction of the pixels must have HSV saturation >= minSaturation.
func LoadStripInfo(cache *ImageCache, path string, minSaturation, minFraction float64) (*StripInfo, error) {
	img, format, err := cache.load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	chroma := AnalyzeChroma(img, minSaturation, 0.3)
	info := &StripInfo{
		Width:         img.Bounds().Dx(),
		Height:        img.Bounds().Dy(),
		Format:        format,
		Grayscale:     chroma.Fraction < minFraction,
		FileSizeBytes: stat.Size(),
	}
	if !info.Grayscale {
		info.GridColor = chroma.Mean.Hex()
	}
	return info, nil
}
