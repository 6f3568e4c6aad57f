package clipboard

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"golang.design/x/clipboard"
)

var (
	writeMu     sync.Mutex
	initialized bool
)

// ErrNotInitialized is returned by writes before Init succeeded.
var ErrNotInitialized = errors.New("clipboard not initialized")

func Init() error {
	writeMu.Lock()
	defer writeMu.Unlock()
	if err := clipboard.Init(); err != nil {
		return err
	}
	initialized = true
	return nil
}

// WriteImage PNG-encodes img and performs a single mutex-guarded clipboard
// write.
func WriteImage(img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("failed to encode image as PNG: %w", err)
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	if !initialized {
		return ErrNotInitialized
	}
	if changed := clipboard.Write(clipboard.FmtImage, buf.Bytes()); changed == nil {
		return errors.New("clipboard rejected image data")
	}
	return nil
}

// Sink publishes images to the system clipboard.
type Sink struct{}

func (Sink) SetImage(img image.Image) error { return WriteImage(img) }
