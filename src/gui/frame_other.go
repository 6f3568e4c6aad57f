//go:build !windows

package gui

import "image"

// NativeSupported reports whether NewNativeFrame can open a window here.
const NativeSupported = false

func NewNativeFrame(bounds image.Rectangle) (Overlay, error) {
	return nil, ErrNativeUnsupported
}
