package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"runtime"
)

const iconSize = 16

var (
	iconFrame = color.RGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0xff}
	iconFill  = color.RGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0x40}
)

// iconImage draws a selection rectangle with a translucent interior.
func iconImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	inner := image.Rect(3, 4, 13, 12)
	draw.Draw(img, inner, &image.Uniform{C: iconFill}, image.Point{}, draw.Src)
	for _, edge := range []image.Rectangle{
		{Min: image.Pt(2, 3), Max: image.Pt(14, 4)},
		{Min: image.Pt(2, 12), Max: image.Pt(14, 13)},
		{Min: image.Pt(2, 3), Max: image.Pt(3, 13)},
		{Min: image.Pt(13, 3), Max: image.Pt(14, 13)},
	} {
		draw.Draw(img, edge, &image.Uniform{C: iconFrame}, image.Point{}, draw.Src)
	}
	return img
}

// Icon returns the tray icon encoded for the current platform: an ICO
// container on Windows, plain PNG elsewhere.
func Icon() []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, iconImage()); err != nil {
		return nil
	}
	if runtime.GOOS == "windows" {
		return wrapICO(buf.Bytes(), iconSize)
	}
	return buf.Bytes()
}

// wrapICO embeds one PNG image in an ICO file.
func wrapICO(pngData []byte, size int) []byte {
	const headerLen = 6 + 16
	var buf bytes.Buffer
	buf.Grow(headerLen + len(pngData))
	// ICONDIR: reserved, type (1 = icon), image count.
	_ = binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY: width, height, palette size, reserved.
	buf.Write([]byte{byte(size), byte(size), 0, 0})
	// Color planes, bits per pixel, data size, data offset.
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint16{1, 32})
	_ = binary.Write(&buf, binary.LittleEndian, [2]uint32{uint32(len(pngData)), headerLen})
	buf.Write(pngData)
	return buf.Bytes()
}
