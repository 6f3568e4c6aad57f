//go:build windows

package main

import (
	"log"
	"syscall"
)

const processPerMonitorDPIAware = 2

// enableDPIAwareness makes display bounds, captured pixels and window
// coordinates agree on physical pixels. Per-monitor awareness is preferred;
// Vista-era system awareness is the fallback.
func enableDPIAwareness() {
	if proc := syscall.NewLazyDLL("Shcore.dll").NewProc("SetProcessDpiAwareness"); proc.Find() == nil {
		if hr, _, _ := proc.Call(processPerMonitorDPIAware); hr != 0 {
			log.Printf("MONITOR: SetProcessDpiAwareness failed, hresult=0x%x", hr)
			return
		}
		log.Printf("MONITOR: per-monitor DPI awareness enabled")
		return
	}

	proc := syscall.NewLazyDLL("user32.dll").NewProc("SetProcessDPIAware")
	if proc.Find() != nil {
		log.Printf("MONITOR: no DPI awareness API available")
		return
	}
	if ok, _, _ := proc.Call(); ok == 0 {
		log.Printf("MONITOR: SetProcessDPIAware failed")
		return
	}
	log.Printf("MONITOR: system DPI awareness enabled")
}
