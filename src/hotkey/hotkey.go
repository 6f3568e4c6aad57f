package hotkey

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// Windows virtual key codes for the named keys. Letters, digits and
// function keys are filled in by init.
var rawcodes = map[string][]uint16{
	"ctrl":        {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":         {164, 165}, // VK_LMENU, VK_RMENU
	"shift":       {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":         {91, 92},   // VK_LWIN, VK_RWIN
	"space":       {32},
	"enter":       {13},
	"esc":         {27},
	"tab":         {9},
	"backspace":   {8},
	"delete":      {46},
	"insert":      {45},
	"home":        {36},
	"end":         {35},
	"pageup":      {33},
	"pagedown":    {34},
	"left":        {37},
	"up":          {38},
	"right":       {39},
	"down":        {40},
	"printscreen": {44},
}

var aliases = map[string]string{
	"control": "ctrl",
	"win":     "cmd",
	"super":   "cmd",
	"return":  "enter",
	"escape":  "esc",
	"del":     "delete",
	"ins":     "insert",
	"pgup":    "pageup",
	"pgdn":    "pagedown",
	"prtsc":   "printscreen",
}

func init() {
	for c := 'a'; c <= 'z'; c++ {
		rawcodes[string(c)] = []uint16{uint16('A' + c - 'a')}
	}
	for c := '0'; c <= '9'; c++ {
		rawcodes[string(c)] = []uint16{uint16(c)}
	}
	for i := 1; i <= 24; i++ {
		rawcodes[fmt.Sprintf("f%d", i)] = []uint16{uint16(111 + i)}
	}
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+S" to normalized key names.
func parseHotkey(hotkeyConfig string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(hotkeyConfig), "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if canon, ok := aliases[part]; ok {
			part = canon
		}
		keys = append(keys, part)
	}
	return keys
}

// keyNameToRawcodes maps a key name to its rawcodes; modifiers have a left
// and a right variant.
func keyNameToRawcodes(keyName string) []uint16 {
	name := strings.ToLower(strings.TrimSpace(keyName))
	if canon, ok := aliases[name]; ok {
		name = canon
	}
	return rawcodes[name]
}

// combo tracks which keys of one hotkey are currently held.
type combo struct {
	mu    sync.Mutex
	names []string
	codes [][]uint16
	down  []bool
}

func newCombo(hotkeyConfig string) (*combo, error) {
	c := &combo{}
	for _, name := range parseHotkey(hotkeyConfig) {
		codes := keyNameToRawcodes(name)
		if len(codes) == 0 {
			return nil, fmt.Errorf("unknown key %q in hotkey %q", name, hotkeyConfig)
		}
		c.names = append(c.names, name)
		c.codes = append(c.codes, codes)
	}
	if len(c.names) == 0 {
		return nil, fmt.Errorf("no keys in hotkey %q", hotkeyConfig)
	}
	c.down = make([]bool, len(c.names))
	return c, nil
}

// press records a key down and reports whether the whole combination is
// now held. A completed combination resets so holding keys fires once.
func (c *combo) press(raw uint16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(raw, true)
	for _, d := range c.down {
		if !d {
			return false
		}
	}
	for i := range c.down {
		c.down[i] = false
	}
	return true
}

func (c *combo) release(raw uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(raw, false)
}

func (c *combo) set(raw uint16, v bool) {
	for i, codes := range c.codes {
		for _, code := range codes {
			if code == raw {
				c.down[i] = v
			}
		}
	}
}

// Listen starts a global keyboard hook and calls callback every time the
// combination is pressed. The hook runs until ctx is done.
func Listen(ctx context.Context, hotkeyConfig string, callback func()) error {
	c, err := newCombo(hotkeyConfig)
	if err != nil {
		return err
	}
	log.Printf("Hotkey listener configured for: %s %v", hotkeyConfig, c.names)

	evChan := gohook.Start()
	if evChan == nil {
		return fmt.Errorf("gohook.Start() returned nil channel")
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				gohook.End()
				return
			case ev, ok := <-evChan:
				if !ok {
					log.Printf("Event channel closed")
					return
				}
				switch ev.Kind {
				case gohook.KeyDown:
					if c.press(ev.Rawcode) {
						log.Printf("HOTKEY COMBINATION DETECTED! %s", hotkeyConfig)
						if callback != nil {
							callback()
						}
					}
				case gohook.KeyUp:
					c.release(ev.Rawcode)
				}
			}
		}
	}()
	return nil
}
