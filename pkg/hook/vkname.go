package hook

import "fmt"

var vkNames = map[uint32]string{
	0x08: "Backspace",
	0x09: "Tab",
	0x0D: "Enter",
	0x13: "Pause",
	0x14: "Caps Lock",
	0x1B: "Escape",
	0x20: "Space",
	0x21: "Page Up",
	0x22: "Page Down",
	0x23: "End",
	0x24: "Home",
	0x25: "Left",
	0x26: "Up",
	0x27: "Right",
	0x28: "Down",
	0x2C: "Print Screen",
	0x2D: "Insert",
	0x2E: "Delete",
	0x5B: "Left Win",
	0x5C: "Right Win",
	0x5D: "Menu",
	0x6A: "Numpad *",
	0x6B: "Numpad +",
	0x6D: "Numpad -",
	0x6E: "Numpad .",
	0x6F: "Numpad /",
	0x90: "Num Lock",
	0x91: "Scroll Lock",
	0xA0: "Left Shift",
	0xA1: "Right Shift",
	0xA2: "Left Ctrl",
	0xA3: "Right Ctrl",
	0xA4: "Left Alt",
	0xA5: "Right Alt",
	0xA6: "Browser Back",
	0xA7: "Browser Forward",
	0xAD: "Volume Mute",
	0xAE: "Volume Down",
	0xAF: "Volume Up",
	0xB0: "Next Track",
	0xB1: "Previous Track",
	0xB2: "Stop Media",
	0xB3: "Play/Pause",
	0xBA: ";",
	0xBB: "=",
	0xBC: ",",
	0xBD: "-",
	0xBE: ".",
	0xBF: "/",
	0xC0: "`",
	0xDB: "[",
	0xDC: "\\",
	0xDD: "]",
	0xDE: "'",
}

// KeyName returns a human-readable label for a virtual-key code, shown in
// the tray menu and stored alongside captured bindings.
func KeyName(vk uint32) string {
	if name, ok := vkNames[vk]; ok {
		return name
	}
	switch {
	case vk >= '0' && vk <= '9', vk >= 'A' && vk <= 'Z':
		return string(rune(vk))
	case vk >= 0x60 && vk <= 0x69:
		return fmt.Sprintf("Numpad %d", vk-0x60)
	case vk >= 0x70 && vk <= 0x87:
		return fmt.Sprintf("F%d", vk-0x70+1)
	}
	return fmt.Sprintf("Key 0x%02X", vk)
}
