package touch

import (
	"os"
	"strings"
)

// DeviceInfo is one entry of /proc/bus/input/devices.
type DeviceInfo struct {
	Name     string
	Handlers []string
}

// Path is the /dev/input node of the device, or "" if it has none.
func (d DeviceInfo) Path() string {
	for _, h := range d.Handlers {
		if strings.HasPrefix(h, "event") {
			return "/dev/input/" + h
		}
	}
	return ""
}

// ListDevices reads the kernel's input device table.
func ListDevices() ([]DeviceInfo, error) {
	b, err := os.ReadFile("/proc/bus/input/devices")
	if err != nil {
		return nil, err
	}
	return parseDevices(string(b)), nil
}

func parseDevices(s string) []DeviceInfo {
	var out []DeviceInfo
	for _, blk := range strings.Split(s, "\n\n") {
		var info DeviceInfo
		for _, line := range strings.Split(blk, "\n") {
			if v, ok := strings.CutPrefix(line, "N: Name="); ok {
				info.Name = strings.Trim(v, " \"")
			}
			if v, ok := strings.CutPrefix(line, "H: Handlers="); ok {
				info.Handlers = strings.Fields(v)
			}
		}
		if info.Name != "" || len(info.Handlers) > 0 {
			out = append(out, info)
		}
	}
	return out
}

// PickDevices guesses the touch panel and the pen digitiser by name.
func PickDevices(devs []DeviceInfo) (touch, pen string) {
	for _, d := range devs {
		path := d.Path()
		if path == "" {
			continue
		}
		name := strings.ToLower(d.Name)
		switch {
		case pen == "" && (strings.Contains(name, "pen") || strings.Contains(name, "stylus") || strings.Contains(name, "wacom")):
			pen = path
		case touch == "" && strings.Contains(name, "touch"):
			touch = path
		}
	}
	return touch, pen
}
