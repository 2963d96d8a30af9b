package session

import "strings"

// Device is a coarse, cosmetic label for the client that opened a session.
type Device string

const (
	DeviceMobile  Device = "Mobile"
	DeviceTablet  Device = "Tablet"
	DeviceMac     Device = "Mac"
	DeviceWindows Device = "Windows"
	DeviceLinux   Device = "Linux"
	DeviceUnknown Device = "Unknown"
)

// ClassifyDevice maps a raw User-Agent to a Device. Order matters: tablets and
// phones report desktop OS families too (iPadOS claims Macintosh, Android claims
// Linux).
func ClassifyDevice(userAgent string) Device {
	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return DeviceUnknown
	case strings.Contains(ua, "ipad"),
		strings.Contains(ua, "tablet"),
		strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		return DeviceTablet
	case strings.Contains(ua, "iphone"),
		strings.Contains(ua, "ipod"),
		strings.Contains(ua, "android"),
		strings.Contains(ua, "mobile"):
		return DeviceMobile
	case strings.Contains(ua, "macintosh"), strings.Contains(ua, "mac os x"):
		return DeviceMac
	case strings.Contains(ua, "windows"):
		return DeviceWindows
	case strings.Contains(ua, "linux"), strings.Contains(ua, "x11"):
		return DeviceLinux
	default:
		return DeviceUnknown
	}
}
