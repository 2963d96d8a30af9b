package session

import "testing"

func TestClassifyDevice(t *testing.T) {
	cases := []struct {
		ua   string
		want Device
	}{
		{"", DeviceUnknown},
		{"curl/8.4.0", DeviceUnknown},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148", DeviceMobile},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36", DeviceMobile},
		{"Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15", DeviceTablet},
		{"Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36 Chrome/120.0 Safari/537.36", DeviceTablet},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_1) AppleWebKit/605.1.15 Safari/605.1.15", DeviceMac},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0", DeviceWindows},
		{"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", DeviceLinux},
	}
	for _, tc := range cases {
		if got := ClassifyDevice(tc.ua); got != tc.want {
			t.Errorf("ClassifyDevice(%q) = %s, want %s", tc.ua, got, tc.want)
		}
	}
}
