package infra

import (
	"fmt"
	"runtime"
)

// DefaultUserAgent is sent on outbound HTTP and WebSocket requests.
// Public RPC gateways and price APIs throttle obvious bot agents, so
// a browser-like string per OS is used.
var DefaultUserAgent = GetPlatformUserAgent()

// GetPlatformUserAgent generates a browser-like User-Agent string based on current OS.
func GetPlatformUserAgent() string {
	chromeVer := "120.0.0.0" // Standard stable version

	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36", chromeVer)
	case "linux":
		linuxArch := "x86_64"
		if runtime.GOARCH == "arm64" {
			linuxArch = "aarch64"
		}
		return fmt.Sprintf("Mozilla/5.0 (X11; Linux %s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36", linuxArch, chromeVer)
	case "darwin":
		return fmt.Sprintf("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36", chromeVer)
	default:
		return "Mozilla/5.0 (compatible; Tokenscope/1.0)"
	}
}
