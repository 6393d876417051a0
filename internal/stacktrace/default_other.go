//go:build !windows && (!linux || android)

package stacktrace

// Default returns Unavailable: stack capture is not offered on this OS.
func Default() Capturer {
	return Unavailable{}
}
