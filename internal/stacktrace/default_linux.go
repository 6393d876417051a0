//go:build linux && !android

package stacktrace

// Default returns the first-class capturer for GNU/Linux.
func Default() Capturer {
	return Backtrace{}
}
