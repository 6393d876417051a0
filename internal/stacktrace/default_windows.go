//go:build windows

package stacktrace

// Default returns the symbol-resolving capturer used on Windows.
func Default() Capturer {
	return Symbolic{}
}
