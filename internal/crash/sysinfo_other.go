//go:build !linux && !darwin

package crash

func kernelRelease() string {
	return ""
}
