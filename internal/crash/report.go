package crash

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Kind tells how a dump came to be written.
type Kind string

const (
	KindPanic   Kind = "panic"
	KindFault   Kind = "fault"
	KindManual  Kind = "manual"
	KindRuntime Kind = "runtime"
)

// Report is the content of one dump.
type Report struct {
	ID          string    `cbor:"id" json:"id" yaml:"id"`
	Kind        Kind      `cbor:"kind" json:"kind" yaml:"kind"`
	Time        time.Time `cbor:"time" json:"time" yaml:"time"`
	Reason      string    `cbor:"reason" json:"reason" yaml:"reason"`
	Source      string    `cbor:"source,omitempty" json:"source,omitempty" yaml:"source,omitempty"`
	Code        int       `cbor:"code,omitempty" json:"code,omitempty" yaml:"code,omitempty"`
	Recoverable bool      `cbor:"recoverable,omitempty" json:"recoverable,omitempty" yaml:"recoverable,omitempty"`
	StackTrace  string    `cbor:"stack_trace,omitempty" json:"stack_trace,omitempty" yaml:"stack_trace,omitempty"`
	Goroutines  string    `cbor:"goroutines,omitempty" json:"goroutines,omitempty" yaml:"goroutines,omitempty"`
	GoVersion   string    `cbor:"go_version" json:"go_version" yaml:"go_version"`
	OS          string    `cbor:"os" json:"os" yaml:"os"`
	Arch        string    `cbor:"arch" json:"arch" yaml:"arch"`
	Kernel      string    `cbor:"kernel,omitempty" json:"kernel,omitempty" yaml:"kernel,omitempty"`
	Executable  string    `cbor:"executable,omitempty" json:"executable,omitempty" yaml:"executable,omitempty"`
	PID         int       `cbor:"pid,omitempty" json:"pid,omitempty" yaml:"pid,omitempty"`
}

// Text renders the report for people.
func (r *Report) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Crash dump %s\n", r.ID)
	fmt.Fprintf(&sb, "Kind:       %s\n", r.Kind)
	fmt.Fprintf(&sb, "Time:       %s\n", r.Time.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Reason:     %s\n", r.Reason)
	if r.Source != "" {
		fmt.Fprintf(&sb, "Source:     %s\n", r.Source)
	}
	if r.Code != 0 {
		fmt.Fprintf(&sb, "Code:       %d\n", r.Code)
	}
	platform := r.OS + "/" + r.Arch
	if r.Kernel != "" {
		platform += " (" + r.Kernel + ")"
	}
	if r.GoVersion != "" {
		platform += " " + r.GoVersion
	}
	fmt.Fprintf(&sb, "Platform:   %s\n", platform)
	if r.Executable != "" {
		fmt.Fprintf(&sb, "Executable: %s (pid %d)\n", r.Executable, r.PID)
	}
	if r.StackTrace != "" {
		sb.WriteString("\nStack trace:\n")
		sb.WriteString(r.StackTrace)
	}
	if r.Goroutines != "" {
		sb.WriteString("\nGoroutines:\n")
		if summary := Summarize(r.Goroutines); summary != "" {
			sb.WriteString(summary)
		} else {
			sb.WriteString(r.Goroutines)
		}
	}
	return sb.String()
}

var (
	codecOnce sync.Once
	codecErr  error
	encMode   cbor.EncMode
	decMode   cbor.DecMode
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
)

func initCodec() error {
	codecOnce.Do(func() {
		encOptions := cbor.CoreDetEncOptions()
		encOptions.Time = cbor.TimeRFC3339Nano
		if encMode, codecErr = encOptions.EncMode(); codecErr != nil {
			return
		}
		if decMode, codecErr = (cbor.DecOptions{}).DecMode(); codecErr != nil {
			return
		}
		if encoder, codecErr = zstd.NewWriter(nil); codecErr != nil {
			return
		}
		decoder, codecErr = zstd.NewReader(nil)
	})
	return codecErr
}

// Encode serialises r: CBOR, then zstd.
func Encode(r *Report) ([]byte, error) {
	if err := initCodec(); err != nil {
		return nil, err
	}
	raw, err := encMode.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return encoder.EncodeAll(raw, nil), nil
}

// Decode reverses Encode.
func Decode(data []byte) (*Report, error) {
	if err := initCodec(); err != nil {
		return nil, err
	}
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress report: %w", err)
	}
	var r Report
	if err := decMode.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// writeAtomic writes data to path through a temporary file in the same
// directory, so readers never see a partial dump.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".dump-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
