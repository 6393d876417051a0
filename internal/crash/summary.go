package crash

import (
	"fmt"
	"io"
	"strings"

	"github.com/maruel/panicparse/v2/stack"
)

// Summarize groups the goroutines of a Go stack dump by identical stacks.
// It returns "" when dump holds no goroutines it can parse.
func Summarize(dump string) string {
	snap, _, err := stack.ScanSnapshot(strings.NewReader(dump), io.Discard, stack.DefaultOpts())
	if err != nil && err != io.EOF {
		return ""
	}
	if snap == nil || len(snap.Goroutines) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, b := range snap.Aggregate(stack.AnyPointer).Buckets {
		fmt.Fprintf(&sb, "%d goroutine(s) [%s]\n", len(b.IDs), b.State)
		for _, c := range b.Stack.Calls {
			fmt.Fprintf(&sb, "    %s\n        %s:%d\n", c.Func.Complete, c.SrcName, c.Line)
		}
	}
	return sb.String()
}
