package crash

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"patrol.module/internal/errors"
)

func writeReport(t *testing.T, dir string, r *Report) string {
	t.Helper()
	data, err := Encode(r)
	require.NoError(t, err)
	path := filepath.Join(dir, r.ID+".dump")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestReportEncodeDecode(t *testing.T) {
	in := &Report{
		ID:         uuid.NewString(),
		Kind:       KindFault,
		Time:       time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC),
		Reason:     "Disk full",
		Source:     "Storage::Write",
		Code:       2,
		StackTrace: "1 patrol(main.main+0x10) [0x401000]\n",
		GoVersion:  "go1.24.4",
		OS:         "linux",
		Arch:       "amd64",
	}
	data, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(data)
	require.NoError(t, err)
	require.True(t, in.Time.Equal(out.Time))
	out.Time = in.Time
	require.Equal(t, in, out)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("definitely not zstd"))
	require.Error(t, err)
}

func TestStoreListFiltersAndOrders(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	older := &Report{ID: uuid.NewString(), Kind: KindPanic, Reason: "older"}
	newer := &Report{ID: uuid.NewString(), Kind: KindManual, Reason: "newer"}
	olderPath := writeReport(t, dir, older)
	writeReport(t, dir, newer)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(olderPath, past, past))

	runtimeID := uuid.NewString()
	require.NoError(t, os.WriteFile(filepath.Join(dir, runtimeID+".crash"),
		[]byte("\nfatal error: concurrent map writes\n\ngoroutine 1 [running]:\n"), 0600))

	// Ignored: empty crash file, foreign names, directories.
	require.NoError(t, os.WriteFile(filepath.Join(dir, uuid.NewString()+".crash"), nil, 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.dump"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, uuid.NewString()+".dump"), 0700))

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, older.ID, entries[len(entries)-1].ID)
	require.Equal(t, "older", entries[len(entries)-1].Reason)
	require.Equal(t, KindPanic, entries[len(entries)-1].Kind)

	kinds := map[string]Kind{}
	for _, e := range entries {
		kinds[e.ID] = e.Kind
	}
	require.Equal(t, KindManual, kinds[newer.ID])
	require.Equal(t, KindRuntime, kinds[runtimeID])
}

func TestStoreListMissingDir(t *testing.T) {
	entries, err := NewStore(filepath.Join(t.TempDir(), "absent")).List()
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestStoreLoadByPrefixAndRuntime(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	r := &Report{ID: uuid.NewString(), Kind: KindFault, Reason: "by prefix"}
	writeReport(t, dir, r)

	got, err := s.Load(r.ID[:8])
	require.NoError(t, err)
	require.Equal(t, "by prefix", got.Reason)

	runtimeID := uuid.NewString()
	require.NoError(t, os.WriteFile(filepath.Join(dir, runtimeID+".crash"),
		[]byte("panic: oops\n\ngoroutine 1 [running]:\nmain.main()\n"), 0600))
	got, err = s.Load(runtimeID)
	require.NoError(t, err)
	require.Equal(t, KindRuntime, got.Kind)
	require.Equal(t, "panic: oops", got.Reason)
}

func TestStoreLoadErrors(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	_, err := s.Load("")
	require.True(t, errors.IsCode(err, errors.CodeUsage))

	_, err = s.Load("deadbeef")
	require.True(t, errors.IsCode(err, errors.CodeCrashReport))

	id := uuid.NewString()
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".dump"), []byte("garbage"), 0600))
	_, err = s.Load(id)
	require.True(t, errors.IsCode(err, errors.CodeCrashReport))
}

func TestStoreRemoveAndClean(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	a := &Report{ID: uuid.NewString(), Kind: KindFault}
	b := &Report{ID: uuid.NewString(), Kind: KindFault}
	c := &Report{ID: uuid.NewString(), Kind: KindFault}
	writeReport(t, dir, a)
	writeReport(t, dir, b)
	keep := writeReport(t, dir, c)

	require.NoError(t, s.Remove(a.ID))
	require.NoFileExists(t, filepath.Join(dir, a.ID+".dump"))

	n, err := s.Clean(keep)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.FileExists(t, keep)
}
