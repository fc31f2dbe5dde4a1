package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, min(size, chunkSize))
	for i := range buf {
		buf[i] = 0x42
	}

	for remaining := size; remaining > 0; {
		n := min(remaining, int64(len(buf)))
		if _, err := f.Write(buf[:n]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= n
	}
}

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteDICOMSeries writes count images named <prefix>_<run>_<frame>.dcm with
// frames 1..count into dir and returns their basenames.
func WriteDICOMSeries(t testing.TB, dir, prefix string, run, count int) []string {
	t.Helper()

	names := make([]string, 0, count)
	for frame := 1; frame <= count; frame++ {
		name := fmt.Sprintf("%s_%d_%03d.dcm", prefix, run, frame)
		WriteFile(t, filepath.Join(dir, name), 64)
		names = append(names, name)
	}
	return names
}

// WriteLegacySeries writes count scanner exports named
// <prefix>.MR.STUDY.<run>.<frame>.<date>.IMA into dir and returns their
// basenames.
func WriteLegacySeries(t testing.TB, dir, prefix string, run, count int) []string {
	t.Helper()

	names := make([]string, 0, count)
	for frame := 1; frame <= count; frame++ {
		name := fmt.Sprintf("%s.MR.STUDY.%04d.%04d.2024.03.05.IMA", prefix, run, frame)
		WriteFile(t, filepath.Join(dir, name), 64)
		names = append(names, name)
	}
	return names
}

// WriteTBVSettings writes a Turbo-BrainVoyager settings file whose first
// volume marker names run.
func WriteTBVSettings(t testing.TB, path string, run int) {
	t.Helper()

	WriteText(t, path, fmt.Sprintf("FileVersion 7\nDicomFirstVolumeNr %d\nNrOfVolumes 10\n", run))
}
