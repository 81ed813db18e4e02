package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
)

// SnapshotVersion fingerprints a set of entry files by path, mtime and
// size. Any edit, addition or removal changes the version. Files that
// vanish between discovery and stat are skipped.
func SnapshotVersion(paths []string) string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	h := sha256.New()
	for _, p := range sorted {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		fmt.Fprintf(h, "%s|%d|%d\n", p, info.ModTime().UnixNano(), info.Size())
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
