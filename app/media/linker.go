package media

import (
	"os"
	"path/filepath"
	"strings"
)

// Linker resolves remote media URLs against locally saved copies inside
// the archive's assets directory.
type Linker struct {
	assetsPath string
}

func NewLinker(archivePath string) *Linker {
	return &Linker{
		assetsPath: filepath.Join(archivePath, "assets"),
	}
}

// ResolveLocal derives a filename from the URL's final path segment and
// probes the assets root, assets/media and assets/images for it. Returns
// the first existing match. A miss is not an error; the second return
// value reports whether a local copy was found.
func (l *Linker) ResolveLocal(remoteURL string) (string, bool) {
	if remoteURL == "" {
		return "", false
	}

	segments := strings.Split(remoteURL, "/")
	filename := segments[len(segments)-1]
	if filename == "" {
		return "", false
	}

	candidates := []string{
		filepath.Join(l.assetsPath, filename),
		filepath.Join(l.assetsPath, "media", filename),
		filepath.Join(l.assetsPath, "images", filename),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}

	return "", false
}
