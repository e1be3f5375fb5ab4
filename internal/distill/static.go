package distill

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/li-boxuan/community/pkg/logging"
)

// CollectStatic copies every configured static source directory into
// <siteDir>/static. Sources that do not exist are logged and skipped, the
// repository checkout decides which asset dirs it ships. Returns the number
// of files copied.
func CollectStatic(logger *logging.Logger, siteDir string, sources []string) (int, error) {
	target := filepath.Join(siteDir, "static")
	if err := os.MkdirAll(target, 0755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", target, err)
	}

	copied := 0
	for _, source := range sources {
		info, err := os.Stat(source)
		if os.IsNotExist(err) {
			logger.Warn("static source does not exist, skipping", map[string]interface{}{"dir": source})
			continue
		}
		if err != nil {
			return copied, err
		}
		if !info.IsDir() {
			return copied, fmt.Errorf("static source %s is not a directory", source)
		}

		n, err := copyTree(source, target)
		if err != nil {
			return copied, fmt.Errorf("failed to collect %s: %w", source, err)
		}
		copied += n
	}

	logger.Info("static assets collected", map[string]interface{}{
		"target": target, "files": copied,
	})
	return copied, nil
}

// copyTree copies the contents of src into dst, returning the file count
func copyTree(src, dst string) (int, error) {
	copied := 0
	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, 0755)
		}

		if err := copyFile(path, target); err != nil {
			return err
		}
		copied++
		return nil
	})
	return copied, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
