package site

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"qapages/errors"
)

// Import copies an artifacts tree produced outside qapages into a run folder.
// Children of srcDir named like an artifact subdirectory land in that
// subdirectory; any other top-level entry goes under reports/.
// It returns the number of files copied.
func (s *Site) Import(run RunFolder, srcDir string) (int, error) {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return 0, errors.Wrap(err, "read artifacts dir")
	}

	copied := 0
	for _, e := range entries {
		src := filepath.Join(srcDir, e.Name())
		var dst string
		if e.IsDir() && slices.Contains(ArtifactDirs, e.Name()) {
			dst = run.Dir(e.Name())
		} else {
			dst = filepath.Join(run.Dir(DirReports), e.Name())
		}

		n, err := copyTree(src, dst)
		copied += n
		if err != nil {
			return copied, errors.Wrapf(err, "import %s", e.Name())
		}
	}
	return copied, nil
}

// copyTree copies a file or directory tree from src to dst.
func copyTree(src, dst string) (int, error) {
	copied := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
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
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
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
		_ = out.Close()
		return err
	}
	return out.Close()
}
