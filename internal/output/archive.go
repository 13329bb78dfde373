package output

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"loadshape-platform/internal/models"
)

// writeArchive packages every regular file in the output directory into a
// tar archive, excluding the archive itself. A name ending in "z"
// (tar.gz, tgz) selects gzip compression.
func (w *Writer) writeArchive(dir, name string) error {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return models.Failedf(err, "cannot create archive")
	}
	defer f.Close()

	var tw *tar.Writer
	var gz *gzip.Writer
	if strings.HasSuffix(name, "z") {
		gz = gzip.NewWriter(f)
		tw = tar.NewWriter(gz)
	} else {
		tw = tar.NewWriter(f)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return models.Failedf(err, "cannot read output directory")
	}

	for _, e := range entries {
		if e.Name() == name || !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return models.Failedf(err, "cannot stat %s", e.Name())
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return models.Failedf(err, "cannot archive %s", e.Name())
		}
		hdr.Name = e.Name()
		if err := tw.WriteHeader(hdr); err != nil {
			return models.Failedf(err, "cannot archive %s", e.Name())
		}
		src, err := os.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			return models.Failedf(err, "cannot archive %s", e.Name())
		}
		_, err = io.Copy(tw, src)
		src.Close()
		if err != nil {
			return models.Failedf(err, "cannot archive %s", e.Name())
		}
	}

	if err := tw.Close(); err != nil {
		return models.Failedf(err, "cannot finalize archive")
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return models.Failedf(err, "cannot finalize archive")
		}
	}
	return nil
}
