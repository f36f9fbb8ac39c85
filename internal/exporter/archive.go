package exporter

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// WriteArchive 把结果文件打包为 zip，条目名为文件名
func WriteArchive(w io.Writer, paths []string) error {
	zw := zip.NewWriter(w)
	for _, p := range paths {
		if err := addFile(zw, p); err != nil {
			_ = zw.Close()
			return err
		}
	}
	return eris.Wrap(zw.Close(), "close archive")
}

func addFile(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "open %s", path)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return eris.Wrapf(err, "stat %s", path)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return eris.Wrapf(err, "zip header %s", path)
	}
	hdr.Name = filepath.Base(path)
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return eris.Wrapf(err, "zip entry %s", path)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return eris.Wrapf(err, "copy %s", path)
	}
	return nil
}
