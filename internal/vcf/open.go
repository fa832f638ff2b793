package vcf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
)

// Input is a possibly gzip-compressed file opened for buffered reading.
type Input struct {
	*bufio.Reader
	file *os.File
	gz   *gzip.Reader
}

// Open opens path for reading, transparently decompressing gzip (and
// bgzip) content detected by its magic bytes. "-" reads stdin.
func Open(path string) (*Input, error) {
	if path == "-" {
		return wrap(os.Stdin, nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	in, err := wrap(f, f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return in, nil
}

func wrap(r io.Reader, f *os.File) (*Input, error) {
	br := bufio.NewReaderSize(r, 1<<16)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read magic bytes: %w", err)
	}

	in := &Input{Reader: br, file: f}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		in.gz, err = gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		in.Reader = bufio.NewReaderSize(in.gz, 1<<16)
	}
	return in, nil
}

// Close releases the decompressor and the underlying file.
func (in *Input) Close() error {
	if in.gz != nil {
		in.gz.Close()
	}
	if in.file != nil {
		return in.file.Close()
	}
	return nil
}
