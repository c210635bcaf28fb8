package genome

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

const fastaLineWidth = 60

// Record. one FASTA entry.
type Record struct {
	Name string
	Seq  string
}

// ReadFasta. read every record of r. lines starting with ';' are comments, spaces inside sequence
// lines are dropped and bases are upper-cased.
func ReadFasta(r io.Reader) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	records := make([]Record, 0)
	var (
		name    string
		seq     strings.Builder
		started bool
	)
	flush := func() {
		if started || seq.Len() > 0 {
			records = append(records, Record{Name: name, Seq: seq.String()})
		}
		seq.Reset()
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case strings.HasPrefix(line, ">"):
			flush()
			name = strings.TrimSpace(line[1:])
			started = true
		case strings.HasPrefix(line, ";"):
		default:
			for i := 0; i < len(line); i++ {
				if line[i] == ' ' || line[i] == '\t' {
					continue
				}
				seq.WriteByte(upper(line[i]))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read fasta: %w", err)
	}
	flush()
	return records, nil
}

func upper(b byte) byte {
	if 'a' <= b && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

// OpenFile. open a FASTA file, decompressing it on the fly when the name ends with .zst.
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}
	d, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &zstdFile{d: d, f: f}, nil
}

type zstdFile struct {
	d *zstd.Decoder
	f *os.File
}

func (z *zstdFile) Read(p []byte) (int, error) {
	return z.d.Read(p)
}

func (z *zstdFile) Close() error {
	z.d.Close()
	return z.f.Close()
}

// CreateFile. create path for writing, compressing with zstd when the name ends with .zst.
func CreateFile(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}
	e, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &zstdWriter{e: e, f: f}, nil
}

type zstdWriter struct {
	e *zstd.Encoder
	f *os.File
}

func (z *zstdWriter) Write(p []byte) (int, error) {
	return z.e.Write(p)
}

func (z *zstdWriter) Close() error {
	if err := z.e.Close(); err != nil {
		z.f.Close()
		return err
	}
	return z.f.Close()
}

// ReadSequencesFromFiles. sequences of every record of every file, in file order.
func ReadSequencesFromFiles(paths []string) ([]string, error) {
	seqs := make([]string, 0, len(paths))
	for _, path := range paths {
		f, err := OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not open %s: %w", path, err)
		}
		records, err := ReadFasta(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, rec := range records {
			seqs = append(seqs, rec.Seq)
		}
	}
	return seqs, nil
}

// WriteFasta. write one record with the sequence wrapped at 60 columns.
func WriteFasta(w io.Writer, name, seq string) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, ">%s\n", name); err != nil {
		return err
	}
	for i := 0; i < len(seq); i += fastaLineWidth {
		end := min(i+fastaLineWidth, len(seq))
		if _, err := bw.WriteString(seq[i:end]); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteRecords. write every record and close w. a failed close is returned, for a zstd writer it
// means the last block never reached the file.
func WriteRecords(w io.WriteCloser, records []Record) (err error) {
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	for _, rec := range records {
		if err := WriteFasta(w, rec.Name, rec.Seq); err != nil {
			return fmt.Errorf("record %s: %w", rec.Name, err)
		}
	}
	return nil
}
