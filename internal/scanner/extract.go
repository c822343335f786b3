package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/sftp"
	"go.uber.org/zap"

	"github.com/sadopc/arqrel/internal/model"
	"github.com/sadopc/arqrel/internal/util"
)

// HashBlockSize is the read size used when hashing file contents.
const HashBlockSize = 1 << 20

// Extractor turns a discovered file path into a FileRecord.
type Extractor struct {
	src    Source
	logger *zap.Logger
	buf    []byte
}

// NewExtractor creates an extractor reading from src. A nil logger
// discards log output.
func NewExtractor(src Source, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{src: src, logger: logger}
}

// Extract builds the record for path. It never fails: fields that cannot
// be computed hold model.ErrorValue and the cause is logged.
func (e *Extractor) Extract(path string) model.FileRecord {
	rec, _ := e.extract(path)
	return rec
}

// extract returns the record and the number of contained errors.
func (e *Extractor) extract(path string) (model.FileRecord, int) {
	errs := 0
	name := e.src.Base(path)
	ext, _ := model.Extension(name)
	rec := model.FileRecord{Name: name, Extension: ext}

	info, err := e.src.Fs.Stat(path)
	if err != nil {
		errs++
		e.logger.Warn("Stat failed", zap.Error(&FileStatError{Path: path, Err: err}))
		rec.SizeFormatted = model.ErrorValue
		rec.Permissions = model.ErrorValue
		rec.CreationTime = model.ErrorValue
		rec.LastAccessTime = model.ErrorValue
		rec.LastModifyTime = model.ErrorValue
	} else {
		size := info.Size()
		if size < 0 {
			size = 0
		}
		rec.SizeBytes = uint64(size)
		rec.SizeFormatted = util.FormatSize(rec.SizeBytes)
		rec.Permissions = fmt.Sprintf("0o%o", info.Mode().Perm())
		rec.LastModifyTime = util.FormatTimestamp(info.ModTime())
		atime, btime := e.fileTimes(path, info)
		rec.LastAccessTime = util.FormatTimestamp(atime)
		rec.CreationTime = util.FormatTimestamp(btime)
	}

	hash, err := e.hash(path)
	if err != nil {
		errs++
		e.logger.Warn("Hash failed", zap.Error(&FileHashError{Path: path, Err: err}))
		hash = model.ErrorValue
	}
	rec.ContentHash = hash

	abs, err := e.src.Absolute(path)
	if err != nil {
		e.logger.Debug("Path not resolved", zap.String("path", path), zap.Error(err))
	}
	rec.AbsolutePath = abs
	return rec, errs
}

// fileTimes returns access and birth times. Zero means unavailable.
func (e *Extractor) fileTimes(path string, info os.FileInfo) (atime, btime time.Time) {
	if st, ok := info.Sys().(*sftp.FileStat); ok {
		// SFTP v3 carries access time but no birth time.
		return time.Unix(int64(st.Atime), 0), time.Time{}
	}
	return platformTimes(path, info, e.src.Local)
}

// hash streams the file through SHA-256 in HashBlockSize reads.
func (e *Extractor) hash(path string) (string, error) {
	f, err := e.src.Fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if e.buf == nil {
		e.buf = make([]byte, HashBlockSize)
	}
	h := sha256.New()
	for {
		n, err := f.Read(e.buf)
		if n > 0 {
			h.Write(e.buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
