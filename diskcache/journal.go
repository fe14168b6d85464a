package diskcache

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/calvinalkan/cachekit/internal/cachefs"
)

// Journal file names.
const (
	journalFileName    = "journal"
	journalTmpFileName = "journal.tmp"
	journalBkpFileName = "journal.bkp"
)

const (
	journalMagic   = "libcore.io.DiskLruCache"
	journalVersion = "1"
)

// Record opcodes.
const (
	opDirty  = "DIRTY"
	opClean  = "CLEAN"
	opRemove = "REMOVE"
	opRead   = "READ"
)

// journalHeader is the fixed five-line header at the top of every journal file.
type journalHeader struct {
	appVersion int
	valueCount int
}

func (h journalHeader) encode() []byte {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, journalMagic)
	fmt.Fprintln(&buf, journalVersion)
	fmt.Fprintln(&buf, h.appVersion)
	fmt.Fprintln(&buf, h.valueCount)
	fmt.Fprintln(&buf)

	return buf.Bytes()
}

// journalRecord is one parsed body line.
type journalRecord struct {
	op     string
	key    string
	lens   []int64
}

// parsedJournal is the result of reading and parsing a journal file.
type parsedJournal struct {
	header  journalHeader
	records []journalRecord
	// truncated is true if the final line was not newline-terminated. This
	// is tolerated, but triggers an immediate compaction on open.
	truncated bool
}

// readJournal reads and parses the journal at path. It returns
// ErrCorruptJournal (wrapped with detail) for any header mismatch or
// malformed body line.
func readJournal(fsys cachefs.FS, path string) (parsedJournal, error) {
	raw, err := fsys.ReadFile(path)
	if err != nil {
		return parsedJournal{}, err
	}

	endedInNewline := len(raw) == 0 || raw[len(raw)-1] == '\n'

	lines := strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
	if len(raw) == 0 {
		lines = nil
	}

	if len(lines) < 5 {
		return parsedJournal{}, fmt.Errorf("%w: header truncated", ErrCorruptJournal)
	}

	if lines[0] != journalMagic {
		return parsedJournal{}, fmt.Errorf("%w: bad magic %q", ErrCorruptJournal, lines[0])
	}

	if lines[1] != journalVersion {
		return parsedJournal{}, fmt.Errorf("%w: bad version %q", ErrCorruptJournal, lines[1])
	}

	appVersion, err := strconv.Atoi(lines[2])
	if err != nil {
		return parsedJournal{}, fmt.Errorf("%w: bad app_version %q", ErrCorruptJournal, lines[2])
	}

	valueCount, err := strconv.Atoi(lines[3])
	if err != nil {
		return parsedJournal{}, fmt.Errorf("%w: bad value_count %q", ErrCorruptJournal, lines[3])
	}

	if lines[4] != "" {
		return parsedJournal{}, fmt.Errorf("%w: header blank line not blank", ErrCorruptJournal)
	}

	pj := parsedJournal{
		header:    journalHeader{appVersion: appVersion, valueCount: valueCount},
		truncated: !endedInNewline,
	}

	body := lines[5:]
	if len(body) == 1 && body[0] == "" {
		body = nil // no body records, just the trailing split artifact
	}

	for i, line := range body {
		if line == "" {
			if i == len(body)-1 {
				continue // trailing blank from final newline
			}

			return parsedJournal{}, fmt.Errorf("%w: blank body line", ErrCorruptJournal)
		}

		rec, parseErr := parseRecord(line, valueCount)
		if parseErr != nil {
			if i == len(body)-1 && !endedInNewline {
				break // torn final record: dropped, and the journal is compacted on open
			}

			return parsedJournal{}, parseErr
		}

		pj.records = append(pj.records, rec)
	}

	return pj, nil
}

func parseRecord(line string, valueCount int) (journalRecord, error) {
	fields := strings.Split(line, " ")

	switch fields[0] {
	case opDirty:
		if len(fields) != 2 {
			return journalRecord{}, fmt.Errorf("%w: malformed DIRTY record %q", ErrCorruptJournal, line)
		}

		return journalRecord{op: opDirty, key: fields[1]}, nil

	case opRemove:
		if len(fields) != 2 {
			return journalRecord{}, fmt.Errorf("%w: malformed REMOVE record %q", ErrCorruptJournal, line)
		}

		return journalRecord{op: opRemove, key: fields[1]}, nil

	case opRead:
		if len(fields) != 2 {
			return journalRecord{}, fmt.Errorf("%w: malformed READ record %q", ErrCorruptJournal, line)
		}

		return journalRecord{op: opRead, key: fields[1]}, nil

	case opClean:
		if len(fields) != 2+valueCount {
			return journalRecord{}, fmt.Errorf("%w: malformed CLEAN record %q", ErrCorruptJournal, line)
		}

		lens := make([]int64, valueCount)

		for i := 0; i < valueCount; i++ {
			l, err := strconv.ParseInt(fields[2+i], 10, 64)
			if err != nil {
				return journalRecord{}, fmt.Errorf("%w: bad length in CLEAN record %q", ErrCorruptJournal, line)
			}

			lens[i] = l
		}

		return journalRecord{op: opClean, key: fields[1], lens: lens}, nil

	default:
		return journalRecord{}, fmt.Errorf("%w: unknown record op %q", ErrCorruptJournal, fields[0])
	}
}

// journalWriter is a buffered, append-only text writer over the active
// journal file. DIRTY and commit/remove records are flushed (written
// through to the OS) before the call returns; READ records are buffered
// only, tolerable to lose on crash.
type journalWriter struct {
	fsys cachefs.FS
	path string
	file cachefs.File
	buf  *bufio.Writer
}

func openJournalWriterForAppend(fsys cachefs.FS, dir string) (*journalWriter, error) {
	path := filepath.Join(dir, journalFileName)

	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	return &journalWriter{fsys: fsys, path: path, file: f, buf: bufio.NewWriter(f)}, nil
}

func (jw *journalWriter) writeDirty(key string) error {
	fmt.Fprintf(jw.buf, "%s %s\n", opDirty, key)
	return jw.flush()
}

func (jw *journalWriter) writeClean(key string, lengths []int64) error {
	fmt.Fprintf(jw.buf, "%s %s", opClean, key)

	for _, l := range lengths {
		fmt.Fprintf(jw.buf, " %d", l)
	}

	fmt.Fprint(jw.buf, "\n")

	return jw.flush()
}

func (jw *journalWriter) writeRemove(key string) error {
	fmt.Fprintf(jw.buf, "%s %s\n", opRemove, key)
	return jw.flush()
}

// writeRead appends a READ record but does not flush: it is only an LRU
// hint, tolerable to lose on crash.
func (jw *journalWriter) writeRead(key string) error {
	_, err := fmt.Fprintf(jw.buf, "%s %s\n", opRead, key)
	return err
}

func (jw *journalWriter) flush() error {
	if err := jw.buf.Flush(); err != nil {
		return err
	}

	return jw.file.Sync()
}

func (jw *journalWriter) close() error {
	return jw.file.Close()
}

// writeJournalHeader creates a brand-new journal file with only the header,
// used both for a fresh cache and as the first step of compaction. The
// write goes through WriteFileAtomic so a crash never leaves a
// partially-written header behind.
func writeJournalHeader(fsys cachefs.FS, path string, header journalHeader) error {
	return fsys.WriteFileAtomic(path, header.encode(), 0o644)
}
