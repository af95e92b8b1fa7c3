package auditlog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fernet/fernet-go"
)

// Console messages.
const (
	MsgKeyMissing = "Encryption key not found. Previous logs cannot be decrypted."
	MsgNoLogs     = "No logs to show."
	MsgNoKey      = "No key to decrypt the logs."
	MsgCorrupt    = "[ERROR] Corrupt log or incorrect key."
)

// timestampLayout renders the local time prefix of every entry.
const timestampLayout = "[2006-01-02 15:04:05]"

const (
	logFileMode = 0o600

	// maxTokenLine bounds one line of the log file. Entries are short error
	// strings, so anything this long is corrupt anyway.
	maxTokenLine = 1 << 20
)

// noExpiry disables the Fernet TTL check; old entries stay readable.
const noExpiry time.Duration = -1

var (
	// ErrKeyNotFound is returned when the key file does not exist.
	ErrKeyNotFound = errors.New("encryption key not found")

	// ErrInvalidKey is returned when the key file does not hold a Fernet key.
	ErrInvalidKey = errors.New("invalid Fernet key")
)

// Log appends encrypted entries to a file and reads them back.
type Log struct {
	mu      sync.Mutex
	keyFile string
	logFile string
	console io.Writer
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithConsole sets where user-facing warnings are printed.
func WithConsole(w io.Writer) Option {
	return func(l *Log) {
		l.console = w
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// New returns a Log using the key at keyFile and entries at logFile.
func New(keyFile, logFile string, opts ...Option) *Log {
	l := &Log{
		keyFile: keyFile,
		logFile: logFile,
		console: os.Stdout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// KeyFile returns the key path.
func (l *Log) KeyFile() string {
	return l.keyFile
}

// LogFile returns the entries path.
func (l *Log) LogFile() string {
	return l.logFile
}

// Append encrypts "[timestamp] message" and appends it as one line.
//
// Without a key it prints MsgKeyMissing and returns ErrKeyNotFound; the log
// file is not touched. Any other failure is printed as well, since the
// encrypted log is where errors would normally go.
func (l *Log) Append(message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key, err := LoadKey(l.keyFile)
	if errors.Is(err, ErrKeyNotFound) {
		fmt.Fprintln(l.console, MsgKeyMissing)
		return err
	}
	if err != nil {
		fmt.Fprintf(l.console, "Error logging message: %v\n", err)
		return err
	}

	plaintext := l.now().Format(timestampLayout) + " " + message
	token, err := fernet.EncryptAndSign([]byte(plaintext), key)
	if err != nil {
		fmt.Fprintf(l.console, "Error logging message: %v\n", err)
		return fmt.Errorf("encrypt entry: %w", err)
	}

	if err := appendLine(l.logFile, token); err != nil {
		fmt.Fprintf(l.console, "Error logging message: %v\n", err)
		return err
	}
	l.logger.Debug("audit entry appended", "log_file", l.logFile, "bytes", len(token))
	return nil
}

func appendLine(path string, token []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, logFileMode)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if _, err := f.Write(append(token, '\n')); err != nil {
		_ = f.Close() //nolint:errcheck // the write error is reported
		return fmt.Errorf("write log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	return nil
}

// Decrypt returns every entry in file order, one per line. Lines that fail
// to verify become MsgCorrupt. The missing-file, missing-key and bad-key
// cases return MsgNoLogs, MsgNoKey and "Error decrypting logs: <cause>".
func (l *Log) Decrypt() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.logFile); errors.Is(err, os.ErrNotExist) {
		return MsgNoLogs
	}

	key, err := LoadKey(l.keyFile)
	if errors.Is(err, ErrKeyNotFound) {
		return MsgNoKey
	}
	if err != nil {
		return fmt.Sprintf("Error decrypting logs: %v", err)
	}

	lines, err := decryptFile(l.logFile, key)
	if err != nil {
		return fmt.Sprintf("Error decrypting logs: %v", err)
	}
	return strings.Join(lines, "\n")
}

func decryptFile(path string, key *fernet.Key) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	keys := []*fernet.Key{key}
	lines := make([]string, 0)

	r := bufio.NewReader(f)
	for {
		token, err := readLine(r, maxTokenLine)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, errLineTooLong) {
			lines = append(lines, MsgCorrupt)
			continue
		}
		if err != nil {
			return nil, err
		}

		msg := fernet.VerifyAndDecrypt(token, noExpiry, keys)
		if msg == nil {
			lines = append(lines, MsgCorrupt)
			continue
		}
		lines = append(lines, string(msg))
	}
	return lines, nil
}

var errLineTooLong = errors.New("log line too long")

// readLine returns the next line with surrounding space trimmed. A line
// longer than limit is consumed up to its newline and reported as
// errLineTooLong. io.EOF is returned only when no data is left.
func readLine(r *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if tooLong {
			return nil, errLineTooLong
		}
		if err != nil && len(line) == 0 {
			return nil, err
		}
		return bytes.TrimSpace(line), nil
	}
}
