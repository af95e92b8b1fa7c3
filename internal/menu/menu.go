package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/cuackproxy/cuackproxy/internal/model"
)

// Menu text.
const (
	Title           = "--- CuackProxy ---"
	LogsTitle       = "--- Decrypted Logs ---"
	MsgInvalidPort  = "Invalid port."
	MsgInvalidCC    = "Invalid country code."
	MsgInvalidIface = "Invalid interface."
	MsgInvalid      = "Invalid choice. Please try again."
	MsgExiting      = "Exiting..."
	MsgInterrupted  = "[!] Interrupted by user."
	MsgPressEnter   = "Press Enter to continue..."
)

var (
	titleColor = color.New(color.FgCyan, color.Bold).SprintFunc()
	errColor   = color.New(color.FgRed).SprintFunc()
)

// Session is what the menu drives.
type Session interface {
	Connect(ctx context.Context, req model.ConnectRequest) (*model.Attempt, error)
	DecryptLogs() string
	RenewIdentity(ctx context.Context) bool
	Close()
}

// Option configures a Menu.
type Option func(*Menu)

// WithClearScreen clears the screen before each menu iteration and pauses
// after each action so its output stays readable.
func WithClearScreen(fn func(io.Writer)) Option {
	return func(m *Menu) {
		m.clear = fn
	}
}

// WithDefaults sets the proxy host and port offered at the connect prompt.
func WithDefaults(host string, port int) Option {
	return func(m *Menu) {
		m.defaultHost = host
		m.defaultPort = port
	}
}

// Menu is the interactive loop.
type Menu struct {
	session Session
	in      io.Reader
	out     io.Writer
	clear   func(io.Writer)

	defaultHost string
	defaultPort int

	lines <-chan line
}

type line struct {
	text string
	err  error
}

// New returns a Menu reading from in and writing to out.
func New(session Session, in io.Reader, out io.Writer, opts ...Option) *Menu {
	m := &Menu{
		session:     session,
		in:          in,
		out:         out,
		defaultHost: "127.0.0.1",
		defaultPort: 9050,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ClearScreen writes the ANSI clear sequence.
func ClearScreen(w io.Writer) {
	fmt.Fprint(w, "\033[H\033[2J")
}

// Run shows the menu until the user exits. It returns ctx.Err() when
// interrupted and nil otherwise. The session is closed before Run returns.
func (m *Menu) Run(ctx context.Context) error {
	defer m.session.Close()

	done := make(chan struct{})
	defer close(done)
	m.lines = readLines(m.in, done)

	for {
		if m.clear != nil {
			m.clear(m.out)
		}
		m.printMenu()

		choice, err := m.prompt(ctx, "Enter your choice: ")
		if err != nil {
			return m.finish(err)
		}

		switch strings.TrimSpace(choice) {
		case "1":
			err = m.connect(ctx)
		case "2":
			fmt.Fprintln(m.out, "\n"+LogsTitle)
			fmt.Fprintln(m.out, m.session.DecryptLogs())
		case "3":
			m.session.RenewIdentity(ctx)
		case "4":
			fmt.Fprintln(m.out, MsgExiting)
			return nil
		default:
			fmt.Fprintln(m.out, errColor(MsgInvalid))
		}
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err != nil {
			return m.finish(err)
		}

		if m.clear != nil {
			if _, err := m.prompt(ctx, MsgPressEnter); err != nil {
				return m.finish(err)
			}
		}
	}
}

// finish maps the reason the loop stopped to its console message.
func (m *Menu) finish(err error) error {
	switch {
	case errors.Is(err, io.EOF):
		fmt.Fprintln(m.out, "\n"+MsgExiting)
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintln(m.out, "\n"+MsgInterrupted)
		return err
	default:
		return fmt.Errorf("read input: %w", err)
	}
}

func (m *Menu) printMenu() {
	fmt.Fprintln(m.out, "\n"+titleColor(Title))
	fmt.Fprintln(m.out, "1. Connect to Tor")
	fmt.Fprintln(m.out, "2. Decrypt Logs")
	fmt.Fprintln(m.out, "3. Renew Tor Identity")
	fmt.Fprintln(m.out, "4. Exit")
}

// connect collects a ConnectRequest and runs it. Invalid input returns to
// the menu with a message; only read failures are returned.
func (m *Menu) connect(ctx context.Context) error {
	host, err := m.prompt(ctx, fmt.Sprintf("Enter Proxy IP (default: %s): ", m.defaultHost))
	if err != nil {
		return err
	}
	if host = strings.TrimSpace(host); host == "" {
		host = m.defaultHost
	}

	portInput, err := m.prompt(ctx, fmt.Sprintf("Enter Proxy Port (default: %d): ", m.defaultPort))
	if err != nil {
		return err
	}
	port := m.defaultPort
	if strings.TrimSpace(portInput) != "" {
		if port, err = model.ParsePort(portInput); err != nil {
			fmt.Fprintln(m.out, errColor(MsgInvalidPort))
			return nil
		}
	}

	ccInput, err := m.prompt(ctx, "Enter Country Code (or 'Random' for random exit node): ")
	if err != nil {
		return err
	}
	exit, err := model.ParseCountryCode(ccInput)
	if err != nil {
		fmt.Fprintln(m.out, errColor(MsgInvalidCC))
		return nil
	}

	iface, err := m.prompt(ctx, "Enter Network Interface (e.g., eth0): ")
	if err != nil {
		return err
	}

	req := model.ConnectRequest{
		ProxyHost: host,
		ProxyPort: port,
		Exit:      exit,
		Interface: strings.TrimSpace(iface),
	}
	if err := req.Validate(); err != nil {
		if errors.Is(err, model.ErrInvalidPort) {
			fmt.Fprintln(m.out, errColor(MsgInvalidPort))
		} else {
			fmt.Fprintln(m.out, errColor(MsgInvalidIface))
		}
		return nil
	}

	// The session prints its own progress and failures.
	_, _ = m.session.Connect(ctx, req)
	return nil
}

// prompt prints label and waits for the next line or for ctx.
func (m *Menu) prompt(ctx context.Context, label string) (string, error) {
	fmt.Fprint(m.out, label)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-m.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

// readLines feeds lines from r into a channel so a pending prompt can be
// abandoned on cancellation. Lines have no length limit. The goroutine ends
// at EOF, on a read error or once done is closed and it next tries to
// deliver a line.
func readLines(r io.Reader, done <-chan struct{}) <-chan line {
	ch := make(chan line)
	send := func(l line) bool {
		select {
		case ch <- l:
			return true
		case <-done:
			return false
		}
	}
	go func() {
		defer close(ch)
		br := bufio.NewReader(r)
		for {
			text, err := br.ReadString('\n')
			if text != "" {
				if !send(line{text: strings.TrimRight(text, "\r\n")}) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				send(line{err: err})
				return
			}
		}
	}()
	return ch
}
