package passphrase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

var ErrMismatch = errors.New("passphrases do not match")

// Source lazily resolves a keystore passphrase from an environment variable or
// by prompting on the terminal. The value is cached after the first successful
// retrieval.
type Source struct {
	envVar  string
	confirm bool
	prompt  io.Writer

	// readSecret is replaced in tests.
	readSecret func() (string, error)
	isTerminal func() bool

	once  sync.Once
	value string
	err   error
}

// NewSource constructs a passphrase source that checks envVar before
// prompting. When confirm is set an interactive passphrase must be typed
// twice, which is what creating a new keystore wants.
func NewSource(envVar string, confirm bool) *Source {
	return &Source{
		envVar:  strings.TrimSpace(envVar),
		confirm: confirm,
		prompt:  os.Stderr,
		readSecret: func() (string, error) {
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			return string(raw), err
		},
		isTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
}

// Get returns the cached passphrase or resolves it if this is the first call.
// An environment value is used verbatim; whitespace-only passphrases are
// rejected.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		if s.envVar != "" {
			if value, ok := os.LookupEnv(s.envVar); ok {
				if strings.TrimSpace(value) == "" {
					s.err = fmt.Errorf("%s is set but empty", s.envVar)
					return
				}
				s.value = value
				return
			}
		}

		if !s.isTerminal() {
			if s.envVar != "" {
				s.err = fmt.Errorf("keystore passphrase required; set %s or run interactively", s.envVar)
			} else {
				s.err = errors.New("keystore passphrase required and no terminal available")
			}
			return
		}

		passphrase, err := s.read("Enter keystore passphrase: ")
		if err != nil {
			s.err = err
			return
		}
		if strings.TrimSpace(passphrase) == "" {
			s.err = errors.New("keystore passphrase cannot be empty")
			return
		}
		if s.confirm {
			again, err := s.read("Repeat keystore passphrase: ")
			if err != nil {
				s.err = err
				return
			}
			if again != passphrase {
				s.err = ErrMismatch
				return
			}
		}
		s.value = passphrase
	})

	return s.value, s.err
}

func (s *Source) read(label string) (string, error) {
	fmt.Fprint(s.prompt, label)
	value, err := s.readSecret()
	fmt.Fprintln(s.prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return value, nil
}
