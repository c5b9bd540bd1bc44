package predict

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"carprice/ml"
)

// Console drives a Session over line based text streams.
type Console struct {
	in  io.Reader
	out io.Writer

	mu      sync.Mutex
	current ml.Coefficients
}

func NewConsole(in io.Reader, out io.Writer, c ml.Coefficients) *Console {
	return &Console{in: in, out: out, current: c}
}

// SetCoefficients swaps the coefficients used for the next line. Safe to call
// from another goroutine.
func (c *Console) SetCoefficients(coefficients ml.Coefficients) {
	c.mu.Lock()
	c.current = coefficients
	c.mu.Unlock()
}

func (c *Console) coefficients() ml.Coefficients {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Run prompts and answers until the session is done or input ends.
func (c *Console) Run(mode Mode, interactive bool) error {
	session := NewSession(mode, interactive, c.coefficients())
	scanner := bufio.NewScanner(c.in)

	for !session.Done {
		if _, err := fmt.Fprintln(c.out, session.Prompt()); err != nil {
			return err
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		session.Coefficients = c.coefficients()

		var reply Reply
		reply, session = session.Handle(strings.TrimRight(scanner.Text(), "\r"))
		if reply.Message != "" {
			if _, err := fmt.Fprintln(c.out, reply.Message); err != nil {
				return err
			}
		}
	}
	return nil
}
