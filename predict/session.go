// Package predict answers price and budget questions from the fitted coefficients.
//
// A Session is a value: Handle takes one line of input and returns the reply
// and the next session, so any harness (console, HTTP, tests) can drive it.
package predict

import (
	"errors"
	"fmt"
	"strconv"

	"carprice/ml"
)

type Mode int

const (
	// ModeMileage asks for a mileage and answers with a price.
	ModeMileage Mode = iota
	// ModeBudget asks for a budget and answers with a mileage.
	ModeBudget
)

const QuitCommand = "q"

var ErrInvalidInput = errors.New("input must be an integer")

// Reply is the outcome of one line. Err is nil, ErrInvalidInput,
// ml.ErrUndefinedInverse or ml.ErrOutOfRange.
type Reply struct {
	Message string
	Err     error
}

type Session struct {
	Mode         Mode
	Interactive  bool
	Coefficients ml.Coefficients
	Done         bool
}

func NewSession(mode Mode, interactive bool, c ml.Coefficients) Session {
	return Session{Mode: mode, Interactive: interactive, Coefficients: c}
}

func (s Session) Prompt() string {
	if s.Mode == ModeBudget {
		return "What is your budget? (press q to quit)"
	}
	return "What is the mileage of your car? (press q to quit)"
}

// Handle processes one line. A non interactive session is done after its
// first line whatever that line was.
func (s Session) Handle(line string) (Reply, Session) {
	if s.Done {
		return Reply{}, s
	}
	if !s.Interactive {
		s.Done = true
	}
	if line == QuitCommand {
		s.Done = true
		return Reply{}, s
	}

	value, err := ParseInput(line)
	if err != nil {
		return Reply{Message: "Wrong input. It must be an integer", Err: err}, s
	}

	if s.Mode == ModeBudget {
		km, err := ml.ExpectedInputForTargetOutput(float64(value), s.Coefficients)
		if errors.Is(err, ml.ErrOutOfRange) {
			return Reply{Message: "Error. The mileage for this budget is out of range.", Err: err}, s
		}
		if err != nil {
			return Reply{Message: "Error. Theta1 = 0. Try to train the algorithm.", Err: err}, s
		}
		return Reply{Message: fmt.Sprintf("With this budget look for a car with a mileage of %d km.", km)}, s
	}

	price, err := ml.Truncate(ml.Predict(float64(value), s.Coefficients))
	if err != nil {
		return Reply{Message: "Error. The estimated price is out of range.", Err: err}, s
	}
	return Reply{Message: fmt.Sprintf("The estimated price of your car is: %d euros.", price)}, s
}

// ParseInput accepts a non-empty string of ASCII digits.
func ParseInput(line string) (int64, error) {
	if line == "" {
		return 0, ErrInvalidInput
	}
	for _, r := range line {
		if r < '0' || r > '9' {
			return 0, ErrInvalidInput
		}
	}
	value, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return value, nil
}
