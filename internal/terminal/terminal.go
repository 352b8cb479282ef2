// Package terminal provides single-key console interaction: confirmation
// prompts, pauses, and cancellable key waits for supervised uninstalls.
package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Decision is the outcome of a three-way confirmation prompt.
type Decision int

const (
	DecisionYes Decision = iota
	DecisionNo
	DecisionCancel
)

const (
	keyCtrlC  = 0x03
	keyEscape = 0x1b
)

// A single stdin reader feeds all key waits. Spawning a fresh read per call
// would leave an abandoned read pending after every cancelled wait, and that
// read would swallow the next keypress.
var (
	readerOnce sync.Once
	keys       chan byte
)

func startReader() {
	keys = make(chan byte)
	go func() {
		var buf [1]byte
		for {
			n, err := os.Stdin.Read(buf[:])
			if err != nil {
				close(keys)
				return
			}
			if n == 1 {
				keys <- buf[0]
			}
		}
	}()
}

// readRawKey returns the next keypress, restoring the terminal mode before
// returning.
func readRawKey(ctx context.Context) (byte, error) {
	readerOnce.Do(startReader)

	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return 0, fmt.Errorf("enter raw mode: %w", err)
	}
	defer term.Restore(fd, old)

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case b, ok := <-keys:
		if !ok {
			return 0, io.EOF
		}
		return b, nil
	}
}

// ReadKey returns the next raw keypress.
func ReadKey(ctx context.Context) (byte, error) {
	return readRawKey(ctx)
}

// WaitForKey blocks until any key is pressed or ctx is cancelled.
func WaitForKey(ctx context.Context) error {
	_, err := readRawKey(ctx)
	return err
}

// Pause prints msg and waits for any key.
func Pause(msg string) {
	fmt.Print(msg)
	WaitForKey(context.Background())
	fmt.Print("\r\n")
}

// Confirm prints prompt and reads keys until one resolves to a decision:
// y or Enter confirms, n declines, Esc, c or Ctrl+C cancels the whole run.
func Confirm(ctx context.Context, prompt string) (Decision, error) {
	fmt.Printf("%s (y/n/c) ", prompt)
	for {
		key, err := readRawKey(ctx)
		if err != nil {
			return DecisionCancel, err
		}
		switch key {
		case 'y', 'Y', '\r', '\n':
			fmt.Print("y\r\n")
			return DecisionYes, nil
		case 'n', 'N':
			fmt.Print("n\r\n")
			return DecisionNo, nil
		case 'c', 'C', keyEscape, keyCtrlC:
			fmt.Print("c\r\n")
			return DecisionCancel, nil
		}
	}
}
