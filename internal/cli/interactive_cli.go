// Package cli runs study sessions on a terminal.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
)

var errEnd = errors.New("end")

// InteractiveCLI contains the terminal plumbing shared by interactive commands
type InteractiveCLI struct {
	stdinReader  *bufio.Reader
	stdoutWriter io.Writer
	bold         *color.Color
	italic       *color.Color
	green        *color.Color
	red          *color.Color
}

func newInteractiveCLI(in io.Reader, out io.Writer) *InteractiveCLI {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &InteractiveCLI{
		stdinReader:  bufio.NewReader(in),
		stdoutWriter: out,
		bold:         color.New(color.Bold),
		italic:       color.New(color.Italic),
		green:        color.New(color.FgGreen),
		red:          color.New(color.FgRed),
	}
}

type Session interface {
	Session(ctx context.Context) error
}

// Run calls session.Session until it reports the end, fails, or the user interrupts.
func (cli *InteractiveCLI) Run(ctx context.Context, session Session) error {
	ctx, cancel := signal.NotifyContext(
		ctx,
		os.Interrupt,
	)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)

		for ctx.Err() == nil {
			if err := session.Session(ctx); err != nil {
				if !errors.Is(err, errEnd) {
					errCh <- err
				}
				return
			}
		}
	}()
	select {
	case <-ctx.Done():
		fmt.Fprintln(cli.stdoutWriter, "Received interrupt signal, exiting...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("error: %w", err)
		}
	}
	return nil
}

func (cli *InteractiveCLI) readLine() (string, error) {
	line, err := cli.stdinReader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// ask prompts until the answer is one of choices.
func (cli *InteractiveCLI) ask(prompt string, choices ...string) (string, error) {
	for {
		fmt.Fprint(cli.stdoutWriter, prompt)
		answer, err := cli.readLine()
		if err != nil {
			return "", err
		}
		answer = strings.ToLower(answer)
		for _, c := range choices {
			if answer == c {
				return answer, nil
			}
		}
		fmt.Fprintf(cli.stdoutWriter, "Please answer one of %s\n", strings.Join(choices, "/"))
	}
}
