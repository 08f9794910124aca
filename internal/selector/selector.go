// Package selector resolves one release-group from a ranked candidate list,
// either automatically or by asking the user.
package selector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"mbart/internal/release"
)

// ErrCancelled is returned when the user chose to exit. It is not a failure.
var ErrCancelled = errors.New("selection cancelled")

// ErrInvalidSelection is returned for input that is not a listed rank.
var ErrInvalidSelection = errors.New("invalid selection")

// Selector picks one candidate from a ranked list.
type Selector interface {
	Select(ctx context.Context, cands []release.Candidate) (release.Candidate, error)
}

// Auto always picks the highest-ranked candidate.
type Auto struct{}

func (Auto) Select(_ context.Context, cands []release.Candidate) (release.Candidate, error) {
	if len(cands) == 0 {
		return release.Candidate{}, release.ErrNoResults
	}
	return cands[0], nil
}

// ParseChoice interprets one line of user input against a list of n
// candidates and returns the 0-based index. Empty input selects the first
// candidate, "0" cancels.
func ParseChoice(input string, n int) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}
	if input == "0" {
		return 0, ErrCancelled
	}

	num, err := strconv.Atoi(input)
	if err != nil || num < 1 || num > n {
		return 0, fmt.Errorf("%w: %q, enter a number between 1 and %d", ErrInvalidSelection, input, n)
	}
	return num - 1, nil
}

// FormatFunc renders one candidate line; rank is 1-based.
type FormatFunc func(rank int, c release.Candidate) string

// PlainFormat renders "[rank] artists - title (count types)".
func PlainFormat(rank int, c release.Candidate) string {
	return fmt.Sprintf("[%d] %s - %s (%d %s)", rank, c.ArtistLine(), c.Title, c.ReleaseCount, c.TypeLine())
}

// Interactive lists the candidates on Out and reads the choice from In.
type Interactive struct {
	In     io.Reader
	Out    io.Writer
	Format FormatFunc
	Prompt string

	// Erase clears the listing after a valid choice. Only useful on a terminal.
	Erase bool

	// MaxAttempts is the number of prompts before giving up on invalid input.
	MaxAttempts int

	reader *bufio.Reader
}

func (s *Interactive) Select(ctx context.Context, cands []release.Candidate) (release.Candidate, error) {
	if len(cands) == 0 {
		return release.Candidate{}, release.ErrNoResults
	}

	format := s.Format
	if format == nil {
		format = PlainFormat
	}
	prompt := s.Prompt
	if prompt == "" {
		prompt = ">choose release-group: "
	}
	attempts := s.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	if s.reader == nil {
		s.reader = bufio.NewReader(s.In)
	}

	for n, c := range cands {
		fmt.Fprintln(s.Out, format(n+1, c))
	}
	lines := len(cands)

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return release.Candidate{}, err
		}

		fmt.Fprintf(s.Out, "\n%s", prompt)
		lines += 2

		input, err := s.reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && input != "") {
			if errors.Is(err, io.EOF) {
				return release.Candidate{}, ErrCancelled
			}
			return release.Candidate{}, fmt.Errorf("failed to read selection: %w", err)
		}

		idx, err := ParseChoice(input, len(cands))
		if err == nil {
			s.erase(lines)
			return cands[idx], nil
		}
		if errors.Is(err, ErrCancelled) {
			return release.Candidate{}, err
		}
		lastErr = err
		if i+1 < attempts {
			fmt.Fprintln(s.Out, err)
			lines++
		}
	}

	return release.Candidate{}, lastErr
}

// erase moves the cursor up over the listing and clears each line.
func (s *Interactive) erase(lines int) {
	if !s.Erase {
		return
	}
	var b strings.Builder
	for i := 0; i < lines; i++ {
		b.WriteString(ansi.CursorUp(1))
		b.WriteString(ansi.EraseEntireLine)
	}
	b.WriteString("\r")
	io.WriteString(s.Out, b.String())
}
