package esm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"golang.org/x/sync/errgroup"
)

// Prompter asks the operator to confirm a bulk operation.
type Prompter interface {
	Confirm(message string) (bool, error)
}

type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompter returns a Prompter reading y/n answers from in.
func NewTerminalPrompter(in io.Reader, out io.Writer) Prompter {
	return &terminalPrompter{in: bufio.NewReader(in), out: out}
}

func (p *terminalPrompter) Confirm(message string) (bool, error) {
	if _, err := fmt.Fprintf(p.out, "%s [y/N]: ", message); err != nil {
		return false, err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// PerformOptions controls Perform.
type PerformOptions struct {
	// Confirm asks the Prompter before starting.
	Confirm bool
	// Async runs up to Workers calls at once. Workers must be positive.
	Async   bool
	Workers int
	// Progress draws a progress bar unless the performer is quiet.
	Progress bool
	// Message labels the confirmation prompt and the progress bar.
	Message string
}

// Performer runs bulk operations over items.
type Performer struct {
	Prompter Prompter
	Progress io.Writer
	Quiet    bool
}

// Perform calls fn for every item and returns the results in input order,
// also when running asynchronously. The first error aborts the run: pending
// calls see a cancelled context and the error is returned.
func Perform[T, R any](ctx context.Context, p *Performer, items []T, fn func(context.Context, T) (R, error), opts PerformOptions) ([]R, error) {
	if opts.Async && opts.Workers <= 0 {
		return nil, configErr("workers", "asynchronous perform needs a positive worker count, got %d", opts.Workers)
	}
	if p == nil {
		p = &Performer{}
	}

	if opts.Confirm {
		if p.Prompter == nil {
			return nil, configErr("prompter", "confirmation requested without a prompter")
		}
		msg := opts.Message
		if msg == "" {
			msg = "Perform operation"
		}
		ok, err := p.Prompter.Confirm(fmt.Sprintf("%s on %d items?", msg, len(items)))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrUserCancelled
		}
	}

	bar := p.newBar(opts, len(items))
	defer bar.finish()

	results := make([]R, len(items))

	if !opts.Async {
		for i, item := range items {
			r, err := fn(ctx, item)
			if err != nil {
				return nil, err
			}
			results[i] = r
			bar.step()
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, item := range items {
		g.Go(func() error {
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			bar.step()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type progressBar struct {
	mu      sync.Mutex
	out     io.Writer
	model   progress.Model
	label   string
	total   int
	done    int
	enabled bool
}

func (p *Performer) newBar(opts PerformOptions, total int) *progressBar {
	b := &progressBar{total: total, label: opts.Message}
	if !opts.Progress || p.Quiet || p.Progress == nil || total == 0 {
		return b
	}
	b.enabled = true
	b.out = p.Progress
	b.model = progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
	b.draw()
	return b
}

func (b *progressBar) step() {
	if !b.enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done++
	b.draw()
}

// draw must be called with mu held or before the bar is shared.
func (b *progressBar) draw() {
	_, _ = fmt.Fprintf(b.out, "\r%s %s %d/%d", b.label, b.model.ViewAs(float64(b.done)/float64(b.total)), b.done, b.total)
}

func (b *progressBar) finish() {
	if !b.enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_, _ = fmt.Fprintln(b.out)
}
