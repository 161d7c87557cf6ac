package progress

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/m-mizutani/fplfetch/pkg/domain/interfaces"
	"github.com/schollz/progressbar/v3"
)

// Factory creates byte progress bars written to a single output
type Factory struct {
	output      io.Writer
	description string
	throttle    time.Duration
}

// Option is a functional option for Factory
type Option func(*Factory)

// WithOutput sets where progress bars are rendered. Default: os.Stdout
func WithOutput(w io.Writer) Option {
	return func(f *Factory) {
		f.output = w
	}
}

// WithDescription sets the label printed in front of the bar
func WithDescription(desc string) Option {
	return func(f *Factory) {
		f.description = desc
	}
}

// WithThrottle sets the minimum interval between redraws
func WithThrottle(d time.Duration) Option {
	return func(f *Factory) {
		f.throttle = d
	}
}

// NewFactory creates a progress bar factory
func NewFactory(opts ...Option) *Factory {
	f := &Factory{
		output:      os.Stdout,
		description: "downloading",
		throttle:    65 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Start creates a bar for total bytes. A total of -1 (or 0) renders a spinner
// with the byte count only.
func (f *Factory) Start(total int64) interfaces.Progress {
	if total <= 0 {
		total = -1
	}

	out := f.output
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(f.description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(10),
		progressbar.OptionThrottle(f.throttle),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
	)

	return &Bar{bar: bar}
}

// Bar is a single download's progress indicator
type Bar struct {
	bar *progressbar.ProgressBar
}

// Add advances the bar by n bytes. It fails once the count passes a known total.
func (b *Bar) Add(n int) error {
	return b.bar.Add(n)
}

// Close finishes the bar and releases the line
func (b *Bar) Close() error {
	return b.bar.Close()
}
