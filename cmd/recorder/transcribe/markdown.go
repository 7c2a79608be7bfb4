package transcribe

import (
	"fmt"
	"io"
	"time"
)

type MarkdownOptions struct {
	Title    string
	Date     time.Time
	Duration time.Duration
	Summary  string
}

func (o *MarkdownOptions) SetDefaults() {
	o.Title = "Meeting Transcript"
}

func (c Conversation) Markdown(w io.Writer, opts MarkdownOptions) error {
	title := opts.Title
	if title == "" {
		title = "Meeting Transcript"
	}
	if _, err := fmt.Fprintf(w, "# %s\n\n", title); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	if !opts.Date.IsZero() {
		if _, err := fmt.Fprintf(w, "- Date: %s\n", opts.Date.Format("2006-01-02 15:04")); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}
	if opts.Duration > 0 {
		if _, err := fmt.Fprintf(w, "- Duration: %s\n", opts.Duration.Truncate(time.Second)); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}

	if opts.Summary != "" {
		if _, err := fmt.Fprintf(w, "\n## Summary\n\n%s\n", opts.Summary); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}

	if _, err := fmt.Fprintf(w, "\n---\n\n"); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}

	for _, s := range c {
		s.sanitize()
		_, err := fmt.Fprintf(w, "**[%s] %s:** %s\n\n", vttTS(secTS(s.StartSec), false), s.DisplayName(), s.Text)
		if err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}

	return nil
}
