package transcribe

import (
	"fmt"
	"html"
	"io"
)

type WebVTTOptions struct {
	OmitSpeaker bool
}

func (o *WebVTTOptions) IsValid() error {
	return nil
}

func (o *WebVTTOptions) SetDefaults() {
	o.OmitSpeaker = false
}

func (c Conversation) WebVTT(w io.Writer, opts WebVTTOptions) error {
	_, err := fmt.Fprintf(w, "WEBVTT\n")
	if err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	for _, s := range c {
		s.sanitize(html.EscapeString)

		_, err = fmt.Fprintf(w, "\n%s --> %s\n", vttTS(secTS(s.StartSec), true), vttTS(secTS(s.EndSec), true))
		if err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
		tmpl := "<v %[1]s>(%[1]s) %[2]s\n"
		if opts.OmitSpeaker {
			tmpl = "%[2]s\n"
		}
		_, err = fmt.Fprintf(w, tmpl, s.DisplayName(), s.Text)
		if err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}

	return nil
}
