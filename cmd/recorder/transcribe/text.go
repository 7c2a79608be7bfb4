package transcribe

import (
	"fmt"
	"io"
)

func (c Conversation) Text(w io.Writer) error {
	for i, s := range c {
		s.sanitize()

		nl := "\n"
		if i == 0 {
			nl = ""
		}
		_, err := fmt.Fprintf(w, "%s%v -> %v\n", nl, vttTS(secTS(s.StartSec), false), vttTS(secTS(s.EndSec), false))
		if err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n%s\n", s.DisplayName(), s.Text)
		if err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}

	return nil
}
