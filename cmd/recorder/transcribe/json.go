package transcribe

import (
	"encoding/json"
	"fmt"
	"io"
)

func (c Conversation) JSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode: %w", err)
	}
	return nil
}
