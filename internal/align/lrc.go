package align

import (
	"fmt"
	"io"
	"os"
)

// utf8BOM keeps karaoke players that sniff encodings from misreading
// non-ASCII lyrics.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteLRC renders aligned pairs as an LRC file body with [mm:ss.cc] tags.
func WriteLRC(w io.Writer, pairs []Pair) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	for _, pair := range pairs {
		if _, err := fmt.Fprintf(w, "[%s]%s\n", FormatTimestamp(pair.Time), pair.Text); err != nil {
			return err
		}
	}
	return nil
}

// WriteLRCFile writes aligned pairs to path, creating or truncating it.
func WriteLRCFile(path string, pairs []Pair) error {
	file, err := os.Create(path) //nolint:gosec
	if err != nil {
		return err
	}
	if err := WriteLRC(file, pairs); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// FormatTimestamp renders seconds as the LRC mm:ss.cc form.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := int(seconds) / 60
	secs := int(seconds) % 60
	centis := int((seconds - float64(int(seconds))) * 100)
	return fmt.Sprintf("%02d:%02d.%02d", minutes, secs, centis)
}
