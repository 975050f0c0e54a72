package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// PromptForText asks for a line of input on stdin, returning def when the
// user enters nothing.
func PromptForText(label, def string) string {
	return promptLine(os.Stdin, os.Stdout, label, def)
}

// PromptForStyle asks for a style id on stdin. It returns 0 when the input
// is empty or not a number, which generation rejects as a missing style.
func PromptForStyle() int {
	input := promptLine(os.Stdin, os.Stdout, "Style id", "")
	id, err := strconv.Atoi(input)
	if err != nil {
		return 0
	}
	return id
}

func promptLine(in io.Reader, out io.Writer, label, def string) string {
	if def != "" {
		fmt.Fprintf(out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(out, "%s: ", label)
	}

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		if err != io.EOF {
			log.Warn().Err(err).Str("label", label).Msg("Failed to read input, using default")
		}
		return def
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return def
	}
	return input
}
