package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/udohsolomon/planning-explorer-sub006/internal/slowresponse"
)

// LoadMessages returns the slow-response rotation list based on
// configuration priority: MessagesFile > Messages (inline) > the built-in
// list. Blank lines and lines starting with '#' in the file are skipped.
// Returns an error if MessagesFile is set but unreadable or empty.
func (c *Config) LoadMessages() ([]string, error) {
	if path := c.SlowResponse.MessagesFile; path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("load messages file %q: %w", path, err)
		}
		defer func() { _ = f.Close() }()

		var msgs []string
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			msgs = append(msgs, line)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read messages file %q: %w", path, err)
		}
		if len(msgs) == 0 {
			return nil, fmt.Errorf("messages file %q has no messages", path)
		}
		return msgs, nil
	}

	if len(c.SlowResponse.Messages) > 0 {
		return c.SlowResponse.Messages, nil
	}

	return slowresponse.Messages, nil
}
