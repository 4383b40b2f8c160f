package auth

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// LoadUsers reads a credential file of "user:key" lines and returns the
// user -> key table. Blank lines are ignored and malformed lines are skipped
// with a warning rather than aborting the load: one broken entry must not
// lock every user out.
func LoadUsers(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open users file %q: %w", path, err)
	}
	defer f.Close()

	users := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		user, key, found := strings.Cut(line, ":")
		if !found || user == "" || key == "" {
			slog.Warn("skipping malformed user entry",
				"file", path,
				"line", lineNo,
			)
			continue
		}
		if _, dup := users[user]; dup {
			slog.Warn("duplicate user entry, keeping the last one",
				"file", path,
				"user", user,
			)
		}
		users[user] = key
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read users file %q: %w", path, err)
	}

	slog.Info("loaded authorized users", "file", path, "count", len(users))
	return users, nil
}
