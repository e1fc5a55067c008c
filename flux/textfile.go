package flux

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReadIntervalsFile loads revolutions from a plain text capture: one
// flux interval in ticks per line, '#' starting a comment, a blank line
// ending one revolution and starting the next. The clock the ticks were
// sampled at is supplied by the caller.
func ReadIntervalsFile(path string, clockHz uint64) ([]*Revolution, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open flux file: %w", err)
	}
	defer file.Close()

	var revs []*Revolution
	var transitions []uint64
	var at uint64

	flush := func() {
		if len(transitions) == 0 {
			return
		}
		revs = append(revs, &Revolution{
			Transitions: transitions,
			IndexTicks:  at,
			ClockHz:     clockHz,
		})
		transitions = nil
		at = 0
	}

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			flush()
			continue
		}
		interval, err := strconv.ParseUint(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: bad interval %q", path, line, text)
		}
		if interval == 0 {
			return nil, fmt.Errorf("%s:%d: zero interval", path, line)
		}
		at += interval
		transitions = append(transitions, at)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read flux file: %w", err)
	}
	flush()

	if len(revs) == 0 {
		return nil, fmt.Errorf("%s: no flux intervals", path)
	}
	return revs, nil
}
