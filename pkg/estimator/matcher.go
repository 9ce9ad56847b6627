package estimator

import (
	"regexp"
	"strconv"
)

// Matcher extracts a frame number from one line of renderer output.
type Matcher func(line string) (frame int, ok bool)

// RegexpMatcher returns a Matcher reporting the first capture group of re
// as the frame number. A capture that does not parse as an int is treated
// as no match.
func RegexpMatcher(re *regexp.Regexp) Matcher {
	return func(line string) (int, bool) {
		m := re.FindStringSubmatch(line)
		if len(m) < 2 {
			return 0, false
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return n, true
	}
}

var (
	reFra      = regexp.MustCompile(`(?i)\bFra[:\s]+(\d+)\b`)
	reFrame    = regexp.MustCompile(`(?i)\bFrame[:\s]+(\d+)\b`)
	reSaved    = regexp.MustCompile(`Saved:.*?(\d+)(?:\D|$)`)
	reFinished = regexp.MustCompile(`(?i)Finished rendering.*?(\d+)`)
)

// DefaultMatchers returns the Blender matchers in priority order: the
// "Fra:" status line, "Frame" markers, "Saved:" output notices and the
// "Finished rendering" summary.
func DefaultMatchers() []Matcher {
	return []Matcher{
		RegexpMatcher(reFra),
		RegexpMatcher(reFrame),
		RegexpMatcher(reSaved),
		RegexpMatcher(reFinished),
	}
}

// Match runs matchers in order and returns the first frame found.
func Match(matchers []Matcher, line string) (int, bool) {
	for _, m := range matchers {
		if frame, ok := m(line); ok {
			return frame, true
		}
	}
	return 0, false
}
