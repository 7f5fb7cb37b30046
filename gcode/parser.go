package gcode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Command is one parsed gcode line
type Command struct {
	Name string
	Args map[string]string
	Raw  string
}

var reParenComment = regexp.MustCompile(`\([^)]*\)`)

// ParseLine parses a gcode line. Blank lines and pure comments return nil.
func ParseLine(line string) *Command {
	ln := line
	if idx := strings.IndexByte(ln, ';'); idx >= 0 {
		ln = ln[:idx]
	}
	ln = strings.TrimSpace(reParenComment.ReplaceAllString(ln, " "))
	// checksum suffix from host software, e.g. "N12 G1 X5*71"
	if idx := strings.IndexByte(ln, '*'); idx >= 0 {
		ln = strings.TrimSpace(ln[:idx])
	}

	fields := strings.Fields(ln)
	if len(fields) > 0 && isLineNumber(fields[0]) {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return nil
	}

	args := make(map[string]string, len(fields)-1)
	for _, f := range fields[1:] {
		k := strings.ToUpper(f[:1])
		args[k] = strings.TrimSpace(f[1:])
	}
	return &Command{Name: normalizeName(fields[0]), Args: args, Raw: line}
}

func isLineNumber(field string) bool {
	if len(field) < 2 || (field[0] != 'N' && field[0] != 'n') {
		return false
	}
	_, err := strconv.Atoi(field[1:])
	return err == nil
}

// normalizeName upper-cases the command and drops leading zeros, so "g01" becomes "G1".
func normalizeName(field string) string {
	name := strings.ToUpper(field)
	if len(name) < 2 {
		return name
	}
	letter, number := name[:1], name[1:]
	if n, err := strconv.Atoi(number); err == nil && n >= 0 {
		return letter + strconv.Itoa(n)
	}
	return name
}

// Has reports whether the argument letter is present
func (c *Command) Has(letter string) bool {
	_, ok := c.Args[letter]
	return ok
}

// Float returns a numeric argument. ok is false when the letter is absent.
func (c *Command) Float(letter string) (v float64, ok bool, err error) {
	raw, present := c.Args[letter]
	if !present {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, true, fmt.Errorf("%w: %s%s in %q", ErrInvalidArgument, letter, raw, strings.TrimSpace(c.Raw))
	}
	return v, true, nil
}
