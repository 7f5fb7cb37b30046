// api/models/models.go
package models

import (
	"strconv"
	"strings"

	"github.com/devadigapratham/printd/errlog"
	"github.com/devadigapratham/printd/gcode"
)

// Millimeters always encodes with a decimal point, so 10 is sent as 10.0
type Millimeters float64

// MarshalJSON implements json.Marshaler
func (m Millimeters) MarshalJSON() ([]byte, error) {
	s := strconv.FormatFloat(float64(m), 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return []byte(s), nil
}

// Position is the body of the position routes
type Position struct {
	Position Millimeters `json:"position"`
}

// StartRequest is the body of POST /gcode/start
type StartRequest struct {
	Path string `json:"path" binding:"required"`
}

// Status is the body of GET /gcode. Path and line are only present while a
// job exists.
type Status struct {
	Status string  `json:"status"`
	Path   *string `json:"path,omitempty"`
	Line   *int    `json:"line,omitempty"`
}

// NewStatus converts an engine snapshot
func NewStatus(st gcode.Status) Status {
	out := Status{Status: string(st.State)}
	if st.Active() {
		path, line := st.Path, st.Line
		out.Path = &path
		out.Line = &line
	}
	return out
}

// ErrorPage is the body of GET /errors
type ErrorPage struct {
	Page   int            `json:"page"`
	Errors []errlog.Entry `json:"errors"`
}
