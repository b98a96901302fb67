package diag

import (
	"cxxsema/internal/source"
)

// Note points at a related location, such as an earlier declaration.
type Note struct {
	Span source.Span `json:"span" msgpack:"span"`
	Msg  string      `json:"msg" msgpack:"msg"`
}

type Diagnostic struct {
	Severity Severity    `json:"severity" msgpack:"severity"`
	Code     Code        `json:"code" msgpack:"code"`
	Message  string      `json:"message" msgpack:"message"`
	Primary  source.Span `json:"primary" msgpack:"primary"`
	Notes    []Note      `json:"notes,omitempty" msgpack:"notes,omitempty"`
}
