package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cxxsema/internal/encoding"
)

var unmangleCmd = &cobra.Command{
	Use:   "unmangle [flags] <encoding>...",
	Short: "Render encodings as C++ declarations",
	Long: `Render encodings, written in their debug form where a length byte is
shown as [n] (Q[2][1]A[1]x is A::x), as C++ source text.
With --encode the arguments are C++ names and their encoding is printed.`,
	Example: `  cxxsema unmangle PFi_i
  cxxsema unmangle --encode 'std::vector'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUnmangle,
}

var (
	unmangleEncode bool
	unmangleDecode bool
)

func init() {
	unmangleCmd.Flags().BoolVar(&unmangleEncode, "encode", false, "treat arguments as qualified C++ names")
	unmangleCmd.Flags().BoolVar(&unmangleDecode, "decode", false, "also print the structural decoding of type encodings")
}

type unmangleReport struct {
	Input     string `json:"input" yaml:"input"`
	Encoding  string `json:"encoding" yaml:"encoding"`
	Unmangled string `json:"unmangled,omitempty" yaml:"unmangled,omitempty"`
	Decoded   string `json:"decoded,omitempty" yaml:"decoded,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runUnmangle(cmd *cobra.Command, args []string) error {
	reports := make([]unmangleReport, 0, len(args))
	bad := false
	for _, arg := range args {
		r := unmangleOne(arg)
		if r.Error != "" {
			bad = true
		}
		reports = append(reports, r)
	}

	if structured() {
		if err := writeStructured(cmd.OutOrStdout(), reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			if r.Error != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", r.Input, r.Error)
				continue
			}
			if unmangleEncode {
				fmt.Fprintln(cmd.OutOrStdout(), r.Encoding)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), r.Unmangled)
			}
			if r.Decoded != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", r.Decoded)
			}
		}
	}
	if bad {
		return errFailed
	}
	return nil
}

func unmangleOne(arg string) unmangleReport {
	r := unmangleReport{Input: arg}
	var enc encoding.Encoding
	if unmangleEncode {
		enc = encoding.ParseQualified(arg)
	} else {
		var err error
		if enc, err = parseDebugEncoding(arg); err != nil {
			r.Error = err.Error()
			return r
		}
	}
	r.Encoding = enc.String()
	text, err := enc.Unmangle()
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Unmangled = text
	if unmangleDecode {
		if t, err := encoding.Decode(enc); err == nil {
			r.Decoded = structure(t)
		}
	}
	return r
}

// parseDebugEncoding reverses Encoding.String: "[n]" becomes the length
// byte 0x80+n, everything else is taken verbatim.
func parseDebugEncoding(s string) (encoding.Encoding, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '[' {
			if c >= 0x80 {
				return "", fmt.Errorf("offset %d: non-ASCII byte, use the [n] form", i)
			}
			b.WriteByte(c)
			continue
		}
		end := strings.IndexByte(s[i:], ']')
		if end < 0 {
			return "", fmt.Errorf("offset %d: unterminated length", i)
		}
		n, err := strconv.Atoi(s[i+1 : i+end])
		if err != nil || n < 0 || n > 0x7f {
			return "", fmt.Errorf("offset %d: bad length %q", i, s[i+1:i+end])
		}
		b.WriteByte(byte(0x80 + n))
		i += end
	}
	return encoding.Encoding(b.String()), nil
}

// structure renders a decoded type as nested kinds, e.g.
// pointer(function(int) -> int).
func structure(t *encoding.Type) string {
	if t == nil {
		return "?"
	}
	list := func(ts []*encoding.Type) string {
		parts := make([]string, len(ts))
		for i, e := range ts {
			parts[i] = structure(e)
		}
		return strings.Join(parts, ", ")
	}
	switch t.Kind {
	case encoding.KindBuiltin, encoding.KindName:
		return t.String()
	case encoding.KindQualified:
		return "qualified(" + list(t.Components) + ")"
	case encoding.KindTemplate:
		return "template " + t.Ident + "<" + list(t.Args) + ">"
	case encoding.KindModified:
		return "modified " + string(t.Tag) + "(" + structure(t.Elem) + ")"
	case encoding.KindArray:
		return "array[" + t.Extent + "](" + structure(t.Elem) + ")"
	case encoding.KindFunction:
		return "function(" + list(t.Params) + ") -> " + structure(t.Return)
	case encoding.KindMember:
		return "member " + structure(t.Class) + "(" + structure(t.Elem) + ")"
	default:
		return t.Kind.String() + "(" + structure(t.Elem) + ")"
	}
}
