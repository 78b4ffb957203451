package shell

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Match is the result of a command pattern matching a confirmed exchange.
type Match struct {
	Command  string // command text as sent
	Response string // full reply text, informational lines included
	Verb     string // "get", "set", or empty for actions
	Index    int    // instance index, NoIndex for single-instance fields
	Args     string // value of a set, or trailing action arguments
}

// Pattern matches command text for a single parameter or action.
type Pattern struct {
	stem    string
	indexed bool
	re      *regexp.Regexp
}

// CommandPattern returns a pattern accepting "<stem> get [i]" and
// "<stem> set [i] <value>". When indexed is true the index is required.
func CommandPattern(stem string, indexed bool) Pattern {
	q := regexp.QuoteMeta(stem)
	var expr string
	if indexed {
		expr = `^` + q + ` (get|set) (\d+)(?: (.+))?$`
	} else {
		expr = `^` + q + ` (get|set)(?: (.+))?$`
	}
	return Pattern{stem: stem, indexed: indexed, re: regexp.MustCompile(expr)}
}

// ActionPattern returns a pattern for a verbless command such as
// "npmx ship mode ship", with optional trailing arguments.
func ActionPattern(stem string) Pattern {
	return Pattern{
		stem: stem,
		re:   regexp.MustCompile(`^` + regexp.QuoteMeta(stem) + `(?: (.+))?$`),
	}
}

// Stem returns the command stem the pattern was built for.
func (p Pattern) Stem() string { return p.stem }

// Match reports whether command belongs to the pattern and extracts verb,
// index and arguments.
func (p Pattern) Match(command string) (Match, bool) {
	if p.re == nil {
		return Match{}, false
	}
	g := p.re.FindStringSubmatch(strings.TrimSpace(command))
	if g == nil {
		return Match{}, false
	}

	m := Match{Command: command, Index: NoIndex}
	switch {
	case len(g) == 2: // action
		m.Args = g[1]
	case p.indexed:
		m.Verb = g[1]
		idx, err := strconv.Atoi(g[2])
		if err != nil {
			return Match{}, false
		}
		m.Index = idx
		m.Args = g[3]
	default:
		m.Verb = g[1]
		m.Args = g[2]
	}

	// A get carries no value; a set must carry one.
	if m.Verb == VerbGet && m.Args != "" {
		return Match{}, false
	}
	if m.Verb == VerbSet && m.Args == "" {
		return Match{}, false
	}
	return m, true
}

var replyValue = regexp.MustCompile(`(?m)^(?:Value|Success):[ \t]*(.*?)[ \t]*\.?[ \t]*$`)

// ReplyValue extracts the payload of the last Value: or Success: line in a
// reply. Get and set echoes are treated identically.
func ReplyValue(reply string) (string, error) {
	all := replyValue.FindAllStringSubmatch(reply, -1)
	if len(all) == 0 {
		return "", newParseError("reply", reply)
	}
	return all[len(all)-1][1], nil
}

// firstField returns the numeric part of a payload such as "4200 mV".
func firstField(payload string) string {
	f := strings.Fields(payload)
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

// Codec converts between a typed field value and its wire form. Decode
// takes the whole reply text. Check, when set, validates a value before it
// is encoded for a write.
type Codec[V any] struct {
	Decode func(reply string) (V, error)
	Encode func(v V) string
	Check  func(v V) error
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// Scaled decodes an integer wire value divided by factor and rounded to
// decimals, and encodes by multiplying back to an integer.
func Scaled(factor float64, decimals int) Codec[float64] {
	return Codec[float64]{
		Decode: func(reply string) (float64, error) {
			payload, err := ReplyValue(reply)
			if err != nil {
				return 0, err
			}
			n, err := strconv.ParseFloat(firstField(payload), 64)
			if err != nil {
				return 0, newParseError("number", payload)
			}
			return round(n/factor, decimals), nil
		},
		Encode: func(v float64) string {
			return strconv.FormatInt(int64(math.Round(v*factor)), 10)
		},
	}
}

// Millivolts maps a wire value in mV to volts.
func Millivolts(decimals int) Codec[float64] { return Scaled(1000, decimals) }

// Milliamps maps a wire value in mA to amperes.
func Milliamps(decimals int) Codec[float64] { return Scaled(1000, decimals) }

// Number keeps the wire unit and rounds to decimals.
func Number(decimals int) Codec[float64] {
	return Codec[float64]{
		Decode: Scaled(1, decimals).Decode,
		Encode: func(v float64) string {
			return strconv.FormatFloat(round(v, decimals), 'f', -1, 64)
		},
	}
}

// Integer decodes a plain integer such as a duration in ms or a current in mA.
var Integer = Codec[int]{
	Decode: func(reply string) (int, error) {
		payload, err := ReplyValue(reply)
		if err != nil {
			return 0, err
		}
		f := firstField(payload)
		n, err := strconv.Atoi(f)
		if err != nil {
			fl, ferr := strconv.ParseFloat(f, 64)
			if ferr != nil {
				return 0, newParseError("integer", payload)
			}
			n = int(math.Round(fl))
		}
		return n, nil
	},
	Encode: strconv.Itoa,
}

// Boolean decodes 0/1 and the usual textual forms. It encodes as 0/1.
var Boolean = Codec[bool]{
	Decode: func(reply string) (bool, error) {
		payload, err := ReplyValue(reply)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(firstField(payload)) {
		case "1", "true", "on", "enabled", "enable":
			return true, nil
		case "0", "false", "off", "disabled", "disable":
			return false, nil
		}
		return false, newParseError("bool", payload)
	},
	Encode: func(v bool) string {
		if v {
			return "1"
		}
		return "0"
	},
}

// EnumValue is one entry of an enumerated field.
type EnumValue struct {
	Name string // value used in state
	Wire string // value sent to the device
}

// Enum decodes a reply holding either the wire value, the name, or a
// position into values. It encodes a name to its wire value. Names are
// matched without regard to case, and Check rejects names not in values.
func Enum(values ...EnumValue) Codec[string] {
	return Codec[string]{
		Decode: func(reply string) (string, error) {
			payload, err := ReplyValue(reply)
			if err != nil {
				return "", err
			}
			f := firstField(payload)
			for _, v := range values {
				if strings.EqualFold(f, v.Wire) || strings.EqualFold(f, v.Name) ||
					strings.EqualFold(payload, v.Name) {
					return v.Name, nil
				}
			}
			if i, err := strconv.Atoi(f); err == nil && i >= 0 && i < len(values) {
				return values[i].Name, nil
			}
			return "", newParseError("enum", payload)
		},
		Encode: func(name string) string {
			for _, v := range values {
				if strings.EqualFold(v.Name, name) {
					return v.Wire
				}
			}
			return name
		},
		Check: func(name string) error {
			for _, v := range values {
				if strings.EqualFold(v.Name, name) {
					return nil
				}
			}
			return &ValueError{Value: name, Allowed: Names(values...)}
		},
	}
}

// Names returns the state names of an enum table in order.
func Names(values ...EnumValue) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.Name
	}
	return out
}

var quoted = regexp.MustCompile(`"([^"]*)"`)

// Quoted decodes a payload of the form "name". An unquoted payload is
// returned verbatim. It encodes with surrounding quotes.
var Quoted = Codec[string]{
	Decode: func(reply string) (string, error) {
		payload, err := ReplyValue(reply)
		if err != nil {
			return "", err
		}
		if m := quoted.FindStringSubmatch(payload); m != nil {
			return m[1], nil
		}
		return payload, nil
	},
	Encode: func(v string) string { return `"` + v + `"` },
}

// Colon decodes a colon-delimited payload such as "npm1300:2".
var Colon = Codec[[]string]{
	Decode: func(reply string) ([]string, error) {
		payload, err := ReplyValue(reply)
		if err != nil {
			return nil, err
		}
		f := firstField(payload)
		if f == "" {
			return nil, newParseError("colon list", payload)
		}
		return strings.Split(f, ":"), nil
	},
	Encode: func(v []string) string { return strings.Join(v, ":") },
}

// ParseQuotedAll returns every quoted string in text, in order. Multi-line
// listings such as the stored battery models use this.
func ParseQuotedAll(text string) []string {
	var out []string
	for _, m := range quoted.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// ParseKeyValues parses space separated "key=value" pairs, as printed in
// profiling samples.
func ParseKeyValues(text string) map[string]string {
	out := make(map[string]string)
	for _, f := range strings.Fields(text) {
		k, v, ok := strings.Cut(f, "=")
		if ok {
			out[k] = v
		}
	}
	return out
}
