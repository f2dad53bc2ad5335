package relay

import (
	"math"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// indentJSON matches JSON.stringify(v, null, 2) for values that arrive raw.
var indentJSON = sonic.Config{SortMapKeys: true}.Froze()

// Format renders a console message as a single display line.
func Format(method Method, args []any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = formatArg(arg)
	}
	switch method {
	case MethodInfo:
		return "> ℹ️ " + strings.Join(parts, " ")
	case MethodDebug:
		return "> 🔍 " + strings.Join(parts, " ")
	case MethodTable:
		return "> " + strings.Join(parts, "\n")
	default:
		return "> " + strings.Join(parts, " ")
	}
}

func formatArg(arg any) string {
	switch v := arg.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatNumber(v)
	}
	out, err := indentJSON.MarshalIndent(arg, "", "  ")
	if err != nil {
		return "[unserializable]"
	}
	return string(out)
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Style is the presentation class of a display line.
type Style string

const (
	StyleError   Style = "error"
	StyleWarning Style = "warning"
	StyleInfo    Style = "info"
	StyleDebug   Style = "debug"
	StyleTable   Style = "table"
	StylePlain   Style = "plain"
)

// Classify derives the presentation class of a display line from its prefix.
func Classify(line string) Style {
	switch {
	case strings.HasPrefix(line, "> Error:"):
		return StyleError
	case strings.HasPrefix(line, "> Warning:"):
		return StyleWarning
	case strings.HasPrefix(line, "> ℹ️"):
		return StyleInfo
	case strings.HasPrefix(line, "> 🔍"):
		return StyleDebug
	case strings.HasPrefix(line, "> Table"):
		return StyleTable
	}
	return StylePlain
}
