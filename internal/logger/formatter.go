package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FixedFormatWriter turns zerolog JSON lines into fixed-width columns:
//
//	2026-02-26 12:00:00.000 [INF] [exporter    ] Scrape finished samples=3
//	2026-02-26 12:00:01.200 [WRN] [exporter    ] Cannot process device, skipping device=Samsung_SSD_870_S5Y...
//
// The device field, when present, is always the first extra field.
type FixedFormatWriter struct {
	w io.Writer
}

// NewFixedFormatWriter wraps w.
func NewFixedFormatWriter(w io.Writer) *FixedFormatWriter {
	return &FixedFormatWriter{w: w}
}

const (
	componentWidth  = 12
	timestampLayout = "2006-01-02 15:04:05.000"
)

var levelAbbrev = map[string]string{
	zerolog.TraceLevel.String(): "TRC",
	zerolog.DebugLevel.String(): "DBG",
	zerolog.InfoLevel.String():  "INF",
	zerolog.WarnLevel.String():  "WRN",
	zerolog.ErrorLevel.String(): "ERR",
	zerolog.FatalLevel.String(): "FTL",
	zerolog.PanicLevel.String(): "PNC",
}

func (f *FixedFormatWriter) Write(p []byte) (int, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(p, &fields); err != nil {
		return f.w.Write(p)
	}

	ts := popString(fields, zerolog.TimestampFieldName)
	lvl := levelAbbrev[popString(fields, zerolog.LevelFieldName)]
	if lvl == "" {
		lvl = "???"
	}
	comp := popString(fields, "component")
	if len(comp) > componentWidth {
		comp = comp[:componentWidth]
	}
	msg := popString(fields, zerolog.MessageFieldName)
	delete(fields, zerolog.CallerFieldName)

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%-*s] %s", formatTimestamp(ts), lvl, componentWidth, comp, msg)
	if extra := formatExtra(fields); extra != "" {
		b.WriteByte(' ')
		b.WriteString(extra)
	}
	b.WriteByte('\n')

	_, err := io.WriteString(f.w, b.String())
	// zerolog treats a short write as an error
	return len(p), err
}

func popString(fields map[string]interface{}, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	delete(fields, key)
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// formatTimestamp renders an RFC3339 timestamp in local wall-clock form with
// millisecond precision. Unparseable input is padded to the column width.
func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		if len(ts) > len(timestampLayout) {
			return ts[:len(timestampLayout)]
		}
		return ts + strings.Repeat(" ", len(timestampLayout)-len(ts))
	}
	return t.Format(timestampLayout)
}

func formatExtra(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k != "device" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if _, ok := fields["device"]; ok {
		keys = append([]string{"device"}, keys...)
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		s := fmt.Sprintf("%v", fields[k])
		if strings.ContainsAny(s, " \t\n\"") {
			parts = append(parts, fmt.Sprintf("%s=%q", k, s))
		} else {
			parts = append(parts, k+"="+s)
		}
	}
	return strings.Join(parts, " ")
}
