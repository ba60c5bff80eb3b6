package inspector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/odvcencio/bidriver/pkg/protocol"
	"github.com/odvcencio/bidriver/pkg/remote"
)

// EventLogEntryAdded is the wire category carrying both console and
// javascript log entries; the entry type discriminates them.
const EventLogEntryAdded = "log.entryAdded"

// EntryType discriminates the log entry union.
type EntryType string

const (
	EntryTypeConsole    EntryType = "console"
	EntryTypeJavascript EntryType = "javascript"
)

// Level is a log entry severity.
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// ParseLevel validates a level name. Unrecognized names are an error, not
// a silently-always-false filter.
func ParseLevel(name string) (Level, error) {
	switch Level(name) {
	case LevelDebug, LevelInfo, LevelWarning, LevelError:
		return Level(name), nil
	}
	return "", fmt.Errorf("unknown log level %q", name)
}

// StackFrame is one call frame of a script stack trace.
type StackFrame struct {
	FunctionName string `json:"functionName"`
	URL          string `json:"url"`
	LineNumber   int    `json:"lineNumber"`
	ColumnNumber int    `json:"columnNumber"`
}

// StackTrace carries the frames of a javascript exception entry.
type StackTrace struct {
	CallFrames []StackFrame `json:"callFrames"`
}

// LogEntry is one deserialized log event. Method and Args are populated
// only for console entries, StackTrace only for javascript entries; Level
// and Text are common to both. Entries are immutable once constructed.
type LogEntry struct {
	Type            EntryType
	Level           Level
	Text            string
	Timestamp       int64
	Realm           string
	BrowsingContext string
	Method          string
	Args            []remote.Value
	StackTrace      *StackTrace
}

// LogInspector subscribes consumers to console and script log events.
type LogInspector struct {
	*Inspector
}

// NewLogInspector creates a log inspector bound to a protocol channel.
func NewLogInspector(channel protocol.Channel) *LogInspector {
	return &LogInspector{
		Inspector: newInspector(channel, "log-inspector", map[string]decoder{
			EventLogEntryAdded: decodeLogEntry,
		}),
	}
}

// OnConsoleEntry delivers console API entries matching the filters.
func (li *LogInspector) OnConsoleEntry(ctx context.Context, callback func(LogEntry), filters ...LogFilter) error {
	return li.onLog(ctx, callback, append([]LogFilter{byEntryType(EntryTypeConsole)}, filters...))
}

// OnJavascriptLog delivers script-originated entries matching the filters.
func (li *LogInspector) OnJavascriptLog(ctx context.Context, callback func(LogEntry), filters ...LogFilter) error {
	return li.onLog(ctx, callback, append([]LogFilter{byEntryType(EntryTypeJavascript)}, filters...))
}

// OnJavascriptException delivers uncaught script errors.
func (li *LogInspector) OnJavascriptException(ctx context.Context, callback func(LogEntry), filters ...LogFilter) error {
	exception := []LogFilter{byEntryType(EntryTypeJavascript), func(e LogEntry) bool { return e.Level == LevelError }}
	return li.onLog(ctx, callback, append(exception, filters...))
}

// OnLog spans console and javascript entries; the same filters apply to
// both, written against the union shape.
func (li *LogInspector) OnLog(ctx context.Context, callback func(LogEntry), filters ...LogFilter) error {
	return li.onLog(ctx, callback, filters)
}

func (li *LogInspector) onLog(ctx context.Context, callback func(LogEntry), filters []LogFilter) error {
	preds := make([]predicate, 0, len(filters))
	for _, filter := range filters {
		preds = append(preds, filter.predicate())
	}
	return li.on(ctx, EventLogEntryAdded, func(value any) {
		if entry, ok := value.(LogEntry); ok {
			callback(entry)
		}
	}, preds...)
}

func decodeLogEntry(params json.RawMessage) (any, error) {
	var raw struct {
		Type      string `json:"type"`
		Level     string `json:"level"`
		Text      string `json:"text"`
		Timestamp int64  `json:"timestamp"`
		Source    struct {
			Realm   string `json:"realm"`
			Context string `json:"context"`
		} `json:"source"`
		Method     string            `json:"method"`
		Args       []json.RawMessage `json:"args"`
		StackTrace *StackTrace       `json:"stackTrace"`
	}
	if err := json.Unmarshal(params, &raw); err != nil {
		return nil, fmt.Errorf("decode log entry: %w", err)
	}

	entry := LogEntry{
		Type:            EntryType(raw.Type),
		Level:           Level(raw.Level),
		Text:            raw.Text,
		Timestamp:       raw.Timestamp,
		Realm:           raw.Source.Realm,
		BrowsingContext: raw.Source.Context,
		Method:          raw.Method,
		StackTrace:      raw.StackTrace,
	}
	for _, arg := range raw.Args {
		v, err := remote.Decode(arg)
		if err != nil {
			return nil, fmt.Errorf("decode log entry argument: %w", err)
		}
		entry.Args = append(entry.Args, v)
	}
	return entry, nil
}
