package inspector

// LogFilter is a pure predicate over deserialized log entries. Filters are
// side-effect-free so multiple registrations can share one instance.
// Supplying several filters on a single registration ANDs them together.
type LogFilter func(LogEntry) bool

func (f LogFilter) predicate() predicate {
	return func(value any) bool {
		entry, ok := value.(LogEntry)
		return ok && f(entry)
	}
}

// ByLogLevel builds a filter accepting entries at exactly the named level.
func ByLogLevel(name string) (LogFilter, error) {
	level, err := ParseLevel(name)
	if err != nil {
		return nil, err
	}
	return func(entry LogEntry) bool {
		return entry.Level == level
	}, nil
}

func byEntryType(entryType EntryType) LogFilter {
	return func(entry LogEntry) bool {
		return entry.Type == entryType
	}
}
