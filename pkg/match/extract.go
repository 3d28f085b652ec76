package match

import (
	"time"

	"github.com/jwebster45206/boardgame-console/pkg/ruledoc"
)

// ExtractLog flattens a response fragment into log entries. Every
// "description" value becomes an entry tagged tag and every "result" value an
// entry tagged result, at any depth, in document order. Null values are skipped.
func ExtractLog(n *ruledoc.Node, tag LogType, at time.Time) []LogEntry {
	var out []LogEntry
	walkLog(n, tag, at, &out)
	return out
}

func walkLog(n *ruledoc.Node, tag LogType, at time.Time, out *[]LogEntry) {
	switch {
	case n.IsSequence():
		for _, item := range n.Items {
			if item.IsMapping() || item.IsSequence() {
				walkLog(item, tag, at, out)
			}
		}
	case n.IsMapping():
		for _, f := range n.Fields {
			v := f.Value
			switch {
			case v.IsMapping() || v.IsSequence():
				walkLog(v, tag, at, out)
			case v.IsNull():
			case f.Key == "description":
				*out = append(*out, LogEntry{Message: v.Text(), Type: tag, At: at})
			case f.Key == "result":
				*out = append(*out, LogEntry{Message: v.Text(), Type: LogResult, At: at})
			}
		}
	}
}
