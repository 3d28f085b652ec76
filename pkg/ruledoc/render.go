package ruledoc

import (
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

const (
	bullet      = "• "
	indentWidth = 2
	minWidth    = 10
)

// Render formats an arbitrary rules tree as text. Sequences become bulleted
// items, mappings become "key: value" blocks with nested values indented, and
// scalars print as-is. A width of 0 disables wrapping.
func Render(n *Node, width int) string {
	if width > 0 && width < minWidth {
		width = minWidth
	}
	return strings.TrimRight(render(n, width), "\n")
}

func render(n *Node, width int) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindSequence:
		var b strings.Builder
		for _, item := range n.Items {
			b.WriteString(prefixBlock(render(item, narrower(width)), bullet))
			b.WriteString("\n")
		}
		return b.String()
	case KindMapping:
		var b strings.Builder
		for _, f := range n.Fields {
			if f.Value.IsScalar() || f.Value == nil {
				b.WriteString(wrap(f.Key+": "+f.Value.Text(), width))
				b.WriteString("\n")
				continue
			}
			b.WriteString(f.Key + ":\n")
			b.WriteString(indent.String(strings.TrimRight(render(f.Value, narrower(width)), "\n"), indentWidth))
			b.WriteString("\n")
		}
		return b.String()
	default:
		return wrap(n.Text(), width)
	}
}

// prefixBlock puts prefix on the first line of block and aligns the rest under it.
func prefixBlock(block, prefix string) string {
	block = strings.TrimRight(block, "\n")
	pad := strings.Repeat(" ", len([]rune(prefix)))
	lines := strings.Split(block, "\n")
	for i := range lines {
		if i == 0 {
			lines[i] = prefix + lines[i]
		} else {
			lines[i] = pad + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func narrower(width int) int {
	if width == 0 {
		return 0
	}
	if width-indentWidth < minWidth {
		return minWidth
	}
	return width - indentWidth
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return wordwrap.String(s, width)
}
