package events

import (
	"log"
	"strings"
)

// maxLineWidth caps rendered lines; long descriptions would otherwise
// swamp the terminal.
const maxLineWidth = 160

// Print renders events as one-line tagged log entries until the channel
// closes. It is the default presentation layer; anything richer can
// subscribe to the hub instead.
func Print(ch <-chan Event, logger *log.Logger) {
	for ev := range ch {
		indent := ""
		switch ev.Type {
		case TypeSleep:
			indent = "    "
		case TypeData:
			indent = "      "
		}
		line := indent + "[" + strings.ToUpper(string(ev.Type)) + "] " + collapseSpace(ev.Text)
		if r := []rune(line); len(r) > maxLineWidth {
			line = string(r[:maxLineWidth-1]) + "…"
		}
		logger.Print(line)
	}
}

func collapseSpace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
