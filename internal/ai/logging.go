package ai

import (
	"log"
	"sort"
	"strings"
)

// LogLLMCall logs the prompt about to be sent. Call immediately before Generate.
func LogLLMCall(action string, messages []Message, params map[string]string) {
	var parts []string
	for k, v := range params {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	sort.Strings(parts)
	log.Printf("[AI] action=%s %s messages=%d", action, strings.Join(parts, " "), len(messages))
	if len(messages) == 0 {
		return
	}
	preview := messages[0].Content
	if len(preview) > 400 {
		preview = preview[:400] + "..."
	}
	log.Printf("[AI] system_len=%d preview: %s", len(messages[0].Content), preview)
	for i := 1; i < len(messages); i++ {
		m := messages[i]
		p := m.Content
		if len(p) > 200 {
			p = p[:200] + "..."
		}
		log.Printf("[AI] msg[%d] role=%s len=%d: %s", i, m.Role, len(m.Content), p)
	}
}
