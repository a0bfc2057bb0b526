// Package history inspects recent conversation turns to decide whether
// personal or about-our-chat context should be injected into a prompt.
package history

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	models "github.com/maarifa-ai/maarifa/dbmodels"
	"github.com/maarifa-ai/maarifa/pkg/xlog"
	"github.com/maarifa-ai/maarifa/services/chathistory"
)

const (
	recapTurns  = 6
	turnMaxLen  = 100
	defaultSpan = 20
)

var (
	personalPattern       = regexp.MustCompile(`(?i)\b(about me|know me|my name|who am i|my interests?|what do i like|remember me)\b`)
	conversationalPattern = regexp.MustCompile(`(?i)\b(we (talked|discussed|spoke)|our (chat|conversation)|earlier|last time|previous(ly)? (chat|conversation|message)|what did (we|i) say)\b`)

	interestPattern = regexp.MustCompile(`(?i)\bi (?:like|love|enjoy)\s+([^.,!?\n]+)`)
	topicPattern    = regexp.MustCompile(`(?i)\b(?:about|regarding)\s+([^.,!?\n]+)`)
)

type Analyzer struct {
	store chathistory.Store
}

func NewAnalyzer(store chathistory.Store) *Analyzer {
	return &Analyzer{store: store}
}

// Analyze returns personal and/or conversational context for the
// message, or an empty string. The regex gate runs before any storage
// read so messages without a matching intent cost nothing.
func (a *Analyzer) Analyze(ctx context.Context, message, userID string, agent models.AgentID, windowSize int) string {
	personal := personalPattern.MatchString(message)
	conversational := conversationalPattern.MatchString(message)
	if !personal && !conversational {
		return ""
	}
	if windowSize <= 0 {
		windowSize = defaultSpan
	}

	turns, err := a.store.RecentTurns(ctx, userID, agent, windowSize)
	if err != nil {
		xlog.Warn("History analysis skipped, could not read turns", "user", userID, "error", err)
		return ""
	}
	if len(turns) == 0 {
		return ""
	}

	var sections []string
	if personal {
		if s := a.personalContext(ctx, userID, agent, turns); s != "" {
			sections = append(sections, s)
		}
	}
	if conversational {
		sections = append(sections, recapContext(turns))
	}
	return strings.Join(sections, "\n")
}

func (a *Analyzer) personalContext(ctx context.Context, userID string, agent models.AgentID, turns []chathistory.Turn) string {
	interests := map[string]struct{}{}
	topics := map[string]struct{}{}
	var interestList, topicList []string

	for _, t := range turns {
		if t.Role != models.MessageRoleUser {
			continue
		}
		for _, m := range interestPattern.FindAllStringSubmatch(t.Content, -1) {
			frag := strings.TrimSpace(m[1])
			if _, seen := interests[frag]; !seen && frag != "" {
				interests[frag] = struct{}{}
				interestList = append(interestList, frag)
			}
		}
		for _, m := range topicPattern.FindAllStringSubmatch(t.Content, -1) {
			frag := strings.TrimSpace(m[1])
			if _, seen := topics[frag]; !seen && frag != "" {
				topics[frag] = struct{}{}
				topicList = append(topicList, frag)
			}
		}
	}

	total, err := a.store.CountTurns(ctx, userID, agent)
	if err != nil {
		total = int64(len(turns))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "What the conversation so far says about the user (%d messages exchanged):", total)
	if len(interestList) > 0 {
		fmt.Fprintf(&b, "\nInterests mentioned (%d): %s", len(interestList), strings.Join(interestList, "; "))
	}
	if len(topicList) > 0 {
		fmt.Fprintf(&b, "\nTopics raised (%d): %s", len(topicList), strings.Join(topicList, "; "))
	}
	if len(interestList) == 0 && len(topicList) == 0 {
		b.WriteString("\nNo explicit interests or topics were stated.")
	}
	return b.String()
}

func recapContext(turns []chathistory.Turn) string {
	start := len(turns) - recapTurns
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	b.WriteString("Recent exchange:")
	for _, t := range turns[start:] {
		speaker := "You"
		if t.Role == models.MessageRoleAssistant {
			speaker = "Assistant"
		}
		content := t.Content
		// Cut on runes, a byte slice could split a multi-byte character.
		if r := []rune(content); len(r) > turnMaxLen {
			content = string(r[:turnMaxLen])
		}
		fmt.Fprintf(&b, "\n%s: %s", speaker, content)
	}
	return b.String()
}
