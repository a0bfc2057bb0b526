package history_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	models "github.com/maarifa-ai/maarifa/dbmodels"
	"github.com/maarifa-ai/maarifa/services/chathistory"
	"github.com/maarifa-ai/maarifa/services/history"
)

type fakeTurnStore struct {
	turns       []chathistory.Turn
	total       int64
	readErr     error
	recentCalls int
}

func (f *fakeTurnStore) AppendTurn(ctx context.Context, userID string, agent models.AgentID, role models.MessageRole, content string) error {
	f.turns = append(f.turns, chathistory.Turn{Role: role, Content: content})
	return nil
}

func (f *fakeTurnStore) RecentTurns(ctx context.Context, userID string, agent models.AgentID, limit int) ([]chathistory.Turn, error) {
	f.recentCalls++
	if f.readErr != nil {
		return nil, f.readErr
	}
	if limit < len(f.turns) {
		return f.turns[len(f.turns)-limit:], nil
	}
	return f.turns, nil
}

func (f *fakeTurnStore) CountTurns(ctx context.Context, userID string, agent models.AgentID) (int64, error) {
	return f.total, nil
}

func (f *fakeTurnStore) DeleteAll(ctx context.Context, userID string, agent models.AgentID) error {
	f.turns = nil
	return nil
}

func userTurn(content string) chathistory.Turn {
	return chathistory.Turn{Role: models.MessageRoleUser, Content: content}
}

func assistantTurn(content string) chathistory.Turn {
	return chathistory.Turn{Role: models.MessageRoleAssistant, Content: content}
}

var _ = Describe("Analyzer", func() {
	var (
		store    *fakeTurnStore
		analyzer *history.Analyzer
		agent    models.AgentID
		ctx      context.Context
	)

	analyze := func(message string) string {
		return analyzer.Analyze(ctx, message, "u1", agent, 20)
	}

	BeforeEach(func() {
		store = &fakeTurnStore{}
		analyzer = history.NewAnalyzer(store)
		agent, _ = models.ParseAgentID("7")
		ctx = context.Background()
	})

	It("skips the storage read entirely for neutral messages", func() {
		store.turns = []chathistory.Turn{userTurn("hello")}
		Expect(analyze("what's a good pasta recipe?")).To(BeEmpty())
		Expect(store.recentCalls).To(BeZero())
	})

	It("returns nothing when the history is empty", func() {
		Expect(analyze("what do you know about me?")).To(BeEmpty())
		Expect(store.recentCalls).To(Equal(1))
	})

	It("returns nothing when the storage read fails", func() {
		store.readErr = errors.New("connection lost")
		Expect(analyze("what did we say earlier?")).To(BeEmpty())
	})

	Describe("personal context", func() {
		BeforeEach(func() {
			store.turns = []chathistory.Turn{
				userTurn("I like hiking in the mountains. Tell me about trail gear."),
				assistantTurn("Happy to help with trail gear."),
				userTurn("I love photography, and I like hiking in the mountains."),
			}
			store.total = 12
		})

		It("extracts deduplicated interests and topics with the total count", func() {
			out := analyze("what do you know about me?")
			Expect(out).To(ContainSubstring("(12 messages exchanged)"))
			Expect(out).To(ContainSubstring("Interests mentioned (2): hiking in the mountains; photography"))
			Expect(out).To(ContainSubstring("Topics raised (1): trail gear"))
		})

		It("ignores interests stated by the assistant", func() {
			store.turns = append(store.turns, assistantTurn("I like being helpful"))
			out := analyze("what are my interests?")
			Expect(out).NotTo(ContainSubstring("being helpful"))
		})

		It("says so when nothing personal was stated", func() {
			store.turns = []chathistory.Turn{userTurn("hello"), assistantTurn("hi")}
			out := analyze("do you remember me?")
			Expect(out).To(ContainSubstring("No explicit interests or topics were stated."))
		})
	})

	Describe("conversational recap", func() {
		It("recaps at most the last six turns with speaker labels", func() {
			for i := 1; i <= 10; i++ {
				store.turns = append(store.turns, userTurn(fmt.Sprintf("question %d", i)))
			}
			out := analyze("what did we say last time?")
			Expect(out).To(ContainSubstring("Recent exchange:"))
			Expect(out).NotTo(ContainSubstring("question 4"))
			for i := 5; i <= 10; i++ {
				Expect(out).To(ContainSubstring(fmt.Sprintf("You: question %d", i)))
			}
		})

		It("labels assistant turns and truncates long content", func() {
			long := strings.Repeat("x", 150)
			store.turns = []chathistory.Turn{assistantTurn(long)}
			out := analyze("about our conversation earlier")
			Expect(out).To(ContainSubstring("Assistant: " + strings.Repeat("x", 100)))
			Expect(out).NotTo(ContainSubstring(strings.Repeat("x", 101)))
		})

		It("truncates multi-byte content on rune boundaries", func() {
			long := strings.Repeat("界", 150)
			store.turns = []chathistory.Turn{assistantTurn(long)}
			out := analyze("about our conversation earlier")
			Expect(utf8.ValidString(out)).To(BeTrue())
			Expect(out).To(ContainSubstring("Assistant: " + strings.Repeat("界", 100)))
			Expect(out).NotTo(ContainSubstring(strings.Repeat("界", 101)))
		})
	})

	It("combines personal and conversational sections for a mixed message", func() {
		store.turns = []chathistory.Turn{userTurn("I like chess")}
		store.total = 1
		out := analyze("remember me? we talked about this earlier")
		Expect(out).To(ContainSubstring("Interests mentioned (1): chess"))
		Expect(out).To(ContainSubstring("Recent exchange:"))
	})
})
