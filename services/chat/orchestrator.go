// Package chat sequences one inbound message through knowledge lookup,
// history analysis, and tool dispatch, builds the prompt, calls the
// model, and persists the exchange. Sub-lookups are best-effort; only
// an unknown agent or a hard model failure is terminal, and even those
// come back as a structured envelope rather than a raised error.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	models "github.com/maarifa-ai/maarifa/dbmodels"
	"github.com/maarifa-ai/maarifa/pkg/knowledge"
	"github.com/maarifa-ai/maarifa/pkg/llm"
	"github.com/maarifa-ai/maarifa/pkg/xlog"
	"github.com/maarifa-ai/maarifa/services/chathistory"
)

const (
	knowledgeTimeout   = 15 * time.Second
	knowledgeMaxDocs   = 3
	historyWindowSize  = 20
	priorTurnsInPrompt = 10
)

type HistoryAnalyzer interface {
	Analyze(ctx context.Context, message, userID string, agent models.AgentID, windowSize int) string
}

type ToolDispatcher interface {
	Dispatch(ctx context.Context, message string) string
}

type ModelClient interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error)
}

type AgentInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	AgentID string `json:"agentId"`
}

type Response struct {
	Success   bool       `json:"success"`
	Response  string     `json:"response"`
	Error     string     `json:"error,omitempty"`
	Agent     *AgentInfo `json:"agent,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

type Orchestrator struct {
	personas  PersonaResolver
	knowledge knowledge.Resolver
	history   HistoryAnalyzer
	tools     ToolDispatcher
	model     ModelClient
	turns     chathistory.Store
}

func NewOrchestrator(
	personas PersonaResolver,
	kn knowledge.Resolver,
	history HistoryAnalyzer,
	tools ToolDispatcher,
	model ModelClient,
	turns chathistory.Store,
) *Orchestrator {
	return &Orchestrator{
		personas:  personas,
		knowledge: kn,
		history:   history,
		tools:     tools,
		model:     model,
		turns:     turns,
	}
}

// Handle runs the full pipeline. The returned error is non-nil only
// when the agent does not exist; every other outcome is expressed in
// the envelope.
func (o *Orchestrator) Handle(ctx context.Context, agent models.AgentID, message, userID string, providedHistory []chathistory.Turn) (*Response, error) {
	persona, err := o.personas.Persona(ctx, agent)
	if err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			return nil, ErrAgentNotFound
		}
		xlog.Error("Persona lookup failed", "agent", agent.String(), "error", err)
		return o.failure("could not load the agent"), nil
	}

	contextBlock := o.assembleContext(ctx, agent, message, userID)

	prior := providedHistory
	if prior == nil && userID != "" {
		if prior, err = o.turns.RecentTurns(ctx, userID, agent, priorTurnsInPrompt); err != nil {
			xlog.Warn("Could not load prior turns for prompt", "user", userID, "error", err)
			prior = nil
		}
	}

	messages := buildMessages(persona, contextBlock, prior, message)

	reply, err := o.model.Complete(ctx, messages)
	if err != nil {
		xlog.Error("Model call failed", "agent", agent.String(), "error", err)
		resp := o.failure("the language model could not answer")
		resp.Response = llm.FriendlyMessage(err)
		resp.Agent = agentInfo(persona)
		return resp, nil
	}

	if userID != "" {
		o.persistExchange(ctx, userID, agent, message, reply)
	}

	return &Response{
		Success:   true,
		Response:  reply,
		Agent:     agentInfo(persona),
		Timestamp: time.Now(),
	}, nil
}

// assembleContext runs the three context producers concurrently. They
// are independent; only the concatenation order is fixed.
func (o *Orchestrator) assembleContext(ctx context.Context, agent models.AgentID, message, userID string) string {
	var (
		wg           sync.WaitGroup
		knowledgeCtx string
		historyCtx   string
		toolCtx      string
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if o.knowledge == nil {
			return
		}
		kctx, cancel := context.WithTimeout(ctx, knowledgeTimeout)
		defer cancel()
		result, err := o.knowledge.Query(kctx, message, agent.String(), knowledgeMaxDocs)
		if err != nil {
			xlog.Warn("Knowledge lookup failed", "agent", agent.String(), "error", err)
			return
		}
		if result.Found {
			knowledgeCtx = formatKnowledge(result)
		}
	}()

	if userID != "" && o.history != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			historyCtx = o.history.Analyze(ctx, message, userID, agent, historyWindowSize)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if o.tools != nil {
			toolCtx = o.tools.Dispatch(ctx, message)
		}
	}()

	wg.Wait()

	var parts []string
	for _, p := range []string{knowledgeCtx, historyCtx, toolCtx} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}

func formatKnowledge(r *knowledge.Result) string {
	var names []string
	for _, s := range r.Sources {
		names = append(names, s.Name)
	}
	return fmt.Sprintf("Knowledge base (%d documents):\n%s\nSources: %s",
		r.FileCount, r.Content, strings.Join(names, ", "))
}

func buildMessages(persona *Persona, contextBlock string, prior []chathistory.Turn, message string) []openai.ChatCompletionMessage {
	system := systemPrompt(persona, contextBlock)

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
	}
	for _, t := range prior {
		role := openai.ChatMessageRoleUser
		if t.Role == models.MessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	return append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})
}

func systemPrompt(persona *Persona, contextBlock string) string {
	var b strings.Builder

	if persona.Name != "" {
		fmt.Fprintf(&b, "You are %s.", persona.Name)
		if persona.Tone != "" {
			fmt.Fprintf(&b, " Your tone is %s.", persona.Tone)
		}
		if len(persona.Traits) > 0 {
			fmt.Fprintf(&b, " Your traits: %s.", strings.Join(persona.Traits, ", "))
		}
		if persona.SystemPrompt != "" {
			b.WriteString("\n" + persona.SystemPrompt)
		}
	} else {
		b.WriteString("You are a helpful assistant.")
	}

	if contextBlock != "" {
		b.WriteString("\n\nUse the following context when it is relevant to the user's message, and cite sources when you do:\n")
		b.WriteString(contextBlock)
	}
	return b.String()
}

// persistExchange writes both turns. Failures are logged and swallowed:
// the response is already computed and must not be lost to a storage
// fault.
func (o *Orchestrator) persistExchange(ctx context.Context, userID string, agent models.AgentID, message, reply string) {
	if err := o.turns.AppendTurn(ctx, userID, agent, models.MessageRoleUser, message); err != nil {
		xlog.Error("Could not persist user turn", "user", userID, "error", err)
		return
	}
	if err := o.turns.AppendTurn(ctx, userID, agent, models.MessageRoleAssistant, reply); err != nil {
		xlog.Error("Could not persist assistant turn", "user", userID, "error", err)
	}
}

func (o *Orchestrator) failure(reason string) *Response {
	return &Response{
		Success:   false,
		Error:     reason,
		Response:  "Sorry, I couldn't process your message right now. Please try again.",
		Timestamp: time.Now(),
	}
}

func agentInfo(p *Persona) *AgentInfo {
	return &AgentInfo{
		ID:      p.ID.String(),
		Name:    p.Name,
		AgentID: p.ID.String(),
	}
}
