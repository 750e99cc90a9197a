package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Completer sends one system+user prompt pair to a language model and
// returns the raw text of its reply.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

// LLM classifies by prompting a language model. The local completer serves
// ordinary calls; remote serves calls with Options.UseRemote set. When no
// remote completer is configured, remote calls fall back to local.
type LLM struct {
	local  Completer
	remote Completer
	logger *zap.Logger
}

func NewLLM(local, remote Completer, logger *zap.Logger) *LLM {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLM{local: local, remote: remote, logger: logger.Named("classifier.llm")}
}

func (l *LLM) pick(useRemote bool) Completer {
	if useRemote && l.remote != nil {
		return l.remote
	}
	if useRemote {
		l.logger.Warn("remote model requested but not configured, using local model")
	}
	return l.local
}

func (l *LLM) Classify(ctx context.Context, req Request) (*Detection, error) {
	c := l.pick(req.Options.UseRemote)
	if c == nil {
		return nil, unavailable("no model configured")
	}

	start := time.Now()
	raw, err := c.Complete(ctx, systemPrompt(req.Options.Mode), userPrompt(req.Entries))
	if err != nil {
		l.logger.Warn("model request failed",
			zap.String("model", c.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, unavailable("%s: %v", c.Name(), err)
	}

	d, err := parseReply(raw)
	if err != nil {
		l.logger.Warn("model reply unparseable", zap.String("model", c.Name()), zap.Int("reply_len", len(raw)), zap.Error(err))
		return nil, unavailable("%s: %v", c.Name(), err)
	}

	l.logger.Debug("model request completed",
		zap.String("model", c.Name()),
		zap.Bool("detected", d != nil),
		zap.Duration("elapsed", time.Since(start)))
	return d, nil
}

// ─── Prompting ───────────────────────────────────────────────────────────────

const basePrompt = `You read a person's recent journal entries and look for a thought loop: a worry, feeling or situation they keep coming back to across several entries.

Reply with JSON only, in this shape:
{"detected": true, "topic": "<one or two lowercase words naming the subject, e.g. work, sleep, money>", "guidance": "<a short, warm note for the writer, markdown allowed>"}

If nothing recurs in at least two entries, reply {"detected": false}.
The topic must be a word or phrase that literally appears in the entries.`

var modeInstructions = map[Mode]string{
	ModeAuto:                 "Choose whatever kind of guidance fits the entries best.",
	ModeReframing:            "Write guidance that gently offers a different, more balanced way to see the situation.",
	ModeEmotionalExploration: "Write guidance that invites the writer to name and sit with the feelings underneath.",
	ModeActionOriented:       "Write guidance that suggests one small, concrete step the writer could take.",
}

func systemPrompt(mode Mode) string {
	instr, ok := modeInstructions[mode]
	if !ok {
		instr = modeInstructions[ModeAuto]
	}
	return basePrompt + "\n\n" + instr
}

func userPrompt(entries []Sample) string {
	var b strings.Builder
	b.WriteString("Entries, newest first:\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "\n[%d] %s\n%s\n", i+1, e.Timestamp.Format("2006-01-02"), strings.TrimSpace(e.Content))
	}
	return b.String()
}

type llmReply struct {
	Detected bool   `json:"detected"`
	Topic    string `json:"topic"`
	Guidance string `json:"guidance"`
}

func parseReply(raw string) (*Detection, error) {
	js, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}
	var r llmReply
	if err := json.Unmarshal([]byte(js), &r); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if !r.Detected {
		return nil, nil
	}
	return normalize(&Detection{Topic: r.Topic, GuidanceText: r.Guidance}), nil
}

// extractJSON pulls the first balanced JSON object out of a model reply that
// may carry <think> blocks, code fences or chatter around it.
func extractJSON(s string) (string, error) {
	if i := strings.LastIndex(s, "</think>"); i >= 0 {
		s = s[i+len("</think>"):]
	}
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", fmt.Errorf("no JSON object in reply")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				out := s[start : i+1]
				if !json.Valid([]byte(out)) {
					return "", fmt.Errorf("malformed JSON object in reply")
				}
				return out, nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON object in reply")
}
