package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"promodo/internal/task"

	openai "github.com/sashabaranov/go-openai"
)

const fallbackPlan = "Keep pushing forward!"

// ErrNoAPIKey is returned by New when no key is configured.
var ErrNoAPIKey = errors.New("no API key configured for the planner")

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Planner asks a chat-completions model for task breakdowns and daily
// plans. It speaks the OpenAI wire format, which the generative-language
// API also serves.
type Planner struct {
	client *openai.Client
	model  string
	count  func(string) int
}

func New(cfg Config) (*Planner, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	httpClient := &http.Client{}
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}
	config.HTTPClient = httpClient

	tokens := &tokenCounter{}
	return &Planner{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		count:  tokens.count,
	}, nil
}

func (p *Planner) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// BreakDownTask asks for 3-5 actionable subtasks. A reply that is not a
// JSON array of strings yields an empty list.
func (p *Planner) BreakDownTask(ctx context.Context, title string) ([]string, error) {
	prompt := fmt.Sprintf(
		"Break down the following task into 3-5 concise, actionable subtasks. "+
			"Reply with a JSON array of strings only. Task: %q", title)
	content, err := p.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("break down task: %w", err)
	}
	return parseSubtasks(content), nil
}

// SuggestDailyPlan returns a short markdown plan for the day.
func (p *Planner) SuggestDailyPlan(ctx context.Context, tasks []task.Task, focusScore int) (string, error) {
	plan, err := p.complete(ctx, dailyPlanPrompt(tasks, focusScore, p.count))
	if err != nil {
		return "", fmt.Errorf("suggest daily plan: %w", err)
	}
	if plan == "" {
		return fallbackPlan, nil
	}
	return plan, nil
}

// dailyPlanPrompt lists tasks until the summary would exceed
// maxTaskListTokens; the rest are folded into a count.
func dailyPlanPrompt(tasks []task.Task, focusScore int, count func(string) int) string {
	var summary strings.Builder
	if len(tasks) == 0 {
		summary.WriteString("No tasks yet.")
	}
	used := 0
	for i, t := range tasks {
		done := ""
		if t.Completed {
			done = " [Done]"
		}
		line := fmt.Sprintf("- %s (%s)%s\n", t.Title, t.Priority, done)
		n := count(line)
		if used+n > maxTaskListTokens {
			fmt.Fprintf(&summary, "- and %d more\n", len(tasks)-i)
			break
		}
		used += n
		summary.WriteString(line)
	}

	return fmt.Sprintf(`I have a focus score of %d/100 recently.
Here are my current tasks:
%s

Suggest a simple, motivated plan for my day in 2-3 sentences.
Prioritize high priority tasks.
If no tasks, suggest a good deep work activity for a software engineer or student.
Keep it brief and encouraging.`, focusScore, strings.TrimRight(summary.String(), "\n"))
}

func parseSubtasks(content string) []string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	var items []string
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
