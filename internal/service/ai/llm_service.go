package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/digibook-bot/internal/config"
	"github.com/zhouzirui/digibook-bot/internal/service/qa"
)

// Service answers catalogue questions with an LLM and falls back to another
// answerer when the model fails or returns something unusable.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
	fallback  qa.Answerer
	system    string
}

// NewService creates a new AI service instance
func NewService(ctx context.Context, cfg config.AIConfig, fallback qa.Answerer) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return newServiceWithModel(ctx, chatModel, cfg, fallback)
}

func newServiceWithModel(ctx context.Context, chatModel model.ChatModel, cfg config.AIConfig, fallback qa.Answerer) (*Service, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile answer chain: %w", err)
	}

	if fallback == nil {
		fallback = qa.NewCanned()
	}

	return &Service{
		chatModel: chatModel,
		cfg:       cfg,
		chain:     runnable,
		fallback:  fallback,
		system:    BuildSystemPrompt(),
	}, nil
}

// StreamingEnabled reports whether model output is read as a stream.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamResponse
}

// Answer implements qa.Answerer.
func (s *Service) Answer(ctx context.Context, question string, progress qa.ProgressFunc) (qa.Answer, error) {
	if progress != nil {
		progress("Asking the model...")
	}

	content, err := s.generate(ctx, question, progress)
	if err != nil {
		if ctx.Err() != nil {
			return qa.Answer{}, ctx.Err()
		}
		log.Printf("[ai] model call failed, use fallback: %v", err)
		return s.fallback.Answer(ctx, question, progress)
	}

	answer, err := parseModelOutput(content)
	if err != nil {
		if strings.TrimSpace(content) == "" {
			log.Printf("[ai] empty model output, use fallback")
			return s.fallback.Answer(ctx, question, progress)
		}
		log.Printf("[ai] model output is not json, answer with raw text: %v", err)
		return qa.Answer{Text: strings.TrimSpace(content)}, nil
	}

	log.Printf("[ai] answered question, answer=%d chars, suggestions=%d", len(answer.Text), len(answer.SuggestedQuestions))
	return answer, nil
}

func (s *Service) generate(ctx context.Context, question string, progress qa.ProgressFunc) (string, error) {
	input := map[string]any{
		"system": s.system,
		"query":  strings.TrimSpace(question),
	}

	if !s.StreamingEnabled() {
		msg, err := s.chain.Invoke(ctx, input)
		if err != nil {
			return "", fmt.Errorf("failed to run answer chain: %w", err)
		}
		if msg == nil {
			return "", nil
		}
		return msg.Content, nil
	}

	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to stream answer chain output: %w", err)
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if chunk == nil {
			continue
		}
		if len(chunks) == 0 && progress != nil {
			progress("Writing the answer...")
		}
		chunks = append(chunks, chunk)
	}

	if len(chunks) == 0 {
		return "", nil
	}
	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return "", err
	}
	return response.Content, nil
}

type modelPayload struct {
	Answer             string   `json:"answer"`
	SQLQuery           string   `json:"sql_query"`
	SuggestedQuestions []string `json:"suggested_questions"`
	QueryResult        string   `json:"query_result"`
}

// parseModelOutput extracts the JSON object from the model reply, tolerating
// surrounding prose or code fences.
func parseModelOutput(content string) (qa.Answer, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end <= start {
		return qa.Answer{}, fmt.Errorf("missing json object")
	}

	var payload modelPayload
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &payload); err != nil {
		return qa.Answer{}, err
	}
	if strings.TrimSpace(payload.Answer) == "" {
		return qa.Answer{}, fmt.Errorf("model reply has no answer")
	}

	suggestions := make([]string, 0, len(payload.SuggestedQuestions))
	for _, q := range payload.SuggestedQuestions {
		if q = strings.TrimSpace(q); q != "" {
			suggestions = append(suggestions, q)
		}
	}

	return qa.Answer{
		Text:               strings.TrimSpace(payload.Answer),
		SQLQuery:           strings.TrimSpace(payload.SQLQuery),
		SuggestedQuestions: suggestions,
		QueryResult:        strings.TrimRight(payload.QueryResult, "\n"),
	}, nil
}
