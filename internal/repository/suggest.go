package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/DoctorRyner/mistral-go"
	"go.uber.org/zap"

	"chess_mate/internal/adapters"
	"chess_mate/internal/domain/game"
	apperrors "chess_mate/internal/errors"
)

// moveTokenRe picks the first SAN- or UCI-looking token out of a model reply.
var moveTokenRe = regexp.MustCompile(`\b(O-O(?:-O)?|[KQRBN]?[a-h]?[1-8]?x?[a-h][1-8](?:=[QRBN])?[+#]?|[a-h][1-8][a-h][1-8][qrbn]?)\b`)

// SuggestionRepo asks a Mistral model for the next move. The configured
// model list is the ordered set of alternate suggestion backends the
// orchestrator rotates through.
type SuggestionRepo struct {
	adapter  *adapters.LlmAdapter
	log      *zap.SugaredLogger
	backends []string
}

func NewSuggestionRepository(adapter *adapters.LlmAdapter, log *zap.SugaredLogger, models []string) *SuggestionRepo {
	backends := make([]string, 0, len(models))
	for _, m := range models {
		if trimmed := strings.TrimSpace(m); trimmed != "" {
			backends = append(backends, trimmed)
		}
	}
	return &SuggestionRepo{adapter: adapter, log: log, backends: backends}
}

func (s *SuggestionRepo) Backends() []string {
	return s.backends
}

// Suggest requests one move from one backend. Failures come back as
// *errors.AIServiceError so the orchestrator can branch on the class.
func (s *SuggestionRepo) Suggest(ctx context.Context, backend string, req game.SuggestionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperrors.NewAIServiceError(apperrors.AIErrNetworkError, backend, err)
	}

	params := mistral.DefaultChatRequestParams
	res, err := s.adapter.Client.Chat(backend, []mistral.ChatMessage{
		{Content: buildPrompt(req), Role: mistral.RoleUser},
	}, &params)
	if err != nil {
		return "", classifyBackendError(backend, err)
	}
	if len(res.Choices) == 0 {
		return "", apperrors.NewAIServiceError(apperrors.AIErrInvalidResponse, backend,
			fmt.Errorf("empty choice list"))
	}

	raw := fmt.Sprintf("%v", res.Choices[0].Message.Content)
	move := moveTokenRe.FindString(raw)
	if move == "" {
		return "", apperrors.NewAIServiceError(apperrors.AIErrInvalidResponse, backend,
			fmt.Errorf("no move found in reply %q", raw))
	}

	s.log.Infow("suggestion received", "backend", backend, "move", move)
	return move, nil
}

func buildPrompt(req game.SuggestionRequest) string {
	var sb strings.Builder
	sb.WriteString("You are playing a chess game. Reply with exactly one move for the side to move, ")
	sb.WriteString("in short algebraic notation, and nothing else.\n")
	sb.WriteString("Position (FEN): " + req.FEN + "\n")
	sb.WriteString("Difficulty: " + req.Difficulty + "\n")
	if len(req.RecentMoves) > 0 {
		sb.WriteString("Recent moves: " + strings.Join(req.RecentMoves, " ") + "\n")
	}
	return sb.String()
}

// classifyBackendError maps a raw client error onto the service-error
// taxonomy. The Mistral client surfaces HTTP status codes in error text, so
// classification is by substring.
func classifyBackendError(backend string, err error) *apperrors.AIServiceError {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"), strings.Contains(msg, "quota"), strings.Contains(msg, "rate limit"):
		return apperrors.NewAIServiceError(apperrors.AIErrQuotaExceeded, backend, err)
	case strings.Contains(msg, "connection"), strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return apperrors.NewAIServiceError(apperrors.AIErrNetworkError, backend, err)
	case strings.Contains(msg, "500"), strings.Contains(msg, "502"),
		strings.Contains(msg, "503"), strings.Contains(msg, "unavailable"):
		return apperrors.NewAIServiceError(apperrors.AIErrServiceUnavailable, backend, err)
	}
	return apperrors.NewAIServiceError(apperrors.AIErrUnknown, backend, err)
}
