package reply

import (
	"fmt"
	"os"
	"strings"

	"github.com/shaiso/Confirma/internal/domain"
)

// Classifier классифицирует содержимое ответа пользователя в Decision.
//
// Классификатор — чистая функция текста; он не знает ни про корреляцию,
// ни про идемпотентность (это забота Receiver'а). Для каждого
// interaction_kind — свой classifier, поэтому новые типы вопросов
// добавляют варианты исходов, не трогая остальную логику.
type Classifier interface {
	Classify(reply string) domain.Decision
}

// Наборы токенов по умолчанию для ask_details (PT-BR + EN + button ids).
var (
	defaultYesTokens = []string{
		"sim", "s", "yes", "y", "1",
		"sim, por favor",
		"yes_details",
	}
	defaultNoTokens = []string{
		"não", "nao", "n", "no", "2",
		"não, obrigado", "nao, obrigado",
		"no_details",
	}
)

// AskDetails — classifier для вопроса «прислать детали лота?».
type AskDetails struct {
	yes map[string]struct{}
	no  map[string]struct{}
}

// NewAskDetails создаёт classifier с заданными наборами токенов.
// Пустой набор заменяется на default.
func NewAskDetails(yesTokens, noTokens []string) *AskDetails {
	if len(yesTokens) == 0 {
		yesTokens = defaultYesTokens
	}
	if len(noTokens) == 0 {
		noTokens = defaultNoTokens
	}
	return &AskDetails{
		yes: tokenSet(yesTokens),
		no:  tokenSet(noTokens),
	}
}

// NewAskDetailsFromEnv читает переопределения токенов из
// REPLY_YES_TOKENS / REPLY_NO_TOKENS (через запятую).
func NewAskDetailsFromEnv() *AskDetails {
	return NewAskDetails(
		splitTokens(os.Getenv("REPLY_YES_TOKENS")),
		splitTokens(os.Getenv("REPLY_NO_TOKENS")),
	)
}

// Classify нормализует текст и сопоставляет с наборами токенов.
// Нераспознанный текст — DecisionUnrecognized: строка остаётся открытой
// и более поздний валидный ответ всё ещё будет принят.
func (c *AskDetails) Classify(reply string) domain.Decision {
	token := Normalize(reply)
	if token == "" {
		return domain.DecisionUnrecognized
	}
	if _, ok := c.yes[token]; ok {
		return domain.DecisionAffirmative
	}
	if _, ok := c.no[token]; ok {
		return domain.DecisionNegative
	}
	return domain.DecisionUnrecognized
}

// Normalize приводит ответ к каноническому виду: trim, lowercase,
// без завершающей пунктуации ("Sim!" == "sim").
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimRight(s, ".!?")
}

// Registry — реестр classifier'ов по interaction_kind.
type Registry struct {
	classifiers map[domain.InteractionKind]Classifier
}

// NewRegistry создаёт реестр с classifier'ами по умолчанию.
func NewRegistry() *Registry {
	r := &Registry{classifiers: make(map[domain.InteractionKind]Classifier)}
	r.Register(domain.InteractionAskDetails, NewAskDetailsFromEnv())
	return r
}

// Register добавляет classifier для interaction_kind.
func (r *Registry) Register(kind domain.InteractionKind, c Classifier) {
	r.classifiers[kind] = c
}

// Get возвращает classifier для interaction_kind.
func (r *Registry) Get(kind domain.InteractionKind) (Classifier, error) {
	c, ok := r.classifiers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInteractionKind, kind)
	}
	return c, nil
}

// --- Helpers ---

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[Normalize(t)] = struct{}{}
	}
	return set
}

func splitTokens(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
