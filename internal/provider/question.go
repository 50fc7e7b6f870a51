package provider

import (
	"fmt"

	"github.com/shaiso/Confirma/internal/domain"
)

// Идентификаторы кнопок вопроса ask_details. Приходят обратно
// в button postback и классифицируются Reply Interpreter'ом.
const (
	ButtonYesDetails = "yes_details"
	ButtonNoDetails  = "no_details"
)

// Button — кнопка под сообщением.
type Button struct {
	ID    string
	Label string
}

// Question — канал-нейтральное содержимое вопроса; каждый провайдер
// рендерит его своими средствами (buttonList у Z-API, inline keyboard
// у Telegram).
type Question struct {
	Text    string
	Buttons []Button
}

// BuildQuestion составляет текст вопроса по interaction_kind строки.
// Данные берутся из payload (имя пользователя, название лота).
func BuildQuestion(n *domain.Notification) (*Question, error) {
	switch n.InteractionKind {
	case domain.InteractionAskDetails:
		userName := n.PayloadString("user_name", "")
		lotName := n.PayloadString("lot_name", "")

		greeting := "Olá!"
		if userName != "" {
			greeting = fmt.Sprintf("Olá, *%s*!", userName)
		}

		text := fmt.Sprintf(
			"%s\n\nEncontramos um lote que pode te interessar:\n_%s_\n\nDeseja receber mais detalhes?",
			greeting, lotName,
		)

		return &Question{
			Text: text,
			Buttons: []Button{
				{ID: ButtonYesDetails, Label: "Sim, por favor"},
				{ID: ButtonNoDetails, Label: "Não, obrigado"},
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown interaction kind: %s", n.InteractionKind)
	}
}

// BuildReprompt составляет короткое повторное приглашение ответить,
// отправляемое после нераспознанного ответа. Состояние строки при этом
// не меняется.
func BuildReprompt(n *domain.Notification) *Question {
	return &Question{
		Text: "Desculpe, não entendi. Responda *sim* para receber os detalhes ou *não* para ajustar sua busca.",
	}
}
