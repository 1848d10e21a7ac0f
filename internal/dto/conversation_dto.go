package dto

type ConversationPayload struct {
	CreationDateTime string `json:"creation_date_time"`
}

// ConversationRequest is one user turn. Unknown keys are ignored.
type ConversationRequest struct {
	UserUtterance     string                 `json:"user_utterance" validate:"max=2000"`
	SessionUuid       string                 `json:"session_uuid" validate:"omitempty,max=128"`
	UserUuid          string                 `json:"user_uuid" validate:"omitempty,max=128"`
	Payload           ConversationPayload    `json:"payload"`
	Client            string                 `json:"client,omitempty"`
	ClientUserId      string                 `json:"client_user_id,omitempty"`
	ClientInformation map[string]interface{} `json:"client_information,omitempty"`
}

type ConversationResponse struct {
	SessionUuid      string              `json:"session_uuid"`
	UserUuid         string              `json:"user_uuid"`
	BotUtterance     string              `json:"bot_utterance"`
	Payload          ConversationPayload `json:"payload"`
	ShouldEndSession bool                `json:"should_end_session"`
}

type HealthResponse struct {
	Status       string         `json:"status"`
	StateStore   string         `json:"state_store"`
	EventBus     string         `json:"event_bus"`
	WsClients    int            `json:"ws_clients"`
	RemoteModels int            `json:"remote_services"`
	TurnsByRG    map[string]int `json:"turns_by_rg,omitempty"`
}

type TranscriptTurn struct {
	TurnNum          int    `json:"turn_num"`
	UserUtterance    string `json:"user_utterance"`
	BotUtterance     string `json:"bot_utterance"`
	ResponseRG       string `json:"response_rg"`
	PromptRG         string `json:"prompt_rg,omitempty"`
	CreationDateTime string `json:"creation_date_time"`
}

type TranscriptResponse struct {
	SessionUuid string           `json:"session_uuid"`
	Total       int64            `json:"total"`
	Turns       []TranscriptTurn `json:"turns"`
}
