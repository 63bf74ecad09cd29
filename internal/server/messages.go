package server

import (
	"github.com/at-ishikawa/conceptdeck/internal/content"
	"github.com/at-ishikawa/conceptdeck/internal/learning"
	"github.com/at-ishikawa/conceptdeck/internal/session"
	"github.com/at-ishikawa/conceptdeck/internal/study"
)

type StartSessionRequest struct {
	UserID     string `json:"userId"`
	NotebookID string `json:"notebookId"`
	Mode       string `json:"mode"`
	Intensity  string `json:"intensity,omitempty"`
}

type StartSessionResponse struct {
	Started bool              `json:"started"`
	Outcome string            `json:"outcome"`
	Session *session.Session  `json:"session,omitempty"`
	Batch   []content.Concept `json:"batch,omitempty"`
}

type RecordResponseRequest struct {
	SessionID string `json:"sessionId"`
	ConceptID string `json:"conceptId"`
	Response  string `json:"response"`
}

type RecordResponseResponse struct {
	State           string                 `json:"state"`
	Pass            int                    `json:"pass"`
	Remaining       []content.Concept      `json:"remaining"`
	ImmediateReview []content.Concept      `json:"immediateReview"`
	Metrics         map[string]interface{} `json:"metrics"`
	Summary         *study.Summary         `json:"summary,omitempty"`
}

type CompleteSessionRequest struct {
	SessionID string `json:"sessionId"`
}

type CompleteSessionResponse struct {
	Summary *study.Summary `json:"summary"`
}

type SubmitValidationRequest struct {
	SessionID string  `json:"sessionId"`
	Passed    bool    `json:"passed"`
	Score     float64 `json:"score"`
}

type SubmitValidationResponse struct {
	SessionID string            `json:"sessionId"`
	Passed    bool              `json:"passed"`
	Score     float64           `json:"score"`
	Records   []learning.Record `json:"records"`
}

type AbandonSessionRequest struct {
	SessionID string `json:"sessionId"`
}

type AbandonSessionResponse struct{}

type NotebookRequest struct {
	UserID     string `json:"userId"`
	NotebookID string `json:"notebookId"`
}
