package main

import (
	"shift_handover/internal/board"
	"shift_handover/internal/shift"
)

type ShiftRequest struct {
	Date string `json:"date"`
	Type string `json:"type"`
}

type ControllersRequest struct {
	Controllers [2]string `json:"controllers"`
}

type NotesRequest struct {
	Notes string `json:"generalNotes"`
}

type TreatmentRequest struct {
	Treatment string `json:"treatment"`
}

type DowntimeRequest struct {
	Downtime string `json:"downtime"`
}

type PlannedRequest struct {
	Description string `json:"description"`
}

type StatusResponse struct {
	ID     string       `json:"id"`
	Status shift.Status `json:"status"`
}

type WhatsAppResponse struct {
	Text string `json:"text"`
	Link string `json:"link"`
}

type NotesResponse struct {
	Notes string `json:"generalNotes"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	AI     bool   `json:"ai"`
}

// LiveMessage is sent by websocket clients.
type LiveMessage struct {
	Action string `json:"action"`
	Date   string `json:"date"`
	Type   string `json:"type"`
}

// LiveState is pushed to websocket clients on every change.
type LiveState struct {
	board.State
	Summary string `json:"summary"`
}
