package barbershop

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"barberq/internal/queue"
)

// ClientID is the backend's opaque client identifier. The backend may encode
// it as a JSON number or string; it is always sent back as a string.
type ClientID string

func (id *ClientID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ClientID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("client id: %w", err)
	}
	*id = ClientID(n.String())
	return nil
}

func (id ClientID) String() string {
	return string(id)
}

// QueueEntry is one waiting client as the backend reports it.
type QueueEntry struct {
	ClientID ClientID `json:"clientId"`
	Name     string   `json:"name"`
}

// Snapshot converts backend entries, in serving order, to a queue snapshot.
func Snapshot(entries []QueueEntry) queue.Snapshot {
	out := make([]queue.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, queue.Entry{ID: e.ClientID.String(), Name: strings.TrimSpace(e.Name)})
	}
	return queue.NewSnapshot(out...)
}

type queueResponse struct {
	Queue []QueueEntry `json:"queue"`
}

type joinRequest struct {
	Name   string `json:"name"`
	Barber string `json:"barber"`
}

// Ticket is the backend's answer to a successful join.
type Ticket struct {
	ClientID ClientID `json:"clientId"`
	Position int      `json:"position"`
}

type clientRequest struct {
	ClientID ClientID `json:"clientId"`
}

// Position is the backend's view of one client.
type Position struct {
	Found    bool   `json:"found"`
	Position int    `json:"position"`
	Barber   string `json:"barber"`
	Name     string `json:"name"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
