package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIError carries a non-2xx reply from the room API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("room api: %d: %s", e.StatusCode, e.Body)
}

type RoomInfo struct {
	RoomID    string    `json:"roomId"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRoom asks the server for a new room. An empty language selects the
// server default.
func (c *Client) CreateRoom(ctx context.Context, language string) (RoomInfo, error) {
	body, err := json.Marshal(map[string]string{"language": language})
	if err != nil {
		return RoomInfo{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/rooms", bytes.NewReader(body))
	if err != nil {
		return RoomInfo{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return RoomInfo{}, fmt.Errorf("create room: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return RoomInfo{}, fmt.Errorf("create room: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return RoomInfo{}, &APIError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	var info RoomInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return RoomInfo{}, fmt.Errorf("create room: decode: %w", err)
	}
	return info, nil
}
