package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultHTTPTimeout bounds a single request to the chat service.
const DefaultHTTPTimeout = 5 * time.Second

// HTTPProvisioner is a JSON-over-HTTP client for the chat service.
//
//	POST {base}/rooms                      {"key", "participant_ids"} -> {"room_id"}
//	POST {base}/rooms/{room}/archive
//	POST {base}/rooms/{room}/members       {"user_id"}
//
// Room creation carries the wave id in the Idempotency-Key header.
type HTTPProvisioner struct {
	base   string
	token  string
	client *http.Client
}

// HTTPOption configures an HTTPProvisioner.
type HTTPOption func(*HTTPProvisioner)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTPProvisioner) {
		p.client = c
	}
}

// WithBearerToken authenticates every request.
func WithBearerToken(token string) HTTPOption {
	return func(p *HTTPProvisioner) {
		p.token = token
	}
}

// NewHTTPProvisioner returns a client for the service at baseURL.
func NewHTTPProvisioner(baseURL string, opts ...HTTPOption) (*HTTPProvisioner, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("chat base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("chat base url: unsupported scheme %q", u.Scheme)
	}

	p := &HTTPProvisioner{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type createRoomRequest struct {
	Key            string   `json:"key"`
	ParticipantIDs []string `json:"participant_ids"`
}

type createRoomResponse struct {
	RoomID string `json:"room_id"`
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
}

func (p *HTTPProvisioner) CreateRoom(ctx context.Context, key string, participantIDs []string) (string, error) {
	var out createRoomResponse
	err := p.post(ctx, "create room", "/rooms", key, createRoomRequest{Key: key, ParticipantIDs: participantIDs}, &out)
	if err != nil {
		return "", err
	}
	if out.RoomID == "" {
		return "", fmt.Errorf("chat create room: response without room_id")
	}
	return out.RoomID, nil
}

func (p *HTTPProvisioner) ArchiveRoom(ctx context.Context, roomID string) error {
	return p.post(ctx, "archive room", "/rooms/"+url.PathEscape(roomID)+"/archive", "", nil, nil)
}

func (p *HTTPProvisioner) AddMember(ctx context.Context, roomID, userID string) error {
	return p.post(ctx, "add member", "/rooms/"+url.PathEscape(roomID)+"/members", "", addMemberRequest{UserID: userID}, nil)
}

func (p *HTTPProvisioner) post(ctx context.Context, op, path, idempotencyKey string, body, out any) error {
	var reqBody []byte
	if body != nil {
		var err error
		if reqBody, err = json.Marshal(body); err != nil {
			return fmt.Errorf("chat %s: encode: %w", op, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.base+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("chat %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("chat %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("chat %s: %w", op, ErrRoomNotFound)
	}
	if resp.StatusCode >= 300 {
		return &StatusError{Op: op, Status: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("chat %s: decode: %w", op, err)
	}
	return nil
}
