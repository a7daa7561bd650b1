// Package filmapi is the HTTP client for the remote film catalog service.
package filmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andikarhm/filmku/internal/model"
)

// Client talks to the film catalog REST API. Reads are public; writes carry
// a bearer token.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// opStatus is the service's envelope for mutating endpoints.
type opStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// exchangeResponse is the payload returned by the identity exchange endpoint.
type exchangeResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

// List fetches all films. No authentication required.
func (c *Client) List(ctx context.Context) ([]model.Film, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/films", nil, "", "")
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var films []model.Film
	if err := json.NewDecoder(resp.Body).Decode(&films); err != nil {
		return nil, fmt.Errorf("decoding film list: %w", err)
	}
	return films, nil
}

// Create adds a film with the given image. The image must already be
// upload-ready JPEG bytes.
func (c *Client) Create(ctx context.Context, token, title, cast, description string, image []byte) error {
	body, contentType, err := filmForm(title, cast, description, image)
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/films", body, contentType, token)
	if err != nil {
		return err
	}

	return c.doMutation(req)
}

// Update replaces a film's fields. A nil image means "keep the existing image".
func (c *Client) Update(ctx context.Context, token string, id int64, title, cast, description string, image []byte) error {
	body, contentType, err := filmForm(title, cast, description, image)
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPut, fmt.Sprintf("/films/%d", id), body, contentType, token)
	if err != nil {
		return err
	}

	return c.doMutation(req)
}

// Delete removes a film.
func (c *Client) Delete(ctx context.Context, token string, id int64) error {
	req, err := c.newRequest(ctx, http.MethodDelete, fmt.Sprintf("/films/%d", id), nil, "", token)
	if err != nil {
		return err
	}

	return c.doMutation(req)
}

// ExchangeIdentity trades a Google ID token for a catalog session. Profile
// fields beyond user id and email are left for the caller to fill in.
func (c *Client) ExchangeIdentity(ctx context.Context, idToken string) (model.Session, error) {
	payload, err := json.Marshal(map[string]string{"id_token": idToken})
	if err != nil {
		return model.Session{}, fmt.Errorf("encoding exchange request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/auth/google", bytes.NewReader(payload), "application/json", "")
	if err != nil {
		return model.Session{}, err
	}

	resp, err := c.do(req)
	if err != nil {
		return model.Session{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := serverMessage(resp)
		if msg != "" {
			return model.Session{}, fmt.Errorf("%w: %s", ErrAuthExchange, msg)
		}
		return model.Session{}, fmt.Errorf("%w: status=%d", ErrAuthExchange, resp.StatusCode)
	}

	var ex exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&ex); err != nil {
		return model.Session{}, fmt.Errorf("decoding exchange response: %w", err)
	}
	if ex.Token == "" {
		return model.Session{}, fmt.Errorf("%w: empty token in response", ErrAuthExchange)
	}

	sess := model.Session{
		Token:  ex.Token,
		UserID: ex.UserID,
		Email:  ex.Email,
	}

	// Fill display profile from the ID token's claims. Best effort; the
	// session works without a profile.
	if claims, err := parseIdentity(idToken); err == nil {
		sess.Name = claims.Name
		sess.PhotoURL = claims.Picture
		if sess.Email == "" {
			sess.Email = claims.Email
		}
	}
	return sess, nil
}

// newRequest builds a request with the standard headers attached.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do performs the request, folding transport failures into ErrUnavailable.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

// doMutation performs a write request and checks both the HTTP status and
// the service's status envelope.
func (c *Client) doMutation(req *http.Request) error {
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError(resp)
	}

	var op opStatus
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		// Some deployments return an empty body on success.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decoding response: %w", err)
	}
	if op.Status != "" && op.Status != "success" {
		return fmt.Errorf("%w: %s", ErrBadStatus, op.Message)
	}
	return nil
}

// statusError maps an HTTP error response to the client's error taxonomy,
// keeping the server's message when it sends one.
func statusError(resp *http.Response) error {
	var base error
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		base = ErrUnauthorized
	case http.StatusForbidden:
		base = ErrForbidden
	case http.StatusNotFound:
		base = ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		base = ErrValidation
	default:
		return fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
	}

	if msg := serverMessage(resp); msg != "" {
		return fmt.Errorf("%w: %s", base, msg)
	}
	return base
}

// serverMessage extracts the detail text from an error body, accepting both
// the {status,message} and {error} envelope shapes.
func serverMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return ""
	}

	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	return envelope.Error
}

// filmForm builds the multipart body for film writes. A nil image omits the
// file part entirely, which the service treats as "unchanged".
func filmForm(title, cast, description string, image []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"nama_film": title,
		"pemeran":   cast,
		"deskripsi": description,
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("writing form field %q: %w", name, err)
		}
	}

	if image != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="gambar"; filename="gambar.jpg"`)
		header.Set("Content-Type", "image/jpeg")

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("creating image part: %w", err)
		}
		if _, err := part.Write(image); err != nil {
			return nil, "", fmt.Errorf("writing image part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalizing form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
