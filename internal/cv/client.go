// Package cv talks to the Panaccess CV conditional-access platform, the
// upstream source of raw telemetry records.
package cv

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yabtel/telemetria/internal/config"
	"github.com/yabtel/telemetria/internal/telemetry/domain"
)

var (
	ErrAuth     = errors.New("cv_auth_failed")
	ErrUpstream = errors.New("cv_upstream_error")
	ErrDecode   = errors.New("cv_decode_error")
)

// Session is an authenticated CV API session.
type Session struct {
	ID string
}

// Client is a minimal CV API client. Every call is a POST with the
// function name in the query string and form-encoded arguments in the
// body, as the platform requires.
type Client struct {
	baseURL    string
	apiToken   string
	username   string
	password   string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.CVBaseURL, "/"),
		apiToken:   cfg.CVAPIToken,
		username:   cfg.CVUsername,
		password:   cfg.CVPassword,
		httpClient: &http.Client{Timeout: cfg.CVTimeout},
		log:        log.Named("cv.client"),
	}
}

type envelope struct {
	Success      bool            `json:"success"`
	Answer       json.RawMessage `json:"answer"`
	ErrorMessage string          `json:"errorMessage"`
}

// Login opens a session. The platform expects the md5 of the password
// with a fixed "_panaccess" suffix, never the cleartext password.
func (c *Client) Login(ctx context.Context) (Session, error) {
	sum := md5.Sum([]byte(c.password + "_panaccess"))
	form := url.Values{
		"username": {c.username},
		"password": {hex.EncodeToString(sum[:])},
		"apiToken": {c.apiToken},
	}

	raw, err := c.call(ctx, "login", "", form)
	if err != nil {
		return Session{}, err
	}

	// The platform returns the session id as the answer value itself.
	// Some deployments wrap it in an object instead, so accept both.
	var sessionID string
	if err := json.Unmarshal(raw, &sessionID); err != nil {
		var answer struct {
			SessionID string `json:"sessionId"`
		}
		if err := json.Unmarshal(raw, &answer); err != nil {
			return Session{}, fmt.Errorf("%w: login answer: %v", ErrDecode, err)
		}
		sessionID = answer.SessionID
	}
	if sessionID == "" {
		return Session{}, ErrAuth
	}
	return Session{ID: sessionID}, nil
}

// ListTelemetryRecords returns one page of telemetry records ordered by
// recordId descending, so offset 0 is always the newest record.
func (c *Client) ListTelemetryRecords(ctx context.Context, sess Session, offset, limit int) ([]domain.RawEventPayload, error) {
	form := url.Values{
		"sessionId": {sess.ID},
		"offset":    {strconv.Itoa(offset)},
		"limit":     {strconv.Itoa(limit)},
		"orderBy":   {"recordId"},
		"orderDir":  {"DESC"},
	}

	raw, err := c.call(ctx, "getListOfTelemetryRecords", sess.ID, form)
	if err != nil {
		return nil, err
	}

	var answer struct {
		Entries []domain.RawEventPayload `json:"telemetryRecordEntries"`
	}
	if err := json.Unmarshal(raw, &answer); err != nil {
		return nil, fmt.Errorf("%w: record list answer: %v", ErrDecode, err)
	}
	return answer.Entries, nil
}

func (c *Client) call(ctx context.Context, fn, sessionID string, form url.Values) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/?f=%s&requestMode=function", c.baseURL, url.QueryEscape(fn))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}

	c.log.Debug("cv call finished",
		zap.String("function", fn),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !env.Success {
		if fn == "login" {
			return nil, fmt.Errorf("%w: %s", ErrAuth, env.ErrorMessage)
		}
		return nil, fmt.Errorf("%w: %s", ErrUpstream, env.ErrorMessage)
	}
	return env.Answer, nil
}
