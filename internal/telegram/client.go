package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ccbot/internal/constants"
	"ccbot/internal/logger"
)

// Client calls the Telegram Bot API over plain HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	scrubber   *strings.Replacer
	logger     logger.Logger
}

// APIError is returned when the Bot API answers with ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

func NewClient(baseURL, token string, httpClient *http.Client, log logger.Logger) *Client {
	if baseURL == "" {
		baseURL = constants.DefaultTelegramAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		scrubber:   strings.NewReplacer(token, "[EXPUNGED]"),
		logger:     log,
	}
}

// Call invokes a Bot API method and decodes its result into out, if non-nil.
func (c *Client) Call(ctx context.Context, method string, params interface{}, out interface{}) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("telegram %s: failed to encode params: %w", method, err)
	}

	url := c.baseURL + "/bot" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %s: %s", method, c.scrubber.Replace(err.Error()))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors embed the URL, and with it the token.
		return fmt.Errorf("telegram %s: %s", method, c.scrubber.Replace(err.Error()))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("telegram %s: failed to read response: %w", method, err)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return fmt.Errorf("telegram %s: unexpected response (status %d): %w", method, resp.StatusCode, err)
	}
	if !apiResp.OK {
		c.logger.Debugw("Telegram API call rejected",
			"method", method,
			"error_code", apiResp.ErrorCode,
			"description", apiResp.Description,
		)
		return &APIError{Method: method, Code: apiResp.ErrorCode, Description: apiResp.Description}
	}

	if out != nil && len(apiResp.Result) > 0 {
		if err := json.Unmarshal(apiResp.Result, out); err != nil {
			return fmt.Errorf("telegram %s: failed to decode result: %w", method, err)
		}
	}
	return nil
}

// SendReply sends text to chatID, replying to replyTo when it is non-zero,
// and returns the id of the sent message.
func (c *Client) SendReply(ctx context.Context, chatID, replyTo int64, text string) (int64, error) {
	params := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if replyTo != 0 {
		params["reply_to_message_id"] = replyTo
	}

	var sent Message
	if err := c.Call(ctx, "sendMessage", params, &sent); err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) EditText(ctx context.Context, chatID, messageID int64, text string) error {
	return c.Call(ctx, "editMessageText", map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return c.Call(ctx, "deleteMessage", map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
	}, nil)
}

func (c *Client) SetMyCommands(ctx context.Context, commands []BotCommand) error {
	return c.Call(ctx, "setMyCommands", map[string]interface{}{
		"commands": commands,
	}, nil)
}
