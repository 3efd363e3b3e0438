package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/inboxlink/inboxlink/internal/logging"
)

const (
	// MaxListResults is the hard cap on a single listing page. Caller
	// input above the cap is clamped, never rejected.
	MaxListResults = 50

	// batchConcurrency bounds parallel message fetches within one batch.
	batchConcurrency = 8

	// callTimeout bounds every call to the mailbox provider. Request
	// contexts on the API path carry no deadline of their own; without
	// the bound a stalled provider connection holds the request open
	// until the client disconnects.
	callTimeout = 15 * time.Second
)

// withCallTimeout caps a single provider call at callTimeout. An earlier
// deadline on the parent context still wins.
func withCallTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, callTimeout)
}

// Client wraps the Gmail Users service for a single linked account.
type Client struct {
	svc    *gmail.UsersService
	logger *slog.Logger
}

// NewClient creates a Gmail client authenticated with the given access
// token. The token must be fresh; pair with the freshness guard.
func NewClient(ctx context.Context, accessToken string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:    svc.Users,
		logger: logging.WithComponent(logger, "gmail"),
	}, nil
}

// ListMessages returns one page of message ids matching the query. An empty
// query lists the mailbox in reverse chronological order.
func (c *Client) ListMessages(ctx context.Context, query string, maxResults int64, pageToken string) (*ListPage, error) {
	req := c.svc.Messages.List("me").MaxResults(clampMaxResults(maxResults))
	if query != "" {
		req.Q(query)
	}
	if pageToken != "" {
		req.PageToken(pageToken)
	}

	ctx, cancel := withCallTimeout(ctx)
	defer cancel()

	res, err := req.Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	page := &ListPage{
		IDs:           make([]string, 0, len(res.Messages)),
		NextPageToken: res.NextPageToken,
	}
	for _, m := range res.Messages {
		page.IDs = append(page.IDs, m.Id)
	}
	return page, nil
}

// FetchFull fetches one message and normalizes headers and body. Absent
// headers get fixed placeholders so callers never see empty subject or
// sender fields.
func (c *Client) FetchFull(ctx context.Context, messageID string) (*Message, error) {
	ctx, cancel := withCallTimeout(ctx)
	defer cancel()

	msg, err := c.svc.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}

	out := &Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Subject:  NoSubjectPlaceholder,
		From:     NoSenderPlaceholder,
		Snippet:  msg.Snippet,
		Labels:   msg.LabelIds,
	}

	if msg.Payload != nil {
		if v := headerValue(msg.Payload.Headers, "Subject"); v != "" {
			out.Subject = v
		}
		if v := headerValue(msg.Payload.Headers, "From"); v != "" {
			out.From = v
		}
		out.To = headerValue(msg.Payload.Headers, "To")
		out.Date = headerValue(msg.Payload.Headers, "Date")
	}

	out.Body = ExtractBody(msg.Payload, msg.Snippet)
	return out, nil
}

// FetchBatch fetches the given message ids in parallel. A failed fetch is
// logged and excluded from the result; the remaining messages are returned
// in request order. Only context cancellation aborts the batch.
func (c *Client) FetchBatch(ctx context.Context, messageIDs []string) ([]*Message, error) {
	return fetchBatch(ctx, messageIDs, c.FetchFull, c.logger)
}

// fetchFunc fetches a single message; swapped out in tests.
type fetchFunc func(ctx context.Context, messageID string) (*Message, error)

func fetchBatch(ctx context.Context, messageIDs []string, fetch fetchFunc, logger *slog.Logger) ([]*Message, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	// Indexed slice keeps request order; failed slots stay nil.
	results := make([]*Message, len(messageIDs))
	for i, id := range messageIDs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			msg, err := fetch(ctx, id)
			if err != nil {
				logger.Warn("message fetch failed",
					logging.Operation("fetch_batch"),
					logging.MessageID(id),
					logging.Err(err),
				)
				return nil
			}
			results[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch fetch aborted: %w", err)
	}

	messages := make([]*Message, 0, len(results))
	for _, m := range results {
		if m != nil {
			messages = append(messages, m)
		}
	}
	return messages, nil
}

// clampMaxResults applies the listing cap. Non-positive input gets the cap
// as well.
func clampMaxResults(n int64) int64 {
	if n <= 0 || n > MaxListResults {
		return MaxListResults
	}
	return n
}

func headerValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
