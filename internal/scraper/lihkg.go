package scraper

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"HKQuant/internal/model"
)

// LIHKGClient lists threads from a LIHKG forum category.
type LIHKGClient struct {
	http    *resty.Client
	BaseURL string
	log     *zap.Logger
}

type lihkgResponse struct {
	Success      int    `json:"success"`
	ErrorMessage string `json:"error_message"`
	Response     struct {
		Items []struct {
			ThreadID     string `json:"thread_id"`
			Title        string `json:"title"`
			LikeCount    int    `json:"like_count"`
			DislikeCount int    `json:"dislike_count"`
			NoOfReply    int    `json:"no_of_reply"`
			CreateTime   int64  `json:"create_time"`
		} `json:"items"`
	} `json:"response"`
}

// Threads returns the newest threads on the given page of category.
func (c *LIHKGClient) Threads(ctx context.Context, category, page int) ([]model.ForumPost, error) {
	if page <= 0 {
		page = 1
	}
	var out lihkgResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Referer", "https://lihkg.com/").
		SetQueryParams(map[string]string{
			"cat_id": strconv.Itoa(category),
			"page":   strconv.Itoa(page),
			"count":  "60",
			"type":   "now",
		}).
		SetResult(&out).
		Get(c.BaseURL + "/thread/category")
	if err != nil {
		return nil, fmt.Errorf("lihkg request: %w", err)
	}
	if resp.IsError() {
		return nil, statusError("lihkg", resp)
	}
	if out.Success != 1 {
		return nil, fmt.Errorf("lihkg: %s", out.ErrorMessage)
	}

	posts := make([]model.ForumPost, 0, len(out.Response.Items))
	for _, it := range out.Response.Items {
		posts = append(posts, model.ForumPost{
			ID:        it.ThreadID,
			Title:     it.Title,
			Likes:     it.LikeCount,
			Dislikes:  it.DislikeCount,
			Replies:   it.NoOfReply,
			CreatedAt: time.Unix(it.CreateTime, 0).UTC(),
		})
	}
	c.log.Debug("lihkg threads fetched", zap.Int("category", category), zap.Int("threads", len(posts)))
	return posts, nil
}
