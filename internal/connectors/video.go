package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tabcli/internal/frame"
)

const (
	videoAPIBase    = "https://www.googleapis.com/youtube/v3"
	videoAPITimeout = 30 * time.Second
	videoIDChunk    = 50
)

// videoColumns is the fixed output schema of video metadata frames.
var videoColumns = []string{
	"video_id", "title", "description", "channel_id", "channel_title",
	"published_at", "duration", "duration_seconds",
	"view_count", "like_count", "comment_count", "tags", "thumbnail_url",
}

// ErrMissingAPIKey means neither an explicit key nor the environment
// provided credentials.
var ErrMissingAPIKey = fmt.Errorf(
	"provide a video API key explicitly or via the YOUTUBE_API_KEY environment variable")

// VideoClient pulls channel and playlist metadata from the video data
// API into frames.
type VideoClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *slog.Logger
}

// NewVideoClient builds a client. An empty apiKey falls back to the
// YOUTUBE_API_KEY environment variable at request time.
func NewVideoClient(apiKey string, log *slog.Logger) *VideoClient {
	if log == nil {
		log = slog.Default()
	}
	return &VideoClient{
		baseURL: videoAPIBase,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: videoAPITimeout},
		log:     log,
	}
}

// VideoQuery selects what to fetch. PlaylistID wins over ChannelID; a
// channel resolves to its uploads playlist first.
type VideoQuery struct {
	ChannelID  string
	PlaylistID string
	MaxResults int
}

// FetchVideos returns one row per video with the fixed metadata columns.
func (c *VideoClient) FetchVideos(ctx context.Context, q VideoQuery) (*frame.Frame, error) {
	key := c.apiKey
	if key == "" {
		key = os.Getenv("YOUTUBE_API_KEY")
	}
	if key == "" {
		return nil, ErrMissingAPIKey
	}

	playlist := q.PlaylistID
	if playlist == "" {
		if q.ChannelID == "" {
			return nil, fmt.Errorf("provide a channel or playlist id to fetch videos")
		}
		var err error
		playlist, err = c.uploadsPlaylist(ctx, q.ChannelID, key)
		if err != nil {
			return nil, err
		}
	}

	max := q.MaxResults
	if max < 1 {
		max = 25
	}
	ids, err := c.playlistVideoIDs(ctx, playlist, max, key)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return frame.FromValues(videoColumns, nil), nil
	}

	var rows [][]frame.Value
	for _, chunk := range chunkIDs(ids, videoIDChunk) {
		var payload struct {
			Items []struct {
				ID      string `json:"id"`
				Snippet struct {
					Title        string   `json:"title"`
					Description  string   `json:"description"`
					ChannelID    string   `json:"channelId"`
					ChannelTitle string   `json:"channelTitle"`
					PublishedAt  string   `json:"publishedAt"`
					Tags         []string `json:"tags"`
					Thumbnails   map[string]struct {
						URL string `json:"url"`
					} `json:"thumbnails"`
				} `json:"snippet"`
				ContentDetails struct {
					Duration string `json:"duration"`
				} `json:"contentDetails"`
				Statistics struct {
					ViewCount    string `json:"viewCount"`
					LikeCount    string `json:"likeCount"`
					CommentCount string `json:"commentCount"`
				} `json:"statistics"`
			} `json:"items"`
		}
		err := c.get(ctx, "videos", url.Values{
			"part":       {"snippet,contentDetails,statistics"},
			"id":         {strings.Join(chunk, ",")},
			"maxResults": {strconv.Itoa(len(chunk))},
		}, key, &payload)
		if err != nil {
			return nil, err
		}
		for _, item := range payload.Items {
			thumbs := make(map[string]string, len(item.Snippet.Thumbnails))
			for k, v := range item.Snippet.Thumbnails {
				thumbs[k] = v.URL
			}
			rows = append(rows, []frame.Value{
				frame.Str(item.ID),
				frame.Str(item.Snippet.Title),
				frame.Str(item.Snippet.Description),
				frame.Str(item.Snippet.ChannelID),
				frame.Str(item.Snippet.ChannelTitle),
				frame.Str(item.Snippet.PublishedAt),
				frame.Str(item.ContentDetails.Duration),
				frame.Num(float64(parseISODuration(item.ContentDetails.Duration))),
				frame.Num(float64(atoiOrZero(item.Statistics.ViewCount))),
				frame.Num(float64(atoiOrZero(item.Statistics.LikeCount))),
				frame.Num(float64(atoiOrZero(item.Statistics.CommentCount))),
				frame.Str(strings.Join(item.Snippet.Tags, ", ")),
				frame.Str(pickThumbnail(thumbs)),
			})
		}
	}

	c.log.Info("fetched videos",
		slog.Int("count", len(rows)), slog.String("playlist", playlist))
	return frame.FromValues(videoColumns, rows), nil
}

func (c *VideoClient) uploadsPlaylist(ctx context.Context, channelID, key string) (string, error) {
	var payload struct {
		Items []struct {
			ContentDetails struct {
				RelatedPlaylists struct {
					Uploads string `json:"uploads"`
				} `json:"relatedPlaylists"`
			} `json:"contentDetails"`
		} `json:"items"`
	}
	err := c.get(ctx, "channels", url.Values{
		"part": {"contentDetails"}, "id": {channelID}, "maxResults": {"1"},
	}, key, &payload)
	if err != nil {
		return "", err
	}
	if len(payload.Items) == 0 {
		return "", fmt.Errorf("channel %q not found", channelID)
	}
	return payload.Items[0].ContentDetails.RelatedPlaylists.Uploads, nil
}

func (c *VideoClient) playlistVideoIDs(ctx context.Context, playlistID string, max int, key string) ([]string, error) {
	var ids []string
	pageToken := ""
	for len(ids) < max {
		remaining := max - len(ids)
		page := remaining
		if page > 50 {
			page = 50
		}
		params := url.Values{
			"part":       {"contentDetails"},
			"playlistId": {playlistID},
			"maxResults": {strconv.Itoa(page)},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}
		var payload struct {
			NextPageToken string `json:"nextPageToken"`
			Items         []struct {
				ContentDetails struct {
					VideoID string `json:"videoId"`
				} `json:"contentDetails"`
			} `json:"items"`
		}
		if err := c.get(ctx, "playlistItems", params, key, &payload); err != nil {
			return nil, err
		}
		for _, item := range payload.Items {
			if item.ContentDetails.VideoID != "" {
				ids = append(ids, item.ContentDetails.VideoID)
			}
		}
		pageToken = payload.NextPageToken
		if pageToken == "" {
			break
		}
	}
	if len(ids) > max {
		ids = ids[:max]
	}
	return ids, nil
}

func (c *VideoClient) get(ctx context.Context, endpoint string, params url.Values, key string, out interface{}) error {
	params.Set("key", key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("video API error for %s: %s", endpoint, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

var isoDurationRe = regexp.MustCompile(
	`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseISODuration converts ISO-8601 durations like PT1H2M3S to seconds.
// Unparseable input yields zero.
func parseISODuration(duration string) int {
	if duration == "" {
		return 0
	}
	m := isoDurationRe.FindStringSubmatch(duration)
	if m == nil {
		return 0
	}
	days := atoiOrZero(m[1])
	hours := atoiOrZero(m[2])
	minutes := atoiOrZero(m[3])
	seconds := atoiOrZero(m[4])
	return seconds + minutes*60 + hours*3600 + days*86400
}

// pickThumbnail prefers the largest commonly populated size.
func pickThumbnail(thumbs map[string]string) string {
	for _, key := range []string{"standard", "high", "medium", "default"} {
		if u, ok := thumbs[key]; ok && u != "" {
			return u
		}
	}
	return ""
}

func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
