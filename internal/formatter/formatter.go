// package formatter renders videos, danmu and upload history as text, Markdown, CSV or JSON for the CLI
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
)

// Format is an output format for listings.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// ParseFormat resolves a --format flag value. Empty means [Text].
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, markdown, csv or json)", shared.ErrInvalidArgument, s)
	}
}

// WriteVideos renders a page of videos to w in the given format.
func WriteVideos(w io.Writer, format Format, title string, page *models.Page[models.Video]) error {
	if page == nil {
		page = &models.Page[models.Video]{}
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case CSV:
		data, err = VideosToCSV(page.Records)
	case Markdown:
		data = VideosToMarkdown(title, page)
	case JSON:
		data, err = json.MarshalIndent(page, "", "  ")
		data = append(data, '\n')
	default:
		data = VideosToText(page)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// VideosToCSV converts videos to CSV with columns: ID, Title, Category, Author, Views, Likes, Created, URL
func VideosToCSV(videos []models.Video) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Category", "Author", "Views", "Likes", "Created", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, v := range videos {
		record := []string{
			strconv.FormatInt(v.ID, 10),
			v.Title,
			v.Category,
			v.Username,
			strconv.FormatInt(v.Views, 10),
			strconv.FormatInt(v.Likes, 10),
			formatDate(v.CreatedAt),
			v.VideoURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// VideosToMarkdown renders a page of videos as a Markdown list with cover images.
func VideosToMarkdown(title string, page *models.Page[models.Video]) []byte {
	var buf bytes.Buffer

	if title != "" {
		fmt.Fprintf(&buf, "# %s\n\n", title)
	}
	fmt.Fprintf(&buf, "**Videos**: %d", len(page.Records))
	if page.Total > 0 {
		fmt.Fprintf(&buf, " of %d (page %d)", page.Total, page.Page)
	}
	buf.WriteString("\n\n")

	for i, v := range page.Records {
		fmt.Fprintf(&buf, "%d. **%s** (#%d)", i+1, v.Title, v.ID)
		if v.Username != "" {
			fmt.Fprintf(&buf, " by %s", v.Username)
		}
		fmt.Fprintf(&buf, " [%s views, %s likes]\n", Count(v.Views), Count(v.Likes))
		if v.CoverURL != "" {
			fmt.Fprintf(&buf, "   ![Cover](%s)\n", v.CoverURL)
		}
		if v.Description != "" {
			fmt.Fprintf(&buf, "   %s\n", v.Description)
		}
	}
	return buf.Bytes()
}

// VideosToText renders a page of videos as plain text, one line per video.
func VideosToText(page *models.Page[models.Video]) []byte {
	var buf bytes.Buffer

	if len(page.Records) == 0 {
		buf.WriteString("No videos found.\n")
		return buf.Bytes()
	}

	for _, v := range page.Records {
		fmt.Fprintf(&buf, "%6d  %s", v.ID, v.Title)
		if v.Username != "" {
			fmt.Fprintf(&buf, " - %s", v.Username)
		}
		fmt.Fprintf(&buf, "  (%s views)\n", Count(v.Views))
	}
	if page.Total > int64(len(page.Records)) {
		fmt.Fprintf(&buf, "\nPage %d, showing %d of %d\n", page.Page, len(page.Records), page.Total)
	}
	return buf.Bytes()
}

// VideoDetail renders a single video's fields as aligned text.
func VideoDetail(v *models.Video) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Title:       %s\n", v.Title)
	fmt.Fprintf(&buf, "ID:          %d\n", v.ID)
	if v.Username != "" {
		fmt.Fprintf(&buf, "Author:      %s\n", v.Username)
	}
	if v.Category != "" {
		fmt.Fprintf(&buf, "Category:    %s\n", v.Category)
	}
	fmt.Fprintf(&buf, "Views:       %s\n", Count(v.Views))
	fmt.Fprintf(&buf, "Likes:       %s\n", Count(v.Likes))
	if !v.CreatedAt.IsZero() {
		fmt.Fprintf(&buf, "Created:     %s\n", formatDate(v.CreatedAt))
	}
	if v.VideoURL != "" {
		fmt.Fprintf(&buf, "URL:         %s\n", v.VideoURL)
	}
	if v.Description != "" {
		fmt.Fprintf(&buf, "\n%s\n", v.Description)
	}
	return buf.Bytes()
}

// DanmuToText renders danmu in the order given, prefixed by their playback time.
func DanmuToText(danmu []models.Danmu) []byte {
	var buf bytes.Buffer
	if len(danmu) == 0 {
		buf.WriteString("No danmu.\n")
		return buf.Bytes()
	}
	for _, d := range danmu {
		fmt.Fprintf(&buf, "[%s] %s\n", Timestamp(d.Time), d.Content)
	}
	return buf.Bytes()
}

// UploadsToText renders local publish history, newest first.
func UploadsToText(uploads []*models.Upload) []byte {
	var buf bytes.Buffer
	if len(uploads) == 0 {
		buf.WriteString("No uploads recorded.\n")
		return buf.Bytes()
	}
	for _, u := range uploads {
		fmt.Fprintf(&buf, "%s  %-9s  %s", formatDate(u.CreatedAt), u.Status, u.Title)
		if u.VideoID > 0 {
			fmt.Fprintf(&buf, " (#%d)", u.VideoID)
		}
		if u.Error != "" {
			fmt.Fprintf(&buf, ": %s", u.Error)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// UserSummary renders a profile for `auth whoami` and `user show`.
func UserSummary(u *models.User) []byte {
	var buf bytes.Buffer
	if u == nil {
		buf.WriteString("Not logged in.\n")
		return buf.Bytes()
	}
	fmt.Fprintf(&buf, "Username:    %s\n", u.Username)
	if u.Nickname != "" {
		fmt.Fprintf(&buf, "Nickname:    %s\n", u.Nickname)
	}
	fmt.Fprintf(&buf, "ID:          %d\n", u.ID)
	if u.Email != "" {
		fmt.Fprintf(&buf, "Email:       %s\n", u.Email)
	}
	if u.AvatarURL != "" {
		fmt.Fprintf(&buf, "Avatar:      %s\n", u.AvatarURL)
	}
	return buf.Bytes()
}

// Timestamp formats seconds as MM:SS, or H:MM:SS past an hour.
func Timestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// Count abbreviates large counters: 999, 1.2k, 3.4M.
func Count(n int64) string {
	switch {
	case n >= 1_000_000:
		return strconv.FormatFloat(float64(n)/1_000_000, 'f', 1, 64) + "M"
	case n >= 1_000:
		return strconv.FormatFloat(float64(n)/1_000, 'f', 1, 64) + "k"
	default:
		return strconv.FormatInt(n, 10)
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02")
}
