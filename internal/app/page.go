package app

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"threadline/internal/comments"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageTemplate = template.Must(
	template.New("page.html").Funcs(template.FuncMap{
		"nl2br": nl2br,
	}).ParseFS(templateFS, "templates/page.html"),
)

const (
	msgEmptyComment = "Comment cannot be empty."
	msgEmptyReply   = "Reply cannot be empty."
)

// nl2br escapes text and turns every line break into <br>.
func nl2br(text string) template.HTML {
	escaped := template.HTMLEscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>\n"))
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

type pageData struct {
	Error    string
	Filters  []filterLink
	Comments []commentView
}

type filterLink struct {
	Label  string
	Sort   comments.SortMode
	Active bool
}

type commentView struct {
	ID         string
	Author     string
	Text       string
	TimeAgo    string
	Likes      int
	Dislikes   int
	Indent     int
	IsReply    bool
	ReplyCount int
	Collapsed  bool
	Replies    []commentView
}

// filterLinks marks the active sort. A missing sort reads as newest and also
// lights up "All".
func filterLinks(rawSort string) []filterLink {
	mode := comments.SortMode(rawSort)
	if rawSort == "" {
		mode = comments.SortNewest
	}
	return []filterLink{
		{Label: "All", Sort: comments.SortAll, Active: rawSort == "" || mode == comments.SortAll},
		{Label: "Newest", Sort: comments.SortNewest, Active: mode == comments.SortNewest},
		{Label: "Oldest", Sort: comments.SortOldest, Active: mode == comments.SortOldest},
		{Label: "Most Liked", Sort: comments.SortMostLiked, Active: mode == comments.SortMostLiked},
	}
}

func buildViews(nodes []comments.Node, level int, now time.Time) []commentView {
	if len(nodes) == 0 {
		return nil
	}
	views := make([]commentView, 0, len(nodes))
	for _, node := range nodes {
		views = append(views, commentView{
			ID:         node.ID,
			Author:     node.Author,
			Text:       node.Text,
			TimeAgo:    comments.RelativeTime(node.Created(), now),
			Likes:      node.Likes,
			Dislikes:   node.Dislikes,
			Indent:     comments.Indent(level),
			IsReply:    level > 0,
			ReplyCount: node.ReplyCount,
			Collapsed:  comments.CollapseReplies(level, node.ReplyCount),
			Replies:    buildViews(node.Replies, level+1, now),
		})
	}
	return views
}

func (s *HTTPServer) handlePage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Has("action") && query.Has("comment_id") {
		s.handleAction(w, r, query.Get("action"), query.Get("comment_id"))
		return
	}
	s.renderPage(w, r, http.StatusOK, "")
}

// handleAction applies a like or dislike link. Unknown actions, blank ids
// and unknown ids still land back on the comment anchor.
func (s *HTTPServer) handleAction(w http.ResponseWriter, r *http.Request, action, commentID string) {
	if (action == "like" || action == "dislike") && strings.TrimSpace(commentID) != "" {
		if _, err := s.react(r.Context(), action, commentID); err != nil {
			s.renderFailure(w, r, action, err)
			return
		}
	}
	http.Redirect(w, r, commentAnchor(commentID), http.StatusSeeOther)
}

func (s *HTTPServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	text := strings.TrimSpace(r.PostForm.Get("comment_text"))

	switch {
	case r.PostForm.Has("submit_comment"):
		if text == "" {
			s.renderPage(w, r, http.StatusUnprocessableEntity, msgEmptyComment)
			return
		}
		if _, err := s.comments.AddComment(r.Context(), s.author, text, nil); err != nil {
			s.renderFailure(w, r, "add comment", err)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)

	case r.PostForm.Has("submit_reply"):
		parentID := strings.TrimSpace(r.PostForm.Get("parent_id"))
		if text == "" || parentID == "" {
			s.renderPage(w, r, http.StatusUnprocessableEntity, msgEmptyReply)
			return
		}
		if _, err := s.comments.AddComment(r.Context(), s.author, text, &parentID); err != nil {
			s.renderFailure(w, r, "add reply", err)
			return
		}
		http.Redirect(w, r, commentAnchor(parentID), http.StatusSeeOther)

	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func commentAnchor(commentID string) string {
	return "/#comment-" + url.PathEscape(commentID)
}

func (s *HTTPServer) renderPage(w http.ResponseWriter, r *http.Request, status int, errMessage string) {
	rawSort := strings.TrimSpace(r.URL.Query().Get("sort"))
	nodes, err := s.comments.Tree(r.Context(), comments.ParseSortMode(rawSort))
	if err != nil {
		s.renderFailure(w, r, "load comments", err)
		return
	}

	data := pageData{
		Error:    errMessage,
		Filters:  filterLinks(rawSort),
		Comments: buildViews(nodes, 0, s.now()),
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.renderFailure(w, r, "render page", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) renderFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, _, message, _ := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err, "request_id", requestID(r.Context()))
	}
	http.Error(w, message, status)
}
