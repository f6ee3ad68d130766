package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/sakif/sonarhub/internal/apperror"
	"github.com/sakif/sonarhub/internal/model"
	"github.com/sakif/sonarhub/internal/poll"
	"github.com/sakif/sonarhub/internal/service"
	"github.com/sakif/sonarhub/internal/view"
)

// LiveHandler serves the two polled resources over WebSockets: the status
// of a running analysis and the comments of a pull request.
//
// Every feed opens with a "loading" frame before the first fetch. Each
// feed's context comes from conn.CloseRead, so polling stops as soon as
// the page is closed or navigated away from. The analysis feed also stops at
// the first terminal status.
type LiveHandler struct {
	*Base
	analysis *service.AnalysisService
	pulls    *service.PullService
	interval time.Duration
}

// NewLiveHandler creates a LiveHandler polling every interval.
func NewLiveHandler(base *Base, analysis *service.AnalysisService, pulls *service.PullService, interval time.Duration) *LiveHandler {
	return &LiveHandler{Base: base, analysis: analysis, pulls: pulls, interval: interval}
}

// statusMessage is one frame of the analysis feed.
type statusMessage struct {
	Phase    string `json:"phase,omitempty"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Terminal bool   `json:"terminal"`
	Error    string `json:"error,omitempty"`
}

// commentsMessage is one frame of the comments feed.
type commentsMessage struct {
	Phase    string            `json:"phase"`
	Comments []model.PRComment `json:"comments"`
	Error    string            `json:"error,omitempty"`
}

// AnalysisStatus serves GET /dashboard/repo/{repoName}/live?branch= as a
// WebSocket.
func (h *LiveHandler) AnalysisStatus(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repoName")
	branch := r.URL.Query().Get("branch")

	// The identity gate runs before the upgrade so a failure is a plain
	// HTTP error.
	scope, err := h.scope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer c.CloseNow()
	ctx := c.CloseRead(r.Context())

	loading := statusMessage{Phase: view.Pending[*model.AnalysisStatus]().Phase.String()}
	if err := wsjson.Write(ctx, c, loading); err != nil {
		h.closeFeed(ctx, c, err, "")
		return
	}

	err = poll.Until(ctx, h.interval,
		func(ctx context.Context) (*model.AnalysisStatus, error) {
			return h.analysis.Status(ctx, scope, repo, branch)
		},
		func(st *model.AnalysisStatus) bool { return st.Terminal() },
		func(st *model.AnalysisStatus, err error) error {
			msg := statusMessage{Phase: view.From(st, err, nil).Phase.String()}
			if err != nil {
				msg.Error = apperror.Message(err)
			} else {
				msg.Status, msg.Message, msg.Terminal = st.Status, st.Message, st.Terminal()
			}
			return wsjson.Write(ctx, c, msg)
		},
	)
	h.closeFeed(ctx, c, err, "analysis finished")
}

// Comments serves GET /dashboard/pull-requests/{repo}/pulls/{prId}/live as
// a WebSocket. It polls until the page goes away.
func (h *LiveHandler) Comments(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repo")
	id, err := prID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	scope, err := h.scope(r)
	if err != nil {
		writeError(w, err)
		return
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer c.CloseNow()
	ctx := c.CloseRead(r.Context())

	loading := commentsMessage{Phase: view.Pending[[]model.PRComment]().Phase.String(), Comments: []model.PRComment{}}
	if err := wsjson.Write(ctx, c, loading); err != nil {
		h.closeFeed(ctx, c, err, "")
		return
	}

	err = poll.Every(ctx, h.interval,
		func(ctx context.Context) ([]model.PRComment, error) {
			return h.pulls.Comments(ctx, scope, repo, id)
		},
		func(comments []model.PRComment, err error) error {
			msg := commentsMessage{Phase: view.FromSlice(comments, err).Phase.String(), Comments: comments}
			if err != nil {
				msg.Error = apperror.Message(err)
			}
			if msg.Comments == nil {
				msg.Comments = []model.PRComment{}
			}
			return wsjson.Write(ctx, c, msg)
		},
	)
	h.closeFeed(ctx, c, err, "")
}

// closeFeed ends a feed. A terminal result closes normally; a closed page
// needs nothing; anything else is logged.
func (h *LiveHandler) closeFeed(ctx context.Context, c *websocket.Conn, err error, reason string) {
	switch {
	case err == nil:
		c.Close(websocket.StatusNormalClosure, reason)
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		// The view went away.
	default:
		h.Logger.Debug("live feed ended", slog.String("error", err.Error()))
		c.Close(websocket.StatusInternalError, "feed failed")
	}
}
