package api

import (
	"net/http"

	"github.com/dmitchell6/trello-weekly-report/integrations"
	"github.com/dmitchell6/trello-weekly-report/internal/config"
	"github.com/dmitchell6/trello-weekly-report/internal/models"
	"github.com/dmitchell6/trello-weekly-report/internal/report"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Handler struct {
	Cfg    *config.Config
	DB     *gorm.DB
	Trello *integrations.TrelloClient
	Mailer *integrations.Mailer // nil when email is not configured
}

// upstreamError hides Trello's response details from the client; the real
// error is logged server-side.
func upstreamError(c *gin.Context, what string, err error) {
	zap.L().Error("Trello request failed", zap.String("what", what), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch data from Trello"})
}

// ListsHandler proxies /boards/{id}/lists with server-held credentials. The
// boardId is an opaque string; a bogus one is Trello's 404, our 500.
func (h *Handler) ListsHandler(c *gin.Context) {
	body, err := h.Trello.BoardListsRaw(c.Request.Context(), c.Query("boardId"))
	if err != nil {
		upstreamError(c, "lists", err)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// CardsHandler proxies /boards/{id}/cards.
func (h *Handler) CardsHandler(c *gin.Context) {
	body, err := h.Trello.BoardCardsRaw(c.Request.Context(), c.Query("boardId"))
	if err != nil {
		upstreamError(c, "cards", err)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// ReportHandler generates the completed-task report server-side: resolve the
// Done list, filter cards by last activity inside the window, render the
// table, record the run. With email=true the rendered HTML is also sent to
// the configured recipient.
func (h *Handler) ReportHandler(c *gin.Context) {
	boardID := c.Query("boardId")
	if boardID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "boardId is required"})
		return
	}

	// Validation happens before any network call.
	rng, err := report.ParseRange(c.Query("start"), c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wantEmail := c.Query("email") == "true"
	if wantEmail && h.Mailer == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email delivery is not configured"})
		return
	}

	// Lists and cards are independent queries; fetch them together.
	var (
		lists []models.List
		cards []models.Card
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		lists, err = h.Trello.BoardLists(ctx, boardID)
		return err
	})
	g.Go(func() error {
		var err error
		cards, err = h.Trello.BoardCards(ctx, boardID)
		return err
	})
	if err := g.Wait(); err != nil {
		upstreamError(c, "report", err)
		return
	}

	doneList, err := report.FindList(lists, h.Cfg.DoneListName)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	rep := report.Report{BoardID: boardID, Start: rng.Start, End: rng.End}
	rep.Tasks = report.Filter(cards, doneList.ID, rng)
	rep.Count = len(rep.Tasks)

	// A missing Doing list just means no in-progress section.
	if doingList, err := report.FindList(lists, h.Cfg.DoingListName); err == nil {
		rep.Tasks = append(rep.Tasks, report.DoingActivity(cards, doingList.ID, rng)...)
	}

	html, err := report.Render(rep)
	if err != nil {
		zap.L().Error("Failed to render report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render report"})
		return
	}

	if wantEmail {
		if err := h.Mailer.Send(h.Cfg.EmailSubject, html); err != nil {
			zap.L().Error("Failed to email report", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send report email"})
			return
		}
		zap.L().Info("Report emailed", zap.String("boardID", boardID), zap.Int("tasks", rep.Count))
	}

	run := models.ReportRun{
		BoardID:   boardID,
		Start:     rng.Start,
		End:       rng.End,
		TaskCount: rep.Count,
		Emailed:   wantEmail,
	}
	if result := h.DB.Create(&run); result.Error != nil {
		// History is best effort; the report itself already succeeded.
		zap.L().Error("Failed to record report run", zap.Error(result.Error))
	}

	c.JSON(http.StatusOK, gin.H{
		"boardId": rep.BoardID,
		"start":   rep.Start,
		"end":     rep.End,
		"count":   rep.Count,
		"tasks":   rep.Tasks,
		"html":    html,
		"emailed": wantEmail,
	})
}

// HistoryHandler lists past report runs, newest first.
func (h *Handler) HistoryHandler(c *gin.Context) {
	var runs []models.ReportRun
	if result := h.DB.Order("created_at desc").Limit(50).Find(&runs); result.Error != nil {
		zap.L().Error("Failed to load report history", zap.Error(result.Error))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load report history"})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (h *Handler) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
