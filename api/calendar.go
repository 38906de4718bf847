package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Domenick1991/barberbooking/internal/clock"
	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/service/calendar"
	"github.com/Domenick1991/barberbooking/internal/service/roster"
	"github.com/gin-gonic/gin"
)

type SlotCalendar interface {
	Regenerate(ctx context.Context, now time.Time) (calendar.RegenerateResult, error)
	ListByStatus(ctx context.Context, status domain.SlotStatus) ([]domain.Slot, error)
}

type RosterReloader interface {
	Reload(ctx context.Context) (roster.Result, error)
}

// CalendarHandler exposes slot grid maintenance to operators.
type CalendarHandler struct {
	calendar SlotCalendar
	roster   RosterReloader
	clock    clock.Clock
}

func NewCalendarHandler(cal SlotCalendar, reloader RosterReloader, clk clock.Clock) *CalendarHandler {
	return &CalendarHandler{calendar: cal, roster: reloader, clock: clk}
}

func (h *CalendarHandler) Register(router *gin.RouterGroup) {
	router.GET("/slots", h.slots)
	router.POST("/calendar/regenerate", h.regenerate)
	router.POST("/roster/reload", h.reload)
}

func (h *CalendarHandler) slots(c *gin.Context) {
	status := domain.SlotStatus(c.DefaultQuery("status", string(domain.SlotStatusEmpty)))
	if status != domain.SlotStatusEmpty && status != domain.SlotStatusReserved {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be empty or reserved"})
		return
	}
	list, err := h.calendar.ListByStatus(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *CalendarHandler) regenerate(c *gin.Context) {
	res, err := h.calendar.Regenerate(c.Request.Context(), h.clock.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": res.Deleted, "inserted": res.Inserted, "completed": res.Completed})
}

func (h *CalendarHandler) reload(c *gin.Context) {
	res, err := h.roster.Reload(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"created":  res.Created,
		"updated":  res.Updated,
		"inserted": res.Regenerated.Inserted,
		"deleted":  res.Regenerated.Deleted,
	})
}
