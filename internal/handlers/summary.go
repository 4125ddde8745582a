package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"expense-manager/internal/graph"
	"expense-manager/internal/models"
)

// PeriodStart computes the earliest date included in an aggregation window.
// "daily" starts today, "weekly" on the most recent Monday on or before
// today, "monthly" on the first of the current month. Any other period
// defaults to today.
func PeriodStart(period string, now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch period {
	case "weekly":
		daysSinceMonday := (int(today.Weekday()) + 6) % 7
		return today.AddDate(0, 0, -daysSinceMonday)
	case "monthly":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return today
	}
}

// SummaryViewModel is the data passed to the summary template.
type SummaryViewModel struct {
	Period string
	Since  string
	Totals []models.CategoryTotal
	Total  float64
}

// Summary renders per-category totals for the requested period.
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	period := r.PathValue("period")
	since := PeriodStart(period, time.Now()).Format(models.DateLayout)

	totals, err := h.db.CategoryTotalsSince(user.ID, since)
	if err != nil {
		slog.Error("category totals", "error", err, "user_id", user.ID, "period", period)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var total float64
	for _, ct := range totals {
		total += ct.Total
	}

	h.render(w, "summary.html", SummaryViewModel{
		Period: period,
		Since:  since,
		Totals: totals,
		Total:  total,
	})
}

// Graph streams a PNG bar chart of the period's per-category totals.
func (h *Handlers) Graph(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	period := r.PathValue("period")
	since := PeriodStart(period, time.Now()).Format(models.DateLayout)

	totals, err := h.db.CategoryTotalsSince(user.ID, since)
	if err != nil {
		slog.Error("category totals", "error", err, "user_id", user.ID, "period", period)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	title := chartTitle(period)
	w.Header().Set("Content-Type", "image/png")
	if err := graph.RenderCategoryBars(w, title, totals); err != nil {
		slog.Error("render chart", "error", err, "period", period)
	}
}

func chartTitle(period string) string {
	if period == "" {
		return "Expenses"
	}
	return strings.ToUpper(period[:1]) + period[1:] + " Expenses"
}
