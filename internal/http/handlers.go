package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/validation"

	"github.com/shopspring/decimal"
)

// Messages shown by the entry form.
const (
	msgEntryAdded   = "Entry added!"
	msgInvalidBody  = "Invalid request body"
	msgSaveFailed   = "Could not save the entry, please retry."
	msgInvalidGoal  = "Savings goal must be a number"
	msgGoalAchieved = "Goal achieved!"
)

type (
	barRow struct {
		Label  string
		Amount string
		Share  string
		Width  int
	}

	tableRow struct {
		Date        string
		Type        string
		Amount      string
		Category    string
		Description string
		Income      bool
	}

	tableView struct {
		Revision int
		Empty    string
		Rows     []tableRow
	}

	trendView struct {
		Revision int
		Empty    string
		Monthly  []barRow
		Daily    []barRow
	}

	categoriesView struct {
		Revision int
		Empty    string
		Total    string
		Rows     []barRow
	}

	savingsView struct {
		Revision      int
		Income        string
		Expenses      string
		Savings       string
		Negative      bool
		HasGoal       bool
		Goal          string
		Progress      string
		ProgressWidth int
		Reached       bool
		ReachedText   string
	}

	noticeView struct {
		Kind    NotificationType
		Message string
		Fields  map[string]string
	}
)

// summaryResponse is the JSON chart data served by /api/summary.
type summaryResponse struct {
	Revision   int               `json:"revision"`
	Monthly    []amountPoint     `json:"monthly"`
	Daily      []amountPoint     `json:"daily"`
	Categories []amountPoint     `json:"categories"`
	Income     decimal.Decimal   `json:"income"`
	Expenses   decimal.Decimal   `json:"expenses"`
	Savings    decimal.Decimal   `json:"savings"`
	Goal       decimal.Decimal   `json:"goal"`
	Progress   decimal.Decimal   `json:"progress"`
	Messages   map[string]string `json:"messages,omitempty"`
}

type amountPoint struct {
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}

	var cats []string
	if s.categories != nil {
		var err error
		cats, err = s.categories.Categories(r.Context())
		if err != nil {
			s.log(r.Context()).WarnContext(r.Context(), "Category list error", log.FieldError, err)
		}
	}

	data := struct {
		Today      string
		Categories []string
		Income     core.Kind
		Expense    core.Kind
	}{
		Today:      core.DateOf(time.Now()).String(),
		Categories: cats,
		Income:     core.Income,
		Expense:    core.Expense,
	}
	s.render(w, r, "index.html", data)
}

func (s *Server) handleAppendEntry(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.log(ctx).WarnContext(ctx, "Parse body error", log.FieldError, err)
		BadRequestError(msgInvalidBody).Write(w)
		return
	}

	entry, err := s.validator.Entry(p.EntryInput())
	if err != nil {
		if s.metrics != nil {
			s.metrics.EntryRejected(err)
		}
		s.rejectEntry(w, r, err)
		return
	}

	ledger, err := s.ledger.Append(ctx, entry)
	if err != nil {
		if errors.Is(err, core.ErrInvalidEntry) {
			s.rejectEntry(w, r, err)
			return
		}
		s.log(ctx).ErrorContext(ctx, "Append entry failed",
			log.NewFields().WithOperation(log.OpAppend).WithEntry(entry).WithError(err).ToSlice()...)
		body, _ := s.fragment("notice.html", noticeView{Kind: NotificationError, Message: msgSaveFailed})
		InternalServerError(msgSaveFailed).BodyHTML(body).TriggerErrorNotification(msgSaveFailed).Write(w)
		return
	}

	body, err := s.fragment("notice.html", noticeView{Kind: NotificationSuccess, Message: msgEntryAdded})
	if err != nil {
		s.log(ctx).ErrorContext(ctx, "Notice render failed", log.FieldError, err)
		body = msgEntryAdded
	}
	NewHTMXResponse().
		TriggerLedgerChanged(ledger.Revision()).
		TriggerFormReset().
		TriggerSuccessNotification(msgEntryAdded).
		BodyHTML(body).
		Write(w)
}

// rejectEntry answers 422 with the rejected fields, when known.
func (s *Server) rejectEntry(w http.ResponseWriter, r *http.Request, err error) {
	view := noticeView{Kind: NotificationError, Message: "Entry rejected: " + err.Error()}
	var fe validation.FieldErrors
	if errors.As(err, &fe) {
		view.Message = "Please fix the highlighted fields."
		view.Fields = fe.Messages()
	}
	s.log(r.Context()).InfoContext(r.Context(), "Entry rejected", log.FieldError, err)

	body, rerr := s.fragment("notice.html", view)
	if rerr != nil {
		UnprocessableEntityError(view.Message).Write(w)
		return
	}
	NewHTMXResponse().
		Status(http.StatusUnprocessableEntity).
		TriggerErrorNotification(view.Message).
		BodyHTML(body).
		Write(w)
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	rep := s.ledger.Report(decimal.Zero)

	view := tableView{Revision: rep.Revision}
	if !rep.HasEntries() {
		view.Empty = core.EmptyHistoryMessage
	}
	for _, e := range rep.EntriesNewestFirst() {
		view.Rows = append(view.Rows, tableRow{
			Date:        e.Date.String(),
			Type:        e.Kind.String(),
			Amount:      formatMoney(e.Amount),
			Category:    e.Category,
			Description: e.Description,
			Income:      e.IsIncome(),
		})
	}
	s.render(w, r, "table.html", view)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	rep := s.ledger.Report(decimal.Zero)

	view := trendView{Revision: rep.Revision}
	if !rep.HasSpending() {
		view.Empty = core.EmptyTrendMessage
		s.render(w, r, "trend.html", view)
		return
	}

	monthMax := decimal.Zero
	for _, m := range rep.Monthly {
		monthMax = decimal.Max(monthMax, m.Total)
	}
	for _, m := range rep.Monthly {
		view.Monthly = append(view.Monthly, barRow{
			Label:  m.Month,
			Amount: formatMoney(m.Total),
			Width:  barWidth(m.Total, monthMax),
		})
	}

	dayMax := decimal.Zero
	for _, d := range rep.Daily {
		dayMax = decimal.Max(dayMax, d.Total)
	}
	for _, d := range rep.Daily {
		view.Daily = append(view.Daily, barRow{
			Label:  d.Date.String(),
			Amount: formatMoney(d.Total),
			Width:  barWidth(d.Total, dayMax),
		})
	}
	s.render(w, r, "trend.html", view)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	rep := s.ledger.Report(decimal.Zero)

	view := categoriesView{Revision: rep.Revision}
	if !rep.HasCategoryBreakdown() {
		view.Empty = core.EmptyBreakdownMessage
		s.render(w, r, "categories.html", view)
		return
	}

	total := rep.Categories.Sum()
	view.Total = formatMoney(total)
	for _, c := range rep.Categories {
		view.Rows = append(view.Rows, barRow{
			Label:  c.Category,
			Amount: formatMoney(c.Total),
			Share:  formatPercent(share(c.Total, total)),
			Width:  barWidth(c.Total, total),
		})
	}
	s.render(w, r, "categories.html", view)
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	goal, err := core.ParseGoal(r.URL.Query().Get("goal"))
	if err != nil {
		UnprocessableEntityError(msgInvalidGoal).Write(w)
		return
	}
	rep := s.ledger.Report(goal)

	view := savingsView{
		Revision: rep.Revision,
		Income:   formatMoney(rep.Income),
		Expenses: formatMoney(rep.Expenses),
		Savings:  formatMoney(rep.Savings),
		Negative: rep.Savings.IsNegative(),
		HasGoal:  rep.Goal.IsPositive(),
		Goal:     formatMoney(rep.Goal),
		Progress: formatPercent(rep.Progress),
		// The bar is clamped for drawing; the printed progress is not.
		ProgressWidth: barWidth(decimal.Min(rep.Progress, hundred), hundred),
		Reached:       rep.GoalReached(),
	}
	if view.Reached {
		view.ReachedText = msgGoalAchieved
	}
	s.render(w, r, "savings.html", view)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	goal, err := core.ParseGoal(r.URL.Query().Get("goal"))
	if err != nil {
		_ = WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": msgInvalidGoal})
		return
	}
	rep := s.ledger.Report(goal)

	resp := summaryResponse{
		Revision:   rep.Revision,
		Monthly:    make([]amountPoint, 0, len(rep.Monthly)),
		Daily:      make([]amountPoint, 0, len(rep.Daily)),
		Categories: make([]amountPoint, 0, len(rep.Categories)),
		Income:     rep.Income,
		Expenses:   rep.Expenses,
		Savings:    rep.Savings,
		Goal:       rep.Goal,
		Progress:   rep.Progress.Round(2),
	}
	for _, m := range rep.Monthly {
		resp.Monthly = append(resp.Monthly, amountPoint{Label: m.Month, Total: m.Total})
	}
	for _, d := range rep.Daily {
		resp.Daily = append(resp.Daily, amountPoint{Label: d.Date.String(), Total: d.Total})
	}
	for _, c := range rep.Categories {
		resp.Categories = append(resp.Categories, amountPoint{Label: c.Category, Total: c.Total})
	}
	if !rep.HasSpending() {
		resp.Messages = map[string]string{
			"trend":      core.EmptyTrendMessage,
			"categories": core.EmptyBreakdownMessage,
		}
	}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		s.log(r.Context()).ErrorContext(r.Context(), "Summary encode failed", log.FieldError, err)
	}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady reports ready once the ledger has been loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status, code := "ready", http.StatusOK
	if !s.ledger.Ready() {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	_ = WriteJSON(w, code, map[string]any{
		"status":         status,
		"timestamp":      time.Now().Format(time.RFC3339),
		"active_clients": s.limiter.ActiveClients(),
	})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	body, err := s.fragment(name, data)
	if err != nil {
		s.log(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		InternalServerError("Could not render the page").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

// fragment executes a template into a string so that render errors can
// still turn into a clean error response.
func (s *Server) fragment(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// log prefers the request-scoped logger installed by the trace middleware.
func (s *Server) log(ctx context.Context) *log.Logger {
	if log.RequestID(ctx) != "" {
		return log.FromContext(ctx)
	}
	return s.logger
}
