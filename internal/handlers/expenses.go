package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"expense-manager/internal/models"
)

// ListViewModel is the data passed to the listing template.
type ListViewModel struct {
	Expenses []models.Expense
	Search   string
	Total    float64
}

// FormViewModel is the data passed to the add/edit form template.
type FormViewModel struct {
	Expense    *models.Expense
	IsEdit     bool
	Categories []string
	Error      string
}

// AddExpenseForm renders the form to record a new expense.
func (h *Handlers) AddExpenseForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "expense_form.html", FormViewModel{Categories: models.SuggestedCategories})
}

// SaveExpense creates a new expense and redirects to the listing.
func (h *Handlers) SaveExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	category, amount, note, spentOn, err := parseExpenseForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.db.CreateExpense(user.ID, category, amount, note, spentOn); err != nil {
		slog.Error("create expense", "error", err, "user_id", user.ID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/view", http.StatusFound)
}

// ViewExpenses renders the expense listing, optionally narrowed by a
// free-text search across every visible column.
func (h *Handlers) ViewExpenses(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	var expenses []models.Expense
	var err error
	if search != "" {
		expenses, err = h.db.SearchExpenses(user.ID, search)
	} else {
		expenses, err = h.db.ListExpenses(user.ID)
	}
	if err != nil {
		slog.Error("list expenses", "error", err, "user_id", user.ID, "search", search)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var total float64
	for _, e := range expenses {
		total += e.Amount
	}

	h.render(w, "view.html", ListViewModel{Expenses: expenses, Search: search, Total: total})
}

// EditExpenseForm renders the edit form pre-filled with the expense's fields.
func (h *Handlers) EditExpenseForm(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	expense, err := h.db.GetExpense(id, user.ID)
	if err != nil {
		http.Error(w, "Expense not found", http.StatusNotFound)
		return
	}

	h.render(w, "expense_form.html", FormViewModel{
		Expense:    expense,
		IsEdit:     true,
		Categories: models.SuggestedCategories,
	})
}

// UpdateExpense applies an edit. Updating an identifier that does not exist
// affects zero rows and still redirects to the listing.
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	category, amount, note, spentOn, err := parseExpenseForm(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.db.UpdateExpense(&models.Expense{
		ID: id, UserID: user.ID,
		Category: category, Amount: amount, Note: note, SpentOn: spentOn,
	}); err != nil {
		slog.Error("update expense", "error", err, "id", id, "user_id", user.ID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/view", http.StatusFound)
}

// DeleteExpense removes the expense if present and redirects to the listing.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	if err := h.db.DeleteExpense(id, user.ID); err != nil {
		slog.Error("delete expense", "error", err, "id", id, "user_id", user.ID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/view", http.StatusFound)
}

// parseExpenseForm extracts and coerces the shared create/update fields.
// Amount must be numeric; picking "Other" with a custom value stores the
// custom value; a blank date stays blank and is defaulted downstream.
func parseExpenseForm(r *http.Request) (category string, amount float64, note, spentOn string, err error) {
	if err := r.ParseForm(); err != nil {
		return "", 0, "", "", err
	}

	amount, err = strconv.ParseFloat(strings.TrimSpace(r.FormValue("amount")), 64)
	if err != nil {
		return "", 0, "", "", fmt.Errorf("amount must be a number")
	}

	category = r.FormValue("category")
	if category == "" {
		return "", 0, "", "", fmt.Errorf("category is required")
	}
	if custom := strings.TrimSpace(r.FormValue("custom_category")); category == "Other" && custom != "" {
		category = custom
	}

	spentOn = strings.TrimSpace(r.FormValue("spent_on"))
	if spentOn != "" {
		if _, err := time.Parse(models.DateLayout, spentOn); err != nil {
			return "", 0, "", "", fmt.Errorf("date must be YYYY-MM-DD")
		}
	}

	return category, amount, r.FormValue("note"), spentOn, nil
}
