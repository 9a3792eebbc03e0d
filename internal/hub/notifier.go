package hub

import (
	"log/slog"

	"github.com/nabekah/farmkonnect-production-sub012/internal/event"
	"github.com/nabekah/farmkonnect-production-sub012/internal/store"
)

// Notifier is the typed fan-out surface the business layer calls when
// records change. Each method builds the matching wire event and hands it
// to the broadcaster; delivery failures only reduce the returned count.
type Notifier struct {
	bcast  *Broadcaster
	logger *slog.Logger
}

// NewNotifier creates a notifier over a broadcaster.
func NewNotifier(bcast *Broadcaster, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{bcast: bcast, logger: logger}
}

// TaskAssigned notifies the assignee of a new task on every device.
func (n *Notifier) TaskAssigned(t store.Task) int {
	var due string
	if t.DueDate != nil {
		due = t.DueDate.Format("2006-01-02")
	}
	return n.toUser(t.AssigneeID, event.TypeTaskAssigned, event.TaskAssigned{
		TaskID:   t.ID,
		Title:    t.Title,
		Priority: t.Priority,
		DueDate:  due,
	})
}

// ActivityApproved notifies the activity owner.
func (n *Notifier) ActivityApproved(a store.Activity, approverID int64) int {
	return n.toUser(a.UserID, event.TypeActivityApproved, event.ActivityApproved{
		ActivityID: a.ID,
		ApproverID: approverID,
	})
}

// ActivityRejected notifies the activity owner.
func (n *Notifier) ActivityRejected(a store.Activity, reason string) int {
	return n.toUser(a.UserID, event.TypeActivityRejected, event.ActivityRejected{
		ActivityID: a.ID,
		Reason:     reason,
	})
}

// UrgentAlert broadcasts an emergency message to a farm.
func (n *Notifier) UrgentAlert(farmID int64, message string) int {
	return n.toFarm(farmID, event.TypeUrgentAlert, event.UrgentAlert{Message: message})
}

// WeatherAlert broadcasts a weather warning to a farm.
func (n *Notifier) WeatherAlert(farmID int64, message, severity string) int {
	return n.toFarm(farmID, event.TypeWeatherAlert, event.WeatherAlert{
		Message:  message,
		Severity: severity,
	})
}

// EquipmentAlert broadcasts an equipment fault to a farm.
func (n *Notifier) EquipmentAlert(farmID, equipmentID int64, message string) int {
	return n.toFarm(farmID, event.TypeEquipmentAlert, event.EquipmentAlert{
		EquipmentID: equipmentID,
		Message:     message,
	})
}

// ExpenseCreated announces a new expense to the farm and nudges financial
// dashboards to refresh.
func (n *Notifier) ExpenseCreated(e store.Expense) int {
	delivered := n.toFarm(e.FarmID, event.TypeExpenseCreated, expensePayload(e))
	n.financialRefresh(e.FarmID)
	return delivered
}

// ExpenseUpdated announces an expense change to the farm.
func (n *Notifier) ExpenseUpdated(e store.Expense) int {
	delivered := n.toFarm(e.FarmID, event.TypeExpenseUpdated, expensePayload(e))
	n.financialRefresh(e.FarmID)
	return delivered
}

// RevenueCreated announces a new revenue record to the farm.
func (n *Notifier) RevenueCreated(r store.Revenue) int {
	delivered := n.toFarm(r.FarmID, event.TypeRevenueCreated, revenuePayload(r))
	n.financialRefresh(r.FarmID)
	return delivered
}

// RevenueUpdated announces a revenue change to the farm.
func (n *Notifier) RevenueUpdated(r store.Revenue) int {
	delivered := n.toFarm(r.FarmID, event.TypeRevenueUpdated, revenuePayload(r))
	n.financialRefresh(r.FarmID)
	return delivered
}

func (n *Notifier) financialRefresh(farmID int64) {
	n.toFarm(farmID, event.TypeFinancialRefresh, event.FinancialRefresh{FarmID: farmID})
}

func (n *Notifier) toUser(userID int64, t event.Type, payload any) int {
	env, err := event.New(t, payload)
	if err != nil {
		n.logger.Error("build notification", "type", t, "error", err)
		return 0
	}
	return n.bcast.SendToUser(userID, env)
}

func (n *Notifier) toFarm(farmID int64, t event.Type, payload any) int {
	env, err := event.New(t, payload)
	if err != nil {
		n.logger.Error("build notification", "type", t, "error", err)
		return 0
	}
	return n.bcast.BroadcastToFarm(farmID, env)
}

func expensePayload(e store.Expense) event.ExpenseChange {
	return event.ExpenseChange{ExpenseID: e.ID, Amount: e.Amount, Category: e.Category}
}

func revenuePayload(r store.Revenue) event.RevenueChange {
	return event.RevenueChange{RevenueID: r.ID, Amount: r.Amount, Source: r.Source}
}
