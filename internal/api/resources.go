package api

import (
	"context"
	"fmt"

	"github.com/nabekah/farmkonnect-production-sub012/internal/store"
)

// TasksResponse wraps the task listing.
type TasksResponse struct {
	Tasks []store.Task `json:"tasks"`
}

// ActivitiesResponse wraps the activity listing.
type ActivitiesResponse struct {
	Activities []store.Activity `json:"activities"`
}

// ExpensesResponse wraps the expense listing.
type ExpensesResponse struct {
	Expenses []store.Expense `json:"expenses"`
}

// RevenuesResponse wraps the revenue listing.
type RevenuesResponse struct {
	Revenues []store.Revenue `json:"revenues"`
}

// AlertRequest raises an urgent alert on a farm.
type AlertRequest struct {
	Message string `json:"message"`
}

// AlertResponse reports how many live connections received the alert.
type AlertResponse struct {
	Delivered int `json:"delivered"`
}

// ListTasks fetches the open tasks for a farm.
func (c *Client) ListTasks(ctx context.Context, farmID int64) ([]store.Task, error) {
	var resp TasksResponse
	path := fmt.Sprintf("/api/farms/%d/tasks", farmID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return resp.Tasks, nil
}

// ListActivities fetches the recent activities for a farm.
func (c *Client) ListActivities(ctx context.Context, farmID int64) ([]store.Activity, error) {
	var resp ActivitiesResponse
	path := fmt.Sprintf("/api/farms/%d/activities", farmID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return resp.Activities, nil
}

// ListExpenses fetches the expense records for a farm.
func (c *Client) ListExpenses(ctx context.Context, farmID int64) ([]store.Expense, error) {
	var resp ExpensesResponse
	path := fmt.Sprintf("/api/farms/%d/expenses", farmID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return resp.Expenses, nil
}

// ListRevenues fetches the revenue records for a farm.
func (c *Client) ListRevenues(ctx context.Context, farmID int64) ([]store.Revenue, error) {
	var resp RevenuesResponse
	path := fmt.Sprintf("/api/farms/%d/revenues", farmID)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list revenues: %w", err)
	}
	return resp.Revenues, nil
}

// RaiseAlert broadcasts an urgent alert to everyone connected on a farm.
func (c *Client) RaiseAlert(ctx context.Context, farmID int64, message string) (int, error) {
	var resp AlertResponse
	path := fmt.Sprintf("/api/farms/%d/alerts", farmID)
	if err := c.post(ctx, path, AlertRequest{Message: message}, &resp); err != nil {
		return 0, fmt.Errorf("raise alert: %w", err)
	}
	return resp.Delivered, nil
}
