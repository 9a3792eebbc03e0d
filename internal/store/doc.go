// Package store is the boundary to the farm business records.
//
// The realtime subsystem only reads the collections that feed notifications
// and the polling fallback (tasks, activities, expenses, revenue) and records
// task acknowledgments. All other record keeping belongs to the main
// application.
package store
