package domain

import (
	"fmt"
	"time"
)

// NotificationType classifies why a notification was raised.
type NotificationType string

const (
	NotificationOverdue    NotificationType = "OVERDUE"
	NotificationDueSoon    NotificationType = "DUE_SOON"
	NotificationAssignment NotificationType = "ASSIGNMENT"
)

// Notification is one entry of a member's feed. The task title is denormalized
// so the entry stays readable after the task is deleted.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipientId"`
	TaskID      string           `json:"taskId"`
	TaskTitle   string           `json:"taskTitle"`
	Type        NotificationType `json:"type"`
	Message     string           `json:"message"`
	IsRead      bool             `json:"isRead"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// IsDueAlarm reports whether the notification is a due-date alarm, the kind
// the rules engine deletes once the task reaches Done.
func (n *Notification) IsDueAlarm() bool {
	return n.Type == NotificationOverdue || n.Type == NotificationDueSoon
}

func overdueMessage(taskTitle string) string {
	return fmt.Sprintf("%q görevinin son tarihi geçti.", taskTitle)
}

func dueSoonMessage(taskTitle string) string {
	return fmt.Sprintf("%q görevinin son tarihi yaklaşıyor.", taskTitle)
}

func assignmentMessage(actorName, taskTitle string) string {
	return fmt.Sprintf("%s sizi %q görevine atadı.", actorName, taskTitle)
}
