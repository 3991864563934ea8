package dto

// ListNotificationsInput pages through the caller's notifications.
type ListNotificationsInput struct {
	Limit int `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Maximum notifications to return"`
}
