package tasks

// DefineTasks registers all available tasks
func DefineTasks() {
	RegisterHandler(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)
	RegisterHandler(SendNotificationTask.TaskID(), SendNotificationTask.HandleExecution)
	RegisterHandler(SubscriptionSweepTask.TaskID(), SubscriptionSweepTask.HandleExecution)
	RegisterHandler(AppointmentReminderTask.TaskID(), AppointmentReminderTask.HandleExecution)
}
