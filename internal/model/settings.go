package model

// Setting keys understood by the application.
const (
	SettingStartView           = "startView"
	SettingTasksPageSize       = "tasksPageSize"
	SettingDefaultTaskPriority = "defaultTaskPriority"
	SettingConfirmBeforeDelete = "confirmBeforeDelete"
	SettingActiveBoardID       = "activeBoardId"
)

// SettingKeys lists every setting returned by a settings read.
var SettingKeys = []string{
	SettingStartView,
	SettingTasksPageSize,
	SettingDefaultTaskPriority,
	SettingConfirmBeforeDelete,
	SettingActiveBoardID,
}

// Settings maps setting keys to their decoded values.
type Settings map[string]any

// DefaultSettings returns the values used for keys never saved.
func DefaultSettings() Settings {
	return Settings{
		SettingStartView:           "boards",
		SettingTasksPageSize:       float64(20),
		SettingDefaultTaskPriority: PriorityMedium,
		SettingConfirmBeforeDelete: true,
		SettingActiveBoardID:       nil,
	}
}
