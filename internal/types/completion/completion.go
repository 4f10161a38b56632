package completion

type ToggleRequest struct {
	HabitID int64 `json:"habit_id" validate:"required"`
}

type ToggleResult struct {
	Completed bool   `json:"completed"`
	Date      string `json:"date"`
	Streak    int    `json:"streak"`
}
