package domain

// BoardConfigID is the fixed key of the singleton board config record.
const BoardConfigID = "main_board_config"

// BoardConfig holds the display label for each board column.
type BoardConfig struct {
	ID          string                `json:"id"`
	ColumnNames map[TaskStatus]string `json:"columnNames"`
}

// DefaultColumnNames returns the column labels the board ships with.
func DefaultColumnNames() map[TaskStatus]string {
	return map[TaskStatus]string{
		StatusBacklog:    "Beklemede",
		StatusTodo:       "Yapılacak",
		StatusInProgress: "Devam Ediyor",
		StatusDone:       "Tamamlandı",
	}
}

// DefaultBoardConfig returns the singleton config seeded on first run.
func DefaultBoardConfig() BoardConfig {
	return BoardConfig{ID: BoardConfigID, ColumnNames: DefaultColumnNames()}
}

// Validate ensures every fixed column carries a label and no extra keys exist.
func (c *BoardConfig) Validate() error {
	if len(c.ColumnNames) != len(AllStatuses) {
		return Validation("config must label all four columns")
	}
	for _, s := range AllStatuses {
		if c.ColumnNames[s] == "" {
			return Validation("column label missing for " + string(s))
		}
	}
	return nil
}
