package models

// OptionModel is a generic key-value row for small pieces of persisted state.
type OptionModel struct {
	Name  string `json:"name"  gorm:"primaryKey;size:191"`
	Value string `json:"value" gorm:"type:text"`
}

func (OptionModel) TableName() string { return "options" }
