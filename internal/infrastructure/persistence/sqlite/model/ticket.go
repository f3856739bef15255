package model

type Ticket struct {
	ID          string  `gorm:"column:id;type:text;primaryKey"`
	CampaignID  string  `gorm:"column:campaign_id;type:text;not null;index"`
	RequestType string  `gorm:"column:request_type;type:text;not null"`
	Stage       string  `gorm:"column:stage;type:text;not null;index"`
	Assignee    string  `gorm:"column:assignee;type:text;not null"`
	DueDate     *string `gorm:"column:due_date;type:text"`
	SLAHours    int     `gorm:"column:sla_hours;not null"`
	Notes       string  `gorm:"column:notes;type:text;not null"`
	CreatedAt   string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt   string  `gorm:"column:updated_at;type:text;not null"`
}

func (Ticket) TableName() string {
	return "tickets"
}
