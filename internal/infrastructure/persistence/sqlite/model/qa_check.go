package model

type QACheck struct {
	QACheckID      uint64 `gorm:"column:qa_check_id;primaryKey;autoIncrement"`
	TicketID       string `gorm:"column:ticket_id;type:text;not null;index"`
	IdempotencyKey string `gorm:"column:idempotency_key;type:text;not null;uniqueIndex"`
	CheckName      string `gorm:"column:check_name;type:text;not null"`
	PayloadID      string `gorm:"column:payload_id;type:text;not null"`
	Platform       string `gorm:"column:platform;type:text;not null"`
	Geo            string `gorm:"column:geo;type:text;not null"`
	Verdict        string `gorm:"column:verdict;type:text;not null"`
	Detail         string `gorm:"column:detail;type:text;not null"`
	CreatedAt      string `gorm:"column:created_at;type:text;not null;index"`
}

func (QACheck) TableName() string {
	return "qa_checks"
}
