package model

type Campaign struct {
	ID               string  `gorm:"column:id;type:text;primaryKey"`
	Name             string  `gorm:"column:name;type:text;not null"`
	TitleID          string  `gorm:"column:title_id;type:text;not null"`
	MarketID         string  `gorm:"column:market_id;type:text;not null"`
	ChannelID        string  `gorm:"column:channel_id;type:text;not null"`
	AudienceID       string  `gorm:"column:audience_id;type:text;not null"`
	Objective        string  `gorm:"column:objective;type:text;not null"`
	BudgetUSD        float64 `gorm:"column:budget_usd;not null"`
	StartDate        string  `gorm:"column:start_date;type:text;not null"`
	EndDate          string  `gorm:"column:end_date;type:text;not null"`
	Geos             string  `gorm:"column:geos;type:text;not null"`
	LandingPage      string  `gorm:"column:landing_page;type:text;not null"`
	CreativeWidth    int     `gorm:"column:creative_width;not null"`
	CreativeHeight   int     `gorm:"column:creative_height;not null"`
	CreativeFormat   string  `gorm:"column:creative_format;type:text;not null"`
	CreativeDuration int     `gorm:"column:creative_duration_seconds;not null"`
	Sponsorship      bool    `gorm:"column:sponsorship;not null"`
}

func (Campaign) TableName() string {
	return "campaigns"
}
